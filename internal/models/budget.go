package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type BudgetType string

const (
	BudgetTypeMonthly   BudgetType = "monthly"
	BudgetTypeQuarterly BudgetType = "quarterly"
	BudgetTypeAnnual    BudgetType = "annual"
)

type BudgetStatus string

const (
	BudgetStatusDraft  BudgetStatus = "draft"
	BudgetStatusActive BudgetStatus = "active"
	BudgetStatusClosed BudgetStatus = "closed"
)

// Budget: anggaran per periode. Maksimal satu budget aktif per tipe
// untuk rentang tanggal yang saling tumpang tindih.
type Budget struct {
	ID          uint            `gorm:"primaryKey"`
	Name        string          `gorm:"size:100;not null"`
	Type        BudgetType      `gorm:"size:20;index;not null"`
	StartDate   time.Time       `gorm:"index;not null"`
	EndDate     time.Time       `gorm:"index;not null"` // harus > StartDate
	TotalBudget decimal.Decimal `gorm:"type:decimal(20,2);not null"` // turunan: jumlah item
	Status      BudgetStatus    `gorm:"size:20;index;not null"`
	Description string          `gorm:"size:255"`
	CreatedBy   uint            `gorm:"not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Items []BudgetItem `gorm:"foreignKey:BudgetID"`
}

// BudgetItem: target per kategori. ActualAmount/Variance/Percentage turunan,
// dihitung ulang saat budget aktif dibaca.
type BudgetItem struct {
	ID           uint `gorm:"primaryKey"`
	BudgetID     uint `gorm:"index;not null"`
	CategoryID   uint `gorm:"index;not null"`
	Category     Category
	BudgetAmount decimal.Decimal `gorm:"type:decimal(20,2);not null"`
	ActualAmount decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0"`
	Variance     decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0"` // actual - budget
	Percentage   float64         `gorm:"not null;default:0"`                    // actual/budget*100, 0 kalau budget 0
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
