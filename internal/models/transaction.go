package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionTypeIncome   TransactionType = "income"
	TransactionTypeExpense  TransactionType = "expense"
	TransactionTypeDonation TransactionType = "donation"
)

type TransactionStatus string

const (
	TransactionStatusDraft     TransactionStatus = "draft"
	TransactionStatusPosted    TransactionStatus = "posted"
	TransactionStatusCancelled TransactionStatus = "cancelled"
	TransactionStatusReversed  TransactionStatus = "reversed"
)

// Transaction: satu peristiwa keuangan. Nomor format TRX-<tahun>-<urut>,
// urutan di-reset tiap tahun. Setelah posted, jumlah dan kategori tidak bisa diubah.
type Transaction struct {
	ID            uint            `gorm:"primaryKey"`
	TransactionNo string          `gorm:"size:30;uniqueIndex;not null"`
	Type          TransactionType `gorm:"size:20;not null"` // harus sama dengan tipe kategori
	CategoryID    uint            `gorm:"index;not null"`
	Category      Category
	Amount        decimal.Decimal   `gorm:"type:decimal(20,2);not null"`
	Date          time.Time         `gorm:"index;not null"`
	Description   string            `gorm:"size:255"`
	Reference     string            `gorm:"size:64"` // nomor referensi eksternal, diisi otomatis kalau kosong
	Status        TransactionStatus `gorm:"size:20;index;not null"`
	CreatedBy     uint              `gorm:"not null"`
	VerifiedBy    *uint             // siapa yang mem-posting
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
