package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type AccountType string

const (
	AccountTypeAsset     AccountType = "asset"     // aset (kas, bank)
	AccountTypeLiability AccountType = "liability" // kewajiban
	AccountTypeEquity    AccountType = "equity"    // modal
	AccountTypeIncome    AccountType = "income"    // pendapatan
	AccountTypeExpense   AccountType = "expense"   // beban
)

// Account: akun keuangan dengan saldo berjalan.
// Saldo HANYA boleh berubah lewat jurnal (internal/ledger), tidak pernah langsung.
type Account struct {
	ID          uint            `gorm:"primaryKey"`
	Code        string          `gorm:"size:20;uniqueIndex;not null"` // kode akun, contoh "1001" untuk kas utama
	Name        string          `gorm:"size:100;not null"`
	Type        AccountType     `gorm:"size:20;not null"`
	Balance     decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0"` // saldo berjalan
	Description string          `gorm:"size:255"`
	IsActive    bool            `gorm:"not null;default:true"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
