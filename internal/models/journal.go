package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type JournalStatus string

const (
	JournalStatusActive   JournalStatus = "active"
	JournalStatusReversed JournalStatus = "reversed"
)

// JournalEntry: jurnal berpasangan (double-entry). Nomor JE-<tahun>-<urut> untuk
// jurnal maju, JER-<tahun>-<urut> untuk jurnal balik, urutan terpisah.
// Tidak pernah di-update kecuali flip status ke reversed.
type JournalEntry struct {
	ID            uint   `gorm:"primaryKey"`
	EntryNo       string `gorm:"size:30;uniqueIndex;not null"`
	TransactionID *uint  `gorm:"index"` // nil untuk jurnal balik
	Transaction   *Transaction
	Date          time.Time       `gorm:"index;not null"`
	Description   string          `gorm:"size:255"`
	TotalDebit    decimal.Decimal `gorm:"type:decimal(20,2);not null"`
	TotalCredit   decimal.Decimal `gorm:"type:decimal(20,2);not null"`
	IsBalanced    bool            `gorm:"not null"` // wajib true untuk tersimpan
	Status        JournalStatus   `gorm:"size:20;index;not null"`

	// jurnal balik menunjuk ke jurnal asal, bukan ke transaksi
	ReversesEntryID *uint `gorm:"index"`
	ReversedBy      *uint
	ReversedAt      *time.Time

	Lines []JournalEntryLine `gorm:"foreignKey:JournalID"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// JournalEntryLine: satu baris jurnal. Tepat satu dari debit/kredit yang non-nol.
type JournalEntryLine struct {
	ID           uint `gorm:"primaryKey"`
	JournalID    uint `gorm:"index;not null"`
	AccountID    uint `gorm:"index;not null"`
	Account      Account
	DebitAmount  decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0"`
	CreditAmount decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0"`
	LineOrder    int             `gorm:"not null"` // baris 1 = debit, baris 2 = kredit
	CreatedAt    time.Time
}
