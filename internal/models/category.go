package models

import "time"

type CategoryType string

const (
	CategoryTypeIncome   CategoryType = "income"
	CategoryTypeExpense  CategoryType = "expense"
	CategoryTypeDonation CategoryType = "donation"
)

// Category: kategori transaksi, terikat ke satu akun.
// Kategori tidak dihapus keras; dinonaktifkan kalau masih direferensikan.
type Category struct {
	ID          uint         `gorm:"primaryKey"`
	Name        string       `gorm:"size:100;not null"`
	Type        CategoryType `gorm:"size:20;not null"`
	AccountID   uint         `gorm:"index;not null"` // akun pemilik
	Account     Account
	ParentID    *uint `gorm:"index"` // induk opsional, tipe harus sama
	Parent      *Category
	Description string `gorm:"size:255"`
	IsActive    bool   `gorm:"not null;default:true"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
