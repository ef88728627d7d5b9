// Package ledger memegang register akun dan mesin jurnal.
// Registrasi akun dan penulisan jurnal sengaja satu paket: adjustBalance tidak
// diekspor, jadi satu-satunya jalur perubahan saldo adalah posting/pembalikan jurnal.
package ledger

import (
	"errors"
	"strings"

	"yayasan-backend/internal/apperror"
	"yayasan-backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CreateAccountInput struct {
	Code        string
	Name        string
	Type        models.AccountType
	Description string
}

func CreateAccount(db *gorm.DB, in CreateAccountInput) (*models.Account, error) {
	in.Code = strings.TrimSpace(in.Code)
	in.Name = strings.TrimSpace(in.Name)
	if in.Code == "" || in.Name == "" {
		return nil, apperror.Validation("kode dan nama akun wajib diisi")
	}
	switch in.Type {
	case models.AccountTypeAsset, models.AccountTypeLiability, models.AccountTypeEquity,
		models.AccountTypeIncome, models.AccountTypeExpense:
		// ok
	default:
		return nil, apperror.Validation("tipe akun tidak dikenal: %s", in.Type)
	}

	acc := models.Account{
		Code:        in.Code,
		Name:        in.Name,
		Type:        in.Type,
		Description: in.Description,
		IsActive:    true,
	}
	if err := db.Create(&acc).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperror.Conflict("kode akun %s sudah dipakai", in.Code)
		}
		return nil, err
	}
	return &acc, nil
}

func GetAccount(db *gorm.DB, id uint) (*models.Account, error) {
	var acc models.Account
	if err := db.First(&acc, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("akun %d tidak ditemukan", id)
		}
		return nil, err
	}
	return &acc, nil
}

func GetAccountByCode(db *gorm.DB, code string) (*models.Account, error) {
	var acc models.Account
	if err := db.First(&acc, "code = ?", code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("akun dengan kode %s tidak ditemukan", code)
		}
		return nil, err
	}
	return &acc, nil
}

func ListAccounts(db *gorm.DB) ([]models.Account, error) {
	var accs []models.Account
	if err := db.Order("code asc").Find(&accs).Error; err != nil {
		return nil, err
	}
	return accs, nil
}

// adjustBalance menggeser saldo akun secara atomik di level storage
// (increment di SQL, bukan read-modify-write) supaya posting paralel
// ke akun yang sama tidak saling menimpa.
func adjustBalance(tx *gorm.DB, accountID uint, delta decimal.Decimal) error {
	res := tx.Model(&models.Account{}).
		Where("id = ?", accountID).
		Update("balance", gorm.Expr("balance + ?", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperror.NotFound("akun %d tidak ditemukan", accountID)
	}
	return nil
}
