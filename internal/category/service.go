// Package category mengelola katalog kategori transaksi (income/expense/donation)
// dengan pengelompokan induk-anak untuk pelaporan.
package category

import (
	"errors"
	"strings"

	"yayasan-backend/internal/apperror"
	"yayasan-backend/internal/ledger"
	"yayasan-backend/internal/models"

	"gorm.io/gorm"
)

// batas jalan-naik rantai induk; katalog nyata tidak pernah sedalam ini
const maxParentDepth = 100

type CreateInput struct {
	Name        string
	Type        models.CategoryType
	AccountID   uint
	ParentID    *uint
	Description string
}

type UpdateInput struct {
	Name        *string
	Description *string
	ParentID    *uint
	ClearParent bool
}

func validType(t models.CategoryType) bool {
	switch t {
	case models.CategoryTypeIncome, models.CategoryTypeExpense, models.CategoryTypeDonation:
		return true
	}
	return false
}

func CreateCategory(db *gorm.DB, in CreateInput) (*models.Category, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, apperror.Validation("nama kategori wajib diisi")
	}
	if !validType(in.Type) {
		return nil, apperror.Validation("tipe kategori tidak dikenal: %s", in.Type)
	}

	if _, err := ledger.GetAccount(db, in.AccountID); err != nil {
		return nil, err
	}

	if in.ParentID != nil {
		if err := checkParent(db, 0, *in.ParentID, in.Type); err != nil {
			return nil, err
		}
	}

	cat := models.Category{
		Name:        in.Name,
		Type:        in.Type,
		AccountID:   in.AccountID,
		ParentID:    in.ParentID,
		Description: in.Description,
		IsActive:    true,
	}
	if err := db.Create(&cat).Error; err != nil {
		return nil, err
	}
	return &cat, nil
}

func UpdateCategory(db *gorm.DB, id uint, in UpdateInput) (*models.Category, error) {
	cat, err := GetCategory(db, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apperror.Validation("nama kategori tidak boleh kosong")
		}
		cat.Name = name
	}
	if in.Description != nil {
		cat.Description = *in.Description
	}
	if in.ClearParent {
		cat.ParentID = nil
	} else if in.ParentID != nil {
		if err := checkParent(db, cat.ID, *in.ParentID, cat.Type); err != nil {
			return nil, err
		}
		cat.ParentID = in.ParentID
	}

	if err := db.Save(cat).Error; err != nil {
		return nil, err
	}
	return cat, nil
}

// checkParent memastikan induk ada, aktif, bertipe sama, dan tidak membentuk
// siklus: rantai induk dijalani sampai akar, gagal kalau ketemu kategori sendiri.
func checkParent(db *gorm.DB, selfID, parentID uint, typ models.CategoryType) error {
	if parentID == selfID {
		return apperror.Validation("kategori tidak boleh menjadi induk dirinya sendiri")
	}

	var parent models.Category
	if err := db.First(&parent, "id = ?", parentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.Validation("kategori induk %d tidak ditemukan", parentID)
		}
		return err
	}
	if !parent.IsActive {
		return apperror.Validation("kategori induk %s sudah nonaktif", parent.Name)
	}
	if parent.Type != typ {
		return apperror.Validation("tipe kategori induk (%s) berbeda dengan tipe kategori (%s)", parent.Type, typ)
	}

	cur := parent
	for depth := 0; depth < maxParentDepth; depth++ {
		if cur.ParentID == nil {
			return nil
		}
		if *cur.ParentID == selfID {
			return apperror.Validation("kategori induk membentuk siklus")
		}
		if err := db.First(&cur, "id = ?", *cur.ParentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil // rantai putus, anggap akar
			}
			return err
		}
	}
	return apperror.Validation("rantai kategori induk terlalu dalam")
}

// Deactivate menonaktifkan kategori (soft delete eksplisit lewat status, bukan
// hapus keras). Gagal kalau masih ada transaksi, item anggaran, atau anak aktif.
func Deactivate(db *gorm.DB, id uint) error {
	cat, err := GetCategory(db, id)
	if err != nil {
		return err
	}
	if !cat.IsActive {
		return apperror.InvalidState("kategori %s sudah nonaktif", cat.Name)
	}

	var n int64
	if err := db.Model(&models.Transaction{}).Where("category_id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return apperror.Conflict("kategori masih dipakai %d transaksi", n)
	}

	if err := db.Model(&models.BudgetItem{}).Where("category_id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return apperror.Conflict("kategori masih dipakai %d item anggaran", n)
	}

	if err := db.Model(&models.Category{}).Where("parent_id = ? AND is_active = ?", id, true).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return apperror.Conflict("kategori masih punya %d anak aktif", n)
	}

	return db.Model(&models.Category{}).Where("id = ?", id).Update("is_active", false).Error
}

func GetCategory(db *gorm.DB, id uint) (*models.Category, error) {
	var cat models.Category
	if err := db.First(&cat, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("kategori %d tidak ditemukan", id)
		}
		return nil, err
	}
	return &cat, nil
}

func ListCategories(db *gorm.DB, activeOnly bool) ([]models.Category, error) {
	q := db.Order("name asc")
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var cats []models.Category
	if err := q.Find(&cats).Error; err != nil {
		return nil, err
	}
	return cats, nil
}
