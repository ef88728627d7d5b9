// Package budget mengelola anggaran per periode dan rekonsiliasinya terhadap
// transaksi posted. Rekonsiliasi hanya membaca buku besar dan menulis ulang
// field turunan pada item anggaran; dipanggil malas saat anggaran aktif dibaca,
// bukan pada jalur panas posting transaksi.
package budget

import (
	"errors"
	"strings"
	"time"

	"yayasan-backend/internal/apperror"
	"yayasan-backend/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

type ItemInput struct {
	CategoryID uint
	Amount     decimal.Decimal
}

type CreateInput struct {
	Name        string
	Type        models.BudgetType
	StartDate   time.Time
	EndDate     time.Time
	Items       []ItemInput
	Active      bool // langsung aktif, bukan draft
	Description string
	ActorID     uint
}

func validBudgetType(t models.BudgetType) bool {
	switch t {
	case models.BudgetTypeMonthly, models.BudgetTypeQuarterly, models.BudgetTypeAnnual:
		return true
	}
	return false
}

func (s *Service) Create(in CreateInput) (*models.Budget, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, apperror.Validation("nama anggaran wajib diisi")
	}
	if !validBudgetType(in.Type) {
		return nil, apperror.Validation("tipe anggaran tidak dikenal: %s", in.Type)
	}
	if in.StartDate.IsZero() || in.EndDate.IsZero() || !in.EndDate.After(in.StartDate) {
		return nil, apperror.Validation("tanggal akhir harus setelah tanggal mulai")
	}
	if len(in.Items) == 0 {
		return nil, apperror.Validation("anggaran harus punya minimal satu item")
	}

	// total dihitung, bukan dikirim caller
	total := decimal.Zero
	items := make([]models.BudgetItem, 0, len(in.Items))
	for _, it := range in.Items {
		if it.Amount.IsNegative() {
			return nil, apperror.Validation("jumlah item anggaran tidak boleh negatif")
		}
		var cat models.Category
		if err := s.db.First(&cat, "id = ?", it.CategoryID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperror.NotFound("kategori %d tidak ditemukan", it.CategoryID)
			}
			return nil, err
		}
		if !cat.IsActive {
			return nil, apperror.Validation("kategori %s sudah nonaktif", cat.Name)
		}
		total = total.Add(it.Amount)
		items = append(items, models.BudgetItem{
			CategoryID:   it.CategoryID,
			BudgetAmount: it.Amount,
			ActualAmount: decimal.Zero,
			Variance:     it.Amount.Neg(), // belum ada realisasi
		})
	}

	status := models.BudgetStatusDraft
	if in.Active {
		status = models.BudgetStatusActive
	}
	bgt := &models.Budget{
		Name:        in.Name,
		Type:        in.Type,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		TotalBudget: total,
		Status:      status,
		Description: in.Description,
		CreatedBy:   in.ActorID,
		Items:       items,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if in.Active {
			if err := s.checkOverlap(tx, in.Type, in.StartDate, in.EndDate, 0); err != nil {
				return err
			}
		}
		return tx.Create(bgt).Error
	})
	if err != nil {
		return nil, translateOverlap(err, in.Type)
	}
	return bgt, nil
}

// translateOverlap menerjemahkan pelanggaran budgets_active_window_excl
// (lihat internal/database) jadi konflik. checkOverlap hanya memberi pesan
// ramah di jalur biasa; pada read-committed dua transaksi paralel bisa
// sama-sama lolos hitungannya, constraint di storage yang menolak yang kalah.
func translateOverlap(err error, typ models.BudgetType) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23P01" { // exclusion_violation
		return apperror.Conflict("sudah ada anggaran %s aktif yang tumpang tindih periodenya", typ)
	}
	return err
}

// checkOverlap menolak kalau ada anggaran aktif bertipe sama yang jendelanya
// beririsan: existing.start <= new.end AND existing.end >= new.start
// (termasuk saling memuat penuh).
func (s *Service) checkOverlap(tx *gorm.DB, typ models.BudgetType, start, end time.Time, excludeID uint) error {
	var n int64
	q := tx.Model(&models.Budget{}).
		Where("type = ? AND status = ?", typ, models.BudgetStatusActive).
		Where("start_date <= ? AND end_date >= ?", end, start)
	if excludeID > 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return apperror.Conflict("sudah ada anggaran %s aktif yang tumpang tindih periodenya", typ)
	}
	return nil
}

// Activate memindahkan anggaran draft ke aktif, dengan cek tumpang tindih
// di dalam transaksi yang sama dengan update statusnya. Flip status ikut
// diperiksa budgets_active_window_excl, jadi dua aktivasi paralel tidak
// pernah sama-sama lolos.
func (s *Service) Activate(id uint) (*models.Budget, error) {
	var out *models.Budget
	var typ models.BudgetType
	err := s.db.Transaction(func(tx *gorm.DB) error {
		bgt, err := s.load(tx, id)
		if err != nil {
			return err
		}
		typ = bgt.Type
		if bgt.Status != models.BudgetStatusDraft {
			return apperror.InvalidState("anggaran %s berstatus %s, hanya draft yang bisa diaktifkan", bgt.Name, bgt.Status)
		}
		if err := s.checkOverlap(tx, bgt.Type, bgt.StartDate, bgt.EndDate, bgt.ID); err != nil {
			return err
		}
		if err := tx.Model(&models.Budget{}).Where("id = ?", id).
			Update("status", models.BudgetStatusActive).Error; err != nil {
			return err
		}
		bgt.Status = models.BudgetStatusActive
		out = bgt
		return nil
	})
	if err != nil {
		return nil, translateOverlap(err, typ)
	}
	return out, nil
}

func (s *Service) Close(id uint) (*models.Budget, error) {
	bgt, err := s.load(s.db, id)
	if err != nil {
		return nil, err
	}
	if bgt.Status != models.BudgetStatusActive {
		return nil, apperror.InvalidState("anggaran %s berstatus %s, hanya yang aktif bisa ditutup", bgt.Name, bgt.Status)
	}
	if err := s.db.Model(&models.Budget{}).Where("id = ?", id).
		Update("status", models.BudgetStatusClosed).Error; err != nil {
		return nil, err
	}
	bgt.Status = models.BudgetStatusClosed
	return bgt, nil
}

// Recalculate menghitung ulang realisasi tiap item: jumlah transaksi posted
// dalam jendela anggaran per kategori. Idempoten, tidak menyentuh buku besar.
func (s *Service) Recalculate(id uint) (*models.Budget, error) {
	var out *models.Budget
	err := s.db.Transaction(func(tx *gorm.DB) error {
		bgt, err := s.load(tx, id)
		if err != nil {
			return err
		}
		if len(bgt.Items) == 0 {
			out = bgt
			return nil
		}

		catIDs := make([]uint, 0, len(bgt.Items))
		for _, it := range bgt.Items {
			catIDs = append(catIDs, it.CategoryID)
		}

		type catSum struct {
			CategoryID uint
			Total      decimal.Decimal
		}
		var sums []catSum
		err = tx.Model(&models.Transaction{}).
			Select("category_id, SUM(amount) as total").
			Where("status = ? AND date >= ? AND date <= ? AND category_id IN ?",
				models.TransactionStatusPosted, bgt.StartDate, bgt.EndDate, catIDs).
			Group("category_id").
			Scan(&sums).Error
		if err != nil {
			return err
		}
		actuals := make(map[uint]decimal.Decimal, len(sums))
		for _, r := range sums {
			actuals[r.CategoryID] = r.Total
		}

		for i := range bgt.Items {
			it := &bgt.Items[i]
			actual, ok := actuals[it.CategoryID]
			if !ok {
				actual = decimal.Zero
			}
			it.ActualAmount = actual
			it.Variance = actual.Sub(it.BudgetAmount)
			if it.BudgetAmount.IsPositive() {
				it.Percentage = actual.Div(it.BudgetAmount).Mul(decimal.NewFromInt(100)).InexactFloat64()
			} else {
				it.Percentage = 0
			}

			err := tx.Model(&models.BudgetItem{}).Where("id = ?", it.ID).
				Updates(map[string]interface{}{
					"actual_amount": it.ActualAmount,
					"variance":      it.Variance,
					"percentage":    it.Percentage,
				}).Error
			if err != nil {
				return err
			}
		}
		out = bgt
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Get memuat anggaran; yang aktif dihitung ulang dulu realisasinya.
func (s *Service) Get(id uint) (*models.Budget, error) {
	bgt, err := s.load(s.db, id)
	if err != nil {
		return nil, err
	}
	if bgt.Status == models.BudgetStatusActive {
		return s.Recalculate(id)
	}
	return bgt, nil
}

func (s *Service) List() ([]models.Budget, error) {
	var bgts []models.Budget
	if err := s.db.Preload("Items").Order("start_date desc").Find(&bgts).Error; err != nil {
		return nil, err
	}
	return bgts, nil
}

func (s *Service) load(db *gorm.DB, id uint) (*models.Budget, error) {
	var bgt models.Budget
	err := db.Preload("Items").Preload("Items.Category").First(&bgt, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("anggaran %d tidak ditemukan", id)
		}
		return nil, err
	}
	return &bgt, nil
}
