// Package transaction memegang mesin status transaksi:
// draft -> posted -> (cancelled | reversed). Posting dan pembatalan memanggil
// mesin jurnal di dalam satu transaksi storage; status transaksi tidak pernah
// berubah kalau efek jurnalnya tidak ikut commit.
package transaction

import (
	"errors"
	"time"

	"yayasan-backend/internal/apperror"
	"yayasan-backend/internal/ledger"
	"yayasan-backend/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const maxNumberRetries = 3

type Service struct {
	db     *gorm.DB
	engine *ledger.Engine
}

func NewService(db *gorm.DB, engine *ledger.Engine) *Service {
	return &Service{db: db, engine: engine}
}

type CreateInput struct {
	Type        models.TransactionType
	CategoryID  uint
	Amount      decimal.Decimal
	Date        time.Time
	Description string
	Reference   string
	PostNow     bool // langsung posted, tanpa mampir di draft
	ActorID     uint
}

type UpdateInput struct {
	CategoryID  *uint
	Amount      *decimal.Decimal
	Date        *time.Time
	Description *string
	Reference   *string
	Post        bool // draft -> posted
	Elevated    bool // peran admin; hanya boleh menyentuh field deskriptif pada posted
	ActorID     uint
}

func validTransactionType(t models.TransactionType) bool {
	switch t {
	case models.TransactionTypeIncome, models.TransactionTypeExpense, models.TransactionTypeDonation:
		return true
	}
	return false
}

// checkCategory memastikan kategori ada, aktif, dan tipenya sama dengan transaksi.
func checkCategory(db *gorm.DB, categoryID uint, typ models.TransactionType) (*models.Category, error) {
	var cat models.Category
	if err := db.First(&cat, "id = ?", categoryID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("kategori %d tidak ditemukan", categoryID)
		}
		return nil, err
	}
	if !cat.IsActive {
		return nil, apperror.Validation("kategori %s sudah nonaktif", cat.Name)
	}
	if string(cat.Type) != string(typ) {
		return nil, apperror.Validation("tipe transaksi (%s) tidak cocok dengan tipe kategori (%s)", typ, cat.Type)
	}
	return &cat, nil
}

func (s *Service) Create(in CreateInput) (*models.Transaction, error) {
	if !validTransactionType(in.Type) {
		return nil, apperror.Validation("tipe transaksi tidak dikenal: %s", in.Type)
	}
	if !in.Amount.IsPositive() {
		return nil, apperror.Validation("jumlah harus lebih dari 0")
	}
	if in.Date.IsZero() {
		return nil, apperror.Validation("tanggal transaksi wajib diisi")
	}
	if _, err := checkCategory(s.db, in.CategoryID, in.Type); err != nil {
		return nil, err
	}
	if in.Reference == "" {
		in.Reference = uuid.NewString()
	}

	trx := &models.Transaction{
		Type:        in.Type,
		CategoryID:  in.CategoryID,
		Amount:      in.Amount,
		Date:        in.Date,
		Description: in.Description,
		Reference:   in.Reference,
		Status:      models.TransactionStatusDraft,
		CreatedBy:   in.ActorID,
	}
	if in.PostNow {
		trx.Status = models.TransactionStatusPosted
		trx.VerifiedBy = &in.ActorID
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.createNumbered(tx, trx); err != nil {
			return err
		}
		if in.PostNow {
			if _, err := s.engine.Post(tx, trx); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return trx, nil
}

// createNumbered mengalokasikan nomor TRX dan menyimpan baris transaksi,
// diulang dalam savepoint saat nomor tabrakan.
func (s *Service) createNumbered(tx *gorm.DB, trx *models.Transaction) error {
	year := time.Now().Year()
	var lastErr error
	for attempt := 0; attempt < maxNumberRetries; attempt++ {
		lastErr = tx.Transaction(func(inner *gorm.DB) error {
			no, err := ledger.NextNumber(inner, ledger.SeqTransaction, year)
			if err != nil {
				return err
			}
			trx.TransactionNo = no
			return inner.Create(trx).Error
		})
		if lastErr == nil {
			return nil
		}
		if !errors.Is(lastErr, gorm.ErrDuplicatedKey) {
			return lastErr
		}
		trx.ID = 0
	}
	return apperror.Conflict("nomor transaksi terus tabrakan setelah %d percobaan", maxNumberRetries)
}

// Post memindahkan transaksi draft ke posted dan menulis jurnalnya.
// Update status dijaga klausa WHERE supaya dua pemanggil paralel tidak
// sama-sama mem-posting transaksi yang sama.
func (s *Service) Post(id uint, actorID uint) (*models.JournalEntry, error) {
	var entry *models.JournalEntry
	err := s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Transaction{}).
			Where("id = ? AND status = ?", id, models.TransactionStatusDraft).
			Updates(map[string]interface{}{
				"status":      models.TransactionStatusPosted,
				"verified_by": actorID,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			trx, err := s.Get(tx, id)
			if err != nil {
				return err
			}
			return apperror.InvalidState("transaksi %s berstatus %s, hanya draft yang bisa di-posting", trx.TransactionNo, trx.Status)
		}

		trx, err := s.Get(tx, id)
		if err != nil {
			return err
		}
		entry, err = s.engine.Post(tx, trx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *Service) Update(id uint, in UpdateInput) (*models.Transaction, error) {
	var out *models.Transaction
	err := s.db.Transaction(func(tx *gorm.DB) error {
		trx, err := s.Get(tx, id)
		if err != nil {
			return err
		}

		switch trx.Status {
		case models.TransactionStatusCancelled, models.TransactionStatusReversed:
			return apperror.InvalidState("transaksi %s sudah %s", trx.TransactionNo, trx.Status)

		case models.TransactionStatusPosted:
			// jumlah/kategori/tanggal terkunci selamanya: batalkan lalu buat ulang
			if in.Amount != nil || in.CategoryID != nil || in.Date != nil {
				return apperror.InvalidState("transaksi posted tidak bisa diubah jumlah/kategori/tanggalnya; batalkan dan buat ulang")
			}
			if !in.Elevated {
				return apperror.InvalidState("transaksi posted hanya bisa diubah oleh admin")
			}
			if in.Description != nil {
				trx.Description = *in.Description
			}
			if in.Reference != nil {
				trx.Reference = *in.Reference
			}
			out = trx
			return tx.Save(trx).Error
		}

		// draft: bebas diubah
		if in.Amount != nil {
			if !in.Amount.IsPositive() {
				return apperror.Validation("jumlah harus lebih dari 0")
			}
			trx.Amount = *in.Amount
		}
		if in.CategoryID != nil {
			trx.CategoryID = *in.CategoryID
		}
		if in.Date != nil {
			trx.Date = *in.Date
		}
		if in.Description != nil {
			trx.Description = *in.Description
		}
		if in.Reference != nil {
			trx.Reference = *in.Reference
		}
		if _, err := checkCategory(tx, trx.CategoryID, trx.Type); err != nil {
			return err
		}
		if err := tx.Save(trx).Error; err != nil {
			return err
		}

		if in.Post {
			trx.Status = models.TransactionStatusPosted
			trx.VerifiedBy = &in.ActorID
			if err := tx.Save(trx).Error; err != nil {
				return err
			}
			if _, err := s.engine.Post(tx, trx); err != nil {
				return err
			}
		}
		out = trx
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CancelOrReverse menutup transaksi ke status terminal. Kalau ada jurnal aktif,
// jurnal dibalik dulu dalam transaksi storage yang sama; gagal membalik berarti
// status transaksi juga tidak berubah.
func (s *Service) CancelOrReverse(id uint, actorID uint, target models.TransactionStatus) (*models.Transaction, error) {
	if target != models.TransactionStatusCancelled && target != models.TransactionStatusReversed {
		return nil, apperror.Validation("status tujuan harus cancelled atau reversed")
	}

	var out *models.Transaction
	err := s.db.Transaction(func(tx *gorm.DB) error {
		trx, err := s.Get(tx, id)
		if err != nil {
			return err
		}

		switch trx.Status {
		case models.TransactionStatusDraft:
			if target != models.TransactionStatusCancelled {
				return apperror.InvalidState("transaksi draft tidak punya jurnal untuk dibalik")
			}
			// draft: tidak ada efek buku besar

		case models.TransactionStatusPosted:
			var entry models.JournalEntry
			err := tx.Where("transaction_id = ? AND status = ?", id, models.JournalStatusActive).
				First(&entry).Error
			if err == nil {
				if _, err := s.engine.Reverse(tx, entry.ID, actorID); err != nil {
					return err
				}
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}

		default:
			return apperror.InvalidState("transaksi %s sudah %s", trx.TransactionNo, trx.Status)
		}

		res := tx.Model(&models.Transaction{}).
			Where("id = ? AND status = ?", id, trx.Status).
			Update("status", target)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperror.InvalidState("status transaksi berubah di tengah jalan, ulangi permintaan")
		}

		out, err = s.Get(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Get memuat transaksi beserta kategorinya.
func (s *Service) Get(db *gorm.DB, id uint) (*models.Transaction, error) {
	var trx models.Transaction
	if err := db.Preload("Category").First(&trx, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("transaksi %d tidak ditemukan", id)
		}
		return nil, err
	}
	return &trx, nil
}

// GetWithJournal memuat transaksi plus jurnal terakhirnya (aktif atau sudah
// dibalik), lengkap dengan baris-barisnya.
func (s *Service) GetWithJournal(id uint) (*models.Transaction, *models.JournalEntry, error) {
	trx, err := s.Get(s.db, id)
	if err != nil {
		return nil, nil, err
	}

	var entry models.JournalEntry
	err = s.db.Preload("Lines", func(db *gorm.DB) *gorm.DB {
		return db.Order("line_order asc")
	}).Where("transaction_id = ?", id).Order("id desc").First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return trx, nil, nil
		}
		return nil, nil, err
	}
	return trx, &entry, nil
}

type ListFilter struct {
	Year       int
	Month      int
	CategoryID uint
	Status     models.TransactionStatus
}

func (s *Service) List(f ListFilter) ([]models.Transaction, error) {
	q := s.db.Preload("Category").Order("date desc, id desc")
	if f.Year > 0 && f.Month > 0 {
		start := time.Date(f.Year, time.Month(f.Month), 1, 0, 0, 0, 0, time.UTC)
		q = q.Where("date >= ? AND date < ?", start, start.AddDate(0, 1, 0))
	} else if f.Year > 0 {
		start := time.Date(f.Year, 1, 1, 0, 0, 0, 0, time.UTC)
		q = q.Where("date >= ? AND date < ?", start, start.AddDate(1, 0, 0))
	}
	if f.CategoryID > 0 {
		q = q.Where("category_id = ?", f.CategoryID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}

	var trxs []models.Transaction
	if err := q.Find(&trxs).Error; err != nil {
		return nil, err
	}
	return trxs, nil
}
