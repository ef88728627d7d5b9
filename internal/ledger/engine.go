package ledger

import (
	"errors"
	"fmt"
	"time"

	"yayasan-backend/internal/apperror"
	"yayasan-backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Berapa kali alokasi nomor + insert diulang saat nomor tabrakan.
const maxNumberRetries = 3

// Engine menurunkan baris jurnal dari transaksi dan satu-satunya pihak
// yang boleh menggeser saldo akun. Kode akun kas di-inject dari konfigurasi,
// bukan dicari lewat string ajaib di tempat pemanggilan.
type Engine struct {
	cashAccountCode string
}

func NewEngine(cashAccountCode string) *Engine {
	return &Engine{cashAccountCode: cashAccountCode}
}

// postingSides: kebijakan sisi debit/kredit per tipe transaksi, satu tempat.
// Uang masuk (income, donation): kas di debit, akun kategori di kredit.
// Uang keluar (expense): akun kategori di debit, kas di kredit.
var postingSides = map[models.TransactionType]struct{ CashIsDebit bool }{
	models.TransactionTypeIncome:   {CashIsDebit: true},
	models.TransactionTypeDonation: {CashIsDebit: true},
	models.TransactionTypeExpense:  {CashIsDebit: false},
}

// Post menurunkan jurnal berpasangan dari transaksi, menyimpannya, dan
// menggeser saldo kedua akun. Wajib dipanggil di dalam transaksi storage
// milik pemanggil; semua tulisan di sini commit atau batal bersama-sama.
func (e *Engine) Post(tx *gorm.DB, trx *models.Transaction) (*models.JournalEntry, error) {
	if !trx.Amount.IsPositive() {
		return nil, apperror.Validation("jumlah transaksi harus lebih dari 0")
	}
	sides, ok := postingSides[trx.Type]
	if !ok {
		return nil, apperror.Validation("tipe transaksi tidak dikenal: %s", trx.Type)
	}

	var cat models.Category
	if err := tx.First(&cat, "id = ?", trx.CategoryID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("kategori %d tidak ditemukan", trx.CategoryID)
		}
		return nil, err
	}

	catAcc, err := GetAccount(tx, cat.AccountID)
	if err != nil {
		return nil, err
	}

	cashAcc, err := GetAccountByCode(tx, e.cashAccountCode)
	if err != nil {
		if apperror.KindOf(err) == apperror.KindNotFound {
			return nil, apperror.Dependency("akun kas (kode %s) belum terpasang", e.cashAccountCode)
		}
		return nil, err
	}

	debitAcc, creditAcc := catAcc, cashAcc
	if sides.CashIsDebit {
		debitAcc, creditAcc = cashAcc, catAcc
	}

	year := time.Now().Year()
	var entry *models.JournalEntry
	for attempt := 0; attempt < maxNumberRetries; attempt++ {
		entry, err = e.writeEntry(tx, trx, debitAcc.ID, creditAcc.ID, year)
		if err == nil {
			return entry, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, err
		}
	}
	return nil, apperror.Conflict("nomor jurnal terus tabrakan setelah %d percobaan", maxNumberRetries)
}

// writeEntry menulis satu jurnal dalam savepoint sendiri supaya tabrakan
// nomor bisa diulang tanpa membatalkan transaksi luar.
func (e *Engine) writeEntry(tx *gorm.DB, trx *models.Transaction, debitAccID, creditAccID uint, year int) (*models.JournalEntry, error) {
	var entry models.JournalEntry
	err := tx.Transaction(func(inner *gorm.DB) error {
		entryNo, err := NextNumber(inner, SeqJournal, year)
		if err != nil {
			return err
		}

		entry = models.JournalEntry{
			EntryNo:       entryNo,
			TransactionID: &trx.ID,
			Date:          trx.Date,
			Description:   fmt.Sprintf("Posting %s", trx.TransactionNo),
			TotalDebit:    trx.Amount,
			TotalCredit:   trx.Amount,
			Status:        models.JournalStatusActive,
			Lines: []models.JournalEntryLine{
				{AccountID: debitAccID, DebitAmount: trx.Amount, CreditAmount: decimal.Zero, LineOrder: 1},
				{AccountID: creditAccID, DebitAmount: decimal.Zero, CreditAmount: trx.Amount, LineOrder: 2},
			},
		}
		if err := checkBalanced(&entry); err != nil {
			return err
		}

		if err := inner.Create(&entry).Error; err != nil {
			return err
		}
		if err := adjustBalance(inner, debitAccID, trx.Amount); err != nil {
			return err
		}
		return adjustBalance(inner, creditAccID, trx.Amount.Neg())
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// Reverse membuat jurnal balik untuk entry yang sudah ada: baris yang sama
// dengan debit/kredit ditukar, saldo tiap akun digeser kebalikan dari efek
// baris aslinya, lalu entry asal ditandai reversed. Jurnal balik sendiri
// tidak pernah bisa dibalik.
func (e *Engine) Reverse(tx *gorm.DB, entryID uint, actorID uint) (*models.JournalEntry, error) {
	var orig models.JournalEntry
	err := tx.Preload("Lines", func(db *gorm.DB) *gorm.DB {
		return db.Order("line_order asc")
	}).First(&orig, "id = ?", entryID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("jurnal %d tidak ditemukan", entryID)
		}
		return nil, err
	}

	if orig.Status == models.JournalStatusReversed {
		return nil, apperror.InvalidState("jurnal %s sudah dibalik", orig.EntryNo)
	}
	if orig.ReversesEntryID != nil {
		return nil, apperror.InvalidState("jurnal balik %s tidak bisa dibalik lagi", orig.EntryNo)
	}

	year := time.Now().Year()
	var rev *models.JournalEntry
	for attempt := 0; attempt < maxNumberRetries; attempt++ {
		rev, err = e.writeReversal(tx, &orig, actorID, year)
		if err == nil {
			return rev, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, err
		}
	}
	return nil, apperror.Conflict("nomor jurnal balik terus tabrakan setelah %d percobaan", maxNumberRetries)
}

func (e *Engine) writeReversal(tx *gorm.DB, orig *models.JournalEntry, actorID uint, year int) (*models.JournalEntry, error) {
	now := time.Now()
	var rev models.JournalEntry
	err := tx.Transaction(func(inner *gorm.DB) error {
		entryNo, err := NextNumber(inner, SeqReversal, year)
		if err != nil {
			return err
		}

		lines := make([]models.JournalEntryLine, 0, len(orig.Lines))
		for _, l := range orig.Lines {
			lines = append(lines, models.JournalEntryLine{
				AccountID:    l.AccountID,
				DebitAmount:  l.CreditAmount, // sisi ditukar
				CreditAmount: l.DebitAmount,
				LineOrder:    l.LineOrder,
			})
		}

		rev = models.JournalEntry{
			EntryNo:         entryNo,
			TransactionID:   nil, // jurnal balik menunjuk entry asal, bukan transaksi
			Date:            now,
			Description:     fmt.Sprintf("Pembalikan %s", orig.EntryNo),
			TotalDebit:      orig.TotalDebit,
			TotalCredit:     orig.TotalCredit,
			Status:          models.JournalStatusActive,
			ReversesEntryID: &orig.ID,
			Lines:           lines,
		}
		if err := checkBalanced(&rev); err != nil {
			return err
		}

		if err := inner.Create(&rev).Error; err != nil {
			return err
		}

		// kebalikan efek tiap baris asal: (kredit - debit)
		for _, l := range orig.Lines {
			if err := adjustBalance(inner, l.AccountID, l.CreditAmount.Sub(l.DebitAmount)); err != nil {
				return err
			}
		}

		res := inner.Model(&models.JournalEntry{}).
			Where("id = ? AND status = ?", orig.ID, models.JournalStatusActive).
			Updates(map[string]interface{}{
				"status":      models.JournalStatusReversed,
				"reversed_by": actorID,
				"reversed_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// pembalik lain menang balapan
			return apperror.InvalidState("jurnal %s sudah dibalik", orig.EntryNo)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &rev, nil
}

// checkBalanced memverifikasi invariant debit == kredit == jumlah baris per sisi
// sebelum entry boleh tersimpan. Dengan konstruksi di atas ini mustahil gagal;
// tetap diperiksa supaya ketidakseimbangan tidak pernah sampai ke storage.
func checkBalanced(entry *models.JournalEntry) error {
	sumDebit := decimal.Zero
	sumCredit := decimal.Zero
	for _, l := range entry.Lines {
		if l.DebitAmount.IsPositive() == l.CreditAmount.IsPositive() {
			return apperror.Integrity("baris jurnal harus tepat satu sisi non-nol")
		}
		sumDebit = sumDebit.Add(l.DebitAmount)
		sumCredit = sumCredit.Add(l.CreditAmount)
	}
	if !sumDebit.Equal(sumCredit) || !sumDebit.Equal(entry.TotalDebit) || !entry.TotalDebit.Equal(entry.TotalCredit) {
		return apperror.Integrity("jurnal tidak seimbang: debit %s, kredit %s", sumDebit, sumCredit)
	}
	entry.IsBalanced = true
	return nil
}
