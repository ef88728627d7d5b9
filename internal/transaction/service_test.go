package transaction

import (
	"regexp"
	"testing"
	"time"

	"yayasan-backend/internal/apperror"
	"yayasan-backend/internal/ledger"
	"yayasan-backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("buka sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("ambil sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&models.Account{},
		&models.Category{},
		&models.Transaction{},
		&models.JournalEntry{},
		&models.JournalEntryLine{},
		&models.NumberSequence{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

type fixture struct {
	svc     *Service
	db      *gorm.DB
	cash    models.Account
	income  models.Account
	expense models.Account
	donCat  models.Category
	expCat  models.Category
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db := testDB(t)
	f := &fixture{db: db, svc: NewService(db, ledger.NewEngine("1001"))}

	mk := func(code, name string, typ models.AccountType) models.Account {
		acc, err := ledger.CreateAccount(db, ledger.CreateAccountInput{Code: code, Name: name, Type: typ})
		if err != nil {
			t.Fatalf("buat akun %s: %v", code, err)
		}
		return *acc
	}
	f.cash = mk("1001", "Kas Utama", models.AccountTypeAsset)
	f.income = mk("4001", "Pendapatan Donasi", models.AccountTypeIncome)
	f.expense = mk("5001", "Beban Operasional", models.AccountTypeExpense)

	f.donCat = models.Category{Name: "Donasi Umum", Type: models.CategoryTypeDonation, AccountID: f.income.ID, IsActive: true}
	if err := db.Create(&f.donCat).Error; err != nil {
		t.Fatalf("buat kategori: %v", err)
	}
	f.expCat = models.Category{Name: "Operasional", Type: models.CategoryTypeExpense, AccountID: f.expense.ID, IsActive: true}
	if err := db.Create(&f.expCat).Error; err != nil {
		t.Fatalf("buat kategori: %v", err)
	}
	return f
}

func (f *fixture) balance(t *testing.T, accID uint) decimal.Decimal {
	t.Helper()
	var acc models.Account
	if err := f.db.First(&acc, "id = ?", accID).Error; err != nil {
		t.Fatalf("baca akun: %v", err)
	}
	return acc.Balance
}

func jan(day int) time.Time {
	return time.Date(2025, 1, day, 0, 0, 0, 0, time.UTC)
}

func TestCreateDraftHasNoJournal(t *testing.T) {
	f := setup(t)

	trx, err := f.svc.Create(CreateInput{
		Type:       models.TransactionTypeDonation,
		CategoryID: f.donCat.ID,
		Amount:     decimal.NewFromInt(500000),
		Date:       jan(10),
		ActorID:    1,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if trx.Status != models.TransactionStatusDraft {
		t.Errorf("status = %s, mau draft", trx.Status)
	}
	matched, _ := regexp.MatchString(`^TRX-\d{4}-\d{4}$`, trx.TransactionNo)
	if !matched {
		t.Errorf("nomor %q tidak sesuai pola TRX", trx.TransactionNo)
	}
	if trx.Reference == "" {
		t.Error("reference harus terisi otomatis")
	}

	var n int64
	f.db.Model(&models.JournalEntry{}).Count(&n)
	if n != 0 {
		t.Errorf("draft tidak boleh punya jurnal, ada %d", n)
	}
	if got := f.balance(t, f.cash.ID); !got.IsZero() {
		t.Errorf("saldo kas = %s, mau 0 (belum posting)", got)
	}
}

func TestCreatePostedWritesJournalAndBalances(t *testing.T) {
	f := setup(t)

	trx, err := f.svc.Create(CreateInput{
		Type:       models.TransactionTypeDonation,
		CategoryID: f.donCat.ID,
		Amount:     decimal.NewFromInt(500000),
		Date:       jan(10),
		PostNow:    true,
		ActorID:    3,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if trx.Status != models.TransactionStatusPosted {
		t.Errorf("status = %s, mau posted", trx.Status)
	}
	if trx.VerifiedBy == nil || *trx.VerifiedBy != 3 {
		t.Error("verified_by harus terisi aktor")
	}

	if got := f.balance(t, f.cash.ID); !got.Equal(decimal.NewFromInt(500000)) {
		t.Errorf("saldo kas = %s, mau 500000", got)
	}

	_, entry, err := f.svc.GetWithJournal(trx.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if entry == nil {
		t.Fatal("transaksi posted harus punya jurnal")
	}
	if !entry.TotalDebit.Equal(decimal.NewFromInt(500000)) {
		t.Errorf("total debit = %s, mau 500000", entry.TotalDebit)
	}
	if len(entry.Lines) != 2 {
		t.Errorf("jumlah baris = %d, mau 2", len(entry.Lines))
	}
}

func TestCreateTypeMismatchRejected(t *testing.T) {
	f := setup(t)

	_, err := f.svc.Create(CreateInput{
		Type:       models.TransactionTypeExpense, // kategori bertipe donation
		CategoryID: f.donCat.ID,
		Amount:     decimal.NewFromInt(1000),
		Date:       jan(1),
		ActorID:    1,
	})
	if apperror.KindOf(err) != apperror.KindValidation {
		t.Errorf("err = %v, mau KindValidation", err)
	}
}

func TestCreateInactiveCategoryRejected(t *testing.T) {
	f := setup(t)
	if err := f.db.Model(&models.Category{}).Where("id = ?", f.donCat.ID).
		Update("is_active", false).Error; err != nil {
		t.Fatalf("nonaktifkan kategori: %v", err)
	}

	_, err := f.svc.Create(CreateInput{
		Type:       models.TransactionTypeDonation,
		CategoryID: f.donCat.ID,
		Amount:     decimal.NewFromInt(1000),
		Date:       jan(1),
		ActorID:    1,
	})
	if apperror.KindOf(err) != apperror.KindValidation {
		t.Errorf("err = %v, mau KindValidation", err)
	}
}

func TestPostDraftThenPostAgainFails(t *testing.T) {
	f := setup(t)

	trx, err := f.svc.Create(CreateInput{
		Type:       models.TransactionTypeExpense,
		CategoryID: f.expCat.ID,
		Amount:     decimal.NewFromInt(200000),
		Date:       jan(5),
		ActorID:    1,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	entry, err := f.svc.Post(trx.ID, 2)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if entry.EntryNo == "" {
		t.Error("jurnal harus bernomor")
	}
	if got := f.balance(t, f.cash.ID); !got.Equal(decimal.NewFromInt(-200000)) {
		t.Errorf("saldo kas = %s, mau -200000", got)
	}

	_, err = f.svc.Post(trx.ID, 2)
	if apperror.KindOf(err) != apperror.KindInvalidState {
		t.Errorf("posting kedua: err = %v, mau KindInvalidState", err)
	}
}

func TestPostFailureLeavesStatusDraft(t *testing.T) {
	db := testDB(t)
	// engine menunjuk kode kas yang tidak ada -> posting pasti gagal
	svc := NewService(db, ledger.NewEngine("9999"))

	income, err := ledger.CreateAccount(db, ledger.CreateAccountInput{Code: "4001", Name: "Pendapatan", Type: models.AccountTypeIncome})
	if err != nil {
		t.Fatalf("buat akun: %v", err)
	}
	cat := models.Category{Name: "Donasi", Type: models.CategoryTypeDonation, AccountID: income.ID, IsActive: true}
	if err := db.Create(&cat).Error; err != nil {
		t.Fatalf("buat kategori: %v", err)
	}

	trx, err := svc.Create(CreateInput{
		Type:       models.TransactionTypeDonation,
		CategoryID: cat.ID,
		Amount:     decimal.NewFromInt(1000),
		Date:       jan(1),
		ActorID:    1,
	})
	if err != nil {
		t.Fatalf("create draft: %v", err)
	}

	if _, err := svc.Post(trx.ID, 1); apperror.KindOf(err) != apperror.KindDependency {
		t.Fatalf("post: err = %v, mau KindDependency", err)
	}

	// seluruh transisi batal: status tetap draft, tidak ada jurnal
	got, err := svc.Get(db, trx.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != models.TransactionStatusDraft {
		t.Errorf("status = %s, mau draft (rollback penuh)", got.Status)
	}
	var n int64
	db.Model(&models.JournalEntry{}).Count(&n)
	if n != 0 {
		t.Errorf("tidak boleh ada jurnal tersisa, ada %d", n)
	}
}

func TestUpdatePostedAmountRejected(t *testing.T) {
	f := setup(t)

	trx, err := f.svc.Create(CreateInput{
		Type:       models.TransactionTypeDonation,
		CategoryID: f.donCat.ID,
		Amount:     decimal.NewFromInt(100000),
		Date:       jan(3),
		PostNow:    true,
		ActorID:    1,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	amount := decimal.NewFromInt(999)
	_, err = f.svc.Update(trx.ID, UpdateInput{Amount: &amount, Elevated: true, ActorID: 1})
	if apperror.KindOf(err) != apperror.KindInvalidState {
		t.Errorf("err = %v, mau KindInvalidState", err)
	}

	// non-admin tidak boleh menyentuh transaksi posted sama sekali
	desc := "catatan"
	_, err = f.svc.Update(trx.ID, UpdateInput{Description: &desc, ActorID: 1})
	if apperror.KindOf(err) != apperror.KindInvalidState {
		t.Errorf("err = %v, mau KindInvalidState", err)
	}

	// admin boleh mengubah field deskriptif
	got, err := f.svc.Update(trx.ID, UpdateInput{Description: &desc, Elevated: true, ActorID: 1})
	if err != nil {
		t.Fatalf("update deskripsi: %v", err)
	}
	if got.Description != "catatan" {
		t.Errorf("deskripsi = %q, mau %q", got.Description, "catatan")
	}
}

func TestUpdateDraftAndPostViaUpdate(t *testing.T) {
	f := setup(t)

	trx, err := f.svc.Create(CreateInput{
		Type:       models.TransactionTypeDonation,
		CategoryID: f.donCat.ID,
		Amount:     decimal.NewFromInt(100000),
		Date:       jan(3),
		ActorID:    1,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	amount := decimal.NewFromInt(250000)
	got, err := f.svc.Update(trx.ID, UpdateInput{Amount: &amount, Post: true, ActorID: 5})
	if err != nil {
		t.Fatalf("update+post: %v", err)
	}
	if got.Status != models.TransactionStatusPosted {
		t.Errorf("status = %s, mau posted", got.Status)
	}
	if bal := f.balance(t, f.cash.ID); !bal.Equal(decimal.NewFromInt(250000)) {
		t.Errorf("saldo kas = %s, mau 250000 (jumlah hasil edit)", bal)
	}
}

func TestCancelDraftNoLedgerEffect(t *testing.T) {
	f := setup(t)

	trx, err := f.svc.Create(CreateInput{
		Type:       models.TransactionTypeDonation,
		CategoryID: f.donCat.ID,
		Amount:     decimal.NewFromInt(100000),
		Date:       jan(3),
		ActorID:    1,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := f.svc.CancelOrReverse(trx.ID, 1, models.TransactionStatusCancelled)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got.Status != models.TransactionStatusCancelled {
		t.Errorf("status = %s, mau cancelled", got.Status)
	}
	var n int64
	f.db.Model(&models.JournalEntry{}).Count(&n)
	if n != 0 {
		t.Errorf("draft dibatalkan tidak boleh menyentuh jurnal, ada %d", n)
	}

	// reversed untuk draft tidak masuk akal
	trx2, _ := f.svc.Create(CreateInput{
		Type: models.TransactionTypeDonation, CategoryID: f.donCat.ID,
		Amount: decimal.NewFromInt(1000), Date: jan(4), ActorID: 1,
	})
	_, err = f.svc.CancelOrReverse(trx2.ID, 1, models.TransactionStatusReversed)
	if apperror.KindOf(err) != apperror.KindInvalidState {
		t.Errorf("err = %v, mau KindInvalidState", err)
	}
}

func TestCancelPostedReversesJournal(t *testing.T) {
	f := setup(t)

	trx, err := f.svc.Create(CreateInput{
		Type:       models.TransactionTypeExpense,
		CategoryID: f.expCat.ID,
		Amount:     decimal.NewFromInt(200000),
		Date:       jan(8),
		PostNow:    true,
		ActorID:    1,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if got := f.balance(t, f.expense.ID); !got.Equal(decimal.NewFromInt(200000)) {
		t.Fatalf("saldo beban = %s, mau 200000", got)
	}

	got, err := f.svc.CancelOrReverse(trx.ID, 9, models.TransactionStatusCancelled)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got.Status != models.TransactionStatusCancelled {
		t.Errorf("status = %s, mau cancelled", got.Status)
	}

	// efek jurnal pulih total
	if bal := f.balance(t, f.cash.ID); !bal.IsZero() {
		t.Errorf("saldo kas = %s, mau 0", bal)
	}
	if bal := f.balance(t, f.expense.ID); !bal.IsZero() {
		t.Errorf("saldo beban = %s, mau 0", bal)
	}

	// jurnal asal tertandai reversed, jurnal balik tercipta
	var entries []models.JournalEntry
	if err := f.db.Order("id asc").Find(&entries).Error; err != nil {
		t.Fatalf("muat jurnal: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("jumlah jurnal = %d, mau 2", len(entries))
	}
	if entries[0].Status != models.JournalStatusReversed {
		t.Errorf("status jurnal asal = %s, mau reversed", entries[0].Status)
	}
	if entries[1].ReversesEntryID == nil || *entries[1].ReversesEntryID != entries[0].ID {
		t.Error("jurnal balik harus menunjuk jurnal asal")
	}

	// status terminal: pembatalan kedua ditolak
	if _, err := f.svc.CancelOrReverse(trx.ID, 9, models.TransactionStatusCancelled); apperror.KindOf(err) != apperror.KindInvalidState {
		t.Errorf("err = %v, mau KindInvalidState", err)
	}
}

func TestTransactionNumbersDistinct(t *testing.T) {
	f := setup(t)

	seen := map[string]bool{}
	for i := 0; i < 4; i++ {
		trx, err := f.svc.Create(CreateInput{
			Type:       models.TransactionTypeDonation,
			CategoryID: f.donCat.ID,
			Amount:     decimal.NewFromInt(1000),
			Date:       jan(1),
			ActorID:    1,
		})
		if err != nil {
			t.Fatalf("create ke-%d: %v", i, err)
		}
		if seen[trx.TransactionNo] {
			t.Errorf("nomor %s muncul dua kali", trx.TransactionNo)
		}
		seen[trx.TransactionNo] = true
	}
}
