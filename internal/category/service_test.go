package category

import (
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
		&models.BudgetItem{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedAccount(t *testing.T, db *gorm.DB, code string, typ models.AccountType) *models.Account {
	t.Helper()
	acc, err := ledger.CreateAccount(db, ledger.CreateAccountInput{Code: code, Name: "Akun " + code, Type: typ})
	if err != nil {
		t.Fatalf("buat akun: %v", err)
	}
	return acc
}

func TestCreateCategoryWithMismatchedParentType(t *testing.T) {
	db := testDB(t)
	acc := seedAccount(t, db, "4001", models.AccountTypeIncome)

	parent, err := CreateCategory(db, CreateInput{Name: "Donasi", Type: models.CategoryTypeDonation, AccountID: acc.ID})
	if err != nil {
		t.Fatalf("buat induk: %v", err)
	}

	_, err = CreateCategory(db, CreateInput{
		Name:      "SPP",
		Type:      models.CategoryTypeIncome, // beda tipe dengan induk
		AccountID: acc.ID,
		ParentID:  &parent.ID,
	})
	if apperror.KindOf(err) != apperror.KindValidation {
		t.Errorf("err = %v, mau KindValidation", err)
	}
}

func TestUpdateCategoryParentCycle(t *testing.T) {
	db := testDB(t)
	acc := seedAccount(t, db, "5001", models.AccountTypeExpense)

	a, err := CreateCategory(db, CreateInput{Name: "Operasional", Type: models.CategoryTypeExpense, AccountID: acc.ID})
	if err != nil {
		t.Fatalf("buat A: %v", err)
	}
	b, err := CreateCategory(db, CreateInput{Name: "Listrik", Type: models.CategoryTypeExpense, AccountID: acc.ID, ParentID: &a.ID})
	if err != nil {
		t.Fatalf("buat B: %v", err)
	}
	c, err := CreateCategory(db, CreateInput{Name: "Token", Type: models.CategoryTypeExpense, AccountID: acc.ID, ParentID: &b.ID})
	if err != nil {
		t.Fatalf("buat C: %v", err)
	}

	// A -> C akan membentuk siklus A -> C -> B -> A
	_, err = UpdateCategory(db, a.ID, UpdateInput{ParentID: &c.ID})
	if apperror.KindOf(err) != apperror.KindValidation {
		t.Errorf("err = %v, mau KindValidation (siklus)", err)
	}

	// induk dirinya sendiri juga ditolak
	_, err = UpdateCategory(db, a.ID, UpdateInput{ParentID: &a.ID})
	if apperror.KindOf(err) != apperror.KindValidation {
		t.Errorf("err = %v, mau KindValidation (diri sendiri)", err)
	}
}

func TestDeactivateWithDependents(t *testing.T) {
	db := testDB(t)
	acc := seedAccount(t, db, "5001", models.AccountTypeExpense)

	cat, err := CreateCategory(db, CreateInput{Name: "Operasional", Type: models.CategoryTypeExpense, AccountID: acc.ID})
	if err != nil {
		t.Fatalf("buat kategori: %v", err)
	}

	trx := models.Transaction{
		TransactionNo: "TRX-2025-0001",
		Type:          models.TransactionTypeExpense,
		CategoryID:    cat.ID,
		Amount:        decimal.NewFromInt(1000),
		Date:          time.Now(),
		Status:        models.TransactionStatusDraft,
		CreatedBy:     1,
	}
	if err := db.Create(&trx).Error; err != nil {
		t.Fatalf("buat transaksi: %v", err)
	}

	if err := Deactivate(db, cat.ID); apperror.KindOf(err) != apperror.KindConflict {
		t.Errorf("err = %v, mau KindConflict (masih ada transaksi)", err)
	}
}

func TestDeactivateWithActiveChild(t *testing.T) {
	db := testDB(t)
	acc := seedAccount(t, db, "5001", models.AccountTypeExpense)

	parent, err := CreateCategory(db, CreateInput{Name: "Operasional", Type: models.CategoryTypeExpense, AccountID: acc.ID})
	if err != nil {
		t.Fatalf("buat induk: %v", err)
	}
	child, err := CreateCategory(db, CreateInput{Name: "Listrik", Type: models.CategoryTypeExpense, AccountID: acc.ID, ParentID: &parent.ID})
	if err != nil {
		t.Fatalf("buat anak: %v", err)
	}

	if err := Deactivate(db, parent.ID); apperror.KindOf(err) != apperror.KindConflict {
		t.Errorf("err = %v, mau KindConflict (anak aktif)", err)
	}

	// setelah anak nonaktif, induk boleh dinonaktifkan
	if err := Deactivate(db, child.ID); err != nil {
		t.Fatalf("nonaktifkan anak: %v", err)
	}
	if err := Deactivate(db, parent.ID); err != nil {
		t.Fatalf("nonaktifkan induk: %v", err)
	}

	got, err := GetCategory(db, parent.ID)
	if err != nil {
		t.Fatalf("muat induk: %v", err)
	}
	if got.IsActive {
		t.Error("induk masih aktif setelah dinonaktifkan")
	}

	// dua kali nonaktif = invalid state
	if err := Deactivate(db, parent.ID); apperror.KindOf(err) != apperror.KindInvalidState {
		t.Errorf("err = %v, mau KindInvalidState", err)
	}
}
