package database

import (
	"log"

	"yayasan-backend/internal/config"
	"yayasan-backend/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func Init(cfg *config.Config) {
	var err error

	// TranslateError supaya pelanggaran unique constraint muncul sebagai
	// gorm.ErrDuplicatedKey; retry penomoran jurnal bergantung pada ini.
	DB, err = gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatalf("Tidak bisa terhubung ke database: %v", err)
	}

	err = DB.AutoMigrate(
		&models.User{},
		&models.Account{},
		&models.Category{},
		&models.Transaction{},
		&models.JournalEntry{},
		&models.JournalEntryLine{},
		&models.Budget{},
		&models.BudgetItem{},
		&models.NumberSequence{},
		&models.AuditLog{},
	)
	if err != nil {
		log.Fatalf("AutoMigrate gagal: %v", err)
	}

	if DB.Dialector.Name() == "postgres" {
		setupBudgetOverlapConstraint()
	}

	seedCashAccount(cfg)

	log.Println("Koneksi database berhasil. Migrasi selesai.")
}

// setupBudgetOverlapConstraint memasang exclusion constraint: paling banyak
// satu anggaran active per tipe untuk rentang tanggal yang beririsan.
// Pemeriksaan hitung-lalu-insert di level aplikasi tidak cukup pada
// read-committed; dua create paralel bisa sama-sama melihat nol baris.
// Constraint inilah yang memutus serinya, service menerjemahkan
// pelanggarannya (SQLSTATE 23P01) jadi konflik.
func setupBudgetOverlapConstraint() {
	if err := DB.Exec("CREATE EXTENSION IF NOT EXISTS btree_gist").Error; err != nil {
		log.Fatalf("Ekstensi btree_gist gagal dipasang: %v", err)
	}

	err := DB.Exec(`DO $$ BEGIN
		ALTER TABLE budgets ADD CONSTRAINT budgets_active_window_excl
			EXCLUDE USING gist (
				type WITH =,
				daterange(start_date::date, end_date::date, '[]') WITH &&
			) WHERE (status = 'active');
	EXCEPTION WHEN duplicate_object THEN NULL; END $$`).Error
	if err != nil {
		log.Fatalf("Constraint anggaran aktif gagal dipasang: %v", err)
	}
}

// seedCashAccount membuat akun kas default saat tabel akun masih kosong,
// supaya posting jurnal langsung bisa jalan di instalasi baru.
func seedCashAccount(cfg *config.Config) {
	var count int64
	DB.Model(&models.Account{}).Count(&count)
	if count > 0 {
		return
	}

	kas := models.Account{
		Code:        cfg.CashAccountCode,
		Name:        "Kas Utama",
		Type:        models.AccountTypeAsset,
		Description: "Akun kas/bank utama (seed otomatis)",
		IsActive:    true,
	}
	if err := DB.Create(&kas).Error; err != nil {
		log.Printf("Seed akun kas gagal: %v", err)
		return
	}
	log.Printf("Akun kas default dibuat dengan kode %s", kas.Code)
}
