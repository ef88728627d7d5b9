package ledger

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"yayasan-backend/internal/apperror"
	"yayasan-backend/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// openFileDB membuka sqlite berbasis file supaya beberapa koneksi bisa
// jalan bersamaan; :memory: dengan satu koneksi menyembunyikan balapan.
func openFileDB(t *testing.T, dsn string) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("buka sqlite: %v", err)
	}
	return db
}

func TestNextNumberIncrementsPerKindAndYear(t *testing.T) {
	db := testDB(t)

	for i := 1; i <= 3; i++ {
		got, err := NextNumber(db, SeqJournal, 2025)
		if err != nil {
			t.Fatalf("NextNumber: %v", err)
		}
		if want := FormatNumber(SeqJournal, 2025, i); got != want {
			t.Errorf("nomor ke-%d = %s, mau %s", i, got, want)
		}
	}

	// jenis lain punya urutan sendiri
	got, err := NextNumber(db, SeqReversal, 2025)
	if err != nil {
		t.Fatalf("NextNumber JER: %v", err)
	}
	if got != "JER-2025-0001" {
		t.Errorf("nomor JER pertama = %s, mau JER-2025-0001", got)
	}

	// tahun baru mulai dari 1 lagi
	got, err = NextNumber(db, SeqJournal, 2026)
	if err != nil {
		t.Fatalf("NextNumber 2026: %v", err)
	}
	if got != "JE-2026-0001" {
		t.Errorf("nomor tahun baru = %s, mau JE-2026-0001", got)
	}
}

func TestNextNumberUsesCounterRow(t *testing.T) {
	db := testDB(t)

	if _, err := NextNumber(db, SeqTransaction, 2025); err != nil {
		t.Fatalf("NextNumber: %v", err)
	}
	if _, err := NextNumber(db, SeqTransaction, 2025); err != nil {
		t.Fatalf("NextNumber: %v", err)
	}

	var seq models.NumberSequence
	if err := db.Where("kind = ? AND year = ?", SeqTransaction, 2025).First(&seq).Error; err != nil {
		t.Fatalf("baca baris penghitung: %v", err)
	}
	if seq.LastValue != 2 {
		t.Errorf("last_value = %d, mau 2", seq.LastValue)
	}
}

// N alokasi serentak harus menghasilkan N nomor berbeda, masing-masing di
// dalam transaksi sendiri seperti jalur posting sungguhan.
func TestNextNumberConcurrentDistinct(t *testing.T) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=10000", filepath.Join(t.TempDir(), "nomor.db"))
	db := openFileDB(t, dsn)
	if err := db.AutoMigrate(&models.NumberSequence{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	const workers = 16
	nums := make(chan string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := db.Transaction(func(tx *gorm.DB) error {
				no, err := NextNumber(tx, SeqJournal, 2025)
				if err != nil {
					return err
				}
				nums <- no
				return nil
			})
			if err != nil {
				t.Errorf("alokasi paralel: %v", err)
			}
		}()
	}
	wg.Wait()
	close(nums)

	seen := map[string]bool{}
	for no := range nums {
		if seen[no] {
			t.Errorf("nomor %s muncul dua kali", no)
		}
		seen[no] = true
	}
	if len(seen) != workers {
		t.Fatalf("jumlah nomor unik = %d, mau %d", len(seen), workers)
	}

	var seq models.NumberSequence
	if err := db.Where("kind = ? AND year = ?", SeqJournal, 2025).First(&seq).Error; err != nil {
		t.Fatalf("baca baris penghitung: %v", err)
	}
	if seq.LastValue != workers {
		t.Errorf("last_value = %d, mau %d", seq.LastValue, workers)
	}
}

// Jalur kalah balapan pembuatan baris penghitung: penulis lain menyisipkan
// baris di antara UPDATE nol-baris dan CREATE kita. CREATE gagal unique di
// dalam savepoint-nya sendiri, lalu alokasi lanjut lewat increment biasa,
// bukan error.
func TestNextNumberCounterRowRaceFallsBack(t *testing.T) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=10000", filepath.Join(t.TempDir(), "nomor.db"))
	db := openFileDB(t, dsn)
	if err := db.AutoMigrate(&models.NumberSequence{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	other := openFileDB(t, dsn) // koneksi penulis lain

	injected := false
	err := db.Callback().Create().Before("gorm:create").Register("nomor_balapan", func(g *gorm.DB) {
		if _, ok := g.Statement.Dest.(*models.NumberSequence); ok && !injected {
			injected = true
			if err := other.Create(&models.NumberSequence{Kind: SeqJournal, Year: 2025, LastValue: 1}).Error; err != nil {
				t.Errorf("sisipkan baris penghitung: %v", err)
			}
		}
	})
	if err != nil {
		t.Fatalf("daftar callback: %v", err)
	}

	got, err := NextNumber(db, SeqJournal, 2025)
	if err != nil {
		t.Fatalf("NextNumber setelah kalah balapan: %v", err)
	}
	if !injected {
		t.Fatal("jalur balapan tidak tereksekusi")
	}
	if got != "JE-2025-0002" {
		t.Errorf("nomor = %s, mau JE-2025-0002 (lanjut dari baris penulis lain)", got)
	}
}

func TestCreateAccountDuplicateCode(t *testing.T) {
	db := testDB(t)

	if _, err := CreateAccount(db, CreateAccountInput{Code: "1001", Name: "Kas", Type: models.AccountTypeAsset}); err != nil {
		t.Fatalf("akun pertama: %v", err)
	}
	_, err := CreateAccount(db, CreateAccountInput{Code: "1001", Name: "Kas Kedua", Type: models.AccountTypeAsset})
	if apperror.KindOf(err) != apperror.KindConflict {
		t.Errorf("err = %v, mau KindConflict", err)
	}
}
