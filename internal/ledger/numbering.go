package ledger

import (
	"errors"
	"fmt"

	"yayasan-backend/internal/models"

	"gorm.io/gorm"
)

// Jenis penomoran. Urutan di-reset tiap tahun kalender per jenis.
const (
	SeqTransaction = "TRX" // transaksi
	SeqJournal     = "JE"  // jurnal maju
	SeqReversal    = "JER" // jurnal balik
)

// NextNumber mengalokasikan nomor berikutnya untuk (kind, year), format
// KIND-<tahun>-<urut 4 digit>. Harus dipanggil di dalam transaksi storage
// yang sama dengan insert pemakainya; baris penghitung di-increment atomik
// sehingga dua posting paralel tidak pernah membaca nilai yang sama.
func NextNumber(tx *gorm.DB, kind string, year int) (string, error) {
	seq, err := nextValue(tx, kind, year)
	if err != nil {
		return "", err
	}
	return FormatNumber(kind, year, seq), nil
}

func FormatNumber(kind string, year, seq int) string {
	return fmt.Sprintf("%s-%d-%04d", kind, year, seq)
}

func nextValue(tx *gorm.DB, kind string, year int) (int, error) {
	res := tx.Model(&models.NumberSequence{}).
		Where("kind = ? AND year = ?", kind, year).
		Update("last_value", gorm.Expr("last_value + 1"))
	if res.Error != nil {
		return 0, res.Error
	}

	if res.RowsAffected == 0 {
		// tahun baru: buat baris penghitung. Create dipagari savepoint sendiri:
		// kalah balapan berarti unique violation, dan di Postgres statement yang
		// gagal membuat transaksi abort sampai rollback-to-savepoint. Tanpa pagar
		// ini update susulan di bawah ikut gagal (SQLSTATE 25P02).
		seq := models.NumberSequence{Kind: kind, Year: year, LastValue: 1}
		err := tx.Transaction(func(inner *gorm.DB) error {
			return inner.Create(&seq).Error
		})
		if err == nil {
			return 1, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return 0, err
		}
		// penulis lain keburu membuat barisnya, increment saja
		res = tx.Model(&models.NumberSequence{}).
			Where("kind = ? AND year = ?", kind, year).
			Update("last_value", gorm.Expr("last_value + 1"))
		if res.Error != nil {
			return 0, res.Error
		}
	}

	var seq models.NumberSequence
	if err := tx.Where("kind = ? AND year = ?", kind, year).First(&seq).Error; err != nil {
		return 0, err
	}
	return seq.LastValue, nil
}
