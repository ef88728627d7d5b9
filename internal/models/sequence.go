package models

// NumberSequence: penghitung nomor urut per (jenis, tahun).
// Increment dilakukan atomik di dalam transaksi posting.
type NumberSequence struct {
	ID        uint   `gorm:"primaryKey"`
	Kind      string `gorm:"size:10;uniqueIndex:idx_sequence_kind_year;not null"` // "TRX" / "JE" / "JER"
	Year      int    `gorm:"uniqueIndex:idx_sequence_kind_year;not null"`
	LastValue int    `gorm:"not null"`
}
