package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPPort        string
	DatabaseDSN     string
	JWTSecret       string
	CORSOrigins     string
	CashAccountCode string // kode akun kas/bank yang dipakai Journal Engine
}

func Load() *Config {
	// .env opsional, untuk development lokal
	if err := godotenv.Load(); err == nil {
		log.Println("Konfigurasi .env dimuat")
	}

	cfg := &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		DatabaseDSN:     getEnv("DATABASE_DSN", "host=localhost user=postgres password=postgres dbname=yayasan port=5432 sslmode=disable"),
		JWTSecret:       getEnv("JWT_SECRET", ""),
		CORSOrigins:     getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
		CashAccountCode: getEnv("CASH_ACCOUNT_CODE", "1001"),
	}

	// Pemeriksaan wajib sebelum server jalan
	if cfg.JWTSecret == "" {
		log.Fatal("[FATAL] JWT_SECRET belum diset! Wajib untuk production.")
	}
	if len(cfg.JWTSecret) < 32 {
		log.Fatal("[FATAL] JWT_SECRET minimal 32 karakter!")
	}
	if cfg.CashAccountCode == "" {
		log.Fatal("[FATAL] CASH_ACCOUNT_CODE tidak boleh kosong, posting jurnal membutuhkannya.")
	}
	if cfg.DatabaseDSN == "host=localhost user=postgres password=postgres dbname=yayasan port=5432 sslmode=disable" {
		log.Println("[WARN] DATABASE_DSN masih nilai default, set koneksi Postgres sendiri untuk production.")
	}

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
