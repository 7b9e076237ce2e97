package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/yourusername/tradegate/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type Config struct {
	Port                  string
	DatabaseURL           string
	JWTSecret             string
	JWTRefreshSecret      string
	TariffAPIBaseURL      string
	TariffCacheTTLSeconds int
	FXAPIBaseURL          string
	FXAPIKey              string
	ViesEndpoint          string
}

func LoadConfig() (*Config, error) {
	godotenv.Load()

	return &Config{
		Port:                  os.Getenv("PORT"),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		JWTSecret:             os.Getenv("JWT_SECRET"),
		JWTRefreshSecret:      os.Getenv("JWT_REFRESH_SECRET"),
		TariffAPIBaseURL:      getEnvOrDefault("TARIFF_API_BASE_URL", "https://www.trade-tariff.service.gov.uk/api/v2"),
		TariffCacheTTLSeconds: getEnvIntOrDefault("TARIFF_CACHE_TTL_SECONDS", 3600),
		FXAPIBaseURL:          getEnvOrDefault("FX_API_BASE_URL", "https://api.frankfurter.app/latest"),
		FXAPIKey:              os.Getenv("FX_API_KEY"),
		ViesEndpoint:          getEnvOrDefault("VIES_ENDPOINT", "https://ec.europa.eu/taxation_customs/vies/services/checkVatService"),
	}, nil
}

func InitDB(cfg *Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.CompanyUK{},
		&models.UploadedDocument{},
		&models.DraftInvoice{},
		&models.Invoice{},
		&models.InvoiceLineItem{},
		&models.ValidationTask{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
