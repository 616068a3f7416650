package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"autobill/backend/internal/domain"
)

const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Port                  string
	AllowedOrigin         string
	AppEnv                string
	CatalogDriver         string
	SQLitePath            string
	DatabaseURL           string
	RedisAddr             string
	RedisPassword         string
	RedisDB               int
	SuggestionTTLSeconds  int
	AuthSecret            string
	AccessTokenTTLMinutes int
	OwnerUsername         string
	OwnerPassword         string
	BillPrefix            string
	Shop                  domain.ShopProfile
}

func Load() Config {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	ttl, err := strconv.Atoi(getEnv("SUGGESTION_TTL_SECONDS", "30"))
	if err != nil || ttl < 1 {
		ttl = 30
	}
	tokenTTL, err := strconv.Atoi(getEnv("ACCESS_TOKEN_TTL_MINUTES", "720"))
	if err != nil || tokenTTL < 1 {
		tokenTTL = 720
	}

	cfg := Config{
		Port:                  getEnv("PORT", "8080"),
		AllowedOrigin:         getEnv("ALLOWED_ORIGIN", "http://127.0.0.1:3000"),
		AppEnv:                getEnv("APP_ENV", "development"),
		CatalogDriver:         strings.ToLower(getEnv("CATALOG_DRIVER", DriverSQLite)),
		SQLitePath:            getEnv("SQLITE_PATH", "inventory.db"),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		RedisAddr:             os.Getenv("REDIS_ADDR"),
		RedisPassword:         os.Getenv("REDIS_PASSWORD"),
		RedisDB:               redisDB,
		SuggestionTTLSeconds:  ttl,
		AuthSecret:            strings.TrimSpace(os.Getenv("AUTH_SECRET")),
		AccessTokenTTLMinutes: tokenTTL,
		OwnerUsername:         strings.TrimSpace(getEnv("OWNER_USERNAME", "owner")),
		OwnerPassword:         os.Getenv("OWNER_PASSWORD"),
		BillPrefix:            getEnv("BILL_PREFIX", "BILL-"),
		Shop: domain.ShopProfile{
			Name:      getEnv("SHOP_NAME", "Auto Parts Store"),
			NameLocal: os.Getenv("SHOP_NAME_LOCAL"),
			Address:   os.Getenv("SHOP_ADDRESS"),
			Phone:     os.Getenv("SHOP_PHONE"),
			Owner:     os.Getenv("SHOP_OWNER"),
			GSTIN:     strings.TrimSpace(os.Getenv("SHOP_GSTIN")),
		},
	}

	return cfg
}

// Validate reports settings that make the selected catalog driver unusable.
func (c Config) Validate() error {
	switch c.CatalogDriver {
	case DriverMemory:
	case DriverSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite catalog")
		}
	case DriverPostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres catalog")
		}
	default:
		return fmt.Errorf("unknown CATALOG_DRIVER %q (want memory, sqlite or postgres)", c.CatalogDriver)
	}
	return nil
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}
