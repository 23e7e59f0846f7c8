package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is built once in main() and passed into every constructor.
// Business logic never reads the process environment directly.
type Config struct {
	Port         string
	GoEnv        string
	StoreBackend string

	// Shared manager PIN for unlocking closings.
	ManagerPIN string

	// Airtable backend.
	AirtableAPIKey       string
	AirtableBaseId       string
	AirtableClosingTable string
	AirtableBudgetTable  string
	AirtableHistoryTable string
	AirtableStoreTable   string

	// MySQL backend.
	DBUser     string
	DBPassword string
	DBHost     string
	DBPort     string
	DBName     string

	RedisAddress string

	JwtSecret string

	// Notifications.
	SendGridAPIKey string
	EmailFrom      string
	EmailFromName  string
	ManagerEmail   string

	CORSAllowedOrigins []string

	// Bounded timeout applied to record-store and notifier calls.
	StoreTimeout  time.Duration
	NotifyTimeout time.Duration
}

const (
	StoreBackendAirtable = "airtable"
	StoreBackendMySQL    = "mysql"
	StoreBackendMemory   = "memory"
)

func Load() (*Config, error) {
	// Load env from .env (no-op when absent).
	godotenv.Load()

	cfg := &Config{
		Port:         envOr("PORT", "8080"),
		GoEnv:        os.Getenv("GO_ENV"),
		StoreBackend: envOr("STORE_BACKEND", StoreBackendMemory),

		ManagerPIN: os.Getenv("MANAGER_UNLOCK_PIN"),

		AirtableAPIKey:       os.Getenv("AIRTABLE_API_KEY"),
		AirtableBaseId:       os.Getenv("AIRTABLE_BASE_ID"),
		AirtableClosingTable: envOr("AIRTABLE_CLOSING_TABLE", "Daily Closings"),
		AirtableBudgetTable:  envOr("AIRTABLE_BUDGET_TABLE", "Weekly Budgets"),
		AirtableHistoryTable: envOr("AIRTABLE_HISTORY_TABLE", "History"),
		AirtableStoreTable:   envOr("AIRTABLE_STORE_TABLE", "Stores"),

		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBHost:     os.Getenv("DB_HOST"),
		DBPort:     envOr("DB_PORT", "3306"),
		DBName:     os.Getenv("DB_NAME"),

		RedisAddress: os.Getenv("REDIS_ADDRESS"),

		JwtSecret: envOr("API_SECRET", "Closings-Secret"),

		SendGridAPIKey: os.Getenv("SENDGRID_API_KEY"),
		EmailFrom:      os.Getenv("EMAIL_USER"),
		EmailFromName:  envOr("EMAIL_FROM_NAME", "Closing Report App"),
		ManagerEmail:   os.Getenv("MANAGER_EMAIL"),

		StoreTimeout:  10 * time.Second,
		NotifyTimeout: 15 * time.Second,
	}

	if origins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS")); origins != "" {
		cfg.CORSAllowedOrigins = splitAndTrim(origins)
	}

	switch cfg.StoreBackend {
	case StoreBackendAirtable:
		if cfg.AirtableAPIKey == "" || cfg.AirtableBaseId == "" {
			return nil, errors.New("AIRTABLE_API_KEY and AIRTABLE_BASE_ID are required for the airtable backend")
		}
	case StoreBackendMySQL:
		if cfg.DBHost == "" || cfg.DBName == "" {
			return nil, errors.New("DB_HOST and DB_NAME are required for the mysql backend")
		}
	case StoreBackendMemory:
		// nothing to check
	default:
		return nil, errors.New("unknown STORE_BACKEND: " + cfg.StoreBackend)
	}

	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.GoEnv), "production")
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
