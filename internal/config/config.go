package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
)

type Config struct {
	// HTTP Server
	Port string

	// Storage
	DataBackend      string
	SQLiteDBPath     string
	MaxDocumentBytes int
	DefaultCardLimit decimal.Decimal

	// Backups and retention
	BackupDir           string
	BackupStaleAfter    time.Duration
	AutoPurgeOnCapacity bool

	// Scheduler
	RolloverCron string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets
	GoogleSpreadsheetID   string
	GoogleStatementSheet  string
	GoogleCategoriesSheet string

	LogLevel string
}

func Load() *Config {
	cfg := &Config{
		Port: getEnv("PORT", "8081"),

		DataBackend:      getEnv("DATA_BACKEND", "sqlite"),
		SQLiteDBPath:     getEnv("SQLITE_DB_PATH", "./data/cardledger.db"),
		MaxDocumentBytes: getEnvInt("MAX_DOCUMENT_BYTES", 4_800_000),
		DefaultCardLimit: getEnvDecimal("DEFAULT_CARD_LIMIT", decimal.NewFromInt(5000)),

		BackupDir:           getEnv("BACKUP_DIR", "./data/backups"),
		BackupStaleAfter:    getEnvDuration("BACKUP_STALE_AFTER", 15*24*time.Hour),
		AutoPurgeOnCapacity: getEnvBool("AUTO_PURGE_ON_CAPACITY", true),

		RolloverCron: getEnv("ROLLOVER_CRON", "0 9 * * *"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "cardledger"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_events"),

		GoogleSpreadsheetID:   getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleStatementSheet:  getEnv("GOOGLE_STATEMENT_SHEET", "Extrato"),
		GoogleCategoriesSheet: getEnv("GOOGLE_CATEGORIES_SHEET", "Categorias"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate data backend
	validBackends := []string{"memory", "sqlite"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	// Validate SQLite configuration if backend is sqlite
	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if err := ensureDir(filepath.Dir(c.SQLiteDBPath)); err != nil {
			errors = append(errors, fmt.Sprintf("cannot create SQLite database directory: %v", err))
		}
	}

	if c.MaxDocumentBytes < 0 {
		errors = append(errors, fmt.Sprintf("invalid max document bytes %d: must not be negative", c.MaxDocumentBytes))
	}
	if c.DefaultCardLimit.IsNegative() {
		errors = append(errors, fmt.Sprintf("invalid default card limit %s: must not be negative", c.DefaultCardLimit))
	}

	// Validate backups
	if c.BackupDir == "" {
		errors = append(errors, "backup directory cannot be empty")
	} else if err := ensureDir(c.BackupDir); err != nil {
		errors = append(errors, fmt.Sprintf("cannot create backup directory: %v", err))
	}
	if c.BackupStaleAfter < time.Hour {
		errors = append(errors, fmt.Sprintf("invalid backup stale threshold %v: must be at least 1 hour", c.BackupStaleAfter))
	}

	// Validate scheduler
	if _, err := cron.ParseStandard(c.RolloverCron); err != nil {
		errors = append(errors, fmt.Sprintf("invalid rollover cron '%s': %v", c.RolloverCron, err))
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	// Validate Google Sheets export if enabled
	if c.GoogleSpreadsheetID != "" {
		if c.GoogleStatementSheet == "" {
			errors = append(errors, "Google statement sheet name is required when a spreadsheet is configured")
		}
		hasFile := os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE") != "" || os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") != ""
		hasJSON := os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON") != ""
		if !hasFile && !hasJSON {
			errors = append(errors, "service account credentials must be provided for spreadsheet export")
		}
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// SheetsEnabled reports whether statements are exported to Google Sheets.
func (c *Config) SheetsEnabled() bool {
	return c.GoogleSpreadsheetID != ""
}

func ensureDir(dir string) error {
	if dir == "." || dir == "" {
		return nil
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return os.MkdirAll(dir, 0755)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return defaultValue
}
