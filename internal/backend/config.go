package backend

import (
	"fmt"

	"cardledger/internal/config"

	"github.com/shopspring/decimal"
)

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	SQLiteDBPath     string
	MaxDocumentBytes int
	DefaultCardLimit decimal.Decimal

	BackupDir string

	// AMQP is optional; an empty URL disables event publishing.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets export is optional; an empty ID disables it.
	GoogleSpreadsheetID   string
	GoogleStatementSheet  string
	GoogleCategoriesSheet string
}

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type: backendType,

		SQLiteDBPath:     appConfig.SQLiteDBPath,
		MaxDocumentBytes: appConfig.MaxDocumentBytes,
		DefaultCardLimit: appConfig.DefaultCardLimit,

		BackupDir: appConfig.BackupDir,

		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,

		GoogleSpreadsheetID:   appConfig.GoogleSpreadsheetID,
		GoogleStatementSheet:  appConfig.GoogleStatementSheet,
		GoogleCategoriesSheet: appConfig.GoogleCategoriesSheet,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}
	if c.Type == SQLiteBackend && c.SQLiteDBPath == "" {
		return fmt.Errorf("SQLite database path is required for sqlite backend")
	}
	if c.MaxDocumentBytes < 0 {
		return fmt.Errorf("max document bytes must not be negative")
	}
	if c.AMQPURL != "" && (c.AMQPExchange == "" || c.AMQPQueue == "") {
		return fmt.Errorf("AMQP exchange and queue are required when AMQP URL is set")
	}
	return nil
}

// SheetsEnabled reports whether statements are exported to a spreadsheet.
func (c Config) SheetsEnabled() bool {
	return c.GoogleSpreadsheetID != ""
}
