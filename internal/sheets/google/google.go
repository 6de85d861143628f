package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"cardledger/internal/ledger"
	ports "cardledger/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type Config struct {
	SpreadsheetID   string
	StatementSheet  string
	CategoriesSheet string
}

type Client struct {
	svc             *gsheet.Service
	spreadsheetID   string
	statementBase   string
	categoriesSheet string
}

var (
	_ ports.StatementWriter = (*Client)(nil)
	_ ports.CategoryReader  = (*Client)(nil)
)

// New creates a Sheets client authenticated with a service account.
// Statement tabs are named "<period> <StatementSheet>"; categories are read
// from "<year> <CategoriesSheet>" column A.
func New(ctx context.Context, cfg Config) (*Client, error) {
	id := strings.TrimSpace(cfg.SpreadsheetID)
	if id == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	statement := strings.TrimSpace(cfg.StatementSheet)
	if statement == "" {
		statement = "Faturas"
	}
	categories := strings.TrimSpace(cfg.CategoriesSheet)
	if categories == "" {
		categories = "Categorias"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:             svc,
		spreadsheetID:   id,
		statementBase:   statement,
		categoriesSheet: yearPrefixedName(categories, time.Now().Year()),
	}, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
// Uses GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error

	switch {
	case serviceAccountJSON != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created successfully")
	return service, nil
}

// WriteStatement replaces the contents of the statement's tab, creating
// the tab on first use.
func (c *Client) WriteStatement(ctx context.Context, st ledger.Statement) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	title := statementTitle(c.statementBase, st)
	if err := c.ensureSheet(ctx, title); err != nil {
		return "", err
	}

	clearRange := fmt.Sprintf("'%s'!A:H", title)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, clearRange, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("clear %s: %w", clearRange, err)
	}

	rows := statementRows(st)
	rng := fmt.Sprintf("'%s'!A1:H%d", title, len(rows))
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, &gsheet.ValueRange{Values: rows}).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("update %s: %w", rng, err)
	}

	slog.InfoContext(ctx, "Statement written to Google Sheets",
		"sheet", title,
		"lines", len(st.Lines),
		"total", st.Total.StringFixed(2))
	return rng, nil
}

func (c *Client) ensureSheet(ctx context.Context, title string) error {
	sp, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read spreadsheet: %w", err)
	}
	for _, s := range sp.Sheets {
		if s.Properties != nil && s.Properties.Title == title {
			return nil
		}
	}
	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: title}},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %s: %w", title, err)
	}
	slog.InfoContext(ctx, "Created statement sheet", "sheet", title)
	return nil
}

// ListCategories reads the category column of the yearly categories tab.
func (c *Client) ListCategories(ctx context.Context) ([]string, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("'%s'!A2:A200", c.categoriesSheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return uniqueLabels(resp.Values), nil
}
