package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"cardledger/internal/core"
	"cardledger/internal/ledger"
)

// maxBodyBytes bounds JSON bodies. Restore bodies carry a whole document
// and use the store capacity instead.
const maxBodyBytes = 1 << 20

// MonthParams holds a statement selector parsed from the query string.
type MonthParams struct {
	Year   int
	Month  time.Month
	Filter ledger.Filter
}

// Period returns the selected period.
func (p MonthParams) Period() core.Period {
	return core.NewPeriod(p.Year, p.Month)
}

// ParseMonthParams reads year, month and filter, defaulting the first two
// to now. Present but malformed values are rejected rather than replaced.
func ParseMonthParams(query url.Values, now time.Time) (MonthParams, error) {
	params := MonthParams{
		Year:   now.Year(),
		Month:  now.Month(),
		Filter: ledger.ParseFilter(query.Get("filter")),
	}
	if v := strings.TrimSpace(query.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1 || y > 9999 {
			return MonthParams{}, fmt.Errorf("year %q: %w", v, core.ErrInvalidPeriod)
		}
		params.Year = y
	}
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			return MonthParams{}, fmt.Errorf("month %q: %w", v, core.ErrInvalidMonth)
		}
		params.Month = time.Month(m)
	}
	return params, nil
}

// decodeJSON reads a JSON body into dst. An empty body leaves dst as is.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

// periodRequest is the body of the per-period expense operations.
type periodRequest struct {
	Period string `json:"period"`
}

func (p periodRequest) parse() (core.Period, error) {
	return core.ParsePeriod(p.Period)
}

// sanitizeInput strips control characters other than tab and newlines.
func sanitizeInput(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s))
}
