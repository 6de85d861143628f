package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"cardledger/internal/core"

	"github.com/shopspring/decimal"
)

var (
	ErrUnsupportedVersion = errors.New("unsupported schema version")
	ErrInvalidDocument    = errors.New("invalid document")
)

// DecodeOptions carries the defaults used while upgrading old documents.
type DecodeOptions struct {
	DefaultCardLimit decimal.Decimal
}

// upgrader rewrites a raw document from version i to i+1, where i is its
// index in upgraders.
type upgrader func(raw map[string]any, opts DecodeOptions) error

var upgraders = []upgrader{
	upgradeV0ToV1,
	upgradeV1ToV2,
}

var legacyTypes = map[string]core.ExpenseType{
	"avista":           core.TypeCash,
	"cartao_avista":    core.TypeCard,
	"parcelado":        core.TypeCardInstallment,
	"boleto_parcelado": core.TypeInvoiceInstallment,
	"recorrente":       core.TypeRecurring,
}

// Decode parses a stored or exported document of any known schema version
// and upgrades it to core.CurrentSchemaVersion.
func Decode(data []byte, opts DecodeOptions) (core.Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return core.Document{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if raw == nil {
		return core.Document{}, fmt.Errorf("%w: empty document", ErrInvalidDocument)
	}

	version, err := schemaVersion(raw)
	if err != nil {
		return core.Document{}, err
	}
	if version > core.CurrentSchemaVersion || len(upgraders) != core.CurrentSchemaVersion {
		return core.Document{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}
	for v := version; v < core.CurrentSchemaVersion; v++ {
		if err := upgraders[v](raw, opts); err != nil {
			return core.Document{}, fmt.Errorf("upgrade schema v%d to v%d: %w", v, v+1, err)
		}
	}
	raw["schemaVersion"] = core.CurrentSchemaVersion

	canonical, err := json.Marshal(raw)
	if err != nil {
		return core.Document{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	var doc core.Document
	if err := json.Unmarshal(canonical, &doc); err != nil {
		return core.Document{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	normalize(&doc)
	return doc, nil
}

// Encode serializes doc at the current schema version.
func Encode(doc core.Document) ([]byte, error) {
	doc.SchemaVersion = core.CurrentSchemaVersion
	normalize(&doc)
	return json.Marshal(doc)
}

func schemaVersion(raw map[string]any) (int, error) {
	v, ok := raw["schemaVersion"]
	if !ok || v == nil {
		return 0, nil
	}
	n, ok := v.(json.Number)
	if !ok {
		return 0, fmt.Errorf("%w: schemaVersion %v", ErrInvalidDocument, v)
	}
	i, err := strconv.Atoi(n.String())
	if err != nil || i < 0 {
		return 0, fmt.Errorf("%w: schemaVersion %v", ErrInvalidDocument, v)
	}
	return i, nil
}

// upgradeV0ToV1 back-fills fields that older untagged documents may lack.
func upgradeV0ToV1(raw map[string]any, opts DecodeOptions) error {
	for _, c := range objects(raw, "cards") {
		if active, ok := c["active"]; ok {
			if b, _ := active.(bool); b {
				c["status"] = string(core.CardActive)
			} else {
				c["status"] = string(core.CardSleeping)
			}
			delete(c, "active")
		}
		if s, _ := c["status"].(string); s == "" {
			c["status"] = string(core.CardActive)
		}
		if isBlankAmount(c["limit"]) {
			c["limit"] = opts.DefaultCardLimit.String()
		}
	}
	for _, e := range objects(raw, "expenses") {
		t, _ := e["type"].(string)
		if t == "recorrente" || t == string(core.TypeRecurring) {
			if _, ok := e["isVariable"]; !ok {
				e["isVariable"] = false
			}
			if e["pausedPeriods"] == nil {
				e["pausedPeriods"] = []any{}
			}
			if _, ok := e["terminationDate"]; !ok {
				e["terminationDate"] = nil
			}
		}
		if e["variations"] == nil {
			e["variations"] = map[string]any{}
		}
	}
	return nil
}

// upgradeV1ToV2 moves legacy keys and tags to the canonical layout and
// coerces string-typed numbers.
func upgradeV1ToV2(raw map[string]any, _ DecodeOptions) error {
	for _, c := range objects(raw, "cards") {
		c["closingDay"] = toInt(c["closingDay"], 1)
		c["dueDay"] = toInt(c["dueDay"], 1)
		c["limit"] = toAmount(c["limit"])
		if s, _ := c["expiration"].(string); s != "" {
			if _, err := core.ParsePeriod(s); err != nil {
				delete(c, "expiration")
			}
		} else {
			delete(c, "expiration")
		}
		delete(c, "skin")
	}
	for i, e := range objects(raw, "expenses") {
		rename(e, "date", "originDate")
		rename(e, "installments", "installmentCount")
		rename(e, "isVariable", "isVariableAmount")
		rename(e, "variations", "variationOverrides")
		rename(e, "terminationDate", "terminationPeriod")

		t, _ := e["type"].(string)
		if mapped, ok := legacyTypes[t]; ok {
			e["type"] = string(mapped)
		} else if !core.ExpenseType(t).Valid() {
			return fmt.Errorf("expense %d: unknown type %q", i, t)
		}

		e["installmentCount"] = toInt(e["installmentCount"], 1)
		e["value"] = toAmount(e["value"])
		if card, _ := e["cardId"].(string); card == "" {
			delete(e, "cardId")
		}
		for _, key := range []string{"paidPeriods", "pausedPeriods"} {
			if e[key] == nil {
				e[key] = []any{}
			}
		}
		term, err := terminationPeriod(e["terminationPeriod"])
		if err != nil {
			return fmt.Errorf("expense %d: %w", i, err)
		}
		e["terminationPeriod"] = term
		if overrides, ok := e["variationOverrides"].(map[string]any); ok {
			// Unreadable overrides fall back to the nominal estimate.
			for k, v := range overrides {
				amount, ok := parseAmount(v)
				if !ok {
					delete(overrides, k)
					continue
				}
				overrides[k] = amount
			}
		} else {
			e["variationOverrides"] = map[string]any{}
		}
	}
	return nil
}

func normalize(doc *core.Document) {
	if doc.Cards == nil {
		doc.Cards = []core.Card{}
	}
	if doc.Expenses == nil {
		doc.Expenses = []core.Expense{}
	}
	if doc.Categories == nil {
		doc.Categories = []string{}
	}
	if doc.Beneficiaries == nil {
		doc.Beneficiaries = []string{}
	}
	for i := range doc.Expenses {
		e := &doc.Expenses[i]
		if e.PaidPeriods == nil {
			e.PaidPeriods = core.PeriodSet{}
		}
		if e.Paused == nil {
			e.Paused = core.PeriodSet{}
		}
		if e.Variations == nil {
			e.Variations = map[string]decimal.Decimal{}
		}
	}
}

func objects(raw map[string]any, key string) []map[string]any {
	list, _ := raw[key].([]any)
	out := make([]map[string]any, 0, len(list))
	for _, item := range list {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func rename(m map[string]any, from, to string) {
	v, ok := m[from]
	if !ok {
		return
	}
	if _, exists := m[to]; !exists {
		m[to] = v
	}
	delete(m, from)
}

func isBlankAmount(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		d, err := core.ParseSignedAmount(x)
		return err != nil || d.IsZero()
	case json.Number:
		d, err := decimal.NewFromString(x.String())
		return err != nil || d.IsZero()
	}
	return false
}

func toInt(v any, fallback int) int {
	var s string
	switch x := v.(type) {
	case json.Number:
		s = x.String()
	case string:
		s = strings.TrimSpace(x)
	default:
		return fallback
	}
	if i, err := strconv.Atoi(s); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int(f)
	}
	return fallback
}

func toAmount(v any) string {
	if s, ok := parseAmount(v); ok {
		return s
	}
	return "0"
}

func parseAmount(v any) (string, bool) {
	switch x := v.(type) {
	case json.Number:
		if d, err := decimal.NewFromString(x.String()); err == nil {
			return d.String(), true
		}
	case string:
		if d, err := core.ParseSignedAmount(x); err == nil {
			return d.String(), true
		}
	}
	return "", false
}

// terminationPeriod reads a legacy termination value. Older documents stored
// full dates; the leading YYYY-MM is the period. A value that names no
// period is an error, never an open-ended obligation.
func terminationPeriod(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return nil, nil
		}
		if p, err := core.ParsePeriod(s); err == nil {
			return p.String(), nil
		}
		if len(s) >= 7 {
			if p, err := core.ParsePeriod(s[:7]); err == nil {
				return p.String(), nil
			}
		}
	}
	return nil, fmt.Errorf("%w: termination %v", ErrInvalidDocument, v)
}
