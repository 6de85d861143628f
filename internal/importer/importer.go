// Package importer scrapes purchase lines out of pasted card statement
// text. Its output is untrusted: drafts only become expenses through
// core.NewExpense.
package importer

import (
	"fmt"
	"regexp"
	"strings"

	"cardledger/internal/core"
)

// Draft is one scraped statement line.
type Draft struct {
	Date           string `json:"date"`
	Description    string `json:"description"`
	Value          string `json:"value"`
	InstallmentTag string `json:"installmentTag,omitempty"`
}

// DD/MM, free description, optional installment tag such as 01/12, F01/12
// or T01/10, optional R$ and a signed amount in either notation.
var linePattern = regexp.MustCompile(`(\d{2}/\d{2})\s+(.*?)(?:\s+([A-Z]?\d{1,2}/\d{1,2}))?\s+(?:R\$\s*)?(-?[\d.,]+)`)

var tagDigits = regexp.MustCompile(`[^\d/]`)

var skipWords = []string{"SALDO", "PAGAMENTO", "CREDITO", "CRÉDITO"}

// Parse extracts drafts from text, dating them in year. Balance, payment
// and credit lines are skipped.
func Parse(text string, year int) []Draft {
	var out []Draft
	for _, line := range strings.Split(text, "\n") {
		for _, m := range linePattern.FindAllStringSubmatch(line, -1) {
			desc := strings.TrimSpace(m[2])
			if skip(desc) {
				continue
			}
			d := Draft{
				Date:        fmt.Sprintf("%04d-%s-%s", year, m[1][3:5], m[1][0:2]),
				Description: desc,
				Value:       m[4],
			}
			if m[3] != "" {
				d.InstallmentTag = tagDigits.ReplaceAllString(m[3], "")
				d.Description = fmt.Sprintf("%s (%s)", desc, d.InstallmentTag)
			}
			out = append(out, d)
		}
	}
	return out
}

func skip(desc string) bool {
	upper := strings.ToUpper(desc)
	for _, w := range skipWords {
		if strings.Contains(upper, w) {
			return true
		}
	}
	return false
}

// Input turns the draft into a one-time card purchase on cardID.
func (d Draft) Input(cardID, category, beneficiary string) core.ExpenseInput {
	return core.ExpenseInput{
		Description: d.Description,
		Value:       d.Value,
		Type:        core.TypeCard,
		Category:    category,
		Beneficiary: beneficiary,
		Date:        d.Date,
		CardID:      cardID,
	}
}
