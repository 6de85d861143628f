package google

import (
	"fmt"
	"strconv"
	"strings"

	"cardledger/internal/core"
	"cardledger/internal/ledger"
)

var statementHeader = []any{"Vencimento", "Descrição", "Cartão", "Parcela", "Valor", "Pago", "Risco", "Estimativa"}

// statementRows lays a statement out as sheet rows: header, one row per
// line, a blank row and the three totals.
func statementRows(st ledger.Statement) [][]any {
	rows := make([][]any, 0, len(st.Lines)+5)
	rows = append(rows, statementHeader)
	for _, l := range st.Lines {
		card := l.CardName
		if card == "" {
			card = "Dinheiro/Boleto"
		}
		rows = append(rows, []any{
			l.DueDate.String(),
			l.Description,
			card,
			l.Note,
			core.FormatAmount(l.Amount),
			yesNo(l.Paid),
			string(l.Risk),
			yesNo(l.Estimate),
		})
	}
	rows = append(rows,
		[]any{},
		[]any{"Total", "", "", "", core.FormatAmount(st.Total)},
		[]any{"Pago", "", "", "", core.FormatAmount(st.TotalPaid)},
		[]any{"A pagar", "", "", "", core.FormatAmount(st.TotalDue)},
	)
	return rows
}

// statementTitle names the tab a statement is written to, e.g.
// "2025-03 Faturas" or "2025-03 Faturas CASH".
func statementTitle(base string, st ledger.Statement) string {
	title := fmt.Sprintf("%s %s", st.Period, strings.TrimSpace(base))
	if st.Filter != "" && st.Filter != ledger.FilterAll {
		title += " " + string(st.Filter)
	}
	return title
}

func yesNo(b bool) string {
	if b {
		return "Sim"
	}
	return "Não"
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}

// uniqueLabels trims, drops comments and blanks, and dedupes preserving
// order.
func uniqueLabels(values [][]any) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(values))
	for _, row := range values {
		if len(row) == 0 {
			continue
		}
		v := toStrings(row)[0]
		if v == "" || strings.HasPrefix(v, "#") {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
