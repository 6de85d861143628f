package importer

import (
	"errors"
	"testing"

	"cardledger/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const statementText = `FATURA NUBANK
15/01 UBER DO BRASIL 15,90
16/01 MAGAZINE LUIZA F05/10 R$ 1.234,56
17/01 PAGAMENTO RECEBIDO -500,00
18/01 SALDO ANTERIOR 300,00
20/01 AMAZON PRIME 14.90
21/01 ESTORNO LOJA -20,00
`

func TestParse(t *testing.T) {
	drafts := Parse(statementText, 2025)
	require.Len(t, drafts, 4)

	assert.Equal(t, Draft{Date: "2025-01-15", Description: "UBER DO BRASIL", Value: "15,90"}, drafts[0])
	assert.Equal(t, Draft{Date: "2025-01-16", Description: "MAGAZINE LUIZA (05/10)", Value: "1.234,56", InstallmentTag: "05/10"}, drafts[1])
	assert.Equal(t, "14.90", drafts[2].Value)
	assert.Equal(t, "-20,00", drafts[3].Value)
}

func TestDraftsGoThroughConstruction(t *testing.T) {
	drafts := Parse(statementText, 2025)

	e, err := core.NewExpense(drafts[1].Input("card-1", "Lazer", "Geral"))
	require.NoError(t, err)
	assert.Equal(t, core.TypeCard, e.Type)
	assert.Equal(t, "card-1", e.CardID)
	assert.Equal(t, "1234.56", e.Value.String())
	assert.Equal(t, 1, e.Installments)

	_, err = core.NewExpense(drafts[3].Input("card-1", "", ""))
	assert.True(t, errors.Is(err, core.ErrInvalidAmount), "credits are rejected, got %v", err)

	_, err = core.NewExpense(drafts[0].Input("", "", ""))
	assert.ErrorIs(t, err, core.ErrCardRequired)
}

func TestParseInvalidDateIsRejectedLater(t *testing.T) {
	drafts := Parse("31/02 PADARIA 10,00", 2025)
	require.Len(t, drafts, 1)
	_, err := core.NewExpense(drafts[0].Input("c", "", ""))
	assert.ErrorIs(t, err, core.ErrInvalidDate)
}
