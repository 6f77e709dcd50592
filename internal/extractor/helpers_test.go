package extractor

import (
	"testing"

	"fjacquet/statement-csv/internal/models"
	"fjacquet/statement-csv/internal/reflow"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

// pagesFromLines lays each line out as one EOL run on its own baseline.
func pagesFromLines(lines ...string) [][]reflow.GlyphRun {
	page := make([]reflow.GlyphRun, 0, len(lines))
	y := 800.0
	for _, l := range lines {
		page = append(page, reflow.GlyphRun{Text: l, EOL: true, Y: y})
		y -= 12
	}
	return [][]reflow.GlyphRun{page}
}

func docFromLines(lines ...string) *reflow.Document {
	doc := reflow.Reflow(pagesFromLines(lines...), reflow.DefaultThreshold)
	return &doc
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertAmount(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "amount: want %s, got %s", want, got)
}

func assertBalance(t *testing.T, want string, got decimal.NullDecimal) {
	t.Helper()
	if assert.True(t, got.Valid, "balance should be set") {
		assert.True(t, dec(want).Equal(got.Decimal), "balance: want %s, got %s", want, got.Decimal)
	}
}

// assertInvariants checks the filtering, sign and ordering guarantees.
func assertInvariants(t *testing.T, txs []models.Transaction) {
	t.Helper()
	for i, tx := range txs {
		assert.True(t, tx.Amount.Abs().GreaterThan(models.ZeroTolerance), "row %d has a zero amount", i)
		assert.Equal(t, models.KindOf(tx.Amount), tx.Kind, "row %d kind disagrees with sign", i)
		assert.Equal(t, !tx.Amount.IsNegative(), tx.IsIncome(), "row %d income flag", i)
		if i > 0 {
			assert.False(t, tx.Date.After(txs[i-1].Date), "row %d is newer than row %d", i, i-1)
		}
	}
}

var santanderStatement = []string{
	"Banco Santander",
	"Moviments del teu compte",
	"Data operació  Operació  Import  Saldo",
	"26 de des. 2025",
	"Compra targeta SUPERMERCAT",
	"D. valor: 24 de des. 2025",
	"-13,99 €   12,62 €",
	"27 d'oct. 2025",
	"Bizum recibido",
	"50,00 €   26,61 €",
	"Página 1 de 2",
	"texto fuera de tabla 99,00 €",
	"Data operació  Operació  Import  Saldo",
	"2 de gen. 2025",
	"Transferencia nómina",
	"1.500,00 €   1.526,61 €",
	"Document a data 31/12/2025",
}

var myAndBankStatement = []string{
	"MyAndBank - Extracte de compte",
	"Data operació  Data valor  Concepte  Operació  Import  Saldo",
	"2025-12-31   2025-12-31   99900000251231   TAXA IRPF   -0,17   5.340,39",
	"2025-12-15   2025-12-15   00012345   BIZUM ENVIAT A JOAN   -25,00   5.340,56",
	"2025-12-01   2025-12-01   00012300   TRANSFERÈNCIA NÒMINA   2.400,00   5.365,56",
	"2025-11-30   2025-11-30   00000001   LIQUIDACIÓ   0,00   2.965,56",
	"NRT A-700001-X",
	"2025-11-01   2025-11-01   00000002   IGNORED ROW   -1,00   2.965,56",
}

var creandStatement = []string{
	"Creand Crèdit Andorrà",
	"Balance in EUR Credit Debit Value date Transaction Date",
	"1.000,00 05.01.26 Previous balance 05.01.26",
	"950,00 -50,00 06.01.26 1484577781 - Payment - SUPERMERCAT ANDORRA 06.01.26",
	"1.950,00 1.000,00 0,00 07.01.26 Transfer received 07.01.26",
	"1.900,00 -50,00 08.01.26 Cybercard",
	"SHOP NAME 08.01.26",
	"Sum of bookings 2.000,00 100,00",
}

var pipeStatement = []string{
	"Relevé de compte",
	"Date | Libellé | Montant",
	"15/01/2025 | 15/01/2025 | Carte Electron | Boulangerie Paul | -12,50 EUR | 1.234,56 EUR",
}
