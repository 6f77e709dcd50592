package extractor

import (
	"testing"
	"time"

	"fjacquet/statement-csv/internal/logging"
	"fjacquet/statement-csv/internal/models"
	"fjacquet/statement-csv/internal/reflow"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCascade_Order(t *testing.T) {
	c := DefaultCascade(logging.NewMockLogger())
	assert.Equal(t, []string{
		"santander", "myandbank", "creand",
		"table", "aggressive", "alternative", "multiline", "flexible",
	}, c.Names())
}

func TestCascade_PicksFirstNonEmpty(t *testing.T) {
	tests := []struct {
		name      string
		doc       *reflow.Document
		extractor string
		count     int
	}{
		{"santander", docFromLines(santanderStatement...), "santander", 3},
		{"myandbank", docFromLines(myAndBankStatement...), "myandbank", 3},
		{"creand", docFromLines(creandStatement...), "creand", 3},
		{"pipe table falls through the bank formats", docFromLines(pipeStatement...), "table", 1},
		{"loose reflow", func() *reflow.Document {
			d := reflow.Reflow(splitRunPages(), reflow.DefaultThreshold)
			return &d
		}(), "alternative", 1},
		{"date blocks", docFromLines(multilineStatement...), "multiline", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txs, name := DefaultCascade(logging.NewMockLogger()).Run(tt.doc)
			assert.Equal(t, tt.extractor, name)
			assert.Len(t, txs, tt.count)
			assertInvariants(t, txs)
		})
	}
}

func TestCascade_BankFormatsIgnoreGenericTables(t *testing.T) {
	doc := docFromLines(pipeStatement...)
	for _, b := range BankFormats() {
		assert.Empty(t, b.Extract(doc), b.Name())
	}
	assert.Equal(t, "", DetectBank(doc))
}

func TestDetectBank(t *testing.T) {
	// The MyAndBank header also carries the Santander column vocabulary, so
	// Santander claims it first; its scanner then finds no month-name dates.
	assert.Equal(t, "santander", DetectBank(docFromLines(myAndBankStatement...)))

	assert.Equal(t, "santander", DetectBank(docFromLines(santanderStatement...)))
	assert.Equal(t, "myandbank", DetectBank(reflow.FromText("Extracte www.myandbank.com")))
	assert.Equal(t, "creand", DetectBank(docFromLines(creandStatement...)))
}

func TestCascade_MalformedInputYieldsNothing(t *testing.T) {
	faker := gofakeit.New(42)
	lines := make([]string, 0, 1000)
	junk := []string{"| lorem | ipsum |", "EUR EUR EUR", "--/--/----", "Saldo | Import", "de des."}
	for i := 0; i < 1000; i++ {
		if i%10 == 0 {
			lines = append(lines, junk[(i/10)%len(junk)])
			continue
		}
		lines = append(lines, faker.LoremIpsumSentence(1+i%12))
	}

	logger := logging.NewMockLogger()
	txs, name := DefaultCascade(logger).Run(docFromLines(lines...))

	assert.Empty(t, txs)
	assert.Equal(t, "", name)
	assert.Len(t, logger.GetEntriesByLevel("DEBUG"), 8)
}

func TestCascade_Idempotent(t *testing.T) {
	c := DefaultCascade(logging.NewMockLogger())
	for _, lines := range [][]string{santanderStatement, myAndBankStatement, creandStatement, pipeStatement} {
		doc := docFromLines(lines...)
		first, n1 := c.Run(doc)
		second, n2 := c.Run(doc)
		assert.Equal(t, n1, n2)
		assert.Equal(t, first, second)
	}
}

func TestCascade_LogsEachAttempt(t *testing.T) {
	logger := logging.NewMockLogger()
	_, name := DefaultCascade(logger).Run(docFromLines(pipeStatement...))

	require.Equal(t, "table", name)
	assert.True(t, logger.HasEntry("DEBUG", "Extractor finished"))
	assert.Len(t, logger.GetEntriesByLevel("DEBUG"), 4)
}

func TestFilterAndSort(t *testing.T) {
	mk := func(date, amount string) models.Transaction {
		return newTransaction(date, "c", "d", dec(amount))
	}
	in := []models.Transaction{
		mk("01/01/2025", "1"),
		mk("03/01/2025", "0.0005"),
		mk("02/01/2025", "-2"),
		mk("01/01/2025", "3"),
		mk("bad", "4"),
	}
	out := FilterAndSort(in)

	require.Len(t, out, 4)
	assert.Equal(t, "02/01/2025", out[0].DateText)
	assertAmount(t, "1", out[1].Amount)
	assertAmount(t, "3", out[2].Amount)
	assert.Equal(t, "bad", out[3].DateText)
	assert.True(t, out[3].Date.Equal(time.Unix(0, 0)))
	assert.NotNil(t, FilterAndSort(nil))
}
