package export

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/propfolio/backend/src/models"
)

func expenseWithReceipt(id string, amount int64) models.Transaction {
	e := tx(id, models.TransactionExpense, time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC), amount)
	e.Receipt = &models.Receipt{FileName: "r.jpg", Data: "data:image/jpeg;base64,aGVsbG8=", FileType: "jpeg"}
	return e
}

func TestSummarize(t *testing.T) {
	day := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
	txs := []models.Transaction{
		tx("i1", models.TransactionIncome, day, 1000),
		tx("i2", models.TransactionIncome, day, 250),
		expenseWithReceipt("e1", 200),
		tx("e2", models.TransactionExpense, day, 100),
		tx("e3", models.TransactionExpense, day, 50),
	}

	s := Summarize("123 High Street", txs, "Tax Year 2024/25")
	assert.Equal(t, "123 High Street", s.PropertyName)
	assert.True(t, s.TotalIncome.Equal(decimal.NewFromInt(1250)), "income %s", s.TotalIncome)
	assert.True(t, s.TotalExpenses.Equal(decimal.NewFromInt(350)), "expenses %s", s.TotalExpenses)
	assert.True(t, s.NetPosition.Equal(decimal.NewFromInt(900)), "net %s", s.NetPosition)
	assert.Equal(t, 5, s.TransactionCount)
	assert.Equal(t, 3, s.ExpenseCount)
	assert.Equal(t, 1, s.ReceiptedExpenseCount)
	assert.Equal(t, 33, s.ReceiptCoverage) // 1 of 3 expenses receipted
	assert.Equal(t, "Tax Year 2024/25", s.Period)
}

func TestSummarizeNoExpenses(t *testing.T) {
	day := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
	s := Summarize("Flat 2", []models.Transaction{tx("i1", models.TransactionIncome, day, 500)}, "All Time")
	assert.Equal(t, 0, s.ReceiptCoverage, "coverage is defined as 0 with no expense transactions")
	assert.True(t, s.NetPosition.Equal(decimal.NewFromInt(500)))
}

func parseCSV(t *testing.T, data []byte) [][]string {
	t.Helper()
	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	return records
}

func TestSummaryCSVSortedWithTotal(t *testing.T) {
	summaries := []PropertySummary{
		{
			PropertyName: "Zebra Court", TotalIncome: decimal.NewFromInt(100), TotalExpenses: decimal.NewFromInt(400),
			ReceiptCoverage: 50, TransactionCount: 3, ExpenseCount: 2, ReceiptedExpenseCount: 1, Period: "2024",
		},
		{
			PropertyName: "Alpha House", TotalIncome: decimal.NewFromInt(1000), TotalExpenses: decimal.NewFromInt(200),
			ReceiptCoverage: 100, TransactionCount: 2, ExpenseCount: 1, ReceiptedExpenseCount: 1, Period: "2024",
		},
	}
	summaries[0].NetPosition = summaries[0].TotalIncome.Sub(summaries[0].TotalExpenses)
	summaries[1].NetPosition = summaries[1].TotalIncome.Sub(summaries[1].TotalExpenses)

	data, err := summaryCSV(summaries, true)
	require.NoError(t, err)
	records := parseCSV(t, data)

	require.Len(t, records, 4) // header + 2 rows + TOTAL
	assert.Equal(t, []string{"Property", "Total Income", "Total Expenses", "Net Position", "Receipt Coverage", "Transactions", "Period"}, records[0])

	assert.Equal(t, "Alpha House", records[1][0])
	assert.Equal(t, "£1000.00", records[1][1])
	assert.Equal(t, "£800.00", records[1][3])

	assert.Equal(t, "Zebra Court", records[2][0])
	assert.Equal(t, "-£300.00", records[2][3]) // negative net renders with -£ prefix

	total := records[3]
	assert.Equal(t, "TOTAL", total[0])
	assert.Equal(t, "£1100.00", total[1])
	assert.Equal(t, "£600.00", total[2])
	assert.Equal(t, "£500.00", total[3])
	// Exact blended coverage: 2 of 3 expense transactions receipted.
	assert.Equal(t, "67%", total[4])
	assert.Equal(t, "5", total[5])
	assert.Equal(t, "2024", total[6])
}

func TestSummaryCSVSingleWithoutTotal(t *testing.T) {
	s := Summarize("Solo", nil, "All Time")
	data, err := summaryCSV([]PropertySummary{s}, false)
	require.NoError(t, err)
	records := parseCSV(t, data)
	require.Len(t, records, 2)
	assert.Equal(t, "Solo", records[1][0])
	assert.Equal(t, "£0.00", records[1][1])
	assert.Equal(t, "0%", records[1][4])
}
