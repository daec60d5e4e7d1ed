// backend/src/export/summary.go
package export

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/username/propfolio/backend/src/models"
	"github.com/username/propfolio/backend/src/utils"
)

// PropertySummary is the per-property aggregate written to summary CSVs.
// Computed fresh on every export, never stored.
type PropertySummary struct {
	PropertyName     string          `json:"property_name"`
	TotalIncome      decimal.Decimal `json:"total_income"`
	TotalExpenses    decimal.Decimal `json:"total_expenses"`
	NetPosition      decimal.Decimal `json:"net_position"`
	ReceiptCoverage  int             `json:"receipt_coverage"` // whole percent of expense transactions with a receipt
	TransactionCount int             `json:"transaction_count"`
	Period           string          `json:"period"`

	// Expense counts are tracked directly so the portfolio TOTAL row can blend
	// receipt coverage exactly instead of back-deriving it from amounts.
	ExpenseCount          int `json:"-"`
	ReceiptedExpenseCount int `json:"-"`
}

var summaryHeader = []string{"Property", "Total Income", "Total Expenses", "Net Position", "Receipt Coverage", "Transactions", "Period"}

// Summarize aggregates one property's in-range transactions.
func Summarize(propertyName string, txs []models.Transaction, period string) PropertySummary {
	s := PropertySummary{
		PropertyName:     propertyName,
		TransactionCount: len(txs),
		Period:           period,
	}
	for i := range txs {
		tx := &txs[i]
		switch tx.Type {
		case models.TransactionIncome:
			s.TotalIncome = s.TotalIncome.Add(tx.Amount.Abs())
		case models.TransactionExpense:
			s.TotalExpenses = s.TotalExpenses.Add(tx.Amount.Abs())
			s.ExpenseCount++
			if tx.HasReceipt() {
				s.ReceiptedExpenseCount++
			}
		}
	}
	s.NetPosition = s.TotalIncome.Sub(s.TotalExpenses)
	s.ReceiptCoverage = coveragePercent(s.ReceiptedExpenseCount, s.ExpenseCount)
	return s
}

// coveragePercent is 0 when there are no expense transactions.
func coveragePercent(receipted, expenses int) int {
	if expenses == 0 {
		return 0
	}
	return int(utils.RoundFloat(100*float64(receipted)/float64(expenses), 0))
}

// summaryCSV renders summaries sorted alphabetically by property name. When
// withTotal is set a TOTAL row is appended: summed incomes, expenses,
// transaction counts, the signed net, and the exact blended receipt coverage
// across every property's expense transactions. The TOTAL period reuses the
// first summary's period label.
func summaryCSV(summaries []PropertySummary, withTotal bool) ([]byte, error) {
	sorted := make([]PropertySummary, len(summaries))
	copy(sorted, summaries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].PropertyName < sorted[j].PropertyName })

	rows := make([][]string, 0, len(sorted)+1)
	for _, s := range sorted {
		rows = append(rows, []string{
			cell(s.PropertyName),
			formatAmount(s.TotalIncome),
			formatAmount(s.TotalExpenses),
			formatNet(s.NetPosition),
			fmt.Sprintf("%d%%", s.ReceiptCoverage),
			fmt.Sprintf("%d", s.TransactionCount),
			s.Period,
		})
	}

	if withTotal && len(sorted) > 0 {
		var income, expenses decimal.Decimal
		var txCount, expenseCount, receiptedCount int
		for _, s := range sorted {
			income = income.Add(s.TotalIncome)
			expenses = expenses.Add(s.TotalExpenses)
			txCount += s.TransactionCount
			expenseCount += s.ExpenseCount
			receiptedCount += s.ReceiptedExpenseCount
		}
		rows = append(rows, []string{
			"TOTAL",
			formatAmount(income),
			formatAmount(expenses),
			formatNet(income.Sub(expenses)),
			fmt.Sprintf("%d%%", coveragePercent(receiptedCount, expenseCount)),
			fmt.Sprintf("%d", txCount),
			sorted[0].Period,
		})
	}

	return renderCSV(summaryHeader, rows)
}
