// backend/src/export/filter.go
package export

import (
	"sort"
	"time"

	"github.com/username/propfolio/backend/src/models"
)

// dayOf normalizes a timestamp to day granularity. Filtering and the ledger
// sort ignore any time-of-day component on transaction dates.
func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// InRange reports whether the transaction date falls within
// [r.Start 00:00:00.000, r.End 23:59:59.999], both boundaries inclusive.
// A nil range includes everything.
func InRange(tx *models.Transaction, r *DateRange) bool {
	if r == nil {
		return true
	}
	day := dayOf(tx.Date)
	return !day.Before(dayOf(r.Start)) && !day.After(dayOf(r.End))
}

// FilterAndSort narrows transactions to the given range and orders them for a
// tax ledger: ascending by date, income before expense on equal dates. The
// input slice is never mutated; the result is a fresh slice.
func FilterAndSort(txs []models.Transaction, r *DateRange) []models.Transaction {
	out := make([]models.Transaction, 0, len(txs))
	for i := range txs {
		if InRange(&txs[i], r) {
			out = append(out, txs[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		di, dj := dayOf(out[i].Date), dayOf(out[j].Date)
		if !di.Equal(dj) {
			return di.Before(dj)
		}
		// Income reads before expense on the same day.
		return out[i].Type == models.TransactionIncome && out[j].Type == models.TransactionExpense
	})
	return out
}
