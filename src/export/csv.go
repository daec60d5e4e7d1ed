// backend/src/export/csv.go
package export

import (
	"bytes"
	"encoding/csv"

	"github.com/shopspring/decimal"
	"github.com/username/propfolio/backend/src/security/validation"
)

// Fixed ledger column order; downstream spreadsheet tooling depends on it.
var ledgerHeader = []string{"Date", "Type", "Category", "Vendor", "Description", "Amount", "Receipt", "Property"}

// Receipt column annotations for rows without an embedded file.
const (
	receiptNotApplicable = "N/A"        // income rows never carry receipts
	receiptMissing       = "No receipt" // expense row without an attached receipt
	receiptFileMissing   = "Receipt file missing"
)

const ledgerDateFormat = "02/01/2006"

// formatAmount renders a currency cell: £ plus the absolute value with exactly
// two decimal places.
func formatAmount(d decimal.Decimal) string {
	return "£" + d.Abs().StringFixed(2)
}

// formatNet renders a signed roll-up: -£ prefix on the absolute value when
// negative, plain £ otherwise.
func formatNet(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-£" + d.Abs().StringFixed(2)
	}
	return "£" + d.StringFixed(2)
}

// cell guards free-text fields against spreadsheet formula injection before
// they are quoted into the CSV.
func cell(s string) string {
	return validation.SanitizeForFormulaInjection(s)
}

// renderCSV writes the header plus rows with standard CSV escaping: fields
// containing a comma, quote, or newline are quoted with internal quotes doubled.
func renderCSV(header []string, rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, err
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
