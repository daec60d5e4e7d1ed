package export

import (
	"archive/zip"
	"bytes"
	"encoding/base64"
	"encoding/csv"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/propfolio/backend/src/logger"
	"github.com/username/propfolio/backend/src/models"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error")
	os.Exit(m.Run())
}

func testProperty(id, name string) *models.Property {
	return &models.Property{
		ID:            id,
		UserID:        1,
		Name:          name,
		Type:          models.PropertyTypeHouse,
		PurchasePrice: decimal.NewFromInt(250000),
		PurchaseDate:  time.Date(2020, time.January, 15, 0, 0, 0, 0, time.UTC),
		Status:        models.StatusStabilized,
	}
}

func receiptDataURI(payload string) string {
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString([]byte(payload))
}

// readZip extracts every entry of a finished archive into a path->content map.
func readZip(t *testing.T, data []byte) map[string][]byte {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	files := make(map[string][]byte, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		content, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		files[f.Name] = content
	}
	return files
}

func readCSVEntry(t *testing.T, files map[string][]byte, name string) [][]string {
	t.Helper()
	data, ok := files[name]
	require.True(t, ok, "archive missing %s; entries: %v", name, entryNames(files))
	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	return records
}

func entryNames(files map[string][]byte) []string {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	return names
}

func TestExportPropertyTaxYearPack(t *testing.T) {
	property := testProperty("p1", "123 High Street")
	day := time.Date(2024, time.April, 10, 0, 0, 0, 0, time.UTC)
	txs := []models.Transaction{
		{ID: "t1", PropertyID: "p1", Type: models.TransactionExpense, Category: "Repairs",
			Amount: decimal.NewFromInt(200), Date: day, Description: "Screwfix - pipes"},
		{ID: "t2", PropertyID: "p1", Type: models.TransactionIncome, Category: "Rent",
			Amount: decimal.NewFromInt(1000), Date: day, Description: "April rent"},
	}

	r := TaxYear(2024)
	result := ExportProperty(property, txs, &r)

	require.True(t, result.Success, result.Message)
	assert.Equal(t, 2, result.TransactionCount)
	assert.Equal(t, 0, result.ReceiptCount)
	assert.Equal(t, "123_High_Street_TaxPack_TaxYear2024-25.zip", result.FileName)
	assert.Contains(t, result.Message, "Exported 2 transactions (0 receipts) for 123 High Street")

	files := readZip(t, result.Data)
	require.Len(t, files, 2) // transactions.csv + summary.csv, no receipts

	ledger := readCSVEntry(t, files, "transactions.csv")
	require.Len(t, ledger, 3)
	assert.Equal(t, []string{"Date", "Type", "Category", "Vendor", "Description", "Amount", "Receipt", "Property"}, ledger[0])

	// Income sorts before expense on the same day.
	income := ledger[1]
	assert.Equal(t, "10/04/2024", income[0])
	assert.Equal(t, "Income", income[1])
	assert.Equal(t, "Rent", income[2])
	assert.Equal(t, "£1000.00", income[5])
	assert.Equal(t, "N/A", income[6])
	assert.Equal(t, "123 High Street", income[7])

	expense := ledger[2]
	assert.Equal(t, "Expense", expense[1])
	assert.Equal(t, "Screwfix", expense[3])
	assert.Equal(t, "£200.00", expense[5])
	assert.Equal(t, "No receipt", expense[6])

	summary := readCSVEntry(t, files, "summary.csv")
	require.Len(t, summary, 2)
	row := summary[1]
	assert.Equal(t, "123 High Street", row[0])
	assert.Equal(t, "£1000.00", row[1])
	assert.Equal(t, "£200.00", row[2])
	assert.Equal(t, "£800.00", row[3])
	assert.Equal(t, "0%", row[4])
	assert.Equal(t, "2", row[5])
	assert.Equal(t, "Tax Year 2024/25", row[6])
}

func TestExportPropertyEmbedsReceipts(t *testing.T) {
	property := testProperty("p1", "123 High Street")
	payload := "fake jpeg bytes"
	txs := []models.Transaction{
		{ID: "t1", PropertyID: "p1", Type: models.TransactionExpense, Category: "Repairs",
			Amount: decimal.NewFromInt(200), Date: time.Date(2024, time.April, 10, 0, 0, 0, 0, time.UTC),
			Description: "Screwfix - pipes",
			Receipt:     &models.Receipt{FileName: "IMG_1234.jpg", Data: receiptDataURI(payload), FileType: "jpeg"}},
	}

	result := ExportProperty(property, txs, nil)
	require.True(t, result.Success, result.Message)
	assert.Equal(t, 1, result.ReceiptCount)

	files := readZip(t, result.Data)
	wantPath := "receipts/2024-04-April/receipt_001_Screwfix_200.jpg"
	require.Contains(t, files, wantPath, "entries: %v", entryNames(files))
	assert.Equal(t, []byte(payload), files[wantPath])

	ledger := readCSVEntry(t, files, "transactions.csv")
	require.Len(t, ledger, 2)
	assert.Equal(t, "receipt_001_Screwfix_200.jpg", ledger[1][6])

	summary := readCSVEntry(t, files, "summary.csv")
	assert.Equal(t, "100%", summary[1][4])
}

func TestExportPropertyUnreadableReceipt(t *testing.T) {
	property := testProperty("p1", "Flat 2")
	txs := []models.Transaction{
		{ID: "t1", PropertyID: "p1", Type: models.TransactionExpense, Category: "Utilities",
			Amount: decimal.NewFromInt(80), Date: time.Date(2024, time.May, 3, 0, 0, 0, 0, time.UTC),
			Description: "EDF - electricity",
			Receipt:     &models.Receipt{FileName: "bad.jpg", Data: "data:image/jpeg;base64,!!not-base64!!", FileType: "jpeg"}},
	}

	result := ExportProperty(property, txs, nil)
	require.True(t, result.Success, result.Message)
	assert.Equal(t, 0, result.ReceiptCount, "unreadable receipts are skipped, not counted")

	files := readZip(t, result.Data)
	ledger := readCSVEntry(t, files, "transactions.csv")
	require.Len(t, ledger, 2)
	assert.Equal(t, "Receipt file missing", ledger[1][6])
	for name := range files {
		assert.False(t, strings.HasPrefix(name, "receipts/"), "no receipt entries expected, got %s", name)
	}
}

func TestExportPropertyEmptyResults(t *testing.T) {
	property := testProperty("p1", "123 High Street")
	txs := []models.Transaction{
		{ID: "t1", PropertyID: "p1", Type: models.TransactionIncome, Category: "Rent",
			Amount: decimal.NewFromInt(1000), Date: time.Date(2024, time.April, 10, 0, 0, 0, 0, time.UTC)},
	}

	// A range that excludes everything.
	r, err := Custom("2020-01-01", "2020-12-31")
	require.NoError(t, err)
	result := ExportProperty(property, txs, &r)
	assert.False(t, result.Success)
	assert.Equal(t, "No transactions found for selected period", result.Message)
	assert.Nil(t, result.Data)
	assert.Empty(t, result.FileName)

	// No transactions at all, no range active.
	result = ExportProperty(property, nil, nil)
	assert.False(t, result.Success)
	assert.Equal(t, "No transactions found for this property", result.Message)
}

func TestExportPropertyFileNameFallsBackToCurrentYear(t *testing.T) {
	property := testProperty("p1", "Flat 2")
	txs := []models.Transaction{
		{ID: "t1", PropertyID: "p1", Type: models.TransactionIncome, Category: "Rent",
			Amount: decimal.NewFromInt(500), Date: time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)},
	}

	now := time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC)
	result := exportProperty(newZipArchive(), property, txs, nil, now)
	require.True(t, result.Success, result.Message)
	assert.Equal(t, "Flat_2_TaxPack_2026.zip", result.FileName)
}

// failingArchive delegates to a real zip archive but refuses writes under the
// configured path prefix, simulating one property going bad mid-run.
type failingArchive struct {
	archiveCloser
	failPrefix string
}

func (f *failingArchive) AddFile(path string, data []byte) error {
	if strings.HasPrefix(path, f.failPrefix) {
		return assert.AnError
	}
	return f.archiveCloser.AddFile(path, data)
}

func portfolioFixture() ([]models.Property, map[string][]models.Transaction) {
	day := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
	properties := []models.Property{
		*testProperty("good", "Good House"),
		*testProperty("bad", "Bad House"),
	}
	txsByProperty := map[string][]models.Transaction{
		"good": {
			{ID: "g1", PropertyID: "good", Type: models.TransactionIncome, Category: "Rent",
				Amount: decimal.NewFromInt(900), Date: day},
			{ID: "g2", PropertyID: "good", Type: models.TransactionExpense, Category: "Repairs",
				Amount: decimal.NewFromInt(150), Date: day, Description: "Screwfix - paint",
				Receipt: &models.Receipt{FileName: "r.jpg", Data: receiptDataURI("good receipt"), FileType: "jpeg"}},
		},
		"bad": {
			{ID: "b1", PropertyID: "bad", Type: models.TransactionExpense, Category: "Insurance",
				Amount: decimal.NewFromInt(300), Date: day, Description: "Aviva - premium",
				Receipt: &models.Receipt{FileName: "r.jpg", Data: receiptDataURI("bad receipt"), FileType: "jpeg"}},
		},
	}
	return properties, txsByProperty
}

func TestExportPortfolioPartialFailure(t *testing.T) {
	properties, txsByProperty := portfolioFixture()
	ar := &failingArchive{archiveCloser: newZipArchive(), failPrefix: "Property_Bad"}
	now := time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC)

	result := exportPortfolio(ar, properties, txsByProperty, nil, now)

	require.True(t, result.Success, result.Message)
	assert.Contains(t, result.Message, "Exported 2 transactions across 1 properties")
	assert.Contains(t, result.Message, "1 property had errors")
	assert.Equal(t, 2, result.TransactionCount, "failed property's transactions are excluded from the count")
	assert.Equal(t, 1, result.ReceiptCount)

	files := readZip(t, result.Data)
	assert.Contains(t, files, "Property_Good_House/transactions.csv")
	assert.Contains(t, files, "Property_Good_House/receipts/2024-06-June/receipt_001_Screwfix_150.jpg")

	summary := readCSVEntry(t, files, "portfolio_summary.csv")
	require.Len(t, summary, 3, "header + surviving property + TOTAL")
	assert.Equal(t, "Good House", summary[1][0])
	assert.Equal(t, "TOTAL", summary[2][0])
	assert.Equal(t, "£900.00", summary[2][1])
	assert.Equal(t, "£150.00", summary[2][2])
	assert.Equal(t, "£750.00", summary[2][3])
}

func TestExportPortfolioFullPack(t *testing.T) {
	properties, txsByProperty := portfolioFixture()
	r := CalendarYear(2024)

	result := ExportPortfolio(properties, txsByProperty, &r)
	require.True(t, result.Success, result.Message)
	assert.Equal(t, "Multi-Property-TaxPack_2024.zip", result.FileName)
	assert.Equal(t, 3, result.TransactionCount)
	assert.Equal(t, 2, result.ReceiptCount)
	assert.NotContains(t, result.Message, "errors")

	files := readZip(t, result.Data)
	// Receipt numbering is shared across the run; Bad House processes after
	// Good House in input order, so its receipt takes sequence 002.
	assert.Contains(t, files, "Property_Good_House/receipts/2024-06-June/receipt_001_Screwfix_150.jpg")
	assert.Contains(t, files, "Property_Bad_House/receipts/2024-06-June/receipt_002_Aviva_300.jpg")

	summary := readCSVEntry(t, files, "portfolio_summary.csv")
	require.Len(t, summary, 4) // header + 2 properties + TOTAL
	// Alphabetical: Bad House before Good House.
	assert.Equal(t, "Bad House", summary[1][0])
	assert.Equal(t, "-£300.00", summary[1][3])
	assert.Equal(t, "Good House", summary[2][0])
	assert.Equal(t, "TOTAL", summary[3][0])
	assert.Equal(t, "100%", summary[3][4], "both expenses carry receipts")
}

func TestLedgerGuardsFormulaPrefixedFields(t *testing.T) {
	property := testProperty("p1", "123 High Street")
	day := time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)
	txs := []models.Transaction{
		{ID: "t1", PropertyID: "p1", Type: models.TransactionExpense, Category: "Repairs",
			Amount: decimal.NewFromInt(40), Date: day, Description: "- pipes"},
		{ID: "t2", PropertyID: "p1", Type: models.TransactionExpense, Category: "Repairs",
			Amount: decimal.NewFromInt(10), Date: day, Description: "=SUM(A1:A9)"},
	}

	result := ExportProperty(property, txs, nil)
	require.True(t, result.Success, result.Message)

	files := readZip(t, result.Data)
	ledger := readCSVEntry(t, files, "transactions.csv")
	require.Len(t, ledger, 3)

	// A description with no text before the dash has no vendor, and fields
	// starting with a formula character get the leading-quote guard.
	assert.Equal(t, "Unknown", ledger[1][3])
	assert.Equal(t, "'- pipes", ledger[1][4])
	assert.Equal(t, "'=SUM(A1:A9)", ledger[2][4])
}

func TestExportPortfolioFailedPropertyLeavesNoEntries(t *testing.T) {
	properties, txsByProperty := portfolioFixture()
	// Fail only the ledger, which is assembled after the receipts: before the
	// entries were staged, Bad House's receipt would already sit in the archive.
	ar := &failingArchive{archiveCloser: newZipArchive(), failPrefix: "Property_Bad_House/transactions.csv"}

	result := exportPortfolio(ar, properties, txsByProperty, nil, time.Now())

	// The receipt landed before the ledger write failed, so the shared archive
	// holds part of a failed property and the whole export is abandoned.
	assert.False(t, result.Success)
	assert.Equal(t, "Export failed. Please try again.", result.Message)
	assert.Nil(t, result.Data)
}

func TestExportPortfolioPreChecks(t *testing.T) {
	result := ExportPortfolio(nil, nil, nil)
	assert.False(t, result.Success)
	assert.Equal(t, "No properties to export", result.Message)

	properties, txsByProperty := portfolioFixture()
	r, err := Custom("1990-01-01", "1990-12-31")
	require.NoError(t, err)
	result = ExportPortfolio(properties, txsByProperty, &r)
	assert.False(t, result.Success)
	assert.Equal(t, "No properties with transactions for the selected period", result.Message)
}

func TestExportPortfolioAllPropertiesFail(t *testing.T) {
	properties, txsByProperty := portfolioFixture()
	ar := &failingArchive{archiveCloser: newZipArchive(), failPrefix: "Property_"}

	result := exportPortfolio(ar, properties, txsByProperty, nil, time.Now())
	assert.False(t, result.Success)
	assert.Equal(t, "Export failed. Please try again.", result.Message)
	assert.Nil(t, result.Data)
}
