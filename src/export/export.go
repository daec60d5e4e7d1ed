// backend/src/export/export.go
//
// The tax-pack export engine. Two public entry points share the per-property
// processing: ExportProperty builds one archive for one property,
// ExportPortfolio builds one combined archive across every property with
// in-range transactions, tolerating per-property failures. Neither entry point
// lets an error escape; every path returns the same Result shape so callers
// can render a uniform notification.
package export

import (
	"fmt"
	"time"

	"github.com/username/propfolio/backend/src/config"
	"github.com/username/propfolio/backend/src/logger"
	"github.com/username/propfolio/backend/src/models"
)

// Result is the uniform outcome of an export call. Data holds the finished
// ZIP payload when Success is true.
type Result struct {
	Success          bool   `json:"success"`
	Message          string `json:"message"`
	TransactionCount int    `json:"totalCount,omitempty"`
	ReceiptCount     int    `json:"receiptCount,omitempty"`
	FileName         string `json:"fileName,omitempty"`
	Data             []byte `json:"-"`
}

const (
	msgNoTransactionsInPeriod = "No transactions found for selected period"
	msgNoTransactions         = "No transactions found for this property"
	msgNoProperties           = "No properties to export"
	msgNoPropertiesInPeriod   = "No properties with transactions for the selected period"
	msgExportFailed           = "Export failed. Please try again."
	msgArchiveTooLarge        = " Warning: the archive exceeds 50MB and may be slow to download."
)

func archiveWarnBytes() int64 {
	if config.Cfg != nil {
		return config.Cfg.ArchiveWarnSizeBytes
	}
	return 50 * 1024 * 1024
}

// fileLabel is the date-range token used in archive names; without an active
// range it falls back to the current year.
func fileLabel(r *DateRange, now time.Time) string {
	if r != nil && r.Label != "" {
		return r.Label
	}
	return fmt.Sprintf("%d", now.Year())
}

// ExportProperty produces one tax pack for one property from its full,
// unfiltered transaction list and an optional date range.
func ExportProperty(property *models.Property, txs []models.Transaction, r *DateRange) Result {
	return exportProperty(newZipArchive(), property, txs, r, time.Now())
}

func exportProperty(ar archiveCloser, property *models.Property, txs []models.Transaction, r *DateRange, now time.Time) Result {
	filtered := FilterAndSort(txs, r)
	if len(filtered) == 0 {
		// Expected outcome, not an error: nothing to pack.
		msg := msgNoTransactions
		if r != nil {
			msg = msgNoTransactionsInPeriod
		}
		logger.L.Info("Export skipped, no transactions in range", "propertyID", property.ID, "filtered", r != nil)
		return Result{Success: false, Message: msg}
	}

	seq := &receiptCounter{}
	receiptCount, err := writePropertyFiles(ar, "", property, filtered, seq)
	if err != nil {
		logger.L.Error("Export failed building property files", "propertyID", property.ID, "error", err)
		return Result{Success: false, Message: msgExportFailed}
	}

	summary := Summarize(property.Name, filtered, PeriodName(r))
	summaryData, err := summaryCSV([]PropertySummary{summary}, false)
	if err != nil {
		logger.L.Error("Export failed rendering summary", "propertyID", property.ID, "error", err)
		return Result{Success: false, Message: msgExportFailed}
	}
	if err := ar.AddFile("summary.csv", summaryData); err != nil {
		logger.L.Error("Export failed writing summary", "propertyID", property.ID, "error", err)
		return Result{Success: false, Message: msgExportFailed}
	}

	data, err := ar.Close()
	if err != nil {
		logger.L.Error("Export failed finalizing archive", "propertyID", property.ID, "error", err)
		return Result{Success: false, Message: msgExportFailed}
	}

	message := fmt.Sprintf("Exported %d transactions (%d receipts) for %s", len(filtered), receiptCount, property.Name)
	if int64(len(data)) > archiveWarnBytes() {
		logger.L.Warn("Export archive exceeds size threshold", "propertyID", property.ID, "bytes", len(data))
		message += msgArchiveTooLarge
	}

	return Result{
		Success:          true,
		Message:          message,
		TransactionCount: len(filtered),
		ReceiptCount:     receiptCount,
		FileName:         fmt.Sprintf("%s_TaxPack_%s.zip", SanitizeFilename(property.Name), fileLabel(r, now)),
		Data:             data,
	}
}

// ExportPortfolio produces one combined tax pack across every property that
// has at least one in-range transaction. A failure while processing one
// property is recorded and the remaining properties still export; only the
// failure count is surfaced to the user, the names are logged.
func ExportPortfolio(properties []models.Property, txsByProperty map[string][]models.Transaction, r *DateRange) Result {
	return exportPortfolio(newZipArchive(), properties, txsByProperty, r, time.Now())
}

func exportPortfolio(ar archiveCloser, properties []models.Property, txsByProperty map[string][]models.Transaction, r *DateRange, now time.Time) Result {
	if len(properties) == 0 {
		return Result{Success: false, Message: msgNoProperties}
	}

	type qualified struct {
		property *models.Property
		txs      []models.Transaction
	}
	var qualifying []qualified
	for i := range properties {
		filtered := FilterAndSort(txsByProperty[properties[i].ID], r)
		if len(filtered) > 0 {
			qualifying = append(qualifying, qualified{property: &properties[i], txs: filtered})
		}
	}
	if len(qualifying) == 0 {
		return Result{Success: false, Message: msgNoPropertiesInPeriod}
	}

	// One counter for the whole run: receipt numbering continues across
	// property subfolders.
	seq := &receiptCounter{}
	period := PeriodName(r)

	var summaries []PropertySummary
	var failures []string
	totalTransactions := 0
	totalReceipts := 0

	for _, q := range qualifying {
		root := "Property_" + SanitizeFilename(q.property.Name) + "/"
		// Each property's entries are staged and only committed to the shared
		// archive once the whole property built cleanly.
		staged := &stagedFiles{}
		receiptCount, err := writePropertyFiles(staged, root, q.property, q.txs, seq)
		if err != nil {
			logger.L.Error("Portfolio export: property failed, continuing",
				"propertyID", q.property.ID,
				"propertyName", q.property.Name,
				"error", err)
			failures = append(failures, q.property.Name)
			continue
		}
		written, err := staged.commit(ar)
		if err != nil {
			if written > 0 {
				// The archive already holds part of this property; it cannot be
				// unwound, so the whole export fails rather than shipping a
				// corrupt pack.
				logger.L.Error("Portfolio export: archive write failed mid-property, aborting",
					"propertyID", q.property.ID, "entriesWritten", written, "error", err)
				return Result{Success: false, Message: msgExportFailed}
			}
			logger.L.Error("Portfolio export: property failed, continuing",
				"propertyID", q.property.ID,
				"propertyName", q.property.Name,
				"error", err)
			failures = append(failures, q.property.Name)
			continue
		}
		summaries = append(summaries, Summarize(q.property.Name, q.txs, period))
		totalTransactions += len(q.txs)
		totalReceipts += receiptCount
	}

	if len(summaries) == 0 {
		logger.L.Error("Portfolio export: every property failed", "failures", failures)
		return Result{Success: false, Message: msgExportFailed}
	}

	summaryData, err := summaryCSV(summaries, true)
	if err != nil {
		logger.L.Error("Portfolio export failed rendering summary", "error", err)
		return Result{Success: false, Message: msgExportFailed}
	}
	if err := ar.AddFile("portfolio_summary.csv", summaryData); err != nil {
		logger.L.Error("Portfolio export failed writing summary", "error", err)
		return Result{Success: false, Message: msgExportFailed}
	}

	data, err := ar.Close()
	if err != nil {
		logger.L.Error("Portfolio export failed finalizing archive", "error", err)
		return Result{Success: false, Message: msgExportFailed}
	}

	message := fmt.Sprintf("Exported %d transactions across %d properties", totalTransactions, len(summaries))
	switch len(failures) {
	case 0:
	case 1:
		message += ". 1 property had errors"
	default:
		message += fmt.Sprintf(". %d properties had errors", len(failures))
	}
	if int64(len(data)) > archiveWarnBytes() {
		logger.L.Warn("Portfolio archive exceeds size threshold", "bytes", len(data))
		message += msgArchiveTooLarge
	}

	return Result{
		Success:          true,
		Message:          message,
		TransactionCount: totalTransactions,
		ReceiptCount:     totalReceipts,
		FileName:         fmt.Sprintf("Multi-Property-TaxPack_%s.zip", fileLabel(r, now)),
		Data:             data,
	}
}
