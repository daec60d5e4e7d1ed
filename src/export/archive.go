// backend/src/export/archive.go
package export

import (
	"archive/zip"
	"bytes"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/username/propfolio/backend/src/logger"
	"github.com/username/propfolio/backend/src/models"
)

// Archive receives the files that make up a tax pack. The zip-backed
// implementation mutates a shared in-memory tree, so archives must only be
// written from one goroutine; property processing is deliberately sequential.
type Archive interface {
	AddFile(path string, data []byte) error
}

type archiveCloser interface {
	Archive
	Close() ([]byte, error)
}

type zipArchive struct {
	buf bytes.Buffer
	zw  *zip.Writer
}

func newZipArchive() *zipArchive {
	z := &zipArchive{}
	z.zw = zip.NewWriter(&z.buf)
	return z
}

func (z *zipArchive) AddFile(path string, data []byte) error {
	w, err := z.zw.Create(path)
	if err != nil {
		return fmt.Errorf("creating archive entry %s: %w", path, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("writing archive entry %s: %w", path, err)
	}
	return nil
}

func (z *zipArchive) Close() ([]byte, error) {
	if err := z.zw.Close(); err != nil {
		return nil, fmt.Errorf("finalizing archive: %w", err)
	}
	return z.buf.Bytes(), nil
}

// stagedFiles buffers one property's entries so a property that fails while
// its files are being assembled leaves no trace in the shared archive.
type stagedFiles struct {
	paths []string
	blobs [][]byte
}

func (s *stagedFiles) AddFile(path string, data []byte) error {
	s.paths = append(s.paths, path)
	s.blobs = append(s.blobs, data)
	return nil
}

// commit writes the staged entries into ar in insertion order, returning how
// many landed before any error.
func (s *stagedFiles) commit(ar Archive) (int, error) {
	for i := range s.paths {
		if err := ar.AddFile(s.paths[i], s.blobs[i]); err != nil {
			return i, err
		}
	}
	return len(s.paths), nil
}

// decodeReceiptData extracts the binary payload from a data-URI string
// ("data:image/jpeg;base64,...."). A bare base64 string is also accepted.
func decodeReceiptData(data string) ([]byte, error) {
	payload := data
	if _, rest, found := strings.Cut(data, ","); found {
		payload = rest
	}
	decoded, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decoding receipt payload: %w", err)
	}
	return decoded, nil
}

// receiptCounter numbers receipts across one whole export run. Each export
// invocation gets its own disposable counter; numbering restarts at 1 on a
// new run and keeps incrementing across properties in a portfolio export.
type receiptCounter struct {
	n int
}

func (c *receiptCounter) next() int {
	c.n++
	return c.n
}

// writePropertyFiles writes one property's transactions.csv and receipts/ tree
// into the archive under root ("" for a single-property pack,
// "Property_{name}/" in a portfolio pack). Receipt decode failures are logged
// and downgraded to a "Receipt file missing" ledger annotation; archive write
// failures abort this property and surface to the caller.
func writePropertyFiles(ar Archive, root string, property *models.Property, txs []models.Transaction, seq *receiptCounter) (receiptCount int, err error) {
	rows := make([][]string, 0, len(txs))

	for i := range txs {
		tx := &txs[i]
		vendor := VendorFromDescription(tx.Description)

		receiptCell := receiptNotApplicable
		if tx.Type == models.TransactionExpense {
			receiptCell = receiptMissing
			if tx.HasReceipt() {
				payload, decodeErr := decodeReceiptData(tx.Receipt.Data)
				if decodeErr != nil {
					// Expected for corrupt uploads; keep the row and move on.
					logger.L.Warn("Skipping unreadable receipt",
						"propertyID", property.ID,
						"transactionID", tx.ID,
						"error", decodeErr)
					receiptCell = receiptFileMissing
				} else {
					name := receiptFileName(seq.next(), vendor, tx.Amount, tx.Receipt.FileType)
					// Month folders materialize lazily: the first receipt in a
					// month creates its folder.
					path := root + "receipts/" + monthFolder(tx.Date) + "/" + name
					if err := ar.AddFile(path, payload); err != nil {
						return receiptCount, err
					}
					receiptCount++
					receiptCell = name
				}
			}
		}

		rows = append(rows, []string{
			tx.Date.Format(ledgerDateFormat),
			tx.Type.Display(),
			cell(tx.Category),
			cell(vendor),
			cell(tx.Description),
			formatAmount(tx.Amount),
			receiptCell,
			cell(property.Name),
		})
	}

	ledger, err := renderCSV(ledgerHeader, rows)
	if err != nil {
		return receiptCount, err
	}
	if err := ar.AddFile(root+"transactions.csv", ledger); err != nil {
		return receiptCount, err
	}
	return receiptCount, nil
}
