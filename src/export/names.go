// backend/src/export/names.go
package export

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const maxFilenameLength = 50

var (
	unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_\- ]`)
	whitespaceRun       = regexp.MustCompile(`\s+`)
)

// SanitizeFilename makes a name safe for use inside the archive: strip every
// character outside [A-Za-z0-9_- ], collapse whitespace runs to a single
// underscore, and truncate to 50 characters. Idempotent.
func SanitizeFilename(name string) string {
	s := unsafeFilenameChars.ReplaceAllString(name, "")
	s = whitespaceRun.ReplaceAllString(s, "_")
	if len(s) > maxFilenameLength {
		s = s[:maxFilenameLength]
	}
	return s
}

// VendorFromDescription derives a vendor name from the free-text description:
// the text before the first '-' (trimmed), or "Unknown" when that is empty.
func VendorFromDescription(description string) string {
	vendor, _, _ := strings.Cut(description, "-")
	vendor = strings.TrimSpace(vendor)
	if vendor == "" {
		return "Unknown"
	}
	return vendor
}

// receiptExtension maps a stored receipt file type onto the archive file
// extension. Anything unrecognized falls back to jpg.
func receiptExtension(fileType string) string {
	ft := strings.ToLower(fileType)
	switch {
	case strings.Contains(ft, "pdf"):
		return "pdf"
	case strings.Contains(ft, "png"):
		return "png"
	default:
		return "jpg"
	}
}

// receiptFileName builds the deterministic archive name for one receipt:
// receipt_{3-digit sequence}_{sanitized vendor}_{absolute whole amount}.{ext}.
func receiptFileName(seq int, vendor string, amount decimal.Decimal, fileType string) string {
	return fmt.Sprintf("receipt_%03d_%s_%s.%s",
		seq,
		SanitizeFilename(vendor),
		amount.Abs().Round(0).String(),
		receiptExtension(fileType))
}

// monthFolder names the per-month receipt subfolder, e.g. "2025-04-April".
func monthFolder(date time.Time) string {
	return fmt.Sprintf("%d-%02d-%s", date.Year(), int(date.Month()), date.Month().String())
}
