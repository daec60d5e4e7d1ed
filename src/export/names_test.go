package export

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "Screwfix", "Screwfix"},
		{"spaces collapse to underscore", "123  High   Street", "123_High_Street"},
		{"strips punctuation", "Flat 4, St. Mary's (rear)", "Flat_4_St_Marys_rear"},
		{"keeps hyphen and underscore", "B&Q - store_12", "BQ_-_store_12"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeFilename(tt.input))
		})
	}
}

func TestSanitizeFilenameIdempotent(t *testing.T) {
	inputs := []string{
		"123 High Street",
		"Flat 4, St. Mary's (rear)",
		strings.Repeat("long name with spaces ", 10),
		"already_safe-name",
	}
	for _, in := range inputs {
		once := SanitizeFilename(in)
		assert.Equal(t, once, SanitizeFilename(once), "sanitize(sanitize(x)) != sanitize(x) for %q", in)
		assert.LessOrEqual(t, len(once), 50)
		assert.NotContains(t, once, " ")
	}
}

func TestVendorFromDescription(t *testing.T) {
	tests := []struct {
		description string
		want        string
	}{
		{"Screwfix - pipes", "Screwfix"},
		{"B&Q - paint - 2 tins", "B&Q"},
		{"Tesco", "Tesco"},
		{" - pipes", "Unknown"},
		{"", "Unknown"},
		{"   ", "Unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, VendorFromDescription(tt.description), "description %q", tt.description)
	}
}

func TestReceiptExtension(t *testing.T) {
	tests := []struct {
		fileType string
		want     string
	}{
		{"pdf", "pdf"},
		{"application/pdf", "pdf"},
		{"png", "png"},
		{"image/png", "png"},
		{"jpeg", "jpg"},
		{"image/jpeg", "jpg"},
		{"jpg", "jpg"},
		{"heic", "jpg"}, // unrecognized falls back to jpg
		{"", "jpg"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, receiptExtension(tt.fileType), "file type %q", tt.fileType)
	}
}

func TestReceiptFileName(t *testing.T) {
	name := receiptFileName(1, "Screwfix", decimal.NewFromInt(-200), "jpeg")
	assert.Equal(t, "receipt_001_Screwfix_200.jpg", name)

	name = receiptFileName(42, "B&Q Warehouse", decimal.RequireFromString("149.60"), "pdf")
	assert.Equal(t, "receipt_042_BQ_Warehouse_150.pdf", name)
}

func TestMonthFolder(t *testing.T) {
	assert.Equal(t, "2024-04-April", monthFolder(time.Date(2024, time.April, 10, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2025-12-December", monthFolder(time.Date(2025, time.December, 1, 0, 0, 0, 0, time.UTC)))
}
