package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeForFormulaInjection(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain text untouched", "Screwfix - pipes", "Screwfix - pipes"},
		{"equals prefixed", "=SUM(A1:A9)", "'=SUM(A1:A9)"},
		{"plus prefixed", "+441234567890", "'+441234567890"},
		{"at prefixed", "@import", "'@import"},
		{"minus prefixed", "-200", "'-200"},
		{"leading whitespace before formula char", "  =cmd", "'  =cmd"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeForFormulaInjection(tt.input))
		})
	}
}

func TestStripUnprintable(t *testing.T) {
	assert.Equal(t, "hello world", StripUnprintable("hello\x00 world\x07"))
	assert.Equal(t, "line1\nline2\t.", StripUnprintable("line1\nline2\t."))
	assert.Equal(t, "café", StripUnprintable("café"))
}
