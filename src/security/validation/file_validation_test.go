package validation

import (
	"encoding/base64"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/propfolio/backend/src/logger"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error")
	os.Exit(m.Run())
}

var (
	jpegBytes = append([]byte{0xff, 0xd8, 0xff, 0xe0}, []byte("JFIF payload")...)
	pngBytes  = append([]byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}, []byte("png payload")...)
	pdfBytes  = []byte("%PDF-1.4\nfake pdf body")
)

func asDataURI(mime string, payload []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(payload)
}

func TestNormalizeReceiptFileType(t *testing.T) {
	tests := []struct {
		input string
		want  string
		ok    bool
	}{
		{"jpeg", "jpeg", true},
		{"jpg", "jpeg", true},
		{"image/jpeg", "jpeg", true},
		{"png", "png", true},
		{"image/png", "png", true},
		{"pdf", "pdf", true},
		{"application/pdf", "pdf", true},
		{"gif", "", false},
		{"exe", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := NormalizeReceiptFileType(tt.input)
		assert.Equal(t, tt.ok, ok, "input %q", tt.input)
		assert.Equal(t, tt.want, got, "input %q", tt.input)
	}
}

func TestValidateReceiptContentMatches(t *testing.T) {
	detected, err := ValidateReceiptContent(asDataURI("image/jpeg", jpegBytes), "jpeg")
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", detected)

	detected, err = ValidateReceiptContent(asDataURI("image/png", pngBytes), "png")
	require.NoError(t, err)
	assert.Equal(t, "image/png", detected)

	detected, err = ValidateReceiptContent(asDataURI("application/pdf", pdfBytes), "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", detected)

	// Bare base64 without a data-URI prefix is also accepted.
	_, err = ValidateReceiptContent(base64.StdEncoding.EncodeToString(jpegBytes), "jpg")
	assert.NoError(t, err)
}

func TestValidateReceiptContentMismatch(t *testing.T) {
	// Declared png, actual jpeg bytes.
	detected, err := ValidateReceiptContent(asDataURI("image/png", jpegBytes), "png")
	require.Error(t, err)
	assert.Equal(t, "image/jpeg", detected)

	// Plain text masquerading as a pdf.
	_, err = ValidateReceiptContent(asDataURI("application/pdf", []byte("not a pdf at all")), "pdf")
	assert.Error(t, err)
}

func TestValidateReceiptContentRejectsBadInput(t *testing.T) {
	_, err := ValidateReceiptContent(asDataURI("image/gif", pngBytes), "gif")
	assert.Error(t, err, "unsupported declared type is rejected before sniffing")

	_, err = ValidateReceiptContent("data:image/jpeg;base64,!!not-base64!!", "jpeg")
	assert.Error(t, err, "corrupt base64 payloads are rejected")
}
