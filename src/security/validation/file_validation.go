package validation

import (
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/username/propfolio/backend/src/logger"
)

// allowedReceiptContentTypes maps a normalized receipt file type onto the MIME
// type http.DetectContentType reports for a genuine payload of that type.
var allowedReceiptContentTypes = map[string]string{
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"pdf":  "application/pdf",
}

// NormalizeReceiptFileType reduces a client-declared receipt file type (bare
// extension or full MIME type) to one of the accepted kinds: jpeg, png, pdf.
func NormalizeReceiptFileType(fileType string) (string, bool) {
	ft := strings.ToLower(fileType)
	switch {
	case strings.Contains(ft, "pdf"):
		return "pdf", true
	case strings.Contains(ft, "png"):
		return "png", true
	case strings.Contains(ft, "jpg"), strings.Contains(ft, "jpeg"):
		return "jpeg", true
	}
	return "", false
}

// ValidateReceiptContent checks that the declared receipt file type is one we
// accept and that the payload's actual content signature (magic bytes) agrees
// with it. data is the uploaded data-URI (or bare base64) string; only the
// first 512 decoded bytes are examined, which is all http.DetectContentType
// sniffs. Returns the detected content type and an error if validation fails.
func ValidateReceiptContent(data, fileType string) (string, error) {
	declared, ok := NormalizeReceiptFileType(fileType)
	if !ok {
		logger.L.Warn("Disallowed receipt file type", "fileType", fileType)
		return "", fmt.Errorf("receipt file type '%s' is not allowed", fileType)
	}

	payload := data
	if _, rest, found := strings.Cut(data, ","); found {
		payload = rest
	}

	buffer := make([]byte, 512)
	n, err := io.ReadFull(base64.NewDecoder(base64.StdEncoding, strings.NewReader(payload)), buffer)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", fmt.Errorf("failed to decode receipt payload for content type checking: %w", err)
	}

	detectedContentType := http.DetectContentType(buffer[:n])
	detectedContentType = strings.ToLower(strings.Split(detectedContentType, ";")[0]) // Normalize (e.g. "text/plain; charset=utf-8")

	if detectedContentType != allowedReceiptContentTypes[declared] {
		logger.L.Warn("Receipt content does not match declared file type",
			"fileType", fileType, "detectedContentType", detectedContentType)
		return detectedContentType, fmt.Errorf("detected receipt content type '%s' is not consistent with declared type '%s'", detectedContentType, fileType)
	}

	logger.L.Debug("Receipt content type (magic bytes) validated", "detectedContentType", detectedContentType)
	return detectedContentType, nil
}
