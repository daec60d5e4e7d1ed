package utils

import (
	"fmt"
	"time"
)

// DefaultDateFormat is the wire format for dates accepted by the API.
const DefaultDateFormat = "2006-01-02"

// ParseDate parses an ISO date string at day granularity.
func ParseDate(dateStr string) (time.Time, error) {
	t, err := time.Parse(DefaultDateFormat, dateStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD: %w", dateStr, err)
	}
	return t, nil
}
