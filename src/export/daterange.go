// backend/src/export/daterange.go
package export

import (
	"errors"
	"fmt"
	"time"
)

// DateRange is a resolved export window. Start and End carry day granularity;
// filtering treats them as [Start 00:00:00.000, End 23:59:59.999] inclusive.
// A nil *DateRange means "All Time" (no filtering).
type DateRange struct {
	Start time.Time
	End   time.Time
	Label string // filesystem-safe token used in archive names, e.g. "TaxYear2024-25"
	Name  string // human label used in summary rows, e.g. "Tax Year 2024/25"
}

// Preset pairs a stable selection key with its resolved range. The key is what
// the UI round-trips and what gets persisted as the user's last-used choice.
type Preset struct {
	Key   string     `json:"key"`
	Name  string     `json:"name"`
	Range *DateRange `json:"-"`
}

var (
	ErrInvalidRange = errors.New("invalid date range")
	ErrUnknownRange = errors.New("unknown date range")
)

const (
	AllTimeKey  = "all-time"
	AllTimeName = "All Time"

	customDateFormat = "2006-01-02"
	labelDateFormat  = "02Jan2006"
)

// TaxYear returns the UK tax year starting 6 April of startYear and ending
// 5 April of the following year.
func TaxYear(startYear int) DateRange {
	endYY := (startYear + 1) % 100
	return DateRange{
		Start: time.Date(startYear, time.April, 6, 0, 0, 0, 0, time.UTC),
		End:   time.Date(startYear+1, time.April, 5, 0, 0, 0, 0, time.UTC),
		Label: fmt.Sprintf("TaxYear%d-%02d", startYear, endYY),
		Name:  fmt.Sprintf("Tax Year %d/%02d", startYear, endYY),
	}
}

// CalendarYear returns the full calendar year.
func CalendarYear(year int) DateRange {
	return DateRange{
		Start: time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC),
		Label: fmt.Sprintf("%d", year),
		Name:  fmt.Sprintf("%d", year),
	}
}

// Quarter returns quarter q (1-4) of the given calendar year.
func Quarter(year, q int) DateRange {
	startMonth := time.Month(3*(q-1) + 1)
	start := time.Date(year, startMonth, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 3, -1)
	return DateRange{
		Start: start,
		End:   end,
		Label: fmt.Sprintf("Q%d-%d", q, year),
		Name:  fmt.Sprintf("Q%d %d", q, year),
	}
}

// Custom builds a user-supplied range from two ISO date strings. Both dates
// are required and start must not be after end; violations fail before any
// export work begins.
func Custom(startStr, endStr string) (DateRange, error) {
	if startStr == "" || endStr == "" {
		return DateRange{}, fmt.Errorf("%w: both start and end dates are required", ErrInvalidRange)
	}
	start, err := time.Parse(customDateFormat, startStr)
	if err != nil {
		return DateRange{}, fmt.Errorf("%w: invalid start date %q", ErrInvalidRange, startStr)
	}
	end, err := time.Parse(customDateFormat, endStr)
	if err != nil {
		return DateRange{}, fmt.Errorf("%w: invalid end date %q", ErrInvalidRange, endStr)
	}
	if start.After(end) {
		return DateRange{}, fmt.Errorf("%w: start date must not be after end date", ErrInvalidRange)
	}
	// Day-month-year tokens with no spaces so the label is safe in a filename.
	label := start.Format(labelDateFormat) + "-" + end.Format(labelDateFormat)
	return DateRange{
		Start: start,
		End:   end,
		Label: label,
		Name:  label,
	}, nil
}

// currentTaxYearStart returns the starting calendar year of the UK tax year
// containing now (tax years run 6 April to 5 April).
func currentTaxYearStart(now time.Time) int {
	taxYearStart := time.Date(now.Year(), time.April, 6, 0, 0, 0, 0, now.Location())
	if now.Before(taxYearStart) {
		return now.Year() - 1
	}
	return now.Year()
}

// Presets lists every fixed selection offered by the export UI: all time, the
// current and next UK tax years, the last three calendar years, and the four
// quarters of the current year.
func Presets(now time.Time) []Preset {
	presets := []Preset{{Key: AllTimeKey, Name: AllTimeName, Range: nil}}

	taxStart := currentTaxYearStart(now)
	for _, y := range []int{taxStart, taxStart + 1} {
		r := TaxYear(y)
		presets = append(presets, Preset{Key: fmt.Sprintf("tax-year-%d", y), Name: r.Name, Range: &r})
	}

	for i := 0; i < 3; i++ {
		r := CalendarYear(now.Year() - i)
		presets = append(presets, Preset{Key: fmt.Sprintf("year-%d", now.Year()-i), Name: r.Name, Range: &r})
	}

	for q := 1; q <= 4; q++ {
		r := Quarter(now.Year(), q)
		presets = append(presets, Preset{Key: fmt.Sprintf("q%d-%d", q, now.Year()), Name: r.Name, Range: &r})
	}

	return presets
}

// Resolve turns a preset key into its range. The empty key and AllTimeKey both
// resolve to nil (no filtering).
func Resolve(key string, now time.Time) (*DateRange, error) {
	if key == "" || key == AllTimeKey {
		return nil, nil
	}
	for _, p := range Presets(now) {
		if p.Key == key {
			return p.Range, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownRange, key)
}

// PeriodName is the human label used in summary rows for the active range.
func PeriodName(r *DateRange) string {
	if r == nil {
		return AllTimeName
	}
	return r.Name
}
