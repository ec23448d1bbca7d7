package invoice

import (
	"strings"
	"time"
)

// DateLayout is the storage and input format for invoice dates.
const DateLayout = "2006-01-02"

// ParseDate parses an invoice date in DateLayout.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, invalid("date", ErrInvalidDate, "%q is not YYYY-MM-DD", s)
	}
	return t, nil
}

// FormatDate renders a stored invoice date as month/day/year without padding,
// e.g. "2026-03-07" becomes "3/7/2026".
func FormatDate(s string) (string, error) {
	t, err := ParseDate(s)
	if err != nil {
		return "", err
	}
	return t.Format("1/2/2006"), nil
}

// FormatSignedDate renders the "date signed" stamp, e.g. "16 Oct 2026".
func FormatSignedDate(t time.Time) string {
	return t.Format("2 Jan 2006")
}
