// Package dates handles calendar dates for the reconciliation engine. All
// values are YYYY-MM-DD strings, never timestamps. Arithmetic is anchored at
// UTC midnights so day counts never drift across DST boundaries, and "today"
// is computed in the business timezone regardless of server locale.
package dates

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Canonical is the wire format for all calendar dates in the system.
const Canonical = "2006-01-02"

// NotAvailable is the display sentinel for empty dates.
const NotAvailable = "N/A"

const defaultTimezone = "America/Chicago"

var businessLoc = mustLoadLocation(defaultTimezone)

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// SetTimezone switches the business reference timezone. Called once at
// startup from configuration; not safe for concurrent use with Today.
func SetTimezone(name string) error {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", name, err)
	}
	businessLoc = loc
	return nil
}

// Today returns the current calendar date in the business timezone.
func Today() string {
	return time.Now().In(businessLoc).Format(Canonical)
}

var canonicalRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// ParseFlexible normalizes the date formats that show up in export files:
// canonical YYYY-MM-DD passes through unchanged, MM/DD/YYYY and M/D/YYYY are
// converted, and 2-digit years pivot at 50 (00-50 -> 2000s, 51-99 -> 1900s).
// Anything unrecognized, including ISO timestamps, returns "" - callers rely
// on the empty sentinel to detect bad source data. ISO timestamps go through
// ExtractISODate instead.
func ParseFlexible(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}

	if canonicalRe.MatchString(s) {
		if _, err := time.Parse(Canonical, s); err != nil {
			return ""
		}
		return s
	}

	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return ""
	}
	month, err1 := strconv.Atoi(parts[0])
	day, err2 := strconv.Atoi(parts[1])
	year, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return ""
	}

	switch len(parts[2]) {
	case 4:
		// already a full year
	case 2:
		if year <= 50 {
			year += 2000
		} else {
			year += 1900
		}
	default:
		return ""
	}

	if month < 1 || month > 12 || day < 1 || day > 31 {
		return ""
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes overflow (e.g. Feb 30 -> Mar 2); reject that.
	if int(t.Month()) != month || t.Day() != day || t.Year() != year {
		return ""
	}
	return t.Format(Canonical)
}

// ExtractISODate takes the date component of an ISO timestamp in UTC. Taking
// the date in UTC, not the local zone, avoids the off-by-one shift on
// timestamps near midnight. Returns "" for anything unrecognized.
func ExtractISODate(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Format(Canonical)
		}
	}
	return ""
}

// DaysBetween returns the signed day count from one canonical date to
// another. Inputs are assumed pre-validated; malformed input is an error.
func DaysBetween(from, to string) (int, error) {
	f, err := time.Parse(Canonical, from)
	if err != nil {
		return 0, fmt.Errorf("invalid from date %q: %w", from, err)
	}
	t, err := time.Parse(Canonical, to)
	if err != nil {
		return 0, fmt.Errorf("invalid to date %q: %w", to, err)
	}
	return int(t.Sub(f).Hours() / 24), nil
}

// DaysSince returns the signed day count from the given date to today.
// Positive means the date is in the past.
func DaysSince(date string) (int, error) {
	return DaysBetween(date, Today())
}

// AddDays returns the canonical date n calendar days after the given one.
func AddDays(date string, n int) (string, error) {
	t, err := time.Parse(Canonical, date)
	if err != nil {
		return "", fmt.Errorf("invalid date %q: %w", date, err)
	}
	return t.AddDate(0, 0, n).Format(Canonical), nil
}

// FormatForDisplay renders a canonical date as MM/DD/YYYY for reports, with
// a "not available" sentinel for empty or malformed input.
func FormatForDisplay(date string) string {
	if date == "" {
		return NotAvailable
	}
	t, err := time.Parse(Canonical, date)
	if err != nil {
		return NotAvailable
	}
	return t.Format("01/02/2006")
}
