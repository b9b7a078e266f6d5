package classify

import "leasing-sync/internal/dates"

// Renewal boundary constants, tuned against real leasing data. Do not round
// them to "nicer" values.
const (
	renewalGapDays      = 30 // clear chronological gap between terms
	renewalTermDiffDays = 60 // material change in term length
	renewalMinGapDays   = -7 // near-contiguous start window
	renewalMinTermDays  = 90 // substantial new term
)

// IsRenewal decides whether a new lease term represents a successive lease
// (renewal) of the existing one, or merely a correction to it. Returns false
// when any of the four dates is missing or malformed.
//
// The three criteria are independent ORs:
//  1. the new term starts 30+ days after the old one ends;
//  2. the term length changed by 60+ days (e.g. 12-month -> 6-month);
//  3. near-contiguous start (gap >= -7 days) with a 90+ day new term, which
//     covers the common back-to-back annual renewal where the gap is 0-1 days.
func IsRenewal(newStart, newEnd, existingStart, existingEnd string) bool {
	if newStart == "" || newEnd == "" || existingStart == "" || existingEnd == "" {
		return false
	}

	gapDays, err := dates.DaysBetween(existingEnd, newStart)
	if err != nil {
		return false
	}
	newTermDays, err := dates.DaysBetween(newStart, newEnd)
	if err != nil {
		return false
	}
	existingTermDays, err := dates.DaysBetween(existingStart, existingEnd)
	if err != nil {
		return false
	}

	if gapDays >= renewalGapDays {
		return true
	}
	termDiff := newTermDays - existingTermDays
	if termDiff < 0 {
		termDiff = -termDiff
	}
	if termDiff >= renewalTermDiffDays {
		return true
	}
	if gapDays >= renewalMinGapDays && newTermDays >= renewalMinTermDays {
		return true
	}
	return false
}
