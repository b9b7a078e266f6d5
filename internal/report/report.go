// Package report turns a finished run's summaries and events into the
// human-readable run report: a markdown document for the log/archive and an
// HTML document for email delivery. Rendering is pure; callers supply the
// allowlist of real property codes so internal sentinels never leak into
// user-facing output.
package report

import (
	"fmt"
	"sort"
	"strings"

	"leasing-sync/internal/dates"
	"leasing-sync/internal/models"
)

// Rent direction glyphs, chosen by the sign of new minus old.
const (
	glyphUp   = "▲"
	glyphDown = "▼"
)

// zeroPlaceholder visually distinguishes "nothing happened" from an
// explicit zero in summary cells.
const zeroPlaceholder = "—"

var summaryColumns = []string{
	"New Tenancies", "Updates", "New Leases", "Renewals", "Notices",
	"Applications", "Price Changes", "Auto-Fixes", "Flags",
}

type summaryRow struct {
	Property string
	Cells    []string
}

type section struct {
	Title string
	Items []string
}

// view is the shared shape both renderers consume.
type view struct {
	BatchID    string
	Date       string
	Status     string
	Properties []string
	Summary    []summaryRow
	Sections   []section
	Skips      []string
}

func buildView(run *models.SyncRun, events []models.SolverEvent, known map[string]struct{}) view {
	v := view{
		BatchID: run.BatchID,
		Date:    dates.FormatForDisplay(dates.Today()),
		Status:  string(run.Status),
		Skips:   run.SkipReasons,
	}

	// Filter internal sentinel codes (e.g. STALE_UPDATE) out of everything
	// user-facing.
	for _, code := range run.PropertiesProcessed {
		if _, ok := known[code]; ok {
			v.Properties = append(v.Properties, code)
		}
	}

	codes := make([]string, 0, len(run.Summary))
	for code := range run.Summary {
		if _, ok := known[code]; ok {
			codes = append(codes, code)
		}
	}
	sort.Strings(codes)
	for _, code := range codes {
		s := run.Summary[code]
		flags := s.MakereadyFlags + s.ApplicationFlags + s.TransferFlags
		v.Summary = append(v.Summary, summaryRow{
			Property: code,
			Cells: []string{
				cell(s.NewTenancies),
				cell(s.TenancyUpdates + s.ResidentUpdates),
				cell(s.NewLeases),
				cell(s.LeaseRenewals),
				cell(s.Notices),
				cell(s.Applications),
				cell(s.PriceChanges),
				cell(s.StatusAutoFixes),
				cell(flags),
			},
		})
	}

	// Event sections appear only when at least one event of the type
	// exists; empty sections are omitted entirely.
	for _, def := range []struct {
		title     string
		eventType string
		format    func(models.SolverEvent) string
	}{
		{"New Tenancies", models.EventNewTenancy, formatNewTenancy},
		{"Lease Renewals", models.EventLeaseRenewal, formatRenewal},
		{"Notices", models.EventNoticeGiven, formatNotice},
		{"Applications", models.EventApplicationSaved, formatApplication},
		{"Price Changes", models.EventPriceChange, formatPriceChange},
	} {
		var items []string
		for _, ev := range events {
			if ev.EventType != def.eventType {
				continue
			}
			if _, ok := known[ev.PropertyCode]; !ok {
				continue
			}
			items = append(items, fmt.Sprintf("[%s] %s", ev.PropertyCode, def.format(ev)))
		}
		if len(items) > 0 {
			v.Sections = append(v.Sections, section{Title: def.title, Items: items})
		}
	}

	return v
}

func cell(n int) string {
	if n == 0 {
		return zeroPlaceholder
	}
	return fmt.Sprintf("%d", n)
}

// dollars renders whole-dollar currency for table cells and report lines.
func dollars(v float64) string {
	return fmt.Sprintf("$%.0f", v)
}

func rentGlyph(old, new float64) string {
	if new > old {
		return glyphUp
	}
	if new < old {
		return glyphDown
	}
	return ""
}

func detailString(ev models.SolverEvent, key string) string {
	if ev.Details == nil {
		return ""
	}
	if s, ok := ev.Details[key].(string); ok {
		return s
	}
	return ""
}

// detailFloat tolerates both in-memory float64 details and numbers that
// round-tripped through JSON persistence.
func detailFloat(ev models.SolverEvent, key string) float64 {
	if ev.Details == nil {
		return 0
	}
	switch n := ev.Details[key].(type) {
	case float64:
		return n
	case int:
		return float64(n)
	}
	return 0
}

func unitLabel(ev models.SolverEvent) string {
	if u := detailString(ev, "unit"); u != "" {
		return u
	}
	return detailString(ev, "unit_id")
}

func formatNewTenancy(ev models.SolverEvent) string {
	return fmt.Sprintf("Unit %s: %s (%s), move-in %s",
		unitLabel(ev),
		detailString(ev, "resident"),
		detailString(ev, "status"),
		dates.FormatForDisplay(detailString(ev, "move_in")))
}

func formatRenewal(ev models.SolverEvent) string {
	oldRent := detailFloat(ev, "old_rent")
	newRent := detailFloat(ev, "new_rent")
	line := fmt.Sprintf("Unit %s: %s to %s renews as %s to %s, rent %s to %s",
		unitLabel(ev),
		dates.FormatForDisplay(detailString(ev, "old_start")),
		dates.FormatForDisplay(detailString(ev, "old_end")),
		dates.FormatForDisplay(detailString(ev, "new_start")),
		dates.FormatForDisplay(detailString(ev, "new_end")),
		dollars(oldRent), dollars(newRent))
	if g := rentGlyph(oldRent, newRent); g != "" {
		line += " " + g
	}
	return line
}

func formatNotice(ev models.SolverEvent) string {
	return fmt.Sprintf("Unit %s: notice given, move-out %s",
		unitLabel(ev),
		dates.FormatForDisplay(detailString(ev, "move_out")))
}

func formatApplication(ev models.SolverEvent) string {
	line := fmt.Sprintf("Unit %s: application saved (tenancy %s)",
		unitLabel(ev), detailString(ev, "tenancy_id"))
	if s := detailString(ev, "screening"); s != "" {
		line += ", screening " + s
	}
	return line
}

func formatPriceChange(ev models.SolverEvent) string {
	oldRent := detailFloat(ev, "old_rent")
	newRent := detailFloat(ev, "new_rent")
	line := fmt.Sprintf("Unit %s: %s to %s", unitLabel(ev), dollars(oldRent), dollars(newRent))
	if g := rentGlyph(oldRent, newRent); g != "" {
		line += " " + g
	}
	return line
}

// RenderMarkdown produces the structured markdown run report.
func RenderMarkdown(run *models.SyncRun, events []models.SolverEvent, known map[string]struct{}) string {
	v := buildView(run, events, known)
	var b strings.Builder

	b.WriteString("# Daily Reconciliation Report\n\n")
	fmt.Fprintf(&b, "- Batch: `%s`\n", v.BatchID)
	fmt.Fprintf(&b, "- Date: %s\n", v.Date)
	fmt.Fprintf(&b, "- Status: %s\n", v.Status)
	if len(v.Properties) > 0 {
		fmt.Fprintf(&b, "- Properties processed: %s\n", strings.Join(v.Properties, ", "))
	}
	b.WriteString("\n")

	if len(v.Summary) > 0 {
		b.WriteString("## Property Summaries\n\n")
		fmt.Fprintf(&b, "| Property | %s |\n", strings.Join(summaryColumns, " | "))
		b.WriteString("|" + strings.Repeat("---|", len(summaryColumns)+1) + "\n")
		for _, row := range v.Summary {
			fmt.Fprintf(&b, "| %s | %s |\n", row.Property, strings.Join(row.Cells, " | "))
		}
		b.WriteString("\n")
	}

	for _, sec := range v.Sections {
		fmt.Fprintf(&b, "## %s\n\n", sec.Title)
		for _, item := range sec.Items {
			fmt.Fprintf(&b, "- %s\n", item)
		}
		b.WriteString("\n")
	}

	if len(v.Skips) > 0 {
		b.WriteString("## Skipped Rows\n\n")
		for _, skip := range v.Skips {
			fmt.Fprintf(&b, "- %s\n", skip)
		}
		b.WriteString("\n")
	}

	return b.String()
}
