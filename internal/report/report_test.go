package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leasing-sync/internal/models"
)

func testRun() *models.SyncRun {
	return &models.SyncRun{
		BatchID:             "batch-42",
		Status:              models.RunStatusCompleted,
		PropertiesProcessed: []string{"BLVD", "PINE", "STALE_UPDATE"},
		Summary: map[string]*models.PropertySummary{
			"BLVD":         {NewTenancies: 2, LeaseRenewals: 1, MakereadyFlags: 1, TransferFlags: 2},
			"PINE":         {},
			"STALE_UPDATE": {AvailabilityChanges: 9},
		},
	}
}

func knownCodes() map[string]struct{} {
	return map[string]struct{}{"BLVD": {}, "PINE": {}}
}

func TestBuildViewFiltersSentinelCodes(t *testing.T) {
	events := []models.SolverEvent{
		{PropertyCode: "BLVD", EventType: models.EventNewTenancy,
			Details: map[string]interface{}{"unit": "101", "resident": "Lee", "status": "current", "move_in": "2025-01-15"}},
		{PropertyCode: "STALE_UPDATE", EventType: models.EventNewTenancy,
			Details: map[string]interface{}{"unit": "999"}},
	}

	v := buildView(testRun(), events, knownCodes())

	assert.Equal(t, []string{"BLVD", "PINE"}, v.Properties)
	require.Len(t, v.Summary, 2)
	assert.Equal(t, "BLVD", v.Summary[0].Property)
	assert.Equal(t, "PINE", v.Summary[1].Property)

	require.Len(t, v.Sections, 1)
	require.Len(t, v.Sections[0].Items, 1)
	assert.Contains(t, v.Sections[0].Items[0], "[BLVD]")
	assert.NotContains(t, v.Sections[0].Items[0], "999")
}

func TestSummaryCellsUseDashForZero(t *testing.T) {
	v := buildView(testRun(), nil, knownCodes())

	blvd := v.Summary[0]
	// columns: new tenancies, updates, new leases, renewals, notices,
	// applications, price changes, auto-fixes, flags
	assert.Equal(t, []string{"2", "—", "—", "1", "—", "—", "—", "—", "3"}, blvd.Cells)

	pine := v.Summary[1]
	for _, c := range pine.Cells {
		assert.Equal(t, "—", c)
	}
}

func TestEmptySectionsAreOmitted(t *testing.T) {
	v := buildView(testRun(), nil, knownCodes())
	assert.Empty(t, v.Sections)

	md := RenderMarkdown(testRun(), nil, knownCodes())
	assert.NotContains(t, md, "## Lease Renewals")
	assert.NotContains(t, md, "## Price Changes")
}

func TestRenewalLineCarriesRentGlyph(t *testing.T) {
	up := models.SolverEvent{PropertyCode: "BLVD", EventType: models.EventLeaseRenewal,
		Details: map[string]interface{}{
			"unit": "101", "old_start": "2024-01-01", "old_end": "2025-01-01",
			"new_start": "2025-01-01", "new_end": "2025-12-31",
			"old_rent": 1000.0, "new_rent": 1100.0,
		}}
	line := formatRenewal(up)
	assert.Contains(t, line, "$1000 to $1100")
	assert.True(t, strings.HasSuffix(line, "▲"))

	down := up
	down.Details = map[string]interface{}{"unit": "101", "old_rent": 1100.0, "new_rent": 1000.0}
	assert.True(t, strings.HasSuffix(formatRenewal(down), "▼"))

	flat := up
	flat.Details = map[string]interface{}{"unit": "101", "old_rent": 1000.0, "new_rent": 1000.0}
	assert.False(t, strings.HasSuffix(formatRenewal(flat), "▲"))
	assert.False(t, strings.HasSuffix(formatRenewal(flat), "▼"))
}

func TestDetailFloatToleratesJSONRoundTrip(t *testing.T) {
	// values loaded back from JSON persistence arrive as float64
	ev := models.SolverEvent{Details: map[string]interface{}{"old_rent": float64(950)}}
	assert.Equal(t, 950.0, detailFloat(ev, "old_rent"))
	assert.Equal(t, 0.0, detailFloat(ev, "missing"))
	assert.Equal(t, 0.0, detailFloat(models.SolverEvent{}, "old_rent"))
}

func TestRenderMarkdownStructure(t *testing.T) {
	events := []models.SolverEvent{
		{PropertyCode: "BLVD", EventType: models.EventNoticeGiven,
			Details: map[string]interface{}{"unit": "101", "move_out": "2025-10-01"}},
	}
	run := testRun()
	run.SkipReasons = []string{"[leases] BLVD: lease references unknown tenancy t404"}

	md := RenderMarkdown(run, events, knownCodes())

	assert.Contains(t, md, "# Daily Reconciliation Report")
	assert.Contains(t, md, "`batch-42`")
	assert.Contains(t, md, "## Property Summaries")
	assert.Contains(t, md, "| BLVD |")
	assert.Contains(t, md, "## Notices")
	assert.Contains(t, md, "move-out 10/01/2025")
	assert.Contains(t, md, "t404")
	assert.NotContains(t, md, "STALE_UPDATE")
}

func TestRenderHTML(t *testing.T) {
	events := []models.SolverEvent{
		{PropertyCode: "BLVD", EventType: models.EventNewTenancy,
			Details: map[string]interface{}{"unit": "101", "resident": "Lee", "status": "current", "move_in": "2025-01-15"}},
	}

	body, err := RenderHTML(testRun(), events, knownCodes())
	require.NoError(t, err)
	assert.Contains(t, body, "batch-42")
	assert.Contains(t, body, "BLVD")
	assert.Contains(t, body, "Lee")
	assert.NotContains(t, body, "STALE_UPDATE")
}
