package ingest

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

func writeWorkbook(t *testing.T, dir, name string, rows [][]interface{}) {
	t.Helper()
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		for j, val := range row {
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(sheet, cell, val))
		}
	}
	require.NoError(t, f.SaveAs(filepath.Join(dir, name)))
	require.NoError(t, f.Close())
}

func TestLoadBatchResidents(t *testing.T) {
	dir := t.TempDir()
	writeWorkbook(t, dir, FileResidents, [][]interface{}{
		{"Tenancy ID", "Unit ID", "Unit", "Property", "Status", "Move In", "Move Out", "Resident", "Email", "Phone", "Primary"},
		{"t1", "u1", "101", "BLVD", "Current", "01/15/2025", "", "Jordan Reyes", "jordan@example.com", "555-0100", "Yes"},
		{"t2", "u2", "102", "BLVD", "Notice", "2024-06-01", "2025-09-30", "Sam Okafor", "", "", "no"},
		{"", "u3", "103", "BLVD", "Current", "", "", "No Tenancy Id", "", "", "yes"},
	})

	reader := NewReader(dir, zap.NewNop())
	batch, err := reader.LoadBatch()
	require.NoError(t, err)

	require.Len(t, batch.Tenancies, 2, "row without tenancy id is skipped")

	first := batch.Tenancies[0]
	assert.Equal(t, "t1", first.TenancyID)
	assert.Equal(t, "2025-01-15", first.MoveInDate, "US date format is normalized")
	assert.True(t, first.IsPrimary)

	second := batch.Tenancies[1]
	assert.Equal(t, "2024-06-01", second.MoveInDate, "canonical dates pass through")
	assert.False(t, second.IsPrimary)

	assert.Equal(t, []string{"BLVD"}, batch.PropertyCodes())
}

func TestLoadBatchRentRollCurrency(t *testing.T) {
	dir := t.TempDir()
	writeWorkbook(t, dir, FileRentRoll, [][]interface{}{
		{"Tenancy ID", "Property", "Lease Start", "Lease End", "Rent", "Deposit"},
		{"t1", "BLVD", "2025-01-01", "2025-12-31", "$1,450.00", "500"},
	})

	reader := NewReader(dir, zap.NewNop())
	batch, err := reader.LoadBatch()
	require.NoError(t, err)

	require.Len(t, batch.Leases, 1)
	assert.Equal(t, 1450.0, batch.Leases[0].Rent, "currency symbols and separators are stripped")
	assert.Equal(t, 500.0, batch.Leases[0].Deposit)
}

func TestLoadBatchOptionalRent(t *testing.T) {
	dir := t.TempDir()
	writeWorkbook(t, dir, FileAvailabilities, [][]interface{}{
		{"Unit ID", "Unit", "Property", "Available Date", "Offered Rent", "Move In Inspection"},
		{"u1", "101", "BLVD", "2025-09-01", "1250", "x"},
		{"u2", "102", "BLVD", "", "", ""},
	})

	reader := NewReader(dir, zap.NewNop())
	batch, err := reader.LoadBatch()
	require.NoError(t, err)

	require.Len(t, batch.Availabilities, 2)
	require.NotNil(t, batch.Availabilities[0].OfferedRent)
	assert.Equal(t, 1250.0, *batch.Availabilities[0].OfferedRent)
	assert.True(t, batch.Availabilities[0].MoveInInspection)
	assert.Nil(t, batch.Availabilities[1].OfferedRent, "blank rent stays nil, not zero")
}

func TestLoadBatchMissingFilesYieldEmptyBatch(t *testing.T) {
	reader := NewReader(t.TempDir(), zap.NewNop())
	batch, err := reader.LoadBatch()
	require.NoError(t, err)
	assert.True(t, batch.IsEmpty())
}

func TestLoadBatchUnrecognizedDatePassesThroughRaw(t *testing.T) {
	dir := t.TempDir()
	writeWorkbook(t, dir, FileNotices, [][]interface{}{
		{"Tenancy ID", "Unit ID", "Property", "Notice Date", "Move Out"},
		{"t1", "u1", "BLVD", "2025-08-01", "sometime soon"},
	})

	reader := NewReader(dir, zap.NewNop())
	batch, err := reader.LoadBatch()
	require.NoError(t, err)

	require.Len(t, batch.Notices, 1)
	// the engine owns bad-date skip policy, so the raw value survives parsing
	assert.Equal(t, "sometime soon", batch.Notices[0].MoveOutDate)
	assert.Equal(t, "2025-08-01", batch.Notices[0].NoticeDate)
}
