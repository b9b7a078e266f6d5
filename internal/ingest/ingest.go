// Package ingest reads the daily export workbooks from the import directory
// and produces a typed rows.Batch for the reconciliation engine. One workbook
// per report type; a missing workbook simply yields an empty section.
package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"leasing-sync/internal/dates"
	"leasing-sync/internal/rows"
)

// Workbook file names expected in the import directory.
const (
	FileResidents      = "residents.xlsx"
	FileRentRoll       = "rentroll.xlsx"
	FileAvailabilities = "availability.xlsx"
	FileNotices        = "notices.xlsx"
	FileWorkOrders     = "workorders.xlsx"
	FileAlerts         = "alerts.xlsx"
	FileDelinquencies  = "delinquency.xlsx"
)

// Reader parses export workbooks into typed rows.
type Reader struct {
	dir string
	log *zap.Logger
}

// NewReader creates a Reader for the given import directory.
func NewReader(dir string, log *zap.Logger) *Reader {
	return &Reader{dir: dir, log: log}
}

// LoadBatch reads every report workbook present in the import directory.
// Malformed rows are skipped with a warning; a completely unreadable
// workbook is an error because a silent half-import would be mistaken for
// move-outs downstream.
func (r *Reader) LoadBatch() (*rows.Batch, error) {
	batch := &rows.Batch{}

	if err := r.readSheet(FileResidents, func(rec record) {
		row := rows.TenancyRow{
			TenancyID:    rec.str("tenancy id"),
			UnitID:       rec.str("unit id"),
			UnitName:     rec.str("unit"),
			PropertyCode: rec.str("property"),
			RawStatus:    rec.str("status"),
			MoveInDate:   rec.date("move in"),
			MoveOutDate:  rec.date("move out"),
			ResidentName: rec.str("resident"),
			Email:        rec.str("email"),
			Phone:        rec.str("phone"),
			IsPrimary:    rec.flag("primary"),
		}
		if row.TenancyID == "" || row.PropertyCode == "" {
			r.skip(FileResidents, rec.index, "missing tenancy id or property")
			return
		}
		batch.Tenancies = append(batch.Tenancies, row)
	}); err != nil {
		return nil, err
	}

	if err := r.readSheet(FileRentRoll, func(rec record) {
		row := rows.LeaseRow{
			TenancyID:    rec.str("tenancy id"),
			PropertyCode: rec.str("property"),
			StartDate:    rec.date("lease start"),
			EndDate:      rec.date("lease end"),
			Rent:         rec.num("rent"),
			Deposit:      rec.num("deposit"),
		}
		if row.TenancyID == "" || row.PropertyCode == "" {
			r.skip(FileRentRoll, rec.index, "missing tenancy id or property")
			return
		}
		batch.Leases = append(batch.Leases, row)
	}); err != nil {
		return nil, err
	}

	if err := r.readSheet(FileAvailabilities, func(rec record) {
		row := rows.AvailabilityRow{
			UnitID:           rec.str("unit id"),
			UnitName:         rec.str("unit"),
			PropertyCode:     rec.str("property"),
			AvailableDate:    rec.date("available date"),
			MoveInDate:       rec.date("move in"),
			MoveOutDate:      rec.date("move out"),
			Amenities:        rec.str("amenities"),
			LeasingAgent:     rec.str("leasing agent"),
			TenancyID:        rec.str("tenancy id"),
			MoveInInspection: rec.flag("move in inspection"),
			ScreeningResult:  rec.str("screening result"),
		}
		if rent, ok := rec.optNum("offered rent"); ok {
			row.OfferedRent = &rent
		}
		if row.UnitID == "" || row.PropertyCode == "" {
			r.skip(FileAvailabilities, rec.index, "missing unit id or property")
			return
		}
		batch.Availabilities = append(batch.Availabilities, row)
	}); err != nil {
		return nil, err
	}

	if err := r.readSheet(FileNotices, func(rec record) {
		row := rows.NoticeRow{
			TenancyID:    rec.str("tenancy id"),
			UnitID:       rec.str("unit id"),
			PropertyCode: rec.str("property"),
			NoticeDate:   rec.date("notice date"),
			MoveOutDate:  rec.date("move out"),
		}
		if row.TenancyID == "" || row.PropertyCode == "" {
			r.skip(FileNotices, rec.index, "missing tenancy id or property")
			return
		}
		batch.Notices = append(batch.Notices, row)
	}); err != nil {
		return nil, err
	}

	if err := r.readSheet(FileWorkOrders, func(rec record) {
		row := rows.WorkOrderRow{
			WorkOrderID:  rec.str("work order id"),
			UnitID:       rec.str("unit id"),
			PropertyCode: rec.str("property"),
			Description:  rec.str("description"),
			Status:       rec.str("status"),
			OpenedDate:   rec.date("opened date"),
		}
		if row.WorkOrderID == "" || row.PropertyCode == "" {
			r.skip(FileWorkOrders, rec.index, "missing work order id or property")
			return
		}
		batch.WorkOrders = append(batch.WorkOrders, row)
	}); err != nil {
		return nil, err
	}

	if err := r.readSheet(FileAlerts, func(rec record) {
		row := rows.AlertRow{
			UnitID:       rec.str("unit id"),
			PropertyCode: rec.str("property"),
			Description:  rec.str("description"),
			ResidentName: rec.str("resident"),
		}
		if row.UnitID == "" || row.PropertyCode == "" {
			r.skip(FileAlerts, rec.index, "missing unit id or property")
			return
		}
		batch.Alerts = append(batch.Alerts, row)
	}); err != nil {
		return nil, err
	}

	if err := r.readSheet(FileDelinquencies, func(rec record) {
		row := rows.DelinquencyRow{
			TenancyID:    rec.str("tenancy id"),
			UnitID:       rec.str("unit id"),
			PropertyCode: rec.str("property"),
			ResidentName: rec.str("resident"),
			Balance:      rec.num("balance"),
			DaysLate:     int(rec.num("days late")),
		}
		if row.TenancyID == "" || row.PropertyCode == "" {
			r.skip(FileDelinquencies, rec.index, "missing tenancy id or property")
			return
		}
		batch.Delinquencies = append(batch.Delinquencies, row)
	}); err != nil {
		return nil, err
	}

	return batch, nil
}

func (r *Reader) skip(file string, rowIndex int, reason string) {
	r.log.Warn("skipping report row",
		zap.String("file", file),
		zap.Int("row", rowIndex),
		zap.String("reason", reason))
}

// record is one data row with header-indexed cell access.
type record struct {
	index   int
	headers map[string]int
	cells   []string
}

func (rec record) str(header string) string {
	idx, ok := rec.headers[header]
	if !ok || idx >= len(rec.cells) {
		return ""
	}
	return strings.TrimSpace(rec.cells[idx])
}

// date normalizes a cell to YYYY-MM-DD where the format is recognized.
// Unrecognized values pass through raw so the engine can record the skip.
func (rec record) date(header string) string {
	raw := rec.str(header)
	if raw == "" {
		return ""
	}
	if normalized := dates.ParseFlexible(raw); normalized != "" {
		return normalized
	}
	return raw
}

func (rec record) num(header string) float64 {
	v, _ := rec.optNum(header)
	return v
}

func (rec record) optNum(header string) (float64, bool) {
	raw := rec.str(header)
	if raw == "" {
		return 0, false
	}
	cleaned := strings.NewReplacer("$", "", ",", "").Replace(raw)
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func (rec record) flag(header string) bool {
	switch strings.ToLower(rec.str(header)) {
	case "yes", "y", "true", "1", "x":
		return true
	}
	return false
}

// readSheet opens the named workbook and feeds each data row to fn. A
// missing file is not an error.
func (r *Reader) readSheet(filename string, fn func(record)) error {
	path := filepath.Join(r.dir, filename)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		r.log.Debug("report workbook not present", zap.String("file", filename))
		return nil
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", filename, err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return fmt.Errorf("%s has no sheets", filename)
	}

	allRows, err := f.GetRows(sheetName)
	if err != nil {
		return fmt.Errorf("failed to read rows from %s: %w", filename, err)
	}
	if len(allRows) < 2 {
		return nil
	}

	headers := make(map[string]int)
	for i, h := range allRows[0] {
		headers[strings.ToLower(strings.TrimSpace(h))] = i
	}

	for i, cells := range allRows[1:] {
		if isBlankRow(cells) {
			continue
		}
		fn(record{index: i + 2, headers: headers, cells: cells})
	}
	return nil
}

func isBlankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
