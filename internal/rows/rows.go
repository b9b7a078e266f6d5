// Package rows defines the typed row contract between the parsing layer and
// the reconciliation engine. Each report type gets its own row struct with
// canonical field types: dates as YYYY-MM-DD strings, currency as numbers.
// The engine never sees untyped spreadsheet data.
package rows

import "sort"

// TenancyRow is one resident line from the residents report. Primary rows
// (one per household) drive tenancy lifecycle; all rows drive residents.
type TenancyRow struct {
	TenancyID    string
	UnitID       string
	UnitName     string
	PropertyCode string
	RawStatus    string
	MoveInDate   string
	MoveOutDate  string
	ResidentName string
	Email        string
	Phone        string
	IsPrimary    bool
}

// LeaseRow is one line from the rent-roll report.
type LeaseRow struct {
	TenancyID    string
	PropertyCode string
	StartDate    string
	EndDate      string
	Rent         float64
	Deposit      float64
}

// AvailabilityRow is one unit line from the availability report.
type AvailabilityRow struct {
	UnitID           string
	UnitName         string
	PropertyCode     string
	AvailableDate    string
	MoveInDate       string
	MoveOutDate      string
	OfferedRent      *float64
	Amenities        string
	LeasingAgent     string
	TenancyID        string // future/applicant linkage when present
	MoveInInspection bool
	ScreeningResult  string
}

// NoticeRow is one line from the notices report.
type NoticeRow struct {
	TenancyID    string
	UnitID       string
	PropertyCode string
	NoticeDate   string
	MoveOutDate  string
}

// WorkOrderRow is one line from the work-order report.
type WorkOrderRow struct {
	WorkOrderID  string
	UnitID       string
	PropertyCode string
	Description  string
	Status       string
	OpenedDate   string
}

// AlertRow is one line from the alerts report. Alerts carry no external id.
type AlertRow struct {
	UnitID       string
	PropertyCode string
	Description  string
	ResidentName string
}

// DelinquencyRow is one line from the delinquency report.
type DelinquencyRow struct {
	TenancyID    string
	UnitID       string
	PropertyCode string
	ResidentName string
	Balance      float64
	DaysLate     int
}

// Batch is one day's worth of parsed report files, grouped by report type.
type Batch struct {
	Tenancies      []TenancyRow
	Leases         []LeaseRow
	Availabilities []AvailabilityRow
	Notices        []NoticeRow
	WorkOrders     []WorkOrderRow
	Alerts         []AlertRow
	Delinquencies  []DelinquencyRow
}

// PropertyCodes returns the sorted distinct property codes present anywhere
// in the batch.
func (b *Batch) PropertyCodes() []string {
	seen := make(map[string]struct{})
	add := func(code string) {
		if code != "" {
			seen[code] = struct{}{}
		}
	}
	for _, r := range b.Tenancies {
		add(r.PropertyCode)
	}
	for _, r := range b.Leases {
		add(r.PropertyCode)
	}
	for _, r := range b.Availabilities {
		add(r.PropertyCode)
	}
	for _, r := range b.Notices {
		add(r.PropertyCode)
	}
	for _, r := range b.WorkOrders {
		add(r.PropertyCode)
	}
	for _, r := range b.Alerts {
		add(r.PropertyCode)
	}
	for _, r := range b.Delinquencies {
		add(r.PropertyCode)
	}

	codes := make([]string, 0, len(seen))
	for code := range seen {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// IsEmpty reports whether the batch contains no rows at all.
func (b *Batch) IsEmpty() bool {
	return len(b.Tenancies) == 0 && len(b.Leases) == 0 && len(b.Availabilities) == 0 &&
		len(b.Notices) == 0 && len(b.WorkOrders) == 0 && len(b.Alerts) == 0 &&
		len(b.Delinquencies) == 0
}
