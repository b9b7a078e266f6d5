package models

import "time"

// SyncRun is the persisted record of one reconciliation run.
type SyncRun struct {
	BatchID             string                      `gorm:"type:varchar(64);primaryKey" json:"batch_id"`
	Status              RunStatus                   `gorm:"type:varchar(20);not null;default:'running'" json:"status"`
	PropertiesProcessed []string                    `gorm:"serializer:json" json:"properties_processed,omitempty"`
	Summary             map[string]*PropertySummary `gorm:"serializer:json" json:"summary,omitempty"`
	ErrorMessage        string                      `gorm:"type:text" json:"error_message,omitempty"`
	SkipReasons         []string                    `gorm:"serializer:json" json:"skip_reasons,omitempty"`

	StartedAt   time.Time  `gorm:"not null;autoCreateTime" json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// RunStatus is the run lifecycle status
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// TableName specifies the table name
func (SyncRun) TableName() string {
	return "sync_runs"
}

// MarkCompleted stamps the run as finished
func (r *SyncRun) MarkCompleted() {
	r.Status = RunStatusCompleted
	now := time.Now()
	r.CompletedAt = &now
}

// MarkFailed stamps the run as failed with the error that killed it
func (r *SyncRun) MarkFailed(err error) {
	r.Status = RunStatusFailed
	if err != nil {
		r.ErrorMessage = err.Error()
	}
	now := time.Now()
	r.CompletedAt = &now
}

// PropertySummary is the per-property, per-run aggregate counter set. It is
// accumulated in memory by the event tracker and persisted inside the
// SyncRun summary at run completion.
type PropertySummary struct {
	NewTenancies        int `json:"new_tenancies"`
	TenancyUpdates      int `json:"tenancy_updates"`
	NewResidents        int `json:"new_residents"`
	ResidentUpdates     int `json:"resident_updates"`
	NewLeases           int `json:"new_leases"`
	LeaseRenewals       int `json:"lease_renewals"`
	LeaseChanges        int `json:"lease_changes"`
	NewAvailabilities   int `json:"new_availabilities"`
	AvailabilityChanges int `json:"availability_changes"`
	Notices             int `json:"notices"`
	Applications        int `json:"applications"`
	PriceChanges        int `json:"price_changes"`
	StatusAutoFixes     int `json:"status_auto_fixes"`
	MakereadyFlags      int `json:"makeready_flags"`
	ApplicationFlags    int `json:"application_flags"`
	TransferFlags       int `json:"transfer_flags"`
}
