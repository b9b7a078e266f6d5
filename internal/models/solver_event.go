package models

import "time"

// SolverEvent is an immutable record of one reconciliation-time business
// event. Events are created only by the run's event tracker and persisted at
// the end of the run as an audit trail.
type SolverEvent struct {
	ID           uint                   `gorm:"primaryKey;autoIncrement" json:"id"`
	RunID        string                 `gorm:"type:varchar(64);index" json:"run_id"`
	PropertyCode string                 `gorm:"type:varchar(32);not null;index" json:"property_code"`
	EventType    string                 `gorm:"type:varchar(50);not null;index" json:"event_type"`
	Details      map[string]interface{} `gorm:"serializer:json" json:"details,omitempty"`
	UnitID       string                 `gorm:"type:varchar(64)" json:"unit_id,omitempty"`
	TenancyID    string                 `gorm:"type:varchar(64)" json:"tenancy_id,omitempty"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

// TableName specifies the table name
func (SolverEvent) TableName() string {
	return "solver_events"
}

// Event type constants
const (
	EventNewTenancy          = "new_tenancy"
	EventLeaseRenewal        = "lease_renewal"
	EventNoticeGiven         = "notice_given"
	EventPriceChange         = "price_change"
	EventApplicationSaved    = "application_saved"
	EventLeaseSigned         = "lease_signed"
	EventMoveOutDetected     = "move_out_detected"
	EventApplicationCanceled = "application_canceled"
)
