package models

import "time"

// UnitFlag is an operational alert attached to a unit. Flags deduplicate on
// (unit_id, flag_type, resolved_at IS NULL) and are resolved, never deleted.
type UnitFlag struct {
	ID           uint                   `gorm:"primaryKey;autoIncrement" json:"id"`
	UnitID       string                 `gorm:"type:varchar(64);not null;index:idx_unit_flag" json:"unit_id"`
	UnitName     string                 `gorm:"type:varchar(100)" json:"unit_name,omitempty"`
	PropertyCode string                 `gorm:"type:varchar(32);not null;index" json:"property_code"`
	FlagType     string                 `gorm:"type:varchar(50);not null;index:idx_unit_flag" json:"flag_type"`
	Severity     string                 `gorm:"type:varchar(10);not null;default:'info'" json:"severity"`
	Title        string                 `gorm:"type:varchar(200)" json:"title,omitempty"`
	Message      string                 `gorm:"type:text" json:"message,omitempty"`
	Metadata     map[string]interface{} `gorm:"serializer:json" json:"metadata,omitempty"`

	ResolvedAt *time.Time `gorm:"index" json:"resolved_at,omitempty"`
	ResolvedBy string     `gorm:"type:varchar(100)" json:"resolved_by,omitempty"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

// TableName specifies the table name
func (UnitFlag) TableName() string {
	return "unit_flags"
}

// FlagType constants
const (
	FlagMoveOutOverdue     = "move_out_overdue"
	FlagMakereadyOverdue   = "makeready_overdue"
	FlagApplicationOverdue = "application_overdue"
	FlagTransferActive     = "transfer_active"
)

// Severity constants
const (
	SeverityInfo    = "info"
	SeverityWarning = "warning"
	SeverityError   = "error"
)

// Resolve timestamps the flag as cleared
func (f *UnitFlag) Resolve(by string) {
	now := time.Now()
	f.ResolvedAt = &now
	f.ResolvedBy = by
}
