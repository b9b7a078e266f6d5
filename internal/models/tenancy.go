package models

import "time"

// Tenancy is one household's occupancy record for a unit. The ID comes from
// the leasing system export and is never generated here. Tenancies are never
// deleted, only status-transitioned.
type Tenancy struct {
	ID           string        `gorm:"type:varchar(64);primaryKey" json:"id"`
	UnitID       string        `gorm:"type:varchar(64);not null;index" json:"unit_id"`
	UnitName     string        `gorm:"type:varchar(100)" json:"unit_name,omitempty"`
	PropertyCode string        `gorm:"type:varchar(32);not null;index" json:"property_code"`
	Status       TenancyStatus `gorm:"type:varchar(20);not null;default:'current';index" json:"status"`
	MoveInDate   string        `gorm:"type:varchar(10)" json:"move_in_date,omitempty"`
	MoveOutDate  string        `gorm:"type:varchar(10)" json:"move_out_date,omitempty"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// TenancyStatus is the canonical tenancy lifecycle status
type TenancyStatus string

const (
	TenancyStatusCurrent   TenancyStatus = "current"
	TenancyStatusNotice    TenancyStatus = "notice"
	TenancyStatusFuture    TenancyStatus = "future"
	TenancyStatusApplicant TenancyStatus = "applicant"
	TenancyStatusEviction  TenancyStatus = "eviction"
	TenancyStatusPast      TenancyStatus = "past"
	TenancyStatusDenied    TenancyStatus = "denied"
	TenancyStatusCanceled  TenancyStatus = "canceled"
)

// TableName specifies the table name
func (Tenancy) TableName() string {
	return "tenancies"
}

// ActiveTenancyStatuses are the statuses that count as "effectively active"
// for reconciliation purposes. Everything else is terminal.
var ActiveTenancyStatuses = []TenancyStatus{
	TenancyStatusCurrent,
	TenancyStatusNotice,
	TenancyStatusFuture,
	TenancyStatusApplicant,
	TenancyStatusEviction,
}

// IsEffectivelyActive reports whether the tenancy still participates in
// missing-entity classification.
func (t *Tenancy) IsEffectivelyActive() bool {
	for _, s := range ActiveTenancyStatuses {
		if t.Status == s {
			return true
		}
	}
	return false
}
