package models

import "time"

// Lease is a rent-term record tied to exactly one tenancy. At most one lease
// per tenancy has IsActive=true; the reconciliation engine enforces this, the
// schema does not.
type Lease struct {
	ID           uint        `gorm:"primaryKey;autoIncrement" json:"id"`
	TenancyID    string      `gorm:"type:varchar(64);not null;index" json:"tenancy_id"`
	PropertyCode string      `gorm:"type:varchar(32);not null;index" json:"property_code"`
	StartDate    string      `gorm:"type:varchar(10)" json:"start_date,omitempty"`
	EndDate      string      `gorm:"type:varchar(10)" json:"end_date,omitempty"`
	Rent         float64     `gorm:"type:decimal(10,2)" json:"rent"`
	Deposit      float64     `gorm:"type:decimal(10,2)" json:"deposit"`
	Status       LeaseStatus `gorm:"type:varchar(20);not null;default:'current'" json:"status"`
	IsActive     bool        `gorm:"not null;default:true;index" json:"is_active"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// LeaseStatus mirrors the tenancy lifecycle for the lease term itself
type LeaseStatus string

const (
	LeaseStatusCurrent  LeaseStatus = "current"
	LeaseStatusNotice   LeaseStatus = "notice"
	LeaseStatusFuture   LeaseStatus = "future"
	LeaseStatusPast     LeaseStatus = "past"
	LeaseStatusEviction LeaseStatus = "eviction"
)

// TableName specifies the table name
func (Lease) TableName() string {
	return "leases"
}

// Retire marks the lease as superseded. Used when a renewal inserts the
// successor lease row.
func (l *Lease) Retire() {
	l.IsActive = false
	l.Status = LeaseStatusPast
}
