package models

import "time"

// Availability is the per-unit marketing record, at most one active per unit.
// Its status is a pure function of the linked tenancy's status; nothing else
// may set it.
type Availability struct {
	ID           uint               `gorm:"primaryKey;autoIncrement" json:"id"`
	UnitID       string             `gorm:"type:varchar(64);not null;index" json:"unit_id"`
	UnitName     string             `gorm:"type:varchar(100)" json:"unit_name,omitempty"`
	PropertyCode string             `gorm:"type:varchar(32);not null;index" json:"property_code"`
	Status       AvailabilityStatus `gorm:"type:varchar(20);not null;default:'available'" json:"status"`
	IsActive     bool               `gorm:"not null;default:true;index" json:"is_active"`

	AvailableDate string   `gorm:"type:varchar(10)" json:"available_date,omitempty"`
	MoveInDate    string   `gorm:"type:varchar(10)" json:"move_in_date,omitempty"`
	MoveOutDate   string   `gorm:"type:varchar(10)" json:"move_out_date,omitempty"`
	OfferedRent   *float64 `gorm:"type:decimal(10,2)" json:"offered_rent,omitempty"`
	Amenities     string   `gorm:"type:text" json:"amenities,omitempty"`
	LeasingAgent  string   `gorm:"type:varchar(100)" json:"leasing_agent,omitempty"`

	// Applicant linkage, populated only while the governing tenancy is
	// future/applicant.
	FutureTenancyID  string `gorm:"type:varchar(64)" json:"future_tenancy_id,omitempty"`
	MoveInInspection bool   `gorm:"not null;default:false" json:"move_in_inspection"`
	ScreeningResult  string `gorm:"type:varchar(50)" json:"screening_result,omitempty"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// AvailabilityStatus is the marketing status derived from tenancy state
type AvailabilityStatus string

const (
	AvailabilityStatusAvailable AvailabilityStatus = "available"
	AvailabilityStatusOccupied  AvailabilityStatus = "occupied"
	AvailabilityStatusLeased    AvailabilityStatus = "leased"
	AvailabilityStatusApplied   AvailabilityStatus = "applied"
)

// TableName specifies the table name
func (Availability) TableName() string {
	return "availabilities"
}

// ClearApplicantFields wipes the applicant linkage when the governing
// tenancy is denied or canceled.
func (a *Availability) ClearApplicantFields() {
	a.LeasingAgent = ""
	a.MoveInDate = ""
	a.FutureTenancyID = ""
	a.ScreeningResult = ""
}
