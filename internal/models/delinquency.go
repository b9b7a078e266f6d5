package models

import "time"

// Delinquency is one household's outstanding balance from the delinquency
// report. Balance changes are material; missing from the report means the
// balance cleared, so the record is soft-deactivated.
type Delinquency struct {
	ID           uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	TenancyID    string  `gorm:"type:varchar(64);not null;index" json:"tenancy_id"`
	UnitID       string  `gorm:"type:varchar(64)" json:"unit_id,omitempty"`
	PropertyCode string  `gorm:"type:varchar(32);not null;index" json:"property_code"`
	ResidentName string  `gorm:"type:varchar(200)" json:"resident_name,omitempty"`
	Balance      float64 `gorm:"type:decimal(10,2)" json:"balance"`
	DaysLate     int     `gorm:"type:int" json:"days_late"`
	IsActive     bool    `gorm:"not null;default:true;index" json:"is_active"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name
func (Delinquency) TableName() string {
	return "delinquencies"
}
