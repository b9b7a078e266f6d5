package models

import "time"

// Resident is one person on a tenancy. Missing-entity classification runs
// over primary residents only (one record per household).
type Resident struct {
	ID           uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	TenancyID    string `gorm:"type:varchar(64);not null;index:idx_resident_tenancy" json:"tenancy_id"`
	PropertyCode string `gorm:"type:varchar(32);not null;index" json:"property_code"`
	Name         string `gorm:"type:varchar(200);not null;index:idx_resident_tenancy" json:"name"`
	Email        string `gorm:"type:varchar(200)" json:"email,omitempty"`
	Phone        string `gorm:"type:varchar(50)" json:"phone,omitempty"`
	IsPrimary    bool   `gorm:"not null;default:false" json:"is_primary"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name
func (Resident) TableName() string {
	return "residents"
}
