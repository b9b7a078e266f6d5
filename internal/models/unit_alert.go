package models

import (
	"fmt"
	"time"
)

// UnitAlert is a free-form operational note from the alerts report. Alerts
// carry no external id, so identity is the composite of property, unit,
// description and resident. Any upstream text drift therefore mints a "new"
// alert instead of updating the old one; this mirrors the source system and
// must not be "improved", since changing the key changes what counts as the
// same alert across runs.
type UnitAlert struct {
	ID           uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	UnitID       string `gorm:"type:varchar(64);not null;index" json:"unit_id"`
	PropertyCode string `gorm:"type:varchar(32);not null;index" json:"property_code"`
	Description  string `gorm:"type:text;not null" json:"description"`
	ResidentName string `gorm:"type:varchar(200)" json:"resident_name,omitempty"`
	IsActive     bool   `gorm:"not null;default:true;index" json:"is_active"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name
func (UnitAlert) TableName() string {
	return "unit_alerts"
}

// NaturalKey identifies an alert across runs.
func (a *UnitAlert) NaturalKey() string {
	return UnitAlertKey(a.PropertyCode, a.UnitID, a.Description, a.ResidentName)
}

// UnitAlertKey builds the composite lookup key used by reconciliation.
func UnitAlertKey(property, unit, description, resident string) string {
	return fmt.Sprintf("%s|%s|%s|%s", property, unit, description, resident)
}
