package models

import (
	"fmt"
	"time"
)

// WorkOrder is a maintenance ticket from the work-order report. Missing from
// today's report means closed upstream: deactivate and timestamp.
type WorkOrder struct {
	ID            uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	ExternalID    string     `gorm:"type:varchar(64);not null;index" json:"external_id"`
	UnitID        string     `gorm:"type:varchar(64);not null;index" json:"unit_id"`
	PropertyCode  string     `gorm:"type:varchar(32);not null;index" json:"property_code"`
	Description   string     `gorm:"type:text" json:"description,omitempty"`
	Status        string     `gorm:"type:varchar(50)" json:"status,omitempty"`
	OpenedDate    string     `gorm:"type:varchar(10)" json:"opened_date,omitempty"`
	IsActive      bool       `gorm:"not null;default:true;index" json:"is_active"`
	DeactivatedAt *time.Time `json:"deactivated_at,omitempty"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name
func (WorkOrder) TableName() string {
	return "work_orders"
}

// NaturalKey identifies a work order across runs.
func (w *WorkOrder) NaturalKey() string {
	return WorkOrderKey(w.PropertyCode, w.UnitID, w.ExternalID)
}

// WorkOrderKey builds the lookup key used by reconciliation.
func WorkOrderKey(property, unit, externalID string) string {
	return fmt.Sprintf("%s|%s|%s", property, unit, externalID)
}
