package models

import "time"

// Property is one managed community in the leasing system. Active property
// codes double as the allowlist for user-facing run reports, which keeps
// internal sentinel codes out of them.
type Property struct {
	Code     string `gorm:"type:varchar(32);primaryKey" json:"code"`
	Name     string `gorm:"type:varchar(200)" json:"name,omitempty"`
	IsActive bool   `gorm:"not null;default:true;index" json:"is_active"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name
func (Property) TableName() string {
	return "properties"
}
