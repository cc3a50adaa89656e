package models

import "time"

type TechnicianStatus string

const (
	TechnicianActive   TechnicianStatus = "active"
	TechnicianDisabled TechnicianStatus = "disabled"
)

// Technician is a field worker performing device verifications. Technicians
// are soft-disabled via Status and never hard-deleted, so their verification
// history stays intact.
type Technician struct {
	ID           int64            `gorm:"primaryKey"`
	ResellerID   *int64           `gorm:"index"` // nil for platform-level technicians
	UserID       int64            `gorm:"uniqueIndex;not null"`
	EmployeeCode string           `gorm:"size:64"`
	Phone        string           `gorm:"size:40"`
	DailyLimit   int              `gorm:"default:0"` // max verifications per UTC day, 0 = unlimited
	Status       TechnicianStatus `gorm:"size:16;default:active"`
	CreatedAt    time.Time
	UpdatedAt    time.Time

	User         *User             `gorm:"foreignKey:UserID"`
	Restrictions []ImeiRestriction `gorm:"foreignKey:TechnicianID"`
}
