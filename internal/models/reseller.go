package models

import "time"

type ResellerStatus string

const (
	ResellerActive   ResellerStatus = "active"
	ResellerDisabled ResellerStatus = "disabled"
)

type Reseller struct {
	ID           int64          `gorm:"primaryKey"`
	Name         string         `gorm:"size:200;not null"`
	Slug         string         `gorm:"size:200;uniqueIndex;not null"`
	ContactEmail string         `gorm:"size:255"`
	ContactPhone string         `gorm:"size:40"`
	Status       ResellerStatus `gorm:"size:16;default:active"`
	CreatedAt    time.Time
	UpdatedAt    time.Time

	// Relations
	Users       []User       `gorm:"foreignKey:ResellerID"`
	Technicians []Technician `gorm:"foreignKey:ResellerID"`
	Devices     []Device     `gorm:"foreignKey:ResellerID"`
}
