package models

import (
	"time"

	"gorm.io/datatypes"
)

type DeviceStatus string

const (
	DeviceActive   DeviceStatus = "active"
	DeviceInactive DeviceStatus = "inactive"
)

type Device struct {
	ID         int64          `gorm:"primaryKey"`
	ResellerID *int64         `gorm:"index"`
	IMEI       string         `gorm:"column:imei;size:15;uniqueIndex;not null"`
	Label      string         `gorm:"size:200"`
	Model      string         `gorm:"size:100"`
	Metadata   datatypes.JSON `gorm:"type:json"`
	Status     DeviceStatus   `gorm:"size:16;default:active"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
