package models

import (
	"time"

	"gorm.io/datatypes"
)

type AuditLog struct {
	ID            int64          `gorm:"primaryKey"`
	ResellerID    *int64         `gorm:"index"`
	UserID        int64          `gorm:"index"`             // nullable (system actions possible)
	Action        string         `gorm:"size:200;not null"` // e.g. "technician.create", "verification.denied"
	ResourceType  string         `gorm:"size:100"`          // e.g. "device", "technician"
	ResourceID    int64          `gorm:"index"`             // optional link to resource
	Metadata      datatypes.JSON `gorm:"type:json"`         // details of what changed
	IP            string         `gorm:"size:64"`
	InitiatorName string         `gorm:"size:255" json:"initiator_name"`
	UserAgent     string         `gorm:"size:255"`
	CreatedAt     time.Time
}
