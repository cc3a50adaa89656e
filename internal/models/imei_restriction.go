package models

import "time"

type AccessType int

const (
	AccessAllow AccessType = 1
	AccessDeny  AccessType = 2
)

type RestrictionStatus string

const (
	RestrictionActive   RestrictionStatus = "active"
	RestrictionInactive RestrictionStatus = "inactive"
	RestrictionExpired  RestrictionStatus = "expired"
)

// ImeiRestriction scopes a technician's access to either a single device or
// a tag-defined device set. Exactly one of DeviceID / TagID is set.
type ImeiRestriction struct {
	ID           int64      `gorm:"primaryKey"`
	TechnicianID int64      `gorm:"index;not null"`
	DeviceID     *int64     `gorm:"index"`
	TagID        *int64     `gorm:"index"`
	AccessType   AccessType `gorm:"not null"`
	Priority     int        `gorm:"default:0"`
	IsPermanent  bool       `gorm:"default:true"`
	ValidFrom    *time.Time
	ValidUntil   *time.Time
	Reason       string            `gorm:"size:500"`
	Status       RestrictionStatus `gorm:"size:16;default:active"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
