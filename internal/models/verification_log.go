package models

import "time"

type VerificationStatus string

const (
	VerificationCompleted VerificationStatus = "completed"
	VerificationFlagged   VerificationStatus = "flagged"
)

// VerificationLog records that a technician inspected a device's live data
// at a point in time, with an optional GPS snapshot. Rows are write-once:
// never mutated or deleted after insert.
type VerificationLog struct {
	ID           int64     `gorm:"primaryKey"`
	Reference    string    `gorm:"size:36;uniqueIndex;not null"` // public uuid
	TechnicianID int64     `gorm:"index:idx_tech_device;not null"`
	DeviceID     int64     `gorm:"index:idx_tech_device;not null"`
	VerifiedAt   time.Time `gorm:"index;not null"` // UTC
	Latitude     *float64
	Longitude    *float64
	GPSTime      *time.Time         `gorm:"column:gps_time"`
	Notes        string             `gorm:"size:1000"`
	Status       VerificationStatus `gorm:"size:16;default:completed"`
	CreatedAt    time.Time
}
