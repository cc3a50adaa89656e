package verify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"trackadmin/internal/apperr"
	"trackadmin/internal/models"
)

// TimeGap is the deduplication window: repeated checks of the same device
// by the same technician within this window collapse to one log entry.
// Fixed, not configurable per technician or device.
const TimeGap = 4 * time.Hour

// Payload carries the optional GPS snapshot and notes for a verification.
// It is attached only to newly created rows; prior rows are never mutated.
type Payload struct {
	Latitude  *float64
	Longitude *float64
	GPSTime   *time.Time
	Notes     string
}

// Result is the outcome of a record call: the resulting log entry (new or
// reused) and whether an insert happened.
type Result struct {
	Log     models.VerificationLog
	Created bool
}

// Store supplies reads and the single conditional write the recorder needs.
// Strictness of the read-then-insert under concurrent requests is the
// store's transaction discipline, not the recorder's.
type Store interface {
	TechnicianByID(ctx context.Context, id int64) (*models.Technician, error)
	DeviceByID(ctx context.Context, id int64) (*models.Device, error)
	// LastVerification returns the most recent row for the pair, nil when none.
	LastVerification(ctx context.Context, technicianID, deviceID int64) (*models.VerificationLog, error)
	InsertVerification(ctx context.Context, entry *models.VerificationLog) error
}

// Recorder decides whether a verification event becomes a new log row or
// reuses the prior one under the time-gap rule.
type Recorder struct {
	Store Store
	Now   func() time.Time // defaults to time.Now
}

// Record inserts a verification log row for (technicianID, deviceID) unless
// a prior row exists within TimeGap, in which case that row is returned
// unchanged. Rapid repeated checks are idempotent: there is no conflict
// error path. Timestamps are compared in UTC; a gap of exactly TimeGap
// creates a new row.
func (r Recorder) Record(ctx context.Context, technicianID, deviceID int64, payload *Payload) (Result, error) {
	if deviceID == 0 {
		return Result{}, fmt.Errorf("device id is required: %w", apperr.ErrValidation)
	}

	tech, err := r.Store.TechnicianByID(ctx, technicianID)
	if err != nil {
		return Result{}, err
	}
	if tech == nil {
		return Result{}, fmt.Errorf("technician %d: %w", technicianID, apperr.ErrNotFound)
	}
	dev, err := r.Store.DeviceByID(ctx, deviceID)
	if err != nil {
		return Result{}, err
	}
	if dev == nil {
		return Result{}, fmt.Errorf("device %d: %w", deviceID, apperr.ErrNotFound)
	}

	now := r.now().UTC()

	last, err := r.Store.LastVerification(ctx, technicianID, deviceID)
	if err != nil {
		return Result{}, err
	}
	if last != nil && now.Sub(last.VerifiedAt) < TimeGap {
		return Result{Log: *last, Created: false}, nil
	}

	entry := models.VerificationLog{
		Reference:    uuid.NewString(),
		TechnicianID: technicianID,
		DeviceID:     deviceID,
		VerifiedAt:   now,
		Status:       models.VerificationCompleted,
	}
	if payload != nil {
		entry.Latitude = payload.Latitude
		entry.Longitude = payload.Longitude
		entry.Notes = payload.Notes
		if payload.GPSTime != nil {
			t := payload.GPSTime.UTC()
			entry.GPSTime = &t
		}
	}
	if err := r.Store.InsertVerification(ctx, &entry); err != nil {
		return Result{}, err
	}
	return Result{Log: entry, Created: true}, nil
}

func (r Recorder) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}
