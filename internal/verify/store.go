package verify

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"trackadmin/internal/models"
)

// GormStore implements Store. Run the recorder against a transaction-bound
// *gorm.DB when the read-then-insert must be atomic.
type GormStore struct {
	DB *gorm.DB
}

func (s GormStore) TechnicianByID(ctx context.Context, id int64) (*models.Technician, error) {
	var tech models.Technician
	err := s.DB.WithContext(ctx).First(&tech, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tech, nil
}

func (s GormStore) DeviceByID(ctx context.Context, id int64) (*models.Device, error) {
	var dev models.Device
	err := s.DB.WithContext(ctx).First(&dev, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &dev, nil
}

func (s GormStore) LastVerification(ctx context.Context, technicianID, deviceID int64) (*models.VerificationLog, error) {
	var entry models.VerificationLog
	err := s.DB.WithContext(ctx).
		Where("technician_id = ? AND device_id = ?", technicianID, deviceID).
		Order("verified_at DESC").
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (s GormStore) InsertVerification(ctx context.Context, entry *models.VerificationLog) error {
	return s.DB.WithContext(ctx).Create(entry).Error
}
