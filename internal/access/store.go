package access

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"trackadmin/internal/models"
)

// GormStore implements Store over the relational schema.
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

func (s GormStore) RestrictionsByTechnician(ctx context.Context, technicianID int64) ([]models.ImeiRestriction, error) {
	var rules []models.ImeiRestriction
	err := s.DB.WithContext(ctx).
		Where("technician_id = ? AND status = ?", technicianID, models.RestrictionActive).
		Find(&rules).Error
	return rules, err
}

func (s GormStore) TagItemsByTag(ctx context.Context, tagID int64) ([]models.TagItem, error) {
	var items []models.TagItem
	err := s.DB.WithContext(ctx).Where("tag_id = ?", tagID).Find(&items).Error
	return items, err
}
