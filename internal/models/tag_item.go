package models

import "time"

type TagEntityType string

const (
	TagEntityDevice     TagEntityType = "device"
	TagEntityTechnician TagEntityType = "technician"
	TagEntityReseller   TagEntityType = "reseller"
	TagEntityUser       TagEntityType = "user"
)

type TagItem struct {
	ID         int64         `gorm:"primaryKey"`
	TagID      int64         `gorm:"index:idx_tag_entity,unique;not null"`
	EntityType TagEntityType `gorm:"size:16;index:idx_tag_entity,unique;not null"`
	EntityID   int64         `gorm:"index:idx_tag_entity,unique;not null"`
	CreatedAt  time.Time
}
