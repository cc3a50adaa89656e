package models

import "time"

type TagScope string

const (
	TagScopeGlobal   TagScope = "global"
	TagScopeReseller TagScope = "reseller"
	TagScopeUser     TagScope = "user"
)

// Tag is a named collection of entities. Reseller- and user-scoped tags
// carry the owning id; global tags carry neither.
type Tag struct {
	ID          int64    `gorm:"primaryKey"`
	Name        string   `gorm:"size:200;not null"`
	Scope       TagScope `gorm:"size:16;default:global"`
	ResellerID  *int64   `gorm:"index"`
	OwnerUserID *int64   `gorm:"index"`
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Items []TagItem `gorm:"foreignKey:TagID"`
}
