package models

// UserRole is the join between users and roles. The `user_roles` table uses
// a composite primary key (user_id, role_id) and has no single `id` column.
type UserRole struct {
	UserID int64 `gorm:"primaryKey"`
	RoleID int64 `gorm:"primaryKey"`
}
