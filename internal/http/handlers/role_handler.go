package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"trackadmin/internal/audit"
	"trackadmin/internal/auth"
	"trackadmin/internal/models"
)

func ListRoles(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var roles []models.Role
		if err := db.Preload("Permissions").Find(&roles).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"roles": roles})
	}
}

// SetRolePermissions replaces a role's permission set.
// Expects JSON: { "permissions": ["devices:read", ...] }
func SetRolePermissions(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in struct {
			Permissions []string `json:"permissions" binding:"required"`
		}
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		var role models.Role
		if err := db.First(&role, c.Param("id")).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "role not found"})
			return
		}
		if role.IsSystem && role.Slug == string(auth.RoleSuperAdmin) {
			c.JSON(http.StatusForbidden, gin.H{"error": "super admin permissions are fixed"})
			return
		}

		var permIDs []int64
		for _, key := range in.Permissions {
			var perm models.Permission
			if err := db.Where("`key` = ?", key).First(&perm).Error; err != nil {
				c.JSON(http.StatusNotFound, gin.H{"error": "permission not found: " + key})
				return
			}
			permIDs = append(permIDs, perm.ID)
		}

		err := db.Transaction(func(tx *gorm.DB) error {
			if res := tx.Exec("DELETE FROM role_permissions WHERE role_id = ?", role.ID); res.Error != nil {
				return res.Error
			}
			for _, pid := range permIDs {
				if res := tx.Exec("INSERT IGNORE INTO role_permissions (role_id, permission_id) VALUES (?, ?)",
					role.ID, pid); res.Error != nil {
					return res.Error
				}
			}
			return nil
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		audit.Record(db, c, "role.set_permissions", "role", role.ID, map[string]interface{}{"permissions": in.Permissions})
		c.JSON(http.StatusOK, gin.H{"message": "permissions updated"})
	}
}
