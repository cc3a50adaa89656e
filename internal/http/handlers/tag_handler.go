package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"trackadmin/internal/audit"
	"trackadmin/internal/auth"
	"trackadmin/internal/models"
)

func validTagEntity(t models.TagEntityType) bool {
	switch t {
	case models.TagEntityDevice, models.TagEntityTechnician,
		models.TagEntityReseller, models.TagEntityUser:
		return true
	}
	return false
}

// ListTags returns global tags plus the caller's reseller- and user-scoped
// tags.
func ListTags(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		cl, _ := auth.FromContext(c)

		query := db.Preload("Items")
		if cl != nil && cl.ResellerID != nil {
			query = query.Where(
				"scope = ? OR (scope = ? AND reseller_id = ?) OR (scope = ? AND owner_user_id = ?)",
				models.TagScopeGlobal, models.TagScopeReseller, *cl.ResellerID,
				models.TagScopeUser, cl.UserID,
			)
		}

		var tags []models.Tag
		if err := query.Find(&tags).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"tags": tags})
	}
}

func CreateTag(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		cl, _ := auth.FromContext(c)

		var in struct {
			Name        string          `json:"name" binding:"required"`
			Scope       models.TagScope `json:"scope"`
			Description string          `json:"description"`
		}
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if in.Scope == "" {
			in.Scope = models.TagScopeGlobal
		}

		tag := models.Tag{
			Name:        strings.TrimSpace(in.Name),
			Scope:       in.Scope,
			Description: in.Description,
		}
		switch in.Scope {
		case models.TagScopeGlobal:
			if cl != nil && cl.Role != auth.RoleSuperAdmin {
				c.JSON(http.StatusForbidden, gin.H{"error": "only super admin may create global tags"})
				return
			}
		case models.TagScopeReseller:
			if cl == nil || cl.ResellerID == nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "reseller scope requires a reseller account"})
				return
			}
			tag.ResellerID = cl.ResellerID
		case models.TagScopeUser:
			if cl == nil {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
				return
			}
			uid := cl.UserID
			tag.OwnerUserID = &uid
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid scope"})
			return
		}

		if err := db.Create(&tag).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		audit.Record(db, c, "tag.create", "tag", tag.ID, map[string]interface{}{"scope": tag.Scope})
		c.JSON(http.StatusCreated, gin.H{"tag": tag})
	}
}

func DeleteTag(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var tag models.Tag
		if err := db.First(&tag, c.Param("id")).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "tag not found"})
			return
		}

		// Refuse while restriction rules still reference the tag: deleting
		// it would silently change access decisions.
		var refs int64
		if err := db.Model(&models.ImeiRestriction{}).Where("tag_id = ?", tag.ID).Count(&refs).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if refs > 0 {
			c.JSON(http.StatusConflict, gin.H{"error": "tag is referenced by restriction rules"})
			return
		}

		err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("tag_id = ?", tag.ID).Delete(&models.TagItem{}).Error; err != nil {
				return err
			}
			return tx.Delete(&tag).Error
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		audit.Record(db, c, "tag.delete", "tag", tag.ID, nil)
		c.JSON(http.StatusOK, gin.H{"message": "tag deleted"})
	}
}

// AddTagItem attaches an entity to a tag.
// Expects JSON: { "entity_type": "device", "entity_id": 42 }
func AddTagItem(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in struct {
			EntityType models.TagEntityType `json:"entity_type" binding:"required"`
			EntityID   int64                `json:"entity_id" binding:"required"`
		}
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if !validTagEntity(in.EntityType) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid entity_type"})
			return
		}

		var tag models.Tag
		if err := db.First(&tag, c.Param("id")).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "tag not found"})
			return
		}

		item := models.TagItem{TagID: tag.ID, EntityType: in.EntityType, EntityID: in.EntityID}
		if res := db.Exec("INSERT IGNORE INTO tag_items (tag_id, entity_type, entity_id, created_at) VALUES (?, ?, ?, NOW())",
			item.TagID, item.EntityType, item.EntityID); res.Error != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": res.Error.Error()})
			return
		}

		audit.Record(db, c, "tag.add_item", "tag", tag.ID, map[string]interface{}{
			"entity_type": in.EntityType, "entity_id": in.EntityID,
		})
		c.JSON(http.StatusCreated, gin.H{"message": "item added"})
	}
}

func RemoveTagItem(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var tag models.Tag
		if err := db.First(&tag, c.Param("id")).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "tag not found"})
			return
		}

		res := db.Where("tag_id = ? AND id = ?", tag.ID, c.Param("itemId")).Delete(&models.TagItem{})
		if res.Error != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": res.Error.Error()})
			return
		}
		if res.RowsAffected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "tag item not found"})
			return
		}

		audit.Record(db, c, "tag.remove_item", "tag", tag.ID, nil)
		c.JSON(http.StatusOK, gin.H{"message": "item removed"})
	}
}
