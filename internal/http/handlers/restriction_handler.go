package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"trackadmin/internal/audit"
	"trackadmin/internal/auth"
	"trackadmin/internal/models"
)

// ListRestrictions returns a technician's restriction rules.
func ListRestrictions(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		cl, _ := auth.FromContext(c)

		var tech models.Technician
		if err := scoped(db, cl).First(&tech, c.Param("id")).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "technician not found"})
			return
		}

		var rules []models.ImeiRestriction
		if err := db.Where("technician_id = ?", tech.ID).Order("priority DESC, created_at DESC").Find(&rules).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"restrictions": rules})
	}
}

// CreateRestriction adds a restriction rule for a technician. Exactly one
// of device_id / tag_id must be set.
func CreateRestriction(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		cl, _ := auth.FromContext(c)

		var in struct {
			DeviceID    *int64     `json:"device_id"`
			TagID       *int64     `json:"tag_id"`
			AccessType  int        `json:"access_type" binding:"required"`
			Priority    int        `json:"priority"`
			IsPermanent *bool      `json:"is_permanent"`
			ValidFrom   *time.Time `json:"valid_from"`
			ValidUntil  *time.Time `json:"valid_until"`
			Reason      string     `json:"reason"`
		}
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if (in.DeviceID == nil) == (in.TagID == nil) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "exactly one of device_id or tag_id must be set"})
			return
		}
		accessType := models.AccessType(in.AccessType)
		if accessType != models.AccessAllow && accessType != models.AccessDeny {
			c.JSON(http.StatusBadRequest, gin.H{"error": "access_type must be 1 (allow) or 2 (deny)"})
			return
		}

		var tech models.Technician
		if err := scoped(db, cl).First(&tech, c.Param("id")).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "technician not found"})
			return
		}
		if in.DeviceID != nil {
			var dev models.Device
			if err := db.First(&dev, *in.DeviceID).Error; err != nil {
				c.JSON(http.StatusNotFound, gin.H{"error": "device not found"})
				return
			}
		}
		if in.TagID != nil {
			var tag models.Tag
			if err := db.First(&tag, *in.TagID).Error; err != nil {
				c.JSON(http.StatusNotFound, gin.H{"error": "tag not found"})
				return
			}
		}

		permanent := true
		if in.IsPermanent != nil {
			permanent = *in.IsPermanent
		}
		if !permanent && in.ValidFrom != nil && in.ValidUntil != nil && in.ValidUntil.Before(*in.ValidFrom) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "valid_until precedes valid_from"})
			return
		}

		rule := models.ImeiRestriction{
			TechnicianID: tech.ID,
			DeviceID:     in.DeviceID,
			TagID:        in.TagID,
			AccessType:   accessType,
			Priority:     in.Priority,
			IsPermanent:  permanent,
			ValidFrom:    in.ValidFrom,
			ValidUntil:   in.ValidUntil,
			Reason:       in.Reason,
			Status:       models.RestrictionActive,
		}
		if err := db.Create(&rule).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		audit.Record(db, c, "restriction.create", "restriction", rule.ID, map[string]interface{}{
			"technician_id": tech.ID, "access_type": in.AccessType,
		})
		c.JSON(http.StatusCreated, gin.H{"restriction": rule})
	}
}

func UpdateRestriction(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var rule models.ImeiRestriction
		if err := db.First(&rule, c.Param("id")).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "restriction not found"})
			return
		}

		var in struct {
			Priority    *int       `json:"priority"`
			IsPermanent *bool      `json:"is_permanent"`
			ValidFrom   *time.Time `json:"valid_from"`
			ValidUntil  *time.Time `json:"valid_until"`
			Reason      *string    `json:"reason"`
			Status      *string    `json:"status"`
		}
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		updates := map[string]interface{}{}
		if in.Priority != nil {
			updates["priority"] = *in.Priority
		}
		if in.IsPermanent != nil {
			updates["is_permanent"] = *in.IsPermanent
		}
		if in.ValidFrom != nil {
			updates["valid_from"] = *in.ValidFrom
		}
		if in.ValidUntil != nil {
			updates["valid_until"] = *in.ValidUntil
		}
		if in.Reason != nil {
			updates["reason"] = *in.Reason
		}
		if in.Status != nil {
			status := models.RestrictionStatus(*in.Status)
			switch status {
			case models.RestrictionActive, models.RestrictionInactive, models.RestrictionExpired:
				updates["status"] = status
			default:
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
				return
			}
		}
		if len(updates) > 0 {
			if err := db.Model(&rule).Updates(updates).Error; err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
		}

		audit.Record(db, c, "restriction.update", "restriction", rule.ID, nil)
		c.JSON(http.StatusOK, gin.H{"restriction": rule})
	}
}

func DeactivateRestriction(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var rule models.ImeiRestriction
		if err := db.First(&rule, c.Param("id")).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "restriction not found"})
			return
		}
		if err := db.Model(&rule).Update("status", models.RestrictionInactive).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		audit.Record(db, c, "restriction.deactivate", "restriction", rule.ID, nil)
		c.JSON(http.StatusOK, gin.H{"message": "restriction deactivated"})
	}
}
