package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"trackadmin/internal/audit"
	"trackadmin/internal/models"
)

func ListResellers(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var resellers []models.Reseller
		if err := db.Find(&resellers).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"resellers": resellers})
	}
}

func CreateReseller(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Name         string `json:"name" binding:"required"`
			Slug         string `json:"slug" binding:"required"`
			ContactEmail string `json:"contact_email"`
			ContactPhone string `json:"contact_phone"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		reseller := models.Reseller{
			Name:         strings.TrimSpace(input.Name),
			Slug:         strings.TrimSpace(strings.ToLower(input.Slug)),
			ContactEmail: input.ContactEmail,
			ContactPhone: input.ContactPhone,
			Status:       models.ResellerActive,
		}
		if err := db.Create(&reseller).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		audit.Record(db, c, "reseller.create", "reseller", reseller.ID, map[string]interface{}{"slug": reseller.Slug})
		c.JSON(http.StatusCreated, gin.H{"reseller": reseller})
	}
}

func UpdateReseller(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var reseller models.Reseller
		if err := db.First(&reseller, c.Param("id")).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "reseller not found"})
			return
		}

		var input struct {
			Name         *string `json:"name"`
			ContactEmail *string `json:"contact_email"`
			ContactPhone *string `json:"contact_phone"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		updates := map[string]interface{}{}
		if input.Name != nil {
			updates["name"] = strings.TrimSpace(*input.Name)
		}
		if input.ContactEmail != nil {
			updates["contact_email"] = *input.ContactEmail
		}
		if input.ContactPhone != nil {
			updates["contact_phone"] = *input.ContactPhone
		}
		if len(updates) > 0 {
			if err := db.Model(&reseller).Updates(updates).Error; err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
		}

		audit.Record(db, c, "reseller.update", "reseller", reseller.ID, nil)
		c.JSON(http.StatusOK, gin.H{"reseller": reseller})
	}
}

func DeactivateReseller(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var reseller models.Reseller
		if err := db.First(&reseller, c.Param("id")).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "reseller not found"})
			return
		}
		if err := db.Model(&reseller).Update("status", models.ResellerDisabled).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		audit.Record(db, c, "reseller.deactivate", "reseller", reseller.ID, nil)
		c.JSON(http.StatusOK, gin.H{"message": "reseller deactivated"})
	}
}
