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

func ListTechnicians(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		cl, _ := auth.FromContext(c)

		var technicians []models.Technician
		if err := scoped(db.Preload("User"), cl).Find(&technicians).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"technicians": technicians})
	}
}

// CreateTechnician links an existing user account to a technician profile.
func CreateTechnician(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		cl, _ := auth.FromContext(c)

		var in struct {
			UserID       int64  `json:"user_id" binding:"required"`
			ResellerID   *int64 `json:"reseller_id"`
			EmployeeCode string `json:"employee_code"`
			Phone        string `json:"phone"`
			DailyLimit   int    `json:"daily_limit"`
		}
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if in.DailyLimit < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "daily_limit must not be negative"})
			return
		}

		if cl != nil && cl.ResellerID != nil {
			in.ResellerID = cl.ResellerID
		}

		var user models.User
		if err := db.First(&user, in.UserID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}

		var existing int64
		if err := db.Model(&models.Technician{}).Where("user_id = ?", in.UserID).Count(&existing).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if existing > 0 {
			c.JSON(http.StatusConflict, gin.H{"error": "user already has a technician profile"})
			return
		}

		tech := models.Technician{
			ResellerID:   in.ResellerID,
			UserID:       in.UserID,
			EmployeeCode: strings.TrimSpace(in.EmployeeCode),
			Phone:        strings.TrimSpace(in.Phone),
			DailyLimit:   in.DailyLimit,
			Status:       models.TechnicianActive,
		}
		if err := db.Create(&tech).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		audit.Record(db, c, "technician.create", "technician", tech.ID, map[string]interface{}{"user_id": in.UserID})
		c.JSON(http.StatusCreated, gin.H{"technician": tech})
	}
}

func UpdateTechnician(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		cl, _ := auth.FromContext(c)

		var tech models.Technician
		if err := scoped(db, cl).First(&tech, c.Param("id")).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "technician not found"})
			return
		}

		var in struct {
			EmployeeCode *string `json:"employee_code"`
			Phone        *string `json:"phone"`
			DailyLimit   *int    `json:"daily_limit"`
		}
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		updates := map[string]interface{}{}
		if in.EmployeeCode != nil {
			updates["employee_code"] = strings.TrimSpace(*in.EmployeeCode)
		}
		if in.Phone != nil {
			updates["phone"] = strings.TrimSpace(*in.Phone)
		}
		if in.DailyLimit != nil {
			if *in.DailyLimit < 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "daily_limit must not be negative"})
				return
			}
			updates["daily_limit"] = *in.DailyLimit
		}
		if len(updates) > 0 {
			if err := db.Model(&tech).Updates(updates).Error; err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
		}

		audit.Record(db, c, "technician.update", "technician", tech.ID, nil)
		c.JSON(http.StatusOK, gin.H{"technician": tech})
	}
}

// DisableTechnician soft-disables the technician. Profiles are never hard
// deleted so verification history stays attributable.
func DisableTechnician(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		cl, _ := auth.FromContext(c)

		var tech models.Technician
		if err := scoped(db, cl).First(&tech, c.Param("id")).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "technician not found"})
			return
		}
		if err := db.Model(&tech).Update("status", models.TechnicianDisabled).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		audit.Record(db, c, "technician.disable", "technician", tech.ID, nil)
		c.JSON(http.StatusOK, gin.H{"message": "technician disabled"})
	}
}
