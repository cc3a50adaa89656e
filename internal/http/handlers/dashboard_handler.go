package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"trackadmin/internal/auth"
	"trackadmin/internal/models"
)

// Dashboard returns role-scoped counts for the caller's tenant: fleet size,
// today's verification activity and recent denials.
func Dashboard(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		cl, ok := auth.FromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		now := time.Now().UTC()
		startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

		var technicians, devices int64
		if err := scoped(db.Model(&models.Technician{}), cl).Count(&technicians).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if err := scoped(db.Model(&models.Device{}), cl).Count(&devices).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		verifQuery := db.Model(&models.VerificationLog{}).Where("verified_at >= ?", startOfDay)
		if cl.Role == auth.RoleTechnician {
			if own, err := callerTechnician(db, cl); err == nil && own != nil {
				verifQuery = verifQuery.Where("technician_id = ?", own.ID)
			}
		} else if cl.ResellerID != nil {
			sub := db.Model(&models.Technician{}).Select("id").Where("reseller_id = ?", *cl.ResellerID)
			verifQuery = verifQuery.Where("technician_id IN (?)", sub)
		}
		var verificationsToday int64
		if err := verifQuery.Count(&verificationsToday).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		denialQuery := db.Model(&models.AuditLog{}).
			Where("action IN ?", []string{"access.denied", "verification.denied"}).
			Where("created_at >= ?", startOfDay)
		if cl.ResellerID != nil {
			denialQuery = denialQuery.Where("reseller_id = ?", *cl.ResellerID)
		}
		var denialsToday int64
		if err := denialQuery.Count(&denialsToday).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		var activeRestrictions int64
		restrQuery := db.Model(&models.ImeiRestriction{}).Where("status = ?", models.RestrictionActive)
		if cl.ResellerID != nil {
			sub := db.Model(&models.Technician{}).Select("id").Where("reseller_id = ?", *cl.ResellerID)
			restrQuery = restrQuery.Where("technician_id IN (?)", sub)
		}
		if err := restrQuery.Count(&activeRestrictions).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"technicians":         technicians,
			"devices":             devices,
			"verifications_today": verificationsToday,
			"denials_today":       denialsToday,
			"active_restrictions": activeRestrictions,
		})
	}
}
