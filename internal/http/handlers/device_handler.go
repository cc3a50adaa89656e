package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"trackadmin/internal/audit"
	"trackadmin/internal/auth"
	"trackadmin/internal/models"
)

// validIMEI checks the 15-digit IMEI shape. Checksum validation is left to
// the device directory that issued the identifier.
func validIMEI(imei string) bool {
	if len(imei) != 15 {
		return false
	}
	for _, r := range imei {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func ListDevices(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		cl, _ := auth.FromContext(c)

		query := scoped(db, cl)
		if search := strings.TrimSpace(c.Query("q")); search != "" {
			like := "%" + search + "%"
			query = query.Where("(imei LIKE ? OR label LIKE ? OR model LIKE ?)", like, like, like)
		}

		var devices []models.Device
		if err := query.Find(&devices).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"devices": devices})
	}
}

// GetDeviceByIMEI resolves a device from its IMEI, for the verification
// workflow's scan step.
func GetDeviceByIMEI(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		cl, _ := auth.FromContext(c)

		imei := strings.TrimSpace(c.Param("imei"))
		if !validIMEI(imei) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "imei must be 15 digits"})
			return
		}

		var device models.Device
		if err := scoped(db, cl).Where("imei = ?", imei).First(&device).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "device not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"device": device})
	}
}

func CreateDevice(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		cl, _ := auth.FromContext(c)

		var in struct {
			ResellerID *int64                 `json:"reseller_id"`
			IMEI       string                 `json:"imei" binding:"required"`
			Label      string                 `json:"label"`
			Model      string                 `json:"model"`
			Metadata   map[string]interface{} `json:"metadata"`
		}
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		in.IMEI = strings.TrimSpace(in.IMEI)
		if !validIMEI(in.IMEI) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "imei must be 15 digits"})
			return
		}
		if cl != nil && cl.ResellerID != nil {
			in.ResellerID = cl.ResellerID
		}

		var existing int64
		if err := db.Model(&models.Device{}).Where("imei = ?", in.IMEI).Count(&existing).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if existing > 0 {
			c.JSON(http.StatusConflict, gin.H{"error": "imei already registered"})
			return
		}

		device := models.Device{
			ResellerID: in.ResellerID,
			IMEI:       in.IMEI,
			Label:      strings.TrimSpace(in.Label),
			Model:      strings.TrimSpace(in.Model),
			Status:     models.DeviceActive,
		}
		if in.Metadata != nil {
			if b, err := json.Marshal(in.Metadata); err == nil {
				device.Metadata = datatypes.JSON(b)
			}
		}
		if err := db.Create(&device).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		audit.Record(db, c, "device.create", "device", device.ID, map[string]interface{}{"imei": device.IMEI})
		c.JSON(http.StatusCreated, gin.H{"device": device})
	}
}

func UpdateDevice(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		cl, _ := auth.FromContext(c)

		var device models.Device
		if err := scoped(db, cl).First(&device, c.Param("id")).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "device not found"})
			return
		}

		var in struct {
			Label  *string              `json:"label"`
			Model  *string              `json:"model"`
			Status *models.DeviceStatus `json:"status"`
		}
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		updates := map[string]interface{}{}
		if in.Label != nil {
			updates["label"] = strings.TrimSpace(*in.Label)
		}
		if in.Model != nil {
			updates["model"] = strings.TrimSpace(*in.Model)
		}
		if in.Status != nil {
			if *in.Status != models.DeviceActive && *in.Status != models.DeviceInactive {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
				return
			}
			updates["status"] = *in.Status
		}
		if len(updates) > 0 {
			if err := db.Model(&device).Updates(updates).Error; err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
		}

		audit.Record(db, c, "device.update", "device", device.ID, nil)
		c.JSON(http.StatusOK, gin.H{"device": device})
	}
}
