package audit

import (
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"trackadmin/internal/auth"
	"trackadmin/internal/models"
)

// Record appends an audit row for the current request. Best effort: audit
// failures never fail the action being audited.
func Record(db *gorm.DB, c *gin.Context, action, resourceType string, resourceID int64, meta map[string]interface{}) {
	var initiatorName string
	var initiatorID int64
	var resellerID *int64
	if cl, ok := auth.FromContext(c); ok {
		initiatorID = cl.UserID
		resellerID = cl.ResellerID
		var u models.User
		if err := db.First(&u, cl.UserID).Error; err == nil {
			initiatorName = u.Name
		}
	}

	var metaJSON datatypes.JSON
	if meta != nil {
		if b, err := json.Marshal(meta); err == nil {
			metaJSON = datatypes.JSON(b)
		}
	}

	entry := models.AuditLog{
		ResellerID:    resellerID,
		UserID:        initiatorID,
		Action:        action,
		ResourceType:  resourceType,
		ResourceID:    resourceID,
		Metadata:      metaJSON,
		IP:            c.ClientIP(),
		UserAgent:     c.GetHeader("User-Agent"),
		InitiatorName: initiatorName,
		CreatedAt:     time.Now(),
	}
	_ = db.Create(&entry).Error
}
