package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"trackadmin/internal/access"
	"trackadmin/internal/apperr"
	"trackadmin/internal/audit"
	"trackadmin/internal/auth"
	"trackadmin/internal/limits"
	"trackadmin/internal/models"
	"trackadmin/internal/verify"
)

// resolveDevice looks up the target device by internal id or IMEI, within
// the caller's tenant.
func resolveDevice(db *gorm.DB, cl *auth.Claims, deviceID int64, imei string) (*models.Device, error) {
	query := scoped(db, cl)
	var device models.Device
	var err error
	switch {
	case deviceID > 0:
		err = query.First(&device, deviceID).Error
	case imei != "":
		if !validIMEI(imei) {
			return nil, apperr.ErrValidation
		}
		err = query.Where("imei = ?", imei).First(&device).Error
	default:
		return nil, apperr.ErrValidation
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &device, nil
}

// callerTechnician returns the technician profile linked to the caller's
// user account, nil when there is none.
func callerTechnician(db *gorm.DB, cl *auth.Claims) (*models.Technician, error) {
	var tech models.Technician
	err := db.Where("user_id = ?", cl.UserID).First(&tech).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tech, nil
}

// CheckAccess evaluates whether a technician may view a device. Super Admin
// has unconditional access to everything; every other role goes through the
// resolver, which defaults to allow when no restrictions are configured.
// That default also covers admins with no technician profile at all.
func CheckAccess(db *gorm.DB, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		cl, ok := auth.FromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		deviceID, _ := strconv.ParseInt(c.Query("device_id"), 10, 64)
		device, err := resolveDevice(db, cl, deviceID, strings.TrimSpace(c.Query("imei")))
		if errors.Is(err, apperr.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "device_id or a valid 15-digit imei is required"})
			return
		}
		if errors.Is(err, apperr.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "device not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		var technicianID int64
		if tid := c.Query("technician_id"); tid != "" {
			technicianID, _ = strconv.ParseInt(tid, 10, 64)
			var tech models.Technician
			if err := scoped(db, cl).First(&tech, technicianID).Error; err != nil {
				c.JSON(http.StatusNotFound, gin.H{"error": "technician not found"})
				return
			}
		} else {
			if cl.Role == auth.RoleSuperAdmin {
				c.JSON(http.StatusOK, gin.H{"has_access": true})
				return
			}
			tech, err := callerTechnician(db, cl)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			if tech == nil {
				if cl.Role == auth.RoleTechnician {
					c.JSON(http.StatusNotFound, gin.H{"error": "no technician profile for this account"})
					return
				}
				// Admin roles with no technician profile carry no
				// restriction rows, so the default-allow rule applies.
				c.JSON(http.StatusOK, gin.H{"has_access": true})
				return
			}
			technicianID = tech.ID
		}

		resolver := access.Resolver{Store: access.GormStore{DB: db}}
		dec, err := resolver.Check(c.Request.Context(), technicianID, device.ID, time.Now().UTC())
		if errors.Is(err, apperr.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "technician not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		if !dec.HasAccess {
			log.Info("device access denied",
				zap.Int64("technician_id", technicianID),
				zap.String("imei", device.IMEI),
			)
			audit.Record(db, c, "access.denied", "device", device.ID, map[string]interface{}{
				"technician_id": technicianID,
				"reason":        dec.RestrictionReason,
			})
		}

		resp := gin.H{"has_access": dec.HasAccess}
		if dec.RestrictionReason != "" {
			resp["restriction_reason"] = dec.RestrictionReason
		}
		c.JSON(http.StatusOK, resp)
	}
}

// RecordVerification runs the verification workflow: access check, daily
// limit, then the time-gap recorder. Denial and limit refusals are normal
// decisions, not errors.
func RecordVerification(db *gorm.DB, counter limits.Counter, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		cl, ok := auth.FromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var in struct {
			DeviceID     int64      `json:"device_id"`
			IMEI         string     `json:"imei"`
			TechnicianID *int64     `json:"technician_id"`
			Latitude     *float64   `json:"latitude"`
			Longitude    *float64   `json:"longitude"`
			GPSTime      *time.Time `json:"gps_time"`
			Notes        string     `json:"notes"`
		}
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		device, err := resolveDevice(db, cl, in.DeviceID, strings.TrimSpace(in.IMEI))
		if errors.Is(err, apperr.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "device_id or a valid 15-digit imei is required"})
			return
		}
		if errors.Is(err, apperr.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "device not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		// Technicians always record as themselves; admins may record on
		// behalf of a technician in their tenant.
		var tech models.Technician
		if cl.Role != auth.RoleTechnician && in.TechnicianID != nil {
			if err := scoped(db, cl).First(&tech, *in.TechnicianID).Error; err != nil {
				c.JSON(http.StatusNotFound, gin.H{"error": "technician not found"})
				return
			}
		} else {
			own, err := callerTechnician(db, cl)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			if own == nil {
				c.JSON(http.StatusNotFound, gin.H{"error": "no technician profile for this account"})
				return
			}
			tech = *own
		}
		if tech.Status != models.TechnicianActive {
			c.JSON(http.StatusNotFound, gin.H{"error": "technician not found"})
			return
		}

		now := time.Now().UTC()

		if cl.Role != auth.RoleSuperAdmin {
			resolver := access.Resolver{Store: access.GormStore{DB: db}}
			dec, err := resolver.Check(c.Request.Context(), tech.ID, device.ID, now)
			if err != nil {
				if errors.Is(err, apperr.ErrNotFound) {
					c.JSON(http.StatusNotFound, gin.H{"error": "technician not found"})
					return
				}
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			if !dec.HasAccess {
				audit.Record(db, c, "verification.denied", "device", device.ID, map[string]interface{}{
					"technician_id": tech.ID,
					"reason":        dec.RestrictionReason,
				})
				c.JSON(http.StatusOK, gin.H{
					"recorded":           false,
					"has_access":         false,
					"restriction_reason": dec.RestrictionReason,
				})
				return
			}
		}

		if tech.DailyLimit > 0 {
			count, err := counter.CreatedToday(c.Request.Context(), tech.ID, now)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			if count >= int64(tech.DailyLimit) {
				audit.Record(db, c, "verification.limit_reached", "technician", tech.ID, map[string]interface{}{
					"daily_limit": tech.DailyLimit,
				})
				c.JSON(http.StatusOK, gin.H{
					"recorded":      false,
					"limit_reached": true,
					"daily_limit":   tech.DailyLimit,
				})
				return
			}
		}

		var payload *verify.Payload
		if in.Latitude != nil || in.Longitude != nil || in.GPSTime != nil || in.Notes != "" {
			payload = &verify.Payload{
				Latitude:  in.Latitude,
				Longitude: in.Longitude,
				GPSTime:   in.GPSTime,
				Notes:     in.Notes,
			}
		}

		// Read-then-insert runs inside one transaction so concurrent
		// requests for the same pair cannot both pass the gap check.
		var result verify.Result
		err = db.Transaction(func(tx *gorm.DB) error {
			rec := verify.Recorder{Store: verify.GormStore{DB: tx}}
			var recErr error
			result, recErr = rec.Record(c.Request.Context(), tech.ID, device.ID, payload)
			return recErr
		})
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "technician or device not found"})
				return
			}
			if errors.Is(err, apperr.ErrValidation) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "device id is required"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		if result.Created {
			if err := counter.Increment(c.Request.Context(), tech.ID, now); err != nil {
				log.Warn("daily counter increment failed", zap.Int64("technician_id", tech.ID), zap.Error(err))
			}
			audit.Record(db, c, "verification.record", "device", device.ID, map[string]interface{}{
				"technician_id":   tech.ID,
				"verification_id": result.Log.ID,
			})
		}

		status := http.StatusOK
		if result.Created {
			status = http.StatusCreated
		}
		c.JSON(status, gin.H{
			"recorded":        result.Created,
			"created":         result.Created,
			"verification_id": result.Log.ID,
			"reference":       result.Log.Reference,
			"verified_at":     result.Log.VerifiedAt,
		})
	}
}

// ListVerifications returns verification logs with cursor pagination and
// optional technician/device/date filters.
func ListVerifications(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		cl, ok := auth.FromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		limit := 20
		if limitStr := c.Query("limit"); limitStr != "" {
			if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 && parsed <= 100 {
				limit = parsed
			}
		}
		var afterID int64
		if cursorStr := c.Query("after_id"); cursorStr != "" {
			if parsed, err := strconv.ParseInt(cursorStr, 10, 64); err == nil && parsed > 0 {
				afterID = parsed
			}
		}

		query := db.Model(&models.VerificationLog{}).Order("id DESC")
		if afterID > 0 {
			query = query.Where("id < ?", afterID)
		}

		// Technicians only see their own history; reseller accounts see
		// their tenant's technicians.
		if cl.Role == auth.RoleTechnician {
			own, err := callerTechnician(db, cl)
			if err != nil || own == nil {
				c.JSON(http.StatusOK, gin.H{"verifications": []models.VerificationLog{}})
				return
			}
			query = query.Where("technician_id = ?", own.ID)
		} else if cl.ResellerID != nil {
			sub := db.Model(&models.Technician{}).Select("id").Where("reseller_id = ?", *cl.ResellerID)
			query = query.Where("technician_id IN (?)", sub)
		}

		if tid, err := strconv.ParseInt(c.Query("technician_id"), 10, 64); err == nil && tid > 0 {
			query = query.Where("technician_id = ?", tid)
		}
		if did, err := strconv.ParseInt(c.Query("device_id"), 10, 64); err == nil && did > 0 {
			query = query.Where("device_id = ?", did)
		}
		if from, err := time.Parse(time.RFC3339, c.Query("from")); err == nil {
			query = query.Where("verified_at >= ?", from)
		}
		if to, err := time.Parse(time.RFC3339, c.Query("to")); err == nil {
			query = query.Where("verified_at <= ?", to)
		}

		var logs []models.VerificationLog
		if err := query.Limit(limit + 1).Find(&logs).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		var nextCursor *int64
		if len(logs) > limit {
			next := logs[limit].ID
			logs = logs[:limit]
			nextCursor = &next
		}

		c.JSON(http.StatusOK, gin.H{
			"verifications": logs,
			"next_cursor":   nextCursor,
		})
	}
}
