package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"trackadmin/internal/auth"
	"trackadmin/internal/models"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var deviceExportHeader = []string{
	"IMEI", "Label", "Model", "Status", "Reseller ID", "Created",
}

var verificationExportHeader = []string{
	"Reference", "Technician ID", "Device IMEI", "Verified At (UTC)",
	"Latitude", "Longitude", "Notes", "Status",
}

func writeHeader(f *excelize.File, sheet string, header []string) error {
	for i, title := range header {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, title); err != nil {
			return err
		}
	}
	return nil
}

// ExportDevices streams the caller's device inventory as an xlsx workbook.
func ExportDevices(db *gorm.DB, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		cl, _ := auth.FromContext(c)

		var devices []models.Device
		if err := scoped(db, cl).Order("id").Find(&devices).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		f := excelize.NewFile()
		defer f.Close()
		sheet := f.GetSheetName(0)

		if err := writeHeader(f, sheet, deviceExportHeader); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		for i, d := range devices {
			resellerID := ""
			if d.ResellerID != nil {
				resellerID = fmt.Sprintf("%d", *d.ResellerID)
			}
			row := []interface{}{
				d.IMEI, d.Label, d.Model, string(d.Status), resellerID,
				d.CreatedAt.UTC().Format(time.RFC3339),
			}
			cell, _ := excelize.CoordinatesToCellName(1, i+2)
			if err := f.SetSheetRow(sheet, cell, &row); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
		}

		buf, err := f.WriteToBuffer()
		if err != nil {
			log.Error("device export failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
			return
		}

		filename := fmt.Sprintf("devices_%s.xlsx", time.Now().UTC().Format("20060102_150405"))
		c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
		c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
	}
}

// ExportVerifications streams verification logs as an xlsx workbook,
// honoring the same tenant scoping as the list endpoint.
func ExportVerifications(db *gorm.DB, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		cl, ok := auth.FromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		query := db.Model(&models.VerificationLog{}).Order("id")
		if cl.ResellerID != nil {
			sub := db.Model(&models.Technician{}).Select("id").Where("reseller_id = ?", *cl.ResellerID)
			query = query.Where("technician_id IN (?)", sub)
		}
		if from, err := time.Parse(time.RFC3339, c.Query("from")); err == nil {
			query = query.Where("verified_at >= ?", from)
		}
		if to, err := time.Parse(time.RFC3339, c.Query("to")); err == nil {
			query = query.Where("verified_at <= ?", to)
		}

		var logs []models.VerificationLog
		if err := query.Find(&logs).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		// Device IMEIs resolved in one pass instead of per row.
		deviceIDs := make([]int64, 0, len(logs))
		for _, l := range logs {
			deviceIDs = append(deviceIDs, l.DeviceID)
		}
		imeis := map[int64]string{}
		if len(deviceIDs) > 0 {
			var devices []models.Device
			if err := db.Where("id IN ?", deviceIDs).Find(&devices).Error; err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			for _, d := range devices {
				imeis[d.ID] = d.IMEI
			}
		}

		f := excelize.NewFile()
		defer f.Close()
		sheet := f.GetSheetName(0)

		if err := writeHeader(f, sheet, verificationExportHeader); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		for i, l := range logs {
			lat, lon := "", ""
			if l.Latitude != nil {
				lat = fmt.Sprintf("%.6f", *l.Latitude)
			}
			if l.Longitude != nil {
				lon = fmt.Sprintf("%.6f", *l.Longitude)
			}
			row := []interface{}{
				l.Reference, l.TechnicianID, imeis[l.DeviceID],
				l.VerifiedAt.UTC().Format(time.RFC3339),
				lat, lon, l.Notes, string(l.Status),
			}
			cell, _ := excelize.CoordinatesToCellName(1, i+2)
			if err := f.SetSheetRow(sheet, cell, &row); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
		}

		buf, err := f.WriteToBuffer()
		if err != nil {
			log.Error("verification export failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
			return
		}

		filename := fmt.Sprintf("verifications_%s.xlsx", time.Now().UTC().Format("20060102_150405"))
		c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
		c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
	}
}
