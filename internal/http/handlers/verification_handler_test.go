package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"trackadmin/internal/auth"
	"trackadmin/internal/limits"
	"trackadmin/internal/models"
)

func setupHandlerDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Reseller{},
		&models.User{},
		&models.Role{},
		&models.Permission{},
		&models.Technician{},
		&models.Device{},
		&models.Tag{},
		&models.TagItem{},
		&models.ImeiRestriction{},
		&models.VerificationLog{},
		&models.AuditLog{},
	))
	return db
}

// newVerificationRouter builds a router with the claims middleware faked so
// the workflow handlers run against a known caller.
func newVerificationRouter(db *gorm.DB, cl *auth.Claims) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("claims", cl)
		c.Next()
	})
	counter := limits.Counter{DB: db}
	log := zap.NewNop()
	r.POST("/verifications", RecordVerification(db, counter, log))
	r.GET("/access/check", CheckAccess(db, log))
	return r
}

type verificationFixture struct {
	resellerID int64
	user       models.User
	tech       models.Technician
	device     models.Device
}

func seedVerificationFixture(t *testing.T, db *gorm.DB) verificationFixture {
	reseller := models.Reseller{Name: "Acme Trackers", Slug: "acme", Status: models.ResellerActive}
	require.NoError(t, db.Create(&reseller).Error)

	user := models.User{
		ResellerID: &reseller.ID,
		Email:      "field@acme.test",
		Name:       "Field Tech",
		Status:     models.UserActive,
	}
	require.NoError(t, db.Create(&user).Error)

	tech := models.Technician{
		ResellerID: &reseller.ID,
		UserID:     user.ID,
		Status:     models.TechnicianActive,
	}
	require.NoError(t, db.Create(&tech).Error)

	device := models.Device{
		ResellerID: &reseller.ID,
		IMEI:       "356938035643809",
		Label:      "Van 1",
		Status:     models.DeviceActive,
	}
	require.NoError(t, db.Create(&device).Error)

	return verificationFixture{resellerID: reseller.ID, user: user, tech: tech, device: device}
}

func technicianClaims(fx verificationFixture) *auth.Claims {
	rid := fx.resellerID
	return &auth.Claims{UserID: fx.user.ID, ResellerID: &rid, Role: auth.RoleTechnician}
}

func postJSON(t *testing.T, r *gin.Engine, path string, body map[string]interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, resp
}

func getJSON(t *testing.T, r *gin.Engine, path string) (*httptest.ResponseRecorder, map[string]interface{}) {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, resp
}

func TestRecordVerificationDenialIsDecisionNotError(t *testing.T) {
	db := setupHandlerDB(t)
	fx := seedVerificationFixture(t, db)

	deny := models.ImeiRestriction{
		TechnicianID: fx.tech.ID,
		DeviceID:     &fx.device.ID,
		AccessType:   models.AccessDeny,
		Priority:     10,
		IsPermanent:  true,
		Reason:       "stolen unit",
		Status:       models.RestrictionActive,
	}
	require.NoError(t, db.Create(&deny).Error)

	r := newVerificationRouter(db, technicianClaims(fx))
	w, resp := postJSON(t, r, "/verifications", map[string]interface{}{"imei": fx.device.IMEI})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, resp["recorded"])
	assert.Equal(t, false, resp["has_access"])
	assert.Equal(t, "stolen unit", resp["restriction_reason"])

	var logs int64
	require.NoError(t, db.Model(&models.VerificationLog{}).Count(&logs).Error)
	assert.Zero(t, logs)
}

func TestRecordVerificationDailyLimitRefusalIsDecisionNotError(t *testing.T) {
	db := setupHandlerDB(t)
	fx := seedVerificationFixture(t, db)
	require.NoError(t, db.Model(&models.Technician{}).Where("id = ?", fx.tech.ID).Update("daily_limit", 1).Error)

	other := models.Device{ResellerID: fx.device.ResellerID, IMEI: "356938035643810", Status: models.DeviceActive}
	require.NoError(t, db.Create(&other).Error)

	prior := models.VerificationLog{
		Reference:    "11111111-1111-1111-1111-111111111111",
		TechnicianID: fx.tech.ID,
		DeviceID:     fx.device.ID,
		VerifiedAt:   time.Now().UTC(),
		Status:       models.VerificationCompleted,
	}
	require.NoError(t, db.Create(&prior).Error)

	r := newVerificationRouter(db, technicianClaims(fx))
	w, resp := postJSON(t, r, "/verifications", map[string]interface{}{"imei": other.IMEI})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, resp["recorded"])
	assert.Equal(t, true, resp["limit_reached"])

	var logs int64
	require.NoError(t, db.Model(&models.VerificationLog{}).Count(&logs).Error)
	assert.Equal(t, int64(1), logs)
}

func TestRecordVerificationReusedRowDoesNotConsumeLimit(t *testing.T) {
	db := setupHandlerDB(t)
	fx := seedVerificationFixture(t, db)
	require.NoError(t, db.Model(&models.Technician{}).Where("id = ?", fx.tech.ID).Update("daily_limit", 2).Error)

	devB := models.Device{ResellerID: fx.device.ResellerID, IMEI: "356938035643810", Status: models.DeviceActive}
	devC := models.Device{ResellerID: fx.device.ResellerID, IMEI: "356938035643811", Status: models.DeviceActive}
	require.NoError(t, db.Create(&devB).Error)
	require.NoError(t, db.Create(&devC).Error)

	r := newVerificationRouter(db, technicianClaims(fx))

	w, resp := postJSON(t, r, "/verifications", map[string]interface{}{"imei": fx.device.IMEI})
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, true, resp["created"])
	firstID := resp["verification_id"]

	// Repeat within the gap: reused, and must not count against the limit.
	w, resp = postJSON(t, r, "/verifications", map[string]interface{}{"imei": fx.device.IMEI})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, resp["created"])
	assert.Equal(t, firstID, resp["verification_id"])

	// Second slot is still free because the reuse consumed nothing.
	w, resp = postJSON(t, r, "/verifications", map[string]interface{}{"imei": devB.IMEI})
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, true, resp["created"])

	// Now the limit of 2 is spent.
	w, resp = postJSON(t, r, "/verifications", map[string]interface{}{"imei": devC.IMEI})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, resp["recorded"])
	assert.Equal(t, true, resp["limit_reached"])

	var logs int64
	require.NoError(t, db.Model(&models.VerificationLog{}).Count(&logs).Error)
	assert.Equal(t, int64(2), logs)
}

func TestRecordVerificationOnBehalfScopedToAdminTenant(t *testing.T) {
	db := setupHandlerDB(t)
	fx := seedVerificationFixture(t, db)

	admin := models.User{ResellerID: &fx.resellerID, Email: "admin@acme.test", Name: "Acme Admin", Status: models.UserActive}
	require.NoError(t, db.Create(&admin).Error)

	otherReseller := models.Reseller{Name: "Rival", Slug: "rival", Status: models.ResellerActive}
	require.NoError(t, db.Create(&otherReseller).Error)
	otherUser := models.User{ResellerID: &otherReseller.ID, Email: "field@rival.test", Status: models.UserActive}
	require.NoError(t, db.Create(&otherUser).Error)
	otherTech := models.Technician{ResellerID: &otherReseller.ID, UserID: otherUser.ID, Status: models.TechnicianActive}
	require.NoError(t, db.Create(&otherTech).Error)

	rid := fx.resellerID
	cl := &auth.Claims{UserID: admin.ID, ResellerID: &rid, Role: auth.RoleResellerAdmin}
	r := newVerificationRouter(db, cl)

	// Another tenant's technician is invisible to this admin.
	w, resp := postJSON(t, r, "/verifications", map[string]interface{}{
		"imei":          fx.device.IMEI,
		"technician_id": otherTech.ID,
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "technician not found", resp["error"])

	// A technician inside the admin's tenant works.
	w, resp = postJSON(t, r, "/verifications", map[string]interface{}{
		"imei":          fx.device.IMEI,
		"technician_id": fx.tech.ID,
	})
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, true, resp["created"])
}

func TestCheckAccessHandlerDenialAndDefaultAllow(t *testing.T) {
	db := setupHandlerDB(t)
	fx := seedVerificationFixture(t, db)

	admin := models.User{ResellerID: &fx.resellerID, Email: "admin@acme.test", Status: models.UserActive}
	require.NoError(t, db.Create(&admin).Error)
	rid := fx.resellerID
	cl := &auth.Claims{UserID: admin.ID, ResellerID: &rid, Role: auth.RoleResellerAdmin}
	r := newVerificationRouter(db, cl)

	path := fmt.Sprintf("/access/check?technician_id=%d&imei=%s", fx.tech.ID, fx.device.IMEI)

	// No restrictions configured: default allow.
	w, resp := getJSON(t, r, path)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, resp["has_access"])

	deny := models.ImeiRestriction{
		TechnicianID: fx.tech.ID,
		DeviceID:     &fx.device.ID,
		AccessType:   models.AccessDeny,
		IsPermanent:  true,
		Reason:       "unit under recall",
		Status:       models.RestrictionActive,
	}
	require.NoError(t, db.Create(&deny).Error)

	// Denial is a 200-level decision carrying the rule's reason.
	w, resp = getJSON(t, r, path)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, resp["has_access"])
	assert.Equal(t, "unit under recall", resp["restriction_reason"])
}
