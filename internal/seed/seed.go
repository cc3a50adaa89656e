package seed

import (
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"go.uber.org/zap"

	"trackadmin/internal/auth"
	"trackadmin/internal/models"
)

// FirstSetup bootstraps the default reseller, the role/permission matrix
// and the initial super admin account. Safe to run on every startup.
func FirstSetup(db *gorm.DB, log *zap.Logger) error {
	// -------------------------
	// 1) Ensure default reseller
	// -------------------------
	reseller := models.Reseller{Name: "Default Reseller", Slug: "default"}
	if err := db.Where("slug = ?", reseller.Slug).FirstOrCreate(&reseller).Error; err != nil {
		return err
	}

	// -------------------------
	// 2) Ensure roles (closed set, see auth.Role)
	// -------------------------
	roleDefs := []models.Role{
		{Name: "Super Admin", Slug: string(auth.RoleSuperAdmin), IsSystem: true},
		{Name: "Reseller Admin", Slug: string(auth.RoleResellerAdmin), IsSystem: true},
		{Name: "Supervisor", Slug: string(auth.RoleSupervisor), IsSystem: true},
		{Name: "Technician", Slug: string(auth.RoleTechnician), IsSystem: true},
	}
	roleIDs := map[string]int64{}
	for _, r := range roleDefs {
		tmp := r
		if err := db.Where("slug = ?", tmp.Slug).FirstOrCreate(&tmp).Error; err != nil {
			return err
		}
		roleIDs[tmp.Slug] = tmp.ID
	}

	// -------------------------
	// 3) Ensure permissions
	// -------------------------
	perms := []models.Permission{
		{Key: "resellers:read", Description: "View resellers", Resource: "resellers", Action: "read"},
		{Key: "resellers:write", Description: "Manage resellers", Resource: "resellers", Action: "write"},
		{Key: "users:read", Description: "View users", Resource: "users", Action: "read"},
		{Key: "users:write", Description: "Manage users", Resource: "users", Action: "write"},
		{Key: "users:assign-role", Description: "Assign roles to users", Resource: "users", Action: "assign-role"},
		{Key: "roles:read", Description: "View roles", Resource: "roles", Action: "read"},
		{Key: "roles:write", Description: "Manage roles", Resource: "roles", Action: "write"},
		{Key: "technicians:read", Description: "View technicians", Resource: "technicians", Action: "read"},
		{Key: "technicians:write", Description: "Manage technicians", Resource: "technicians", Action: "write"},
		{Key: "devices:read", Description: "View devices", Resource: "devices", Action: "read"},
		{Key: "devices:write", Description: "Manage devices", Resource: "devices", Action: "write"},
		{Key: "devices:export", Description: "Export devices", Resource: "devices", Action: "export"},
		{Key: "tags:read", Description: "View tags", Resource: "tags", Action: "read"},
		{Key: "tags:write", Description: "Manage tags", Resource: "tags", Action: "write"},
		{Key: "restrictions:read", Description: "View IMEI restrictions", Resource: "restrictions", Action: "read"},
		{Key: "restrictions:write", Description: "Manage IMEI restrictions", Resource: "restrictions", Action: "write"},
		{Key: "verifications:check", Description: "Check device access", Resource: "verifications", Action: "check"},
		{Key: "verifications:record", Description: "Record verifications", Resource: "verifications", Action: "record"},
		{Key: "verifications:read", Description: "View verification logs", Resource: "verifications", Action: "read"},
		{Key: "verifications:export", Description: "Export verification logs", Resource: "verifications", Action: "export"},
		{Key: "audit:read", Description: "View audit logs", Resource: "audit", Action: "read"},
		{Key: "dashboard:read", Description: "View dashboard", Resource: "dashboard", Action: "read"},
	}

	permIDs := map[string]int64{}
	for _, p := range perms {
		tmp := p
		if err := db.Where("`key` = ?", tmp.Key).FirstOrCreate(&tmp).Error; err != nil {
			return err
		}
		permIDs[tmp.Key] = tmp.ID
	}

	// -------------------------
	// 4) role_permissions mapping
	// -------------------------
	// Use a direct INSERT IGNORE into the join table to avoid GORM's
	// "model value required" error on a table without a model.
	ensureRolePerm := func(roleID, permID int64) error {
		res := db.Exec("INSERT IGNORE INTO role_permissions (role_id, permission_id) VALUES (?, ?)", roleID, permID)
		return res.Error
	}

	// Super admin gets ALL permissions
	for _, pid := range permIDs {
		if err := ensureRolePerm(roleIDs[string(auth.RoleSuperAdmin)], pid); err != nil {
			return err
		}
	}

	resellerAdminKeys := []string{
		"users:read", "users:write", "users:assign-role", "roles:read",
		"technicians:read", "technicians:write",
		"devices:read", "devices:write", "devices:export",
		"tags:read", "tags:write",
		"restrictions:read", "restrictions:write",
		"verifications:check", "verifications:record", "verifications:read", "verifications:export",
		"audit:read", "dashboard:read",
	}
	for _, k := range resellerAdminKeys {
		if err := ensureRolePerm(roleIDs[string(auth.RoleResellerAdmin)], permIDs[k]); err != nil {
			return err
		}
	}

	supervisorKeys := []string{
		"technicians:read", "devices:read", "tags:read", "restrictions:read",
		"verifications:check", "verifications:read", "dashboard:read",
	}
	for _, k := range supervisorKeys {
		if err := ensureRolePerm(roleIDs[string(auth.RoleSupervisor)], permIDs[k]); err != nil {
			return err
		}
	}

	technicianKeys := []string{
		"devices:read", "verifications:check", "verifications:record",
		"verifications:read", "dashboard:read",
	}
	for _, k := range technicianKeys {
		if err := ensureRolePerm(roleIDs[string(auth.RoleTechnician)], permIDs[k]); err != nil {
			return err
		}
	}

	// -------------------------
	// 5) Ensure super admin user
	// -------------------------
	const adminEmail = "admin@example.com"
	const adminPass = "admin123" // change after first login

	passHash, _ := bcrypt.GenerateFromPassword([]byte(adminPass), bcrypt.DefaultCost)

	adminUser := models.User{
		Email:        adminEmail,
		Name:         "Super Admin",
		Status:       models.UserActive,
		PasswordHash: string(passHash),
	}
	if err := db.Where("email = ?", adminEmail).FirstOrCreate(&adminUser).Error; err != nil {
		return err
	}

	// -------------------------
	// 6) user_roles mapping (admin user -> super admin role)
	// -------------------------
	if res := db.Exec("INSERT IGNORE INTO user_roles (user_id, role_id) VALUES (?, ?)",
		adminUser.ID, roleIDs[string(auth.RoleSuperAdmin)]); res.Error != nil {
		return res.Error
	}

	// -------------------------
	// 7) Demo technician + device for first-login walkthroughs
	// -------------------------
	const techEmail = "tech@example.com"
	const techPass = "tech1234" // change after first login

	techHash, _ := bcrypt.GenerateFromPassword([]byte(techPass), bcrypt.DefaultCost)

	techUser := models.User{
		ResellerID:   &reseller.ID,
		Email:        techEmail,
		Name:         "Demo Technician",
		Status:       models.UserActive,
		PasswordHash: string(techHash),
	}
	if err := db.Where("email = ?", techEmail).FirstOrCreate(&techUser).Error; err != nil {
		return err
	}
	if res := db.Exec("INSERT IGNORE INTO user_roles (user_id, role_id) VALUES (?, ?)",
		techUser.ID, roleIDs[string(auth.RoleTechnician)]); res.Error != nil {
		return res.Error
	}

	tech := models.Technician{
		ResellerID:   &reseller.ID,
		UserID:       techUser.ID,
		EmployeeCode: "TECH-001",
		Status:       models.TechnicianActive,
	}
	if err := db.Where("user_id = ?", techUser.ID).FirstOrCreate(&tech).Error; err != nil {
		return err
	}

	demoDevice := models.Device{
		ResellerID: &reseller.ID,
		IMEI:       "356938035643809",
		Label:      "Demo Tracker",
		Model:      "GT-06N",
		Status:     models.DeviceActive,
	}
	if err := db.Where("imei = ?", demoDevice.IMEI).FirstOrCreate(&demoDevice).Error; err != nil {
		return err
	}

	log.Info("seed ok",
		zap.String("admin", adminEmail),
		zap.String("reseller", reseller.Slug),
		zap.Int("permissions", len(perms)),
	)
	return nil
}
