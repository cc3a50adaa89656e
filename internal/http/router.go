package httpserver

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"trackadmin/internal/auth"
	"trackadmin/internal/http/handlers"
	"trackadmin/internal/limits"
	"trackadmin/internal/rbac"
)

func NewRouter(db *gorm.DB, jwtSecret string, counter limits.Counter, log *zap.Logger) *gin.Engine {
	r := gin.Default()

	// Public routes
	r.POST("/api/v1/auth/login", handlers.LoginHandler(db, jwtSecret, log))
	r.GET("/logout", handlers.LogoutHandler())

	chk := rbac.Checker{DB: db}
	authMW := auth.JWT(db, jwtSecret)

	api := r.Group("/api/v1", authMW)
	{
		// Current user info & permissions
		api.GET("/me", handlers.MeHandler(db))

		// Resellers (platform administration)
		api.GET("/resellers", require(chk, "resellers:read"), handlers.ListResellers(db))
		api.POST("/resellers", require(chk, "resellers:write"), handlers.CreateReseller(db))
		api.PATCH("/resellers/:id", require(chk, "resellers:write"), handlers.UpdateReseller(db))
		api.POST("/resellers/:id/deactivate", require(chk, "resellers:write"), handlers.DeactivateReseller(db))

		// Users
		api.GET("/users", require(chk, "users:read"), handlers.ListUsers(db))
		api.POST("/users", require(chk, "users:write"), handlers.CreateUser(db))
		api.POST("/users/:id/deactivate", require(chk, "users:write"), handlers.DeactivateUser(db))
		api.POST("/users/:id/activate", require(chk, "users:write"), handlers.ActivateUser(db))
		api.POST("/users/:id/password", require(chk, "users:write"), handlers.ChangePassword(db))
		api.POST("/users/:id/roles", require(chk, "users:assign-role"), handlers.AssignRoles(db))

		// Roles
		api.GET("/roles", require(chk, "roles:read"), handlers.ListRoles(db))
		api.POST("/roles/:id/permissions", require(chk, "roles:write"), handlers.SetRolePermissions(db))

		// Technicians
		api.GET("/technicians", require(chk, "technicians:read"), handlers.ListTechnicians(db))
		api.POST("/technicians", require(chk, "technicians:write"), handlers.CreateTechnician(db))
		api.PATCH("/technicians/:id", require(chk, "technicians:write"), handlers.UpdateTechnician(db))
		api.POST("/technicians/:id/disable", require(chk, "technicians:write"), handlers.DisableTechnician(db))

		// IMEI restrictions, nested under the technician they scope
		api.GET("/technicians/:id/restrictions", require(chk, "restrictions:read"), handlers.ListRestrictions(db))
		api.POST("/technicians/:id/restrictions", require(chk, "restrictions:write"), handlers.CreateRestriction(db))
		api.PATCH("/restrictions/:id", require(chk, "restrictions:write"), handlers.UpdateRestriction(db))
		api.POST("/restrictions/:id/deactivate", require(chk, "restrictions:write"), handlers.DeactivateRestriction(db))

		// Devices
		api.GET("/devices", require(chk, "devices:read"), handlers.ListDevices(db))
		api.GET("/devices/export", require(chk, "devices:export"), handlers.ExportDevices(db, log))
		api.GET("/devices/imei/:imei", require(chk, "devices:read"), handlers.GetDeviceByIMEI(db))
		api.POST("/devices", require(chk, "devices:write"), handlers.CreateDevice(db))
		api.PATCH("/devices/:id", require(chk, "devices:write"), handlers.UpdateDevice(db))

		// Tags
		api.GET("/tags", require(chk, "tags:read"), handlers.ListTags(db))
		api.POST("/tags", require(chk, "tags:write"), handlers.CreateTag(db))
		api.DELETE("/tags/:id", require(chk, "tags:write"), handlers.DeleteTag(db))
		api.POST("/tags/:id/items", require(chk, "tags:write"), handlers.AddTagItem(db))
		api.DELETE("/tags/:id/items/:itemId", require(chk, "tags:write"), handlers.RemoveTagItem(db))

		// Verification workflow
		api.GET("/access/check", require(chk, "verifications:check"), handlers.CheckAccess(db, log))
		api.POST("/verifications", require(chk, "verifications:record"), handlers.RecordVerification(db, counter, log))
		api.GET("/verifications", require(chk, "verifications:read"), handlers.ListVerifications(db))
		api.GET("/verifications/export", require(chk, "verifications:export"), handlers.ExportVerifications(db, log))

		// Dashboard
		api.GET("/dashboard", require(chk, "dashboard:read"), handlers.Dashboard(db))

		// Audit Trail
		api.GET("/audit", require(chk, "audit:read"), handlers.ListAudit(db))
	}

	return r
}

func require(chk rbac.Checker, permKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		cl, ok := auth.FromContext(c)
		if !ok {
			c.AbortWithStatusJSON(401, gin.H{"error": "unauthorized"})
			return
		}
		allowed, err := chk.Can(c, cl.UserID, permKey)
		if err != nil || !allowed {
			c.AbortWithStatusJSON(403, gin.H{"error": "forbidden", "missing": permKey})
			return
		}
		c.Next()
	}
}
