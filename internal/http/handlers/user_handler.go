package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"trackadmin/internal/audit"
	"trackadmin/internal/auth"
	"trackadmin/internal/models"
)

// ListUsers returns users visible to the caller's tenant.
func ListUsers(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		cl, _ := auth.FromContext(c)

		var users []models.User
		if err := scoped(db.Preload("Roles"), cl).Find(&users).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		type userResp struct {
			ID         int64             `json:"id"`
			ResellerID *int64            `json:"reseller_id"`
			Email      string            `json:"email"`
			Name       string            `json:"name"`
			Status     models.UserStatus `json:"status"`
			Roles      []string          `json:"roles"`
		}
		out := make([]userResp, 0, len(users))
		for _, u := range users {
			slugs := make([]string, 0, len(u.Roles))
			for _, r := range u.Roles {
				slugs = append(slugs, r.Slug)
			}
			out = append(out, userResp{
				ID: u.ID, ResellerID: u.ResellerID, Email: u.Email,
				Name: u.Name, Status: u.Status, Roles: slugs,
			})
		}
		c.JSON(http.StatusOK, gin.H{"users": out})
	}
}

// CreateUser inserts a new user
func CreateUser(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		cl, _ := auth.FromContext(c)

		var in struct {
			ResellerID *int64 `json:"reseller_id"`
			Email      string `json:"email" binding:"required,email"`
			Name       string `json:"name" binding:"required"`
			Password   string `json:"password" binding:"required"`
		}
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		// Basic normalization
		in.Email = strings.TrimSpace(strings.ToLower(in.Email))
		in.Name = strings.TrimSpace(in.Name)

		if len(in.Password) < 8 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "password must be at least 8 characters"})
			return
		}

		// Reseller admins only create accounts inside their own tenant.
		if cl != nil && cl.ResellerID != nil {
			in.ResellerID = cl.ResellerID
		}

		var existing int64
		if err := db.Model(&models.User{}).Where("email = ?", in.Email).Count(&existing).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if existing > 0 {
			c.JSON(http.StatusConflict, gin.H{"error": "email already exists"})
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to hash password"})
			return
		}

		user := models.User{
			ResellerID:   in.ResellerID,
			Email:        in.Email,
			Name:         in.Name,
			Status:       models.UserActive,
			PasswordHash: string(hash),
		}
		if err := db.Create(&user).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		audit.Record(db, c, "user.create", "user", user.ID, map[string]interface{}{"email": user.Email})

		// Safe response (no password hash)
		c.JSON(http.StatusCreated, gin.H{"user": gin.H{
			"id": user.ID, "reseller_id": user.ResellerID,
			"email": user.Email, "name": user.Name, "status": user.Status,
		}})
	}
}

func setUserStatus(db *gorm.DB, c *gin.Context, status models.UserStatus, action string) {
	cl, _ := auth.FromContext(c)

	var user models.User
	if err := scoped(db, cl).First(&user, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	if err := db.Model(&user).Update("status", status).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	audit.Record(db, c, action, "user", user.ID, nil)
	c.JSON(http.StatusOK, gin.H{"message": "user " + string(status)})
}

func DeactivateUser(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		setUserStatus(db, c, models.UserSuspended, "user.deactivate")
	}
}

func ActivateUser(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		setUserStatus(db, c, models.UserActive, "user.activate")
	}
}

// ChangePassword sets a new password for the target user.
func ChangePassword(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		cl, _ := auth.FromContext(c)

		var in struct {
			Password string `json:"password" binding:"required"`
		}
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if len(in.Password) < 8 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "password must be at least 8 characters"})
			return
		}

		var user models.User
		if err := scoped(db, cl).First(&user, c.Param("id")).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to hash password"})
			return
		}
		if err := db.Model(&user).Update("password_hash", string(hash)).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		audit.Record(db, c, "user.change_password", "user", user.ID, nil)
		c.JSON(http.StatusOK, gin.H{"message": "password updated"})
	}
}

// AssignRoles replaces the target user's role set.
// Expects JSON: { "roles": ["technician", ...] }
func AssignRoles(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		cl, _ := auth.FromContext(c)

		var in struct {
			Roles []string `json:"roles" binding:"required"`
		}
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		var user models.User
		if err := scoped(db, cl).First(&user, c.Param("id")).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}

		var roles []models.Role
		for _, slug := range in.Roles {
			r, ok := auth.ParseRole(slug)
			if !ok {
				c.JSON(http.StatusBadRequest, gin.H{"error": "unknown role: " + slug})
				return
			}
			var role models.Role
			if err := db.Where("slug = ?", string(r)).First(&role).Error; err != nil {
				c.JSON(http.StatusNotFound, gin.H{"error": "role not found: " + slug})
				return
			}
			roles = append(roles, role)
		}

		err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("user_id = ?", user.ID).Delete(&models.UserRole{}).Error; err != nil {
				return err
			}
			for _, role := range roles {
				if res := tx.Exec("INSERT IGNORE INTO user_roles (user_id, role_id) VALUES (?, ?)",
					user.ID, role.ID); res.Error != nil {
					return res.Error
				}
			}
			return nil
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		audit.Record(db, c, "user.assign_roles", "user", user.ID, map[string]interface{}{"roles": in.Roles})
		c.JSON(http.StatusOK, gin.H{"message": "roles assigned"})
	}
}
