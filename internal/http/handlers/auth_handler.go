package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"trackadmin/internal/audit"
	"trackadmin/internal/auth"
	"trackadmin/internal/models"
)

// LoginHandler authenticates the user and returns JWT
func LoginHandler(db *gorm.DB, jwtSecret string, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Email    string `json:"email" binding:"required,email"`
			Password string `json:"password" binding:"required"`
		}

		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		var user models.User
		if err := db.Preload("Roles").Where("email = ?", input.Email).First(&user).Error; err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
			log.Warn("failed login attempt", zap.String("email", input.Email), zap.String("ip", c.ClientIP()))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
			return
		}
		if user.Status != models.UserActive {
			c.JSON(http.StatusForbidden, gin.H{"error": "account suspended"})
			return
		}

		// Resolve the role enum once, at the boundary.
		slugs := make([]string, 0, len(user.Roles))
		for _, r := range user.Roles {
			slugs = append(slugs, r.Slug)
		}
		role, ok := auth.Strongest(slugs)
		if !ok {
			c.JSON(http.StatusForbidden, gin.H{"error": "no role assigned"})
			return
		}

		claims := auth.Claims{
			UserID:     user.ID,
			ResellerID: user.ResellerID,
			Email:      user.Email,
			Role:       role,
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
				IssuedAt:  jwt.NewNumericDate(time.Now()),
			},
		}
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
		tokenString, err := token.SignedString([]byte(jwtSecret))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create token"})
			return
		}

		// Cookie for browser clients, JSON token for API clients.
		c.SetCookie("token", tokenString, 3600*24, "/", "", false, true)

		audit.Record(db, c, "auth.login", "user", user.ID, nil)

		c.JSON(http.StatusOK, gin.H{
			"token": tokenString,
			"user": gin.H{
				"email":       user.Email,
				"name":        user.Name,
				"role":        role,
				"reseller_id": user.ResellerID,
			},
		})
	}
}

// LogoutHandler clears the auth cookie.
func LogoutHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.SetCookie("token", "", -1, "/", "", false, true)
		c.JSON(http.StatusOK, gin.H{"message": "logged out"})
	}
}

// MeHandler returns the authenticated user's profile, role and permissions.
func MeHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		cl, ok := auth.FromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var user models.User
		if err := db.Preload("Roles").First(&user, cl.UserID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}

		var permKeys []string
		if err := db.Table("user_roles ur").
			Joins("JOIN role_permissions rp ON rp.role_id = ur.role_id").
			Joins("JOIN permissions p ON p.id = rp.permission_id").
			Where("ur.user_id = ?", cl.UserID).
			Distinct().
			Pluck("p.`key`", &permKeys).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"user": gin.H{
				"id":          user.ID,
				"email":       user.Email,
				"name":        user.Name,
				"reseller_id": user.ResellerID,
				"role":        cl.Role,
			},
			"permissions": permKeys,
		})
	}
}
