// api/handlers/auth_handlers.go
package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"globesuggest/api/middleware"
	"globesuggest/api/models"
	"globesuggest/api/utils"
)

const adminSubject = "admin"

// AuthHandlers issues the admin session used by the reporting endpoints.
type AuthHandlers struct {
	PasswordHash []byte
	JWTSecret    []byte
	TokenTTL     time.Duration
	SecureCookie bool
}

func NewAuthHandlers(passwordHash string, jwtSecret []byte, secureCookie bool) *AuthHandlers {
	return &AuthHandlers{
		PasswordHash: []byte(passwordHash),
		JWTSecret:    jwtSecret,
		TokenTTL:     24 * time.Hour,
		SecureCookie: secureCookie,
	}
}

// Login checks the admin password and sets the JWT cookie.
func (h *AuthHandlers) Login(c *gin.Context) {
	var req models.AdminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	if len(h.PasswordHash) == 0 || len(h.JWTSecret) == 0 {
		log.Println("Admin login attempted but ADMIN_PASSWORD_HASH or JWT_SECRET_KEY is unset")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Admin login is not configured"})
		return
	}

	if err := bcrypt.CompareHashAndPassword(h.PasswordHash, []byte(req.Password)); err != nil {
		log.Printf("Admin login failed from %s", c.ClientIP())
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	tokenString, err := utils.GenerateJWT(h.JWTSecret, adminSubject, h.TokenTTL)
	if err != nil {
		log.Printf("ERROR: Failed to generate admin JWT: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate authentication token"})
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(
		middleware.TokenCookie,
		tokenString,
		int(h.TokenTTL/time.Second),
		"/",
		"",
		h.SecureCookie,
		true,
	)

	log.Printf("Admin logged in from %s. JWT issued.", c.ClientIP())
	c.JSON(http.StatusOK, gin.H{"message": "Login successful"})
}

func (h *AuthHandlers) Logout(c *gin.Context) {
	c.SetCookie(middleware.TokenCookie, "", -1, "/", "", h.SecureCookie, true)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}
