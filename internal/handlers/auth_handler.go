package handlers

import (
	"errors"
	"net/http"
	"regexp"
	"time"
	"unicode/utf8"

	"holophrame-api/internal/auth"
	"holophrame-api/internal/database"
	"holophrame-api/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_]{3,20}$`)
	emailRe    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// RegisterRequest represents the registration payload
type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Bio      string `json:"bio"`
}

// LoginRequest represents the login request payload
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AuthHandler serves registration and login.
type AuthHandler struct {
	log *zap.SugaredLogger
}

func NewAuthHandler(log *zap.SugaredLogger) *AuthHandler {
	return &AuthHandler{log: log}
}

// Register handles POST /api/auth/register. Registration returns no token;
// the client must log in afterwards.
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Username, email, and password are required",
		})
		return
	}

	if !usernameRe.MatchString(req.Username) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Username must be 3-20 characters, letters, numbers, and underscores only",
		})
		return
	}
	if !emailRe.MatchString(req.Email) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid email address"})
		return
	}
	if len(req.Password) < 8 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Password must be at least 8 characters"})
		return
	}
	if utf8.RuneCountInString(req.Bio) > models.MaxBioLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Bio must be 200 characters or less"})
		return
	}

	// Check if user exists
	var existing models.User
	err := database.GetDB().Where("username = ? OR email = ?", req.Username, req.Email).First(&existing).Error
	if err == nil {
		msg := "Email already registered"
		if existing.Username == req.Username {
			msg = "Username already taken"
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Registration failed"})
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Registration failed"})
		return
	}

	user := models.User{
		ID:         uuid.NewString(),
		Username:   req.Username,
		Email:      req.Email,
		Password:   string(hashed),
		Bio:        req.Bio,
		LastActive: time.Now(),
	}
	if err := database.GetDB().Create(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Registration failed"})
		return
	}

	h.log.Infow("new user registered", "username", user.Username)

	c.JSON(http.StatusCreated, gin.H{
		"message":  "Registration successful. Please login.",
		"username": user.Username,
	})
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Username and password are required",
		})
		return
	}

	var user models.User
	if err := database.GetDB().Where("username = ?", req.Username).First(&user).Error; err != nil {
		// Same response for unknown user and bad password
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	user.LastActive = time.Now()
	database.GetDB().Model(&user).Update("last_active", user.LastActive)

	token, err := auth.GenerateToken(user.ID, user.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	h.log.Infow("user logged in", "username", user.Username)

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  user.PublicProfile(),
	})
}
