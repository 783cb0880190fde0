package handlers

import (
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"holophrame-api/internal/database"
	"holophrame-api/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// UpdateProfileRequest represents the profile update payload
type UpdateProfileRequest struct {
	Bio *string `json:"bio"`
}

// UserHandler serves profiles, search, and block/mute relationships.
type UserHandler struct {
	log *zap.SugaredLogger
}

func NewUserHandler(log *zap.SugaredLogger) *UserHandler {
	return &UserHandler{log: log}
}

// Profile handles GET /api/users/profile/:username
// Returns a public profile with the user's recent top-level posts.
func (h *UserHandler) Profile(c *gin.Context) {
	db := database.GetDB()

	var user models.User
	if err := db.Where("username = ?", c.Param("username")).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load user profile"})
		}
		return
	}

	var posts []models.Post
	if err := db.Where("author_id = ? AND parent_id = ?", user.ID, "").
		Order("created_at desc").Limit(20).
		Find(&posts).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load user profile"})
		return
	}
	for i := range posts {
		posts[i].Author = models.Author{ID: user.ID, Username: user.Username, Bio: user.Bio}
	}

	c.JSON(http.StatusOK, gin.H{
		"user":  user.PublicProfile(),
		"posts": posts,
	})
}

// Search handles GET /api/users/search/:query
// Case-insensitive substring match on usernames.
func (h *UserHandler) Search(c *gin.Context) {
	query := strings.TrimSpace(c.Param("query"))
	if query == "" {
		c.JSON(http.StatusOK, gin.H{"users": []models.PublicProfile{}})
		return
	}

	var users []models.User
	if err := database.GetDB().
		Where("username LIKE ?", "%"+query+"%").
		Limit(20).Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Search failed"})
		return
	}

	results := make([]models.PublicProfile, 0, len(users))
	for i := range users {
		results = append(results, users[i].PublicProfile())
	}

	c.JSON(http.StatusOK, gin.H{"users": results})
}

// UpdateProfile handles PATCH /api/users/profile
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID not found in token"})
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	db := database.GetDB()
	var user models.User
	if err := db.Where("id = ?", userID).First(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
		return
	}

	if req.Bio != nil {
		if utf8.RuneCountInString(*req.Bio) > models.MaxBioLength {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Bio must be 200 characters or less"})
			return
		}
		user.Bio = *req.Bio
	}

	if err := db.Save(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
		return
	}

	h.log.Infow("profile updated", "user_id", userID)

	c.JSON(http.StatusOK, gin.H{"user": user.PublicProfile()})
}

// BlockedMuted handles GET /api/users/settings/blocked-muted
// Returns the caller's blocked and muted user lists for the settings page.
func (h *UserHandler) BlockedMuted(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID not found in token"})
		return
	}

	db := database.GetDB()
	var relations []models.UserRelation
	if err := db.Where("user_id = ?", userID).Find(&relations).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load blocked and muted users"})
		return
	}

	targetIDs := make([]string, 0, len(relations))
	for _, r := range relations {
		targetIDs = append(targetIDs, r.TargetID)
	}
	targets, err := authorsByID(db, targetIDs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load blocked and muted users"})
		return
	}

	blocked := make([]models.Author, 0)
	muted := make([]models.Author, 0)
	for _, r := range relations {
		target, ok := targets[r.TargetID]
		if !ok {
			// Skip deleted users
			continue
		}
		switch r.Kind {
		case models.RelationBlock:
			blocked = append(blocked, target)
		case models.RelationMute:
			muted = append(muted, target)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"blocked": blocked,
		"muted":   muted,
	})
}

// Block handles POST /api/users/block/:userId
func (h *UserHandler) Block(c *gin.Context) {
	h.addRelation(c, models.RelationBlock, "block", "blocked")
}

// Unblock handles DELETE /api/users/block/:userId
func (h *UserHandler) Unblock(c *gin.Context) {
	h.removeRelation(c, models.RelationBlock, "unblock", "unblocked")
}

// Mute handles POST /api/users/mute/:userId
func (h *UserHandler) Mute(c *gin.Context) {
	h.addRelation(c, models.RelationMute, "mute", "muted")
}

// Unmute handles DELETE /api/users/mute/:userId
func (h *UserHandler) Unmute(c *gin.Context) {
	h.removeRelation(c, models.RelationMute, "unmute", "unmuted")
}

func (h *UserHandler) addRelation(c *gin.Context, kind models.RelationKind, verb, past string) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID not found in token"})
		return
	}
	targetID := c.Param("userId")
	if targetID == userID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot " + verb + " yourself"})
		return
	}

	db := database.GetDB()
	var target models.User
	if err := db.Where("id = ?", targetID).First(&target).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to " + verb + " user"})
		}
		return
	}

	if exists, err := hasRelation(db, userID, targetID, kind); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to " + verb + " user"})
		return
	} else if exists {
		c.JSON(http.StatusBadRequest, gin.H{"error": "User already " + past})
		return
	}

	relation := models.UserRelation{UserID: userID, TargetID: targetID, Kind: kind}
	if err := db.Create(&relation).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to " + verb + " user"})
		return
	}

	h.log.Infow("user relation added", "user_id", userID, "target_id", targetID, "kind", kind)

	c.JSON(http.StatusOK, gin.H{"message": "User " + past + " successfully"})
}

func (h *UserHandler) removeRelation(c *gin.Context, kind models.RelationKind, verb, past string) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID not found in token"})
		return
	}

	if err := database.GetDB().
		Where("user_id = ? AND target_id = ? AND kind = ?", userID, c.Param("userId"), kind).
		Delete(&models.UserRelation{}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to " + verb + " user"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "User " + past + " successfully"})
}
