package handlers

import (
	"errors"
	"math"
	"net/http"
	"time"

	"holophrame-api/internal/cache"
	"holophrame-api/internal/database"
	"holophrame-api/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// NotificationHandler serves the per-user notification inbox.
type NotificationHandler struct {
	unreads *cache.SimpleCache[string, int64]
	log     *zap.SugaredLogger
}

func NewNotificationHandler(log *zap.SugaredLogger) *NotificationHandler {
	return &NotificationHandler{
		unreads: cache.NewSimpleCache[string, int64](),
		log:     log,
	}
}

// List handles GET /api/notifications
// Returns the user's notifications, newest first.
func (h *NotificationHandler) List(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID not found in token"})
		return
	}
	page, limit, offset := pageParams(c, 20)

	db := database.GetDB()
	var total int64
	if err := db.Model(&models.Notification{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load notifications"})
		return
	}

	var notifications []models.Notification
	if err := db.Where("user_id = ?", userID).
		Order("created_at desc").Limit(limit).Offset(offset).
		Find(&notifications).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load notifications"})
		return
	}

	fromIDs := make([]string, 0, len(notifications))
	for _, n := range notifications {
		fromIDs = append(fromIDs, n.FromID)
	}
	if authors, err := authorsByID(db, fromIDs); err == nil {
		for i := range notifications {
			notifications[i].From = authors[notifications[i].FromID]
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"notifications": notifications,
		"page":          page,
		"totalPages":    int(math.Ceil(float64(total) / float64(limit))),
		"hasMore":       int64(offset+len(notifications)) < total,
	})
}

// UnreadCount handles GET /api/notifications/unread-count
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID not found in token"})
		return
	}

	if count, ok := h.unreads.Get(userID); ok {
		c.JSON(http.StatusOK, gin.H{"count": count})
		return
	}

	var count int64
	if err := database.GetDB().Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Count(&count).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get unread count"})
		return
	}
	h.unreads.Set(userID, count, 10*time.Second)

	c.JSON(http.StatusOK, gin.H{"count": count})
}

// MarkRead handles PUT /api/notifications/read/:id
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID not found in token"})
		return
	}

	db := database.GetDB()
	var notification models.Notification
	if err := db.Where("id = ? AND user_id = ?", c.Param("id"), userID).First(&notification).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mark notification as read"})
		}
		return
	}

	if err := db.Model(&notification).Update("read", true).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mark notification as read"})
		return
	}
	h.unreads.Delete(userID)

	c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
}

// MarkAllRead handles PUT /api/notifications/read-all
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID not found in token"})
		return
	}

	if err := database.GetDB().Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Update("read", true).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mark all notifications as read"})
		return
	}
	h.unreads.Delete(userID)

	c.JSON(http.StatusOK, gin.H{"message": "All notifications marked as read"})
}

// Delete handles DELETE /api/notifications/delete/:id
func (h *NotificationHandler) Delete(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID not found in token"})
		return
	}

	if err := database.GetDB().
		Where("id = ? AND user_id = ?", c.Param("id"), userID).
		Delete(&models.Notification{}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete notification"})
		return
	}
	h.unreads.Delete(userID)

	c.JSON(http.StatusOK, gin.H{"message": "Notification deleted"})
}
