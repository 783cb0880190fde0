package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"holophrame-api/internal/cache"
	"holophrame-api/internal/database"
	"holophrame-api/internal/models"
	"holophrame-api/internal/realtime"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// unreadCountTTL bounds how stale the cached unread badge may get; sends and
// reads invalidate it eagerly anyway.
const unreadCountTTL = 10 * time.Second

// SendMessageRequest represents the payload for sending a direct message
type SendMessageRequest struct {
	RecipientID string `json:"recipientId" binding:"required"`
	Content     string `json:"content" binding:"required"`
}

// ConversationSummary is one row in the conversations list.
type ConversationSummary struct {
	User        models.Author `json:"user"`
	LastMessage gin.H         `json:"lastMessage"`
	UnreadCount int64         `json:"unreadCount"`
}

// MessageHandler serves direct messaging. New messages are pushed to the
// recipient's live connections; persisted rows remain the source of truth.
type MessageHandler struct {
	events  *realtime.Dispatcher
	unreads *cache.SimpleCache[string, int64]
	log     *zap.SugaredLogger
}

func NewMessageHandler(events *realtime.Dispatcher, log *zap.SugaredLogger) *MessageHandler {
	return &MessageHandler{
		events:  events,
		unreads: cache.NewSimpleCache[string, int64](),
		log:     log,
	}
}

// Conversations handles GET /api/messages/conversations
// Returns the latest message exchanged with each peer plus an unread count.
func (h *MessageHandler) Conversations(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID not found in token"})
		return
	}

	db := database.GetDB()
	var messages []models.Message
	if err := db.Where("sender_id = ? OR recipient_id = ?", userID, userID).
		Order("created_at desc").Find(&messages).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load conversations"})
		return
	}

	// Messages are newest-first, so the first one seen per peer is the latest.
	latest := make(map[string]models.Message)
	order := make([]string, 0)
	for _, m := range messages {
		peer := m.SenderID
		if peer == userID {
			peer = m.RecipientID
		}
		if _, seen := latest[peer]; !seen {
			latest[peer] = m
			order = append(order, peer)
		}
	}

	peers, err := authorsByID(db, order)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load conversations"})
		return
	}

	conversations := make([]ConversationSummary, 0, len(order))
	for _, peerID := range order {
		peer, ok := peers[peerID]
		if !ok {
			// Skip deleted users
			continue
		}
		var unread int64
		if err := db.Model(&models.Message{}).
			Where("sender_id = ? AND recipient_id = ? AND read = ?", peerID, userID, false).
			Count(&unread).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load conversations"})
			return
		}
		last := latest[peerID]
		conversations = append(conversations, ConversationSummary{
			User: peer,
			LastMessage: gin.H{
				"content":   last.Content,
				"createdAt": last.CreatedAt,
				"isFromMe":  last.SenderID == userID,
			},
			UnreadCount: unread,
		})
	}

	c.JSON(http.StatusOK, gin.H{"conversations": conversations})
}

// Conversation handles GET /api/messages/conversation/:userId
// Returns the message history with one user and marks inbound messages read.
func (h *MessageHandler) Conversation(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID not found in token"})
		return
	}
	peerID := c.Param("userId")

	db := database.GetDB()
	var peer models.User
	if err := db.Where("id = ?", peerID).First(&peer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load conversation"})
		}
		return
	}

	var messages []models.Message
	if err := db.Where(
		"(sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?)",
		userID, peerID, peerID, userID,
	).Order("created_at asc").Limit(50).Find(&messages).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load conversation"})
		return
	}

	senders, err := authorsByID(db, []string{userID, peerID})
	if err == nil {
		for i := range messages {
			messages[i].Sender = senders[messages[i].SenderID]
		}
	}

	// Mark inbound messages from this peer as read
	db.Model(&models.Message{}).
		Where("sender_id = ? AND recipient_id = ? AND read = ?", peerID, userID, false).
		Update("read", true)
	h.unreads.Delete(userID)

	c.JSON(http.StatusOK, gin.H{
		"user":     gin.H{"id": peer.ID, "username": peer.Username},
		"messages": messages,
	})
}

// Send handles POST /api/messages/send
func (h *MessageHandler) Send(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID not found in token"})
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Recipient ID and content are required"})
		return
	}
	content := strings.TrimSpace(req.Content)
	if content == "" || utf8.RuneCountInString(content) > models.MaxMessageLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message must be between 1 and 1000 characters"})
		return
	}
	if req.RecipientID == userID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot send message to yourself"})
		return
	}

	db := database.GetDB()
	var recipient models.User
	if err := db.Where("id = ?", req.RecipientID).First(&recipient).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Recipient not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send message"})
		}
		return
	}

	// Blocks gate messaging in both directions
	if blocked, err := hasRelation(db, recipient.ID, userID, models.RelationBlock); err == nil && blocked {
		c.JSON(http.StatusForbidden, gin.H{"error": "Cannot send message to this user"})
		return
	}
	if blocked, err := hasRelation(db, userID, recipient.ID, models.RelationBlock); err == nil && blocked {
		c.JSON(http.StatusForbidden, gin.H{"error": "You have blocked this user"})
		return
	}

	message := models.Message{
		ID:          uuid.NewString(),
		SenderID:    userID,
		RecipientID: recipient.ID,
		Content:     content,
	}
	if err := db.Create(&message).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send message"})
		return
	}

	senders, err := authorsByID(db, []string{userID})
	if err == nil {
		message.Sender = senders[userID]
	}

	h.unreads.Delete(recipient.ID)
	h.events.MessageSent(recipient.ID, message)

	h.log.Infow("message sent", "from", userID, "to", recipient.ID)

	c.JSON(http.StatusCreated, gin.H{"message": message})
}

// UnreadCount handles GET /api/messages/unread-count
func (h *MessageHandler) UnreadCount(c *gin.Context) {
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
	if err := database.GetDB().Model(&models.Message{}).
		Where("recipient_id = ? AND read = ?", userID, false).
		Count(&count).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get unread count"})
		return
	}
	h.unreads.Set(userID, count, unreadCountTTL)

	c.JSON(http.StatusOK, gin.H{"count": count})
}

// MarkRead handles PUT /api/messages/mark-read/:userId
func (h *MessageHandler) MarkRead(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID not found in token"})
		return
	}

	if err := database.GetDB().Model(&models.Message{}).
		Where("sender_id = ? AND recipient_id = ? AND read = ?", c.Param("userId"), userID, false).
		Update("read", true).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mark as read"})
		return
	}
	h.unreads.Delete(userID)

	c.JSON(http.StatusOK, gin.H{"success": true})
}
