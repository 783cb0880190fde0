package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"holophrame-api/internal/database"
	"holophrame-api/internal/middleware"
	"holophrame-api/internal/models"
	"holophrame-api/internal/realtime"
	"holophrame-api/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type messageTestEnv struct {
	router *gin.Engine
	hub    *realtime.Hub
}

func newMessageEnv(t *testing.T) *messageTestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db, err := testutil.NewInMemoryDB()
	require.NoError(t, err)
	database.DB = db

	hub := realtime.NewHub()
	events := realtime.NewDispatcher(hub, zap.NewNop().Sugar())
	h := NewMessageHandler(events, zap.NewNop().Sugar())

	r := gin.New()
	protected := r.Group("", middleware.JWTAuthMiddleware())
	protected.GET("/api/messages/conversations", h.Conversations)
	protected.GET("/api/messages/conversation/:userId", h.Conversation)
	protected.POST("/api/messages/send", h.Send)
	protected.GET("/api/messages/unread-count", h.UnreadCount)
	protected.PUT("/api/messages/mark-read/:userId", h.MarkRead)

	return &messageTestEnv{router: r, hub: hub}
}

func TestSendMessage_DeliversToRecipientConnections(t *testing.T) {
	env := newMessageEnv(t)
	alice := seedUser(t, "u-1", "alice")
	seedUser(t, "u-2", "bob")

	bobTab1 := &recordingClient{}
	bobTab2 := &recordingClient{}
	env.hub.Register("u-2", bobTab1)
	env.hub.Register("u-2", bobTab2)

	w := authedJSON(t, env.router, http.MethodPost, "/api/messages/send", alice, map[string]string{
		"recipientId": "u-2",
		"content":     "hi bob",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	for _, client := range []*recordingClient{bobTab1, bobTab2} {
		frames := client.frames(t)
		require.Len(t, frames, 1)
		require.Equal(t, "new_message", frames[0]["type"])
		msg := frames[0]["message"].(map[string]any)
		require.Equal(t, "hi bob", msg["content"])
		require.Equal(t, "alice", msg["sender"].(map[string]any)["username"])
	}
}

func TestSendMessage_OfflineRecipientStillPersists(t *testing.T) {
	env := newMessageEnv(t)
	alice := seedUser(t, "u-1", "alice")
	seedUser(t, "u-2", "bob")

	w := authedJSON(t, env.router, http.MethodPost, "/api/messages/send", alice, map[string]string{
		"recipientId": "u-2",
		"content":     "read this later",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var count int64
	database.GetDB().Model(&models.Message{}).Where("recipient_id = ?", "u-2").Count(&count)
	require.EqualValues(t, 1, count)
}

func TestSendMessage_Rejections(t *testing.T) {
	env := newMessageEnv(t)
	alice := seedUser(t, "u-1", "alice")
	seedUser(t, "u-2", "bob")

	// To yourself
	w := authedJSON(t, env.router, http.MethodPost, "/api/messages/send", alice, map[string]string{
		"recipientId": "u-1", "content": "hi me",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	// Unknown recipient
	w = authedJSON(t, env.router, http.MethodPost, "/api/messages/send", alice, map[string]string{
		"recipientId": "u-404", "content": "anyone there",
	})
	require.Equal(t, http.StatusNotFound, w.Code)

	// Recipient has blocked the sender
	block := models.UserRelation{UserID: "u-2", TargetID: "u-1", Kind: models.RelationBlock}
	require.NoError(t, database.GetDB().Create(&block).Error)
	w = authedJSON(t, env.router, http.MethodPost, "/api/messages/send", alice, map[string]string{
		"recipientId": "u-2", "content": "hello?",
	})
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestSendMessage_LimitCountsCharactersNotBytes(t *testing.T) {
	env := newMessageEnv(t)
	alice := seedUser(t, "u-1", "alice")
	seedUser(t, "u-2", "bob")

	// 800 runes but 1600 bytes; inside the 1000-character limit
	w := authedJSON(t, env.router, http.MethodPost, "/api/messages/send", alice, map[string]string{
		"recipientId": "u-2", "content": strings.Repeat("é", 800),
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = authedJSON(t, env.router, http.MethodPost, "/api/messages/send", alice, map[string]string{
		"recipientId": "u-2", "content": strings.Repeat("é", models.MaxMessageLength+1),
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUnreadCount_AndMarkRead(t *testing.T) {
	env := newMessageEnv(t)
	alice := seedUser(t, "u-1", "alice")
	bob := seedUser(t, "u-2", "bob")

	for _, content := range []string{"one", "two"} {
		w := authedJSON(t, env.router, http.MethodPost, "/api/messages/send", alice, map[string]string{
			"recipientId": "u-2", "content": content,
		})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := authedJSON(t, env.router, http.MethodGet, "/api/messages/unread-count", bob, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Count int64 `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.EqualValues(t, 2, resp.Count)

	w = authedJSON(t, env.router, http.MethodPut, "/api/messages/mark-read/u-1", bob, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = authedJSON(t, env.router, http.MethodGet, "/api/messages/unread-count", bob, nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.EqualValues(t, 0, resp.Count)
}

func TestConversations_ListsPeersWithUnread(t *testing.T) {
	env := newMessageEnv(t)
	alice := seedUser(t, "u-1", "alice")
	bob := seedUser(t, "u-2", "bob")

	w := authedJSON(t, env.router, http.MethodPost, "/api/messages/send", alice, map[string]string{
		"recipientId": "u-2", "content": "first",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = authedJSON(t, env.router, http.MethodGet, "/api/messages/conversations", bob, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Conversations []struct {
			User        models.Author  `json:"user"`
			LastMessage map[string]any `json:"lastMessage"`
			UnreadCount int64          `json:"unreadCount"`
		} `json:"conversations"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Conversations, 1)
	require.Equal(t, "alice", resp.Conversations[0].User.Username)
	require.EqualValues(t, 1, resp.Conversations[0].UnreadCount)
	require.Equal(t, false, resp.Conversations[0].LastMessage["isFromMe"])

	// Opening the conversation marks it read
	w = authedJSON(t, env.router, http.MethodGet, "/api/messages/conversation/u-1", bob, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = authedJSON(t, env.router, http.MethodGet, "/api/messages/conversations", bob, nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Conversations, 1)
	require.EqualValues(t, 0, resp.Conversations[0].UnreadCount)
}
