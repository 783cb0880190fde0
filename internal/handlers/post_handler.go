package handlers

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"holophrame-api/internal/database"
	"holophrame-api/internal/models"
	"holophrame-api/internal/realtime"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CreatePostRequest represents the request payload for creating a post
type CreatePostRequest struct {
	Content  string `json:"content" binding:"required"`
	ParentID string `json:"parentId"`
}

// UpdatePostRequest represents the request payload for editing a post
type UpdatePostRequest struct {
	Content string `json:"content" binding:"required"`
}

// PostHandler serves the feed and post CRUD, fanning out realtime events
// after each successful write.
type PostHandler struct {
	events *realtime.Dispatcher
	log    *zap.SugaredLogger
}

func NewPostHandler(events *realtime.Dispatcher, log *zap.SugaredLogger) *PostHandler {
	return &PostHandler{events: events, log: log}
}

func pageParams(c *gin.Context, defaultLimit int) (page, limit, offset int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err = strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))
	if err != nil || limit < 1 {
		limit = defaultLimit
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit, (page - 1) * limit
}

/*
*
Create handles POST /api/posts
Creates a top-level post or a reply. Top-level posts are broadcast to the
feed of every connected user; a reply instead produces a notification for
the parent post's author.
*/
func (h *PostHandler) Create(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID not found in token"})
		return
	}

	var req CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Post content is required"})
		return
	}
	content := strings.TrimSpace(req.Content)
	if content == "" || utf8.RuneCountInString(content) > models.MaxPostLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Post must be 1-500 characters"})
		return
	}

	db := database.GetDB()

	var parent models.Post
	if req.ParentID != "" {
		if err := db.Where("id = ?", req.ParentID).First(&parent).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Parent post not found"})
			} else {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create post"})
			}
			return
		}
		if parent.IsReply() {
			// Threading is one level deep
			c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot reply to a reply"})
			return
		}
	}

	post := models.Post{
		ID:       uuid.NewString(),
		AuthorID: userID,
		Content:  content,
		ParentID: req.ParentID,
	}
	if err := db.Create(&post).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create post"})
		return
	}

	authors, err := authorsByID(db, []string{userID})
	if err == nil {
		post.Author = authors[userID]
	}

	if post.IsReply() {
		h.notifyReply(db, &post, &parent)
	} else {
		// Only top-level posts reach the live feed
		h.events.PostCreated(post)
	}

	h.log.Infow("post created", "post_id", post.ID, "user_id", userID)

	c.JSON(http.StatusCreated, gin.H{"post": post})
}

// notifyReply records a notification for the parent author and pushes it to
// their live connections. Self-replies produce no notification.
func (h *PostHandler) notifyReply(db *gorm.DB, reply, parent *models.Post) {
	if parent.AuthorID == reply.AuthorID {
		return
	}
	notification := models.Notification{
		ID:     uuid.NewString(),
		UserID: parent.AuthorID,
		FromID: reply.AuthorID,
		From:   reply.Author,
		Kind:   models.NotificationReply,
		PostID: parent.ID,
	}
	if err := db.Create(&notification).Error; err != nil {
		h.log.Errorw("failed to store reply notification", "error", err)
		return
	}
	h.events.NotificationCreated(parent.AuthorID, notification)
}

/*
*
Feed handles GET /api/feed
Returns the chronological feed of top-level posts with their replies,
excluding authors the requesting user has blocked or muted.
*/
func (h *PostHandler) Feed(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID not found in token"})
		return
	}
	page, limit, offset := pageParams(c, 20)

	db := database.GetDB()
	excluded, err := excludedAuthorIDs(db, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load feed"})
		return
	}

	query := db.Model(&models.Post{}).Where("parent_id = ?", "")
	if len(excluded) > 0 {
		query = query.Where("author_id NOT IN ?", excluded)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load feed"})
		return
	}

	var posts []models.Post
	if err := query.Session(&gorm.Session{}).
		Order("created_at desc").Limit(limit).Offset(offset).
		Find(&posts).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load feed"})
		return
	}

	if err := h.loadReplies(db, posts); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load feed"})
		return
	}
	if err := attachAuthors(db, posts); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load feed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"posts":      posts,
		"page":       page,
		"totalPages": int(math.Ceil(float64(total) / float64(limit))),
		"hasMore":    int64(offset+len(posts)) < total,
	})
}

// loadReplies attaches each post's replies, oldest first, authors included.
func (h *PostHandler) loadReplies(db *gorm.DB, posts []models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	ids := make([]string, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
	}
	var replies []models.Post
	if err := db.Where("parent_id IN ?", ids).Order("created_at asc").Find(&replies).Error; err != nil {
		return err
	}
	if err := attachAuthors(db, replies); err != nil {
		return err
	}
	byParent := make(map[string][]models.Post)
	for _, r := range replies {
		byParent[r.ParentID] = append(byParent[r.ParentID], r)
	}
	for i := range posts {
		posts[i].Replies = byParent[posts[i].ID]
	}
	return nil
}

/*
*
Public handles GET /api/feed/public
Returns the latest top-level posts for unauthenticated visitors.
*/
func (h *PostHandler) Public(c *gin.Context) {
	_, limit, _ := pageParams(c, 5)

	db := database.GetDB()
	var posts []models.Post
	if err := db.Where("parent_id = ?", "").
		Order("created_at desc").Limit(limit).
		Find(&posts).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load posts"})
		return
	}
	if err := attachAuthors(db, posts); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load posts"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"posts": posts})
}

// Get handles GET /api/posts/:id
// Returns a single post with its replies.
func (h *PostHandler) Get(c *gin.Context) {
	db := database.GetDB()

	var post models.Post
	if err := db.Where("id = ?", c.Param("id")).First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load post"})
		}
		return
	}

	posts := []models.Post{post}
	if err := h.loadReplies(db, posts); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load post"})
		return
	}
	if err := attachAuthors(db, posts); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load post"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"post": posts[0]})
}

// Update handles PUT /api/posts/:id
// Edits a post owned by the authenticated user, inside the 5 minute window.
func (h *PostHandler) Update(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID not found in token"})
		return
	}

	var req UpdatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Post content is required"})
		return
	}
	content := strings.TrimSpace(req.Content)
	if content == "" || utf8.RuneCountInString(content) > models.MaxPostLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Post must be 1-500 characters"})
		return
	}

	db := database.GetDB()
	var post models.Post
	if err := db.Where("id = ?", c.Param("id")).First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to edit post"})
		}
		return
	}
	if post.AuthorID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not authorized to edit this post"})
		return
	}
	if !post.Editable(time.Now()) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Edit window expired (5 minutes)"})
		return
	}

	editedAt := time.Now()
	post.Content = content
	post.EditedAt = &editedAt
	if err := db.Save(&post).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to edit post"})
		return
	}

	// Edits are broadcast to everyone connected; block and mute only
	// filter the feed query, not the event stream.
	h.events.PostEdited(gin.H{
		"id":       post.ID,
		"content":  post.Content,
		"editedAt": post.EditedAt,
	})

	h.log.Infow("post edited", "post_id", post.ID, "user_id", userID)

	c.JSON(http.StatusOK, gin.H{"post": post})
}

// Delete handles DELETE /api/posts/:id
// Deletes a post owned by the authenticated user along with its replies.
func (h *PostHandler) Delete(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID not found in token"})
		return
	}

	db := database.GetDB()
	var post models.Post
	if err := db.Where("id = ?", c.Param("id")).First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete post"})
		}
		return
	}
	if post.AuthorID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not authorized to delete this post"})
		return
	}

	if err := db.Where("parent_id = ?", post.ID).Delete(&models.Post{}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete post"})
		return
	}
	if err := db.Delete(&post).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete post"})
		return
	}

	h.events.PostDeleted(post.ID)

	h.log.Infow("post deleted", "post_id", post.ID, "user_id", userID)

	c.JSON(http.StatusOK, gin.H{"message": "Post deleted successfully"})
}

// Bookmark handles POST /api/posts/:id/bookmark
func (h *PostHandler) Bookmark(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID not found in token"})
		return
	}

	db := database.GetDB()
	var post models.Post
	if err := db.Where("id = ?", c.Param("id")).First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to bookmark post"})
		}
		return
	}

	var count int64
	db.Model(&models.Bookmark{}).Where("user_id = ? AND post_id = ?", userID, post.ID).Count(&count)
	if count > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Post already bookmarked"})
		return
	}

	if err := db.Create(&models.Bookmark{UserID: userID, PostID: post.ID}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to bookmark post"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Post bookmarked successfully"})
}

// Unbookmark handles DELETE /api/posts/:id/bookmark
func (h *PostHandler) Unbookmark(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID not found in token"})
		return
	}

	db := database.GetDB()
	if err := db.Where("user_id = ? AND post_id = ?", userID, c.Param("id")).
		Delete(&models.Bookmark{}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove bookmark"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Bookmark removed successfully"})
}

// Bookmarks handles GET /api/bookmarks
// Returns the authenticated user's bookmarked posts, newest first.
func (h *PostHandler) Bookmarks(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID not found in token"})
		return
	}
	page, limit, offset := pageParams(c, 20)

	db := database.GetDB()
	var total int64
	if err := db.Model(&models.Bookmark{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load bookmarks"})
		return
	}

	var posts []models.Post
	if err := db.
		Joins("JOIN bookmarks ON bookmarks.post_id = posts.id").
		Where("bookmarks.user_id = ?", userID).
		Order("posts.created_at desc").
		Limit(limit).Offset(offset).
		Find(&posts).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load bookmarks"})
		return
	}

	if err := h.loadReplies(db, posts); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load bookmarks"})
		return
	}
	if err := attachAuthors(db, posts); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load bookmarks"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"posts":      posts,
		"page":       page,
		"totalPages": int(math.Ceil(float64(total) / float64(limit))),
		"hasMore":    int64(offset+len(posts)) < total,
	})
}
