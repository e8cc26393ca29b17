package handlers

import (
	"net/http"
	"strconv"

	"socialfeed/services"

	"github.com/gin-gonic/gin"
)

// CreatePost создает новый пост
func (h *Handler) CreatePost(c *gin.Context) {
	var req struct {
		Content  string  `json:"content" binding:"required"`
		TopicIDs []int64 `json:"topic_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	post, err := h.Posts.CreatePost(c.Request.Context(), userID, req.Content, req.TopicIDs)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

// DeletePost удаляет пост
func (h *Handler) DeletePost(c *gin.Context) {
	postID, ok := paramID(c, "post_id")
	if !ok {
		return
	}
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	if err := h.Posts.DeletePost(c.Request.Context(), userID, postID); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Post deleted successfully"})
}

// HidePost убирает пост из ленты текущего пользователя
func (h *Handler) HidePost(c *gin.Context) {
	postID, ok := paramID(c, "post_id")
	if !ok {
		return
	}
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	if err := h.Posts.HidePost(c.Request.Context(), userID, postID); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Post hidden"})
}

// GetFeed отдает страницу ленты. Некорректный limit заменяется значением по умолчанию
func (h *Handler) GetFeed(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	req := services.PageRequest{UserID: userID, Cursor: c.Query("cursor")}
	if limit, err := strconv.Atoi(c.Query("limit")); err == nil {
		req.Limit = limit
	}
	if offset, err := strconv.Atoi(c.Query("offset")); err == nil {
		req.Offset = offset
	}

	c.JSON(http.StatusOK, h.Posts.GetFeed(c.Request.Context(), req))
}
