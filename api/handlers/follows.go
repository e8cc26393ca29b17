package handlers

import (
	"net/http"

	"socialfeed/models"

	"github.com/gin-gonic/gin"
)

type authorRequest struct {
	AuthorID int64 `json:"author_id" binding:"required"`
}

func (h *Handler) Follow(c *gin.Context) {
	var req authorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	if err := h.Follows.Follow(c.Request.Context(), userID, req.AuthorID); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Followed"})
}

func (h *Handler) Unfollow(c *gin.Context) {
	var req authorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	if err := h.Follows.Unfollow(c.Request.Context(), userID, req.AuthorID); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Unfollowed"})
}

// FollowTopic подписывает на тему по id или имени (тема создается при необходимости)
func (h *Handler) FollowTopic(c *gin.Context) {
	var req struct {
		TopicID int64  `json:"topic_id"`
		Name    string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || (req.TopicID == 0 && req.Name == "") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	topicID := req.TopicID
	if topicID == 0 {
		topic, err := h.Follows.CreateTopic(ctx, req.Name)
		if err != nil {
			h.respondError(c, err)
			return
		}
		topicID = topic.ID
	}

	if err := h.Follows.FollowTopic(ctx, userID, topicID); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"topic_id": topicID})
}

func (h *Handler) Block(c *gin.Context) {
	var req struct {
		TargetID int64            `json:"target_id" binding:"required"`
		Kind     models.BlockKind `json:"kind"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	if err := h.Follows.Block(c.Request.Context(), userID, req.TargetID, req.Kind); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Blocked"})
}
