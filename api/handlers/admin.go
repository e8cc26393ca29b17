package handlers

import (
	"net/http"

	"socialfeed/services"

	"github.com/gin-gonic/gin"
)

// GetQueueStats - состояние очереди обновления лент
func (h *Handler) GetQueueStats(c *gin.Context) {
	if h.Queue == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Queue service not available"})
		return
	}
	length, err := h.Queue.QueueLength(c.Request.Context())
	if err != nil {
		h.Logger.WithError(err).Warn("failed to get queue length")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Queue service not available"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"queue_name":   services.FEED_UPDATE_QUEUE,
		"queue_length": length,
		"workers":      h.Queue.Workers(),
	})
}

// InvalidateUserFeed сбрасывает кешированную ленту; следующее чтение пойдет в БД
func (h *Handler) InvalidateUserFeed(c *gin.Context) {
	userID, ok := paramID(c, "user_id")
	if !ok {
		return
	}
	if err := h.Engine.Hooks.ClearFeed(c.Request.Context(), userID); err != nil {
		h.Logger.WithError(err).WithField("user_id", userID).Warn("failed to invalidate feed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to invalidate cache"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cache invalidated successfully"})
}
