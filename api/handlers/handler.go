package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"socialfeed/api/middleware"
	"socialfeed/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Handler - HTTP-обработчики поверх сервисов ленты
type Handler struct {
	Posts   *services.PostService
	Follows *services.FollowService
	Users   *services.UserService
	Engine  *services.FeedEngine
	Queue   *services.QueueService
	WS      *services.WSConnManager
	Logger  *logrus.Entry
}

func currentUser(c *gin.Context) (int64, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
	}
	return userID, ok
}

func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return id, true
}

// respondError переводит ошибки сервисов в HTTP-статусы
func (h *Handler) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrPostNotFound),
		errors.Is(err, services.ErrTopicNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrNotPostAuthor):
		status = http.StatusForbidden
	case errors.Is(err, services.ErrNicknameTaken):
		status = http.StatusConflict
	case errors.Is(err, services.ErrEmptyContent),
		errors.Is(err, services.ErrSelfFollow),
		errors.Is(err, services.ErrSelfBlock),
		errors.Is(err, services.ErrInvalidKind):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		h.Logger.WithError(err).WithField("path", c.FullPath()).Error("request failed")
		c.JSON(status, gin.H{"error": "Internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
