package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSFeedHandler - websocket с событиями о новых постах в ленте
func (h *Handler) WSFeedHandler(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.Logger.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	h.WS.Add(userID, conn)
	defer h.WS.Remove(userID, conn)

	_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"connected"}`))

	// входящие сообщения не нужны, чтение только отслеживает закрытие
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.Logger.WithError(err).WithField("user_id", userID).Debug("websocket closed")
			return
		}
	}
}
