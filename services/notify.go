package services

import (
	"context"
	"encoding/json"
	"time"
)

// FeedPush - сообщение клиенту по websocket
type FeedPush struct {
	Event     string    `json:"event"`
	PostID    int64     `json:"post_id"`
	AuthorID  int64     `json:"author_id"`
	CreatedAt time.Time `json:"created_at"`
}

const feedPostedEvent = "feed_posted"

func pushFeedEvent(ws *WSConnManager, event FeedEvent) error {
	data, err := json.Marshal(FeedPush{
		Event:     feedPostedEvent,
		PostID:    event.PostID,
		AuthorID:  event.AuthorID,
		CreatedAt: event.CreatedAt,
	})
	if err != nil {
		return err
	}
	ws.Send(event.UserID, data)
	return nil
}

// DirectNotifier отправляет события сразу в websocket-соединения этого процесса.
// Используется, когда RabbitMQ отключен.
type DirectNotifier struct {
	ws *WSConnManager
}

func NewDirectNotifier(ws *WSConnManager) *DirectNotifier {
	return &DirectNotifier{ws: ws}
}

func (n *DirectNotifier) NotifyFeedPosted(_ context.Context, postID, authorID int64, followerIDs []int64) {
	now := time.Now().UTC()
	for _, followerID := range followerIDs {
		_ = pushFeedEvent(n.ws, FeedEvent{UserID: followerID, PostID: postID, AuthorID: authorID, CreatedAt: now})
	}
}
