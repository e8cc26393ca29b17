package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

const FEED_EXCHANGE = "feed_events"

// FeedEvent - событие "пост попал в ленту пользователя"
type FeedEvent struct {
	UserID    int64     `json:"user_id"`
	PostID    int64     `json:"post_id"`
	AuthorID  int64     `json:"author_id"`
	CreatedAt time.Time `json:"created_at"`
}

func feedRoutingKey(userID int64) string {
	return fmt.Sprintf("user.%d", userID)
}

// eventChannel - часть amqp.Channel, нужная для публикации
type eventChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// RabbitPublisher рассылает FeedEvent в topic exchange feed_events
// с ключом user.<id>. Реализует FeedNotifier.
type RabbitPublisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	pub     eventChannel
	logger  *logrus.Entry
}

// DialRabbitMQ подключается к брокеру и объявляет exchange
func DialRabbitMQ(url string, logger *logrus.Entry) (*RabbitPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(
		FEED_EXCHANGE,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	p := NewRabbitPublisher(ch, logger)
	p.conn = conn
	p.channel = ch
	p.logger.Info("RabbitMQ initialized")
	return p, nil
}

func NewRabbitPublisher(pub eventChannel, logger *logrus.Entry) *RabbitPublisher {
	return &RabbitPublisher{
		pub:    pub,
		logger: logger.WithField("component", "rabbit_publisher"),
	}
}

func (p *RabbitPublisher) Publish(ctx context.Context, event FeedEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return p.pub.PublishWithContext(ctx,
		FEED_EXCHANGE,
		feedRoutingKey(event.UserID),
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Timestamp:   event.CreatedAt,
			Body:        body,
		},
	)
}

// NotifyFeedPosted публикует по событию на подписчика. Ошибки только логируются
func (p *RabbitPublisher) NotifyFeedPosted(ctx context.Context, postID, authorID int64, followerIDs []int64) {
	now := time.Now().UTC()
	failed := 0
	for _, followerID := range followerIDs {
		err := p.Publish(ctx, FeedEvent{UserID: followerID, PostID: postID, AuthorID: authorID, CreatedAt: now})
		if err != nil {
			failed++
		}
	}
	if failed > 0 {
		p.logger.WithFields(logrus.Fields{"post_id": postID, "failed": failed, "total": len(followerIDs)}).Warn("failed to publish feed events")
	}
}

// StartFeedEventConsumer слушает user.* и пересылает события в websocket-соединения
func (p *RabbitPublisher) StartFeedEventConsumer(ctx context.Context, queueName string, ws *WSConnManager) error {
	if p.channel == nil {
		return fmt.Errorf("RabbitMQ channel not initialized")
	}
	q, err := p.channel.QueueDeclare(
		queueName,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}
	if err := p.channel.QueueBind(q.Name, "user.*", FEED_EXCHANGE, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}
	msgs, err := p.channel.Consume(
		q.Name,
		"",
		true,  // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to start consumer: %w", err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					p.logger.Warn("feed event delivery channel closed")
					return
				}
				if err := deliverFeedEvent(msg.Body, ws); err != nil {
					p.logger.WithError(err).Warn("bad feed event")
				}
			}
		}
	}()
	return nil
}

func (p *RabbitPublisher) Close() error {
	if p.conn == nil {
		return nil
	}
	return p.conn.Close()
}

// deliverFeedEvent разбирает событие из брокера и отправляет его пользователю
func deliverFeedEvent(body []byte, ws *WSConnManager) error {
	var event FeedEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("failed to unmarshal feed event: %w", err)
	}
	return pushFeedEvent(ws, event)
}
