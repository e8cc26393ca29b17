package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"socialfeed/logs"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu       sync.Mutex
	messages [][]byte
	failing  bool
	closed   bool
}

func (c *fakeConn) WriteMessage(_ int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failing {
		return errors.New("broken pipe")
	}
	c.messages = append(c.messages, data)
	return nil
}

func (c *fakeConn) SetWriteDeadline(time.Time) error { return nil }

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

type publishedMsg struct {
	exchange, key string
	body          []byte
}

type fakeChannel struct {
	mu   sync.Mutex
	msgs []publishedMsg
	err  error
}

func (c *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.msgs = append(c.msgs, publishedMsg{exchange, key, msg.Body})
	return nil
}

func TestWSConnManagerSendDropsBrokenConnections(t *testing.T) {
	m := NewWSConnManager()
	good := &fakeConn{}
	bad := &fakeConn{failing: true}
	m.Add(1, good)
	m.Add(1, bad)
	assert.Equal(t, 2, m.Count(1))

	assert.Equal(t, 1, m.Send(1, []byte("hi")))
	assert.Equal(t, 1, m.Count(1))
	assert.True(t, bad.closed)
	assert.Equal(t, [][]byte{[]byte("hi")}, good.messages)

	m.Remove(1, good)
	assert.Zero(t, m.Count(1))
	assert.Zero(t, m.Send(1, []byte("nobody")))
}

func TestRabbitPublisherRoutesPerFollower(t *testing.T) {
	ch := &fakeChannel{}
	p := NewRabbitPublisher(ch, logs.Discard())

	p.NotifyFeedPosted(context.Background(), 42, 7, []int64{1, 2})

	require.Len(t, ch.msgs, 2)
	assert.Equal(t, FEED_EXCHANGE, ch.msgs[0].exchange)
	assert.Equal(t, "user.1", ch.msgs[0].key)
	assert.Equal(t, "user.2", ch.msgs[1].key)

	var event FeedEvent
	require.NoError(t, json.Unmarshal(ch.msgs[1].body, &event))
	assert.Equal(t, int64(2), event.UserID)
	assert.Equal(t, int64(42), event.PostID)
	assert.Equal(t, int64(7), event.AuthorID)
}

func TestRabbitPublisherSwallowsErrors(t *testing.T) {
	ch := &fakeChannel{err: errors.New("channel closed")}
	p := NewRabbitPublisher(ch, logs.Discard())
	p.NotifyFeedPosted(context.Background(), 1, 2, []int64{3})
	assert.Empty(t, ch.msgs)

	err := p.StartFeedEventConsumer(context.Background(), "q", NewWSConnManager())
	assert.Error(t, err)
	assert.NoError(t, p.Close())
}

func TestDeliverFeedEvent(t *testing.T) {
	m := NewWSConnManager()
	conn := &fakeConn{}
	m.Add(5, conn)

	body, err := json.Marshal(FeedEvent{UserID: 5, PostID: 9, AuthorID: 3})
	require.NoError(t, err)
	require.NoError(t, deliverFeedEvent(body, m))
	require.Error(t, deliverFeedEvent([]byte("{"), m))

	require.Len(t, conn.messages, 1)
	var push FeedPush
	require.NoError(t, json.Unmarshal(conn.messages[0], &push))
	assert.Equal(t, feedPostedEvent, push.Event)
	assert.Equal(t, int64(9), push.PostID)
}

func TestDirectNotifierPushesToFollowers(t *testing.T) {
	m := NewWSConnManager()
	first, second := &fakeConn{}, &fakeConn{}
	m.Add(1, first)
	m.Add(2, second)

	NewDirectNotifier(m).NotifyFeedPosted(context.Background(), 11, 4, []int64{1, 3})

	assert.Len(t, first.messages, 1)
	assert.Empty(t, second.messages)
}
