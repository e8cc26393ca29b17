package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"socialfeed/config"
	"socialfeed/db"
	"socialfeed/logs"
	"socialfeed/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// baseTime - точка отсчета для постов в тестах. Шаг между постами - целые
// секунды, чтобы порядок строк времени в SQLite совпадал с хронологическим.
var baseTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	t      *testing.T
	ctx    context.Context
	mr     *miniredis.Miniredis
	client *redis.Client
	store  *RedisListStore
	orm    *gorm.DB
	cfg    config.FeedConfig
	engine *FeedEngine
}

func newTestEnv(t *testing.T, cfg config.FeedConfig) *testEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	orm, err := db.OpenSQLite(":memory:")
	require.NoError(t, err)

	cfg = cfg.WithDefaults()
	store := NewRedisListStore(client)
	return &testEnv{
		t:      t,
		ctx:    context.Background(),
		mr:     mr,
		client: client,
		store:  store,
		orm:    orm,
		cfg:    cfg,
		engine: NewFeedEngine(cfg, store, NewGormFollowDirectory(orm), NewGormContentStore(orm), nil, logs.Discard()),
	}
}

// user создает пользователя; followerCount задает счетчик напрямую
func (e *testEnv) user(nickname string, followerCount int64) int64 {
	e.t.Helper()
	u := models.User{Nickname: nickname, FollowerCount: followerCount, CreatedAt: baseTime}
	require.NoError(e.t, e.orm.Create(&u).Error)
	return u.ID
}

// follow добавляет связь без изменения счетчика
func (e *testEnv) follow(followerID, authorID int64) {
	e.t.Helper()
	require.NoError(e.t, e.orm.Create(&models.Follow{FollowerID: followerID, AuthorID: authorID, CreatedAt: baseTime}).Error)
}

// followers создает n подписчиков автора и выставляет счетчик
func (e *testEnv) followers(authorID int64, n int) []int64 {
	e.t.Helper()
	ids := make([]int64, n)
	for i := range ids {
		ids[i] = e.user(fmt.Sprintf("follower_%d_%d", authorID, i), 0)
		e.follow(ids[i], authorID)
	}
	require.NoError(e.t, e.orm.Model(&models.User{}).Where("id = ?", authorID).
		Update("follower_count", gorm.Expr("follower_count + ?", n)).Error)
	return ids
}

// post создает опубликованный пост, сдвинутый на sec секунд от baseTime
func (e *testEnv) post(authorID int64, sec int) int64 {
	e.t.Helper()
	at := baseTime.Add(time.Duration(sec) * time.Second)
	p := models.Post{AuthorID: authorID, Content: "post", Status: models.PostStatusPublished, CreatedAt: at, UpdatedAt: at}
	require.NoError(e.t, e.orm.Create(&p).Error)
	return p.ID
}

func (e *testEnv) list(key string) []int64 {
	e.t.Helper()
	raw, err := e.client.LRange(e.ctx, key, 0, -1).Result()
	require.NoError(e.t, err)
	return parseIDs(raw)
}

// pushFeed кладет ids в ленту так, что первый id окажется в начале
func (e *testEnv) pushFeed(key string, ids ...int64) {
	e.t.Helper()
	for i := len(ids) - 1; i >= 0; i-- {
		require.NoError(e.t, e.client.LPush(e.ctx, key, ids[i]).Err())
	}
}

func itemIDs(items []FeedItem) []int64 {
	ids := make([]int64, len(items))
	for i, item := range items {
		ids[i] = item.PostID
	}
	return ids
}

type recordingSubmitter struct {
	mu    sync.Mutex
	tasks []FeedTask
}

func (s *recordingSubmitter) Submit(_ context.Context, task FeedTask) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, task)
}

func (s *recordingSubmitter) Tasks() []FeedTask {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]FeedTask(nil), s.tasks...)
}

type notifyCall struct {
	postID, authorID int64
	followers        []int64
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []notifyCall
}

func (n *recordingNotifier) NotifyFeedPosted(_ context.Context, postID, authorID int64, followerIDs []int64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, notifyCall{postID, authorID, append([]int64(nil), followerIDs...)})
}

// stubDirectory - граф подписок в памяти с управляемыми ошибками
type stubDirectory struct {
	count     int64
	countErr  error
	followers []int64
	authors   []int64
	topics    []int64
	listErr   error
}

func (d *stubDirectory) GetFollowerCount(context.Context, int64) (int64, error) {
	return d.count, d.countErr
}

func (d *stubDirectory) ListFollowers(_ context.Context, _ int64, offset, limit int) ([]int64, error) {
	if d.listErr != nil {
		return nil, d.listErr
	}
	if offset >= len(d.followers) {
		return nil, nil
	}
	end := offset + limit
	if end > len(d.followers) {
		end = len(d.followers)
	}
	return d.followers[offset:end], nil
}

func (d *stubDirectory) ListFollowedAuthors(context.Context, int64) ([]int64, error) {
	return d.authors, d.listErr
}

func (d *stubDirectory) ListFollowedTopics(context.Context, int64) ([]int64, error) {
	return d.topics, d.listErr
}

type failingContent struct{ err error }

func (c failingContent) QueryFeed(context.Context, FeedQuery) ([]FeedItem, error) {
	return nil, c.err
}

func (c failingContent) FilterVisible(context.Context, int64, []int64) ([]FeedItem, error) {
	return nil, c.err
}
