package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"socialfeed/config"
	"socialfeed/logs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitEnqueuesTask(t *testing.T) {
	env := newTestEnv(t, config.FeedConfig{})
	queue := NewQueueService(env.client, env.engine, 2, logs.Discard())

	queue.Submit(env.ctx, NewFanoutTask(5, 6))

	length, err := queue.QueueLength(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), length)

	raw, err := env.client.LIndex(env.ctx, FEED_UPDATE_QUEUE, 0).Result()
	require.NoError(t, err)
	var task FeedTask
	require.NoError(t, json.Unmarshal([]byte(raw), &task))
	assert.Equal(t, ActionFanout, task.Action)
	assert.Equal(t, int64(5), task.PostID)
	assert.Equal(t, int64(6), task.AuthorID)
	assert.NotEmpty(t, task.ID)
	assert.False(t, task.EnqueuedAt.IsZero())
}

func TestProcessNextRunsFanout(t *testing.T) {
	env := newTestEnv(t, config.FeedConfig{})
	author := env.user("author", 0)
	followers := env.followers(author, 2)
	postID := env.post(author, 0)
	queue := NewQueueService(env.client, env.engine, 1, logs.Discard())

	queue.Submit(env.ctx, NewFanoutTask(postID, author))
	processed, err := queue.ProcessNext(env.ctx, time.Second)
	require.NoError(t, err)
	assert.True(t, processed)

	for _, f := range followers {
		assert.Equal(t, []int64{postID}, env.list(feedKey(f)))
	}
	length, err := queue.QueueLength(env.ctx)
	require.NoError(t, err)
	assert.Zero(t, length)
}

func TestProcessNextRejectsGarbage(t *testing.T) {
	env := newTestEnv(t, config.FeedConfig{})
	queue := NewQueueService(env.client, env.engine, 1, logs.Discard())
	require.NoError(t, env.client.RPush(env.ctx, FEED_UPDATE_QUEUE, "{not json").Err())

	processed, err := queue.ProcessNext(env.ctx, time.Second)
	assert.True(t, processed)
	assert.Error(t, err)
}

func TestExecuteDispatchesActions(t *testing.T) {
	env := newTestEnv(t, config.FeedConfig{})
	queue := NewQueueService(env.client, env.engine, 1, logs.Discard())
	env.pushFeed(feedKey(1), 10, 11)
	env.pushFeed(authorFeedKey(3), 11)
	env.pushFeed(feedKey(2), 20)

	require.NoError(t, queue.Execute(env.ctx, NewRemoveTask(1, 10)))
	assert.Equal(t, []int64{11}, env.list(feedKey(1)))

	require.NoError(t, queue.Execute(env.ctx, NewRemoveAuthorTask(1, 3)))
	assert.Empty(t, env.list(feedKey(1)))

	require.NoError(t, queue.Execute(env.ctx, NewClearTask(2)))
	assert.False(t, env.mr.Exists(feedKey(2)))

	err := queue.Execute(env.ctx, FeedTask{Action: "bogus"})
	assert.ErrorIs(t, err, ErrUnknownAction)
}

func TestSubmitWithoutRedisRunsInBackground(t *testing.T) {
	env := newTestEnv(t, config.FeedConfig{})
	env.pushFeed(feedKey(1), 10)
	queue := NewQueueService(nil, env.engine, 1, logs.Discard())

	queue.Submit(context.Background(), NewClearTask(1))
	queue.Wait()

	assert.False(t, env.mr.Exists(feedKey(1)))
	_, err := queue.QueueLength(env.ctx)
	assert.Error(t, err)
}

func TestWorkersDrainQueue(t *testing.T) {
	env := newTestEnv(t, config.FeedConfig{})
	env.pushFeed(feedKey(1), 10)
	env.pushFeed(feedKey(2), 20)
	queue := NewQueueService(env.client, env.engine, 2, logs.Discard())
	assert.Equal(t, 2, queue.Workers())

	queue.Submit(env.ctx, NewClearTask(1))
	queue.Submit(env.ctx, NewClearTask(2))

	ctx, cancel := context.WithCancel(context.Background())
	queue.StartWorkers(ctx)
	assert.Eventually(t, func() bool {
		return !env.mr.Exists(feedKey(1)) && !env.mr.Exists(feedKey(2))
	}, 5*time.Second, 20*time.Millisecond)
	cancel()
}
