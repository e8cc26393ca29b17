package services

import (
	"context"
	"testing"

	"socialfeed/config"
	"socialfeed/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormFollowDirectory(t *testing.T) {
	env := newTestEnv(t, config.FeedConfig{})
	dir := NewGormFollowDirectory(env.orm)
	author := env.user("author", 0)
	followers := env.followers(author, 5)

	count, err := dir.GetFollowerCount(env.ctx, author)
	require.NoError(t, err)
	assert.Equal(t, int64(5), count)

	count, err = dir.GetFollowerCount(env.ctx, 9999)
	require.NoError(t, err)
	assert.Zero(t, count)

	var paged []int64
	for offset := 0; ; offset += 2 {
		page, err := dir.ListFollowers(env.ctx, author, offset, 2)
		require.NoError(t, err)
		if len(page) == 0 {
			break
		}
		paged = append(paged, page...)
	}
	assert.Equal(t, followers, paged)

	authors, err := dir.ListFollowedAuthors(env.ctx, followers[0])
	require.NoError(t, err)
	assert.Equal(t, []int64{author}, authors)
}

func TestGormContentStoreFilterVisibleKeepsOrder(t *testing.T) {
	env := newTestEnv(t, config.FeedConfig{})
	content := NewGormContentStore(env.orm)
	author := env.user("author", 0)
	a := env.post(author, 0)
	b := env.post(author, 1)

	items, err := content.FilterVisible(env.ctx, 0, []int64{a, 404, b})
	require.NoError(t, err)
	assert.Equal(t, []int64{a, b}, itemIDs(items))
	assert.Equal(t, author, items[0].AuthorID)
	assert.True(t, items[0].CreatedAt.Equal(baseTime))

	items, err = content.FilterVisible(env.ctx, 0, nil)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestGormContentStoreHonorsContext(t *testing.T) {
	env := newTestEnv(t, config.FeedConfig{})
	content := NewGormContentStore(env.orm)
	viewer := env.user("viewer", 0)
	author := env.user("author", 0)
	postID := env.post(author, 0)
	require.NoError(t, env.orm.Create(&models.Block{UserID: viewer, TargetID: author, Kind: models.BlockKindBlock}).Error)

	items, err := content.QueryFeed(env.ctx, FeedQuery{ViewerID: viewer, AuthorIDs: []int64{author}, TopicIDs: []int64{1}, Limit: 5})
	require.NoError(t, err)
	assert.Empty(t, items)

	ctx, cancel := context.WithCancel(env.ctx)
	cancel()
	_, err = content.FilterVisible(ctx, viewer, []int64{postID})
	assert.Error(t, err)
	_, err = content.QueryFeed(ctx, FeedQuery{ViewerID: viewer, AuthorIDs: []int64{author}, Limit: 5})
	assert.Error(t, err)
}
