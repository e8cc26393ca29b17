package db

import (
	"context"
	"testing"
	"time"

	"socialfeed/config"
	"socialfeed/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenSQLiteMigrates(t *testing.T) {
	database, err := OpenSQLite(":memory:")
	require.NoError(t, err)

	for _, m := range models.All() {
		assert.True(t, database.Migrator().HasTable(m))
	}
	assert.True(t, database.Migrator().HasIndex(&models.Post{}, "idx_posts_live_created_at"))

	// повторная миграция не падает
	require.NoError(t, Migrate(database))
}

func TestReadWriteHelpersWithoutReplicas(t *testing.T) {
	database, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	ctx := context.Background()

	user := models.User{Nickname: "writer", CreatedAt: time.Now().UTC()}
	require.NoError(t, GetWriteDB(ctx, database).Create(&user).Error)

	var got models.User
	require.NoError(t, GetReadOnlyDB(ctx, database).First(&got, user.ID).Error)
	assert.Equal(t, "writer", got.Nickname)
}

func TestDSNFromConfig(t *testing.T) {
	dsn := dsnFromConfig(config.DBConfig{Host: "pg", User: "u", Password: "p", DBName: "social"})
	assert.Contains(t, dsn, "host=pg")
	assert.Contains(t, dsn, "port=5432")
	assert.Contains(t, dsn, "dbname=social")
}

func TestConnectDBRequiresMaster(t *testing.T) {
	_, err := ConnectDB(&config.ConfigSchema{})
	require.Error(t, err)

	_, err = ConnectDB(nil)
	require.Error(t, err)
}

func TestAutoTimestampsAreUTC(t *testing.T) {
	database, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	assert.Equal(t, time.UTC, database.NowFunc().Location())

	post := models.Post{AuthorID: 1, Content: "auto", Status: models.PostStatusPublished}
	require.NoError(t, database.Create(&post).Error)
	assert.Equal(t, time.UTC, post.CreatedAt.Location())

	// сравнение с UTC-курсором в обе стороны
	var count int64
	require.NoError(t, database.Model(&models.Post{}).
		Where("created_at < ?", post.CreatedAt.Add(time.Second)).Count(&count).Error)
	assert.Equal(t, int64(1), count)
	require.NoError(t, database.Model(&models.Post{}).
		Where("created_at < ?", post.CreatedAt.Add(-time.Second)).Count(&count).Error)
	assert.Zero(t, count)
}
