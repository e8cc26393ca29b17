package services

import (
	"context"
	"fmt"
	"time"

	"socialfeed/db"
	"socialfeed/models"

	"gorm.io/gorm"
)

// FeedItem - элемент ленты: идентификатор поста и данные для сортировки.
// Имя автора, картинки и прочее обогащение делает слой представления.
type FeedItem struct {
	PostID    int64     `json:"post_id"`
	AuthorID  int64     `json:"author_id"`
	CreatedAt time.Time `json:"created_at"`
}

// FeedQuery - выборка ленты из БД
type FeedQuery struct {
	ViewerID  int64
	AuthorIDs []int64
	TopicIDs  []int64
	Before    *time.Time // курсор: только посты строго старше
	Offset    int        // используется, если курсора нет
	Limit     int
}

// ContentStore - запросы к постам в основной БД
type ContentStore interface {
	// QueryFeed возвращает до q.Limit постов, новые первыми
	QueryFeed(ctx context.Context, q FeedQuery) ([]FeedItem, error)
	// FilterVisible оставляет только видимые зрителю посты, сохраняя порядок ids
	FilterVisible(ctx context.Context, viewerID int64, postIDs []int64) ([]FeedItem, error)
}

type GormContentStore struct {
	orm *gorm.DB
}

func NewGormContentStore(orm *gorm.DB) *GormContentStore {
	return &GormContentStore{orm: orm}
}

// visiblePosts - опубликованные, не удаленные и не скрытые посты
// не заблокированных зрителем авторов
func (s *GormContentStore) visiblePosts(ctx context.Context, viewerID int64) *gorm.DB {
	blocked := db.GetReadOnlyDB(ctx, s.orm).Model(&models.Block{}).Select("target_id").Where("user_id = ?", viewerID)
	hidden := db.GetReadOnlyDB(ctx, s.orm).Model(&models.HiddenPost{}).Select("post_id").Where("user_id = ?", viewerID)
	return db.GetReadOnlyDB(ctx, s.orm).
		Model(&models.Post{}).
		Select("posts.id AS post_id, posts.author_id, posts.created_at").
		Where("posts.status = ?", models.PostStatusPublished).
		Where("posts.author_id NOT IN (?)", blocked).
		Where("posts.id NOT IN (?)", hidden)
}

func (s *GormContentStore) QueryFeed(ctx context.Context, q FeedQuery) ([]FeedItem, error) {
	query := s.visiblePosts(ctx, q.ViewerID)

	if len(q.TopicIDs) > 0 {
		tagged := db.GetReadOnlyDB(ctx, s.orm).Model(&models.PostTopic{}).Select("post_id").Where("topic_id IN ?", q.TopicIDs)
		query = query.Where("posts.author_id IN ? OR posts.id IN (?)", q.AuthorIDs, tagged)
	} else {
		query = query.Where("posts.author_id IN ?", q.AuthorIDs)
	}

	if q.Before != nil {
		query = query.Where("posts.created_at < ?", q.Before.UTC())
	} else if q.Offset > 0 {
		query = query.Offset(q.Offset)
	}

	var items []FeedItem
	err := query.
		Order("posts.created_at DESC, posts.id DESC").
		Limit(q.Limit).
		Scan(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query feed posts: %w", err)
	}
	return items, nil
}

func (s *GormContentStore) FilterVisible(ctx context.Context, viewerID int64, postIDs []int64) ([]FeedItem, error) {
	if len(postIDs) == 0 {
		return nil, nil
	}

	var found []FeedItem
	err := s.visiblePosts(ctx, viewerID).
		Where("posts.id IN ?", postIDs).
		Scan(&found).Error
	if err != nil {
		return nil, fmt.Errorf("failed to filter visible posts: %w", err)
	}

	byID := make(map[int64]FeedItem, len(found))
	for _, item := range found {
		byID[item.PostID] = item
	}
	items := make([]FeedItem, 0, len(found))
	for _, id := range postIDs {
		if item, ok := byID[id]; ok {
			items = append(items, item)
		}
	}
	return items, nil
}
