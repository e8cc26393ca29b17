package services

import (
	"context"
	"fmt"

	"socialfeed/db"
	"socialfeed/models"

	"gorm.io/gorm"
)

// FollowDirectory - граф подписок, нужный движку ленты
type FollowDirectory interface {
	GetFollowerCount(ctx context.Context, authorID int64) (int64, error)
	// ListFollowers возвращает подписчиков автора страницами, в стабильном порядке
	ListFollowers(ctx context.Context, authorID int64, offset, limit int) ([]int64, error)
	ListFollowedAuthors(ctx context.Context, viewerID int64) ([]int64, error)
	ListFollowedTopics(ctx context.Context, viewerID int64) ([]int64, error)
}

// GormFollowDirectory читает подписки из реплик
type GormFollowDirectory struct {
	orm *gorm.DB
}

func NewGormFollowDirectory(orm *gorm.DB) *GormFollowDirectory {
	return &GormFollowDirectory{orm: orm}
}

// GetFollowerCount - счетчик из users.follower_count. Неизвестный автор - 0
func (d *GormFollowDirectory) GetFollowerCount(ctx context.Context, authorID int64) (int64, error) {
	var counts []int64
	err := db.GetReadOnlyDB(ctx, d.orm).
		Model(&models.User{}).
		Where("id = ?", authorID).
		Pluck("follower_count", &counts).Error
	if err != nil {
		return 0, fmt.Errorf("failed to get follower count: %w", err)
	}
	if len(counts) == 0 {
		return 0, nil
	}
	return counts[0], nil
}

func (d *GormFollowDirectory) ListFollowers(ctx context.Context, authorID int64, offset, limit int) ([]int64, error) {
	var followerIDs []int64
	err := db.GetReadOnlyDB(ctx, d.orm).
		Table("follows f").
		Joins("JOIN users u ON u.id = f.follower_id AND u.deleted_at IS NULL").
		Where("f.author_id = ?", authorID).
		Order("f.follower_id ASC").
		Offset(offset).
		Limit(limit).
		Pluck("f.follower_id", &followerIDs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list followers: %w", err)
	}
	return followerIDs, nil
}

func (d *GormFollowDirectory) ListFollowedAuthors(ctx context.Context, viewerID int64) ([]int64, error) {
	var authorIDs []int64
	err := db.GetReadOnlyDB(ctx, d.orm).
		Model(&models.Follow{}).
		Where("follower_id = ?", viewerID).
		Order("author_id ASC").
		Pluck("author_id", &authorIDs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list followed authors: %w", err)
	}
	return authorIDs, nil
}

func (d *GormFollowDirectory) ListFollowedTopics(ctx context.Context, viewerID int64) ([]int64, error) {
	var topicIDs []int64
	err := db.GetReadOnlyDB(ctx, d.orm).
		Model(&models.TopicFollow{}).
		Where("user_id = ?", viewerID).
		Order("topic_id ASC").
		Pluck("topic_id", &topicIDs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list followed topics: %w", err)
	}
	return topicIDs, nil
}
