package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"socialfeed/db"
	"socialfeed/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostService - публикация и удаление постов. Лента обновляется фоновыми задачами
type PostService struct {
	orm    *gorm.DB
	reader *FeedReader
	tasks  TaskSubmitter
	logger *logrus.Entry
}

func NewPostService(orm *gorm.DB, reader *FeedReader, tasks TaskSubmitter, logger *logrus.Entry) *PostService {
	return &PostService{
		orm:    orm,
		reader: reader,
		tasks:  tasks,
		logger: logger.WithField("component", "post_service"),
	}
}

// CreatePost сохраняет пост и ставит задачу на раскладку по лентам
func (ps *PostService) CreatePost(ctx context.Context, authorID int64, content string, topicIDs []int64) (*models.Post, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyContent
	}
	topicIDs = uniqueIDs(topicIDs)

	now := time.Now().UTC()
	post := &models.Post{
		AuthorID:  authorID,
		Content:   content,
		Status:    models.PostStatusPublished,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := db.GetWriteDB(ctx, ps.orm).Transaction(func(tx *gorm.DB) error {
		var authors int64
		if err := tx.Model(&models.User{}).Where("id = ?", authorID).Count(&authors).Error; err != nil {
			return fmt.Errorf("failed to check author: %w", err)
		}
		if authors == 0 {
			return ErrUserNotFound
		}

		if len(topicIDs) > 0 {
			var topics int64
			if err := tx.Model(&models.Topic{}).Where("id IN ?", topicIDs).Count(&topics).Error; err != nil {
				return fmt.Errorf("failed to check topics: %w", err)
			}
			if topics != int64(len(topicIDs)) {
				return ErrTopicNotFound
			}
		}

		if err := tx.Create(post).Error; err != nil {
			return fmt.Errorf("failed to create post: %w", err)
		}

		if len(topicIDs) > 0 {
			tags := make([]models.PostTopic, len(topicIDs))
			for i, topicID := range topicIDs {
				tags[i] = models.PostTopic{PostID: post.ID, TopicID: topicID}
			}
			if err := tx.Create(&tags).Error; err != nil {
				return fmt.Errorf("failed to tag post: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	ps.logger.WithFields(logrus.Fields{"post_id": post.ID, "author_id": authorID}).Info("post created")
	ps.tasks.Submit(ctx, NewFanoutTask(post.ID, authorID))
	return post, nil
}

// DeletePost мягко удаляет пост автора и убирает его из лент в фоне
func (ps *PostService) DeletePost(ctx context.Context, userID, postID int64) error {
	var post models.Post
	err := db.GetWriteDB(ctx, ps.orm).Where("id = ?", postID).First(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrPostNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load post: %w", err)
	}
	if post.AuthorID != userID {
		return ErrNotPostAuthor
	}

	if err := db.GetWriteDB(ctx, ps.orm).Delete(&post).Error; err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}

	ps.logger.WithFields(logrus.Fields{"post_id": postID, "author_id": userID}).Info("post deleted")
	ps.tasks.Submit(ctx, NewRetractTask(postID, userID))
	return nil
}

// HidePost скрывает чужой или свой пост из ленты пользователя.
// Запись в БД действует сразу и для выборки из БД, кеш чистится в фоне.
func (ps *PostService) HidePost(ctx context.Context, userID, postID int64) error {
	var count int64
	err := db.GetWriteDB(ctx, ps.orm).Model(&models.Post{}).Where("id = ?", postID).Count(&count).Error
	if err != nil {
		return fmt.Errorf("failed to load post: %w", err)
	}
	if count == 0 {
		return ErrPostNotFound
	}

	err = db.GetWriteDB(ctx, ps.orm).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.HiddenPost{UserID: userID, PostID: postID, CreatedAt: time.Now().UTC()}).Error
	if err != nil {
		return fmt.Errorf("failed to hide post: %w", err)
	}

	ps.logger.WithFields(logrus.Fields{"post_id": postID, "user_id": userID}).Debug("post hidden")
	ps.tasks.Submit(ctx, NewRemoveTask(userID, postID))
	return nil
}

// GetFeed - страница ленты пользователя
func (ps *PostService) GetFeed(ctx context.Context, req PageRequest) *Page {
	return ps.reader.GetFeedPage(ctx, req)
}

func uniqueIDs(ids []int64) []int64 {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
