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

// FollowService - подписки на авторов и темы, блокировки
type FollowService struct {
	orm    *gorm.DB
	tasks  TaskSubmitter
	logger *logrus.Entry
}

func NewFollowService(orm *gorm.DB, tasks TaskSubmitter, logger *logrus.Entry) *FollowService {
	return &FollowService{
		orm:    orm,
		tasks:  tasks,
		logger: logger.WithField("component", "follow_service"),
	}
}

func userExists(tx *gorm.DB, userID int64) error {
	var count int64
	if err := tx.Model(&models.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check user: %w", err)
	}
	if count == 0 {
		return ErrUserNotFound
	}
	return nil
}

// Follow подписывает followerID на authorID. Повторная подписка - не ошибка.
// Счетчик подписчиков меняется в той же транзакции, что и связь.
func (fs *FollowService) Follow(ctx context.Context, followerID, authorID int64) error {
	if followerID == authorID {
		return ErrSelfFollow
	}

	return db.GetWriteDB(ctx, fs.orm).Transaction(func(tx *gorm.DB) error {
		if err := userExists(tx, authorID); err != nil {
			return err
		}

		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.Follow{
			FollowerID: followerID,
			AuthorID:   authorID,
			CreatedAt:  time.Now().UTC(),
		})
		if res.Error != nil {
			return fmt.Errorf("failed to create follow: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil
		}

		err := tx.Model(&models.User{}).
			Where("id = ?", authorID).
			UpdateColumn("follower_count", gorm.Expr("follower_count + ?", 1)).Error
		if err != nil {
			return fmt.Errorf("failed to update follower count: %w", err)
		}
		fs.logger.WithFields(logrus.Fields{"follower_id": followerID, "author_id": authorID}).Debug("follow created")
		return nil
	})
}

// Unfollow удаляет подписку и в фоне убирает посты автора из ленты
func (fs *FollowService) Unfollow(ctx context.Context, followerID, authorID int64) error {
	removed := false
	err := db.GetWriteDB(ctx, fs.orm).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("follower_id = ? AND author_id = ?", followerID, authorID).Delete(&models.Follow{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete follow: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil
		}
		removed = true

		err := tx.Model(&models.User{}).
			Where("id = ?", authorID).
			UpdateColumn("follower_count", gorm.Expr("CASE WHEN follower_count > 0 THEN follower_count - 1 ELSE 0 END")).Error
		if err != nil {
			return fmt.Errorf("failed to update follower count: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if removed {
		fs.tasks.Submit(ctx, NewRemoveAuthorTask(followerID, authorID))
	}
	return nil
}

// CreateTopic возвращает тему по имени, создавая ее при необходимости
func (fs *FollowService) CreateTopic(ctx context.Context, name string) (*models.Topic, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return nil, fmt.Errorf("topic name is empty")
	}
	topic := &models.Topic{Name: name}
	err := db.GetWriteDB(ctx, fs.orm).Where("name = ?", name).FirstOrCreate(topic).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create topic: %w", err)
	}
	return topic, nil
}

func (fs *FollowService) FollowTopic(ctx context.Context, userID, topicID int64) error {
	var topic models.Topic
	err := db.GetWriteDB(ctx, fs.orm).Where("id = ?", topicID).First(&topic).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrTopicNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load topic: %w", err)
	}

	err = db.GetWriteDB(ctx, fs.orm).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.TopicFollow{UserID: userID, TopicID: topicID, CreatedAt: time.Now().UTC()}).Error
	if err != nil {
		return fmt.Errorf("failed to follow topic: %w", err)
	}
	return nil
}

func (fs *FollowService) UnfollowTopic(ctx context.Context, userID, topicID int64) error {
	err := db.GetWriteDB(ctx, fs.orm).
		Where("user_id = ? AND topic_id = ?", userID, topicID).
		Delete(&models.TopicFollow{}).Error
	if err != nil {
		return fmt.Errorf("failed to unfollow topic: %w", err)
	}
	return nil
}

// Block блокирует или скрывает автора. Посты отсекаются фильтром при чтении сразу,
// кешированная лента чистится фоновой задачей.
func (fs *FollowService) Block(ctx context.Context, userID, targetID int64, kind models.BlockKind) error {
	if kind == "" {
		kind = models.BlockKindBlock
	}
	if kind != models.BlockKindBlock && kind != models.BlockKindMute {
		return ErrInvalidKind
	}
	if userID == targetID {
		return ErrSelfBlock
	}

	err := db.GetWriteDB(ctx, fs.orm).Transaction(func(tx *gorm.DB) error {
		if err := userExists(tx, targetID); err != nil {
			return err
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "target_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"kind"}),
		}).Create(&models.Block{
			UserID:    userID,
			TargetID:  targetID,
			Kind:      kind,
			CreatedAt: time.Now().UTC(),
		}).Error
	})
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return err
		}
		return fmt.Errorf("failed to block user: %w", err)
	}

	fs.logger.WithFields(logrus.Fields{"user_id": userID, "target_id": targetID, "kind": kind}).Info("author blocked")
	fs.tasks.Submit(ctx, NewRemoveAuthorTask(userID, targetID))
	return nil
}
