package services

import (
	"context"
	"fmt"
	"strconv"

	"socialfeed/config"

	"github.com/sirupsen/logrus"
)

// FeedHooks - точечные изменения кешированной ленты: удаление поста,
// сброс ленты, скрытие автора после блокировки
type FeedHooks struct {
	cfg    config.FeedConfig
	store  ListStore
	logger *logrus.Entry
}

func NewFeedHooks(cfg config.FeedConfig, store ListStore, logger *logrus.Entry) *FeedHooks {
	return &FeedHooks{
		cfg:    cfg.WithDefaults(),
		store:  store,
		logger: logger.WithField("component", "feed_hooks"),
	}
}

// RemoveFromFeed удаляет все вхождения поста из ленты пользователя.
// Отсутствие поста или ленты ошибкой не считается.
func (h *FeedHooks) RemoveFromFeed(ctx context.Context, userID, postID int64) error {
	removed, err := h.store.Remove(ctx, feedKey(userID), strconv.FormatInt(postID, 10))
	if err != nil {
		storeErrorsTotal.WithLabelValues("remove_from_feed").Inc()
		return fmt.Errorf("failed to remove post %d from feed of user %d: %w", postID, userID, err)
	}
	h.logger.WithFields(logrus.Fields{"user_id": userID, "post_id": postID, "removed": removed}).Debug("post removed from feed")
	return nil
}

// ClearFeed сбрасывает ленту целиком; следующее чтение пойдет в БД
func (h *FeedHooks) ClearFeed(ctx context.Context, userID int64) error {
	if err := h.store.Delete(ctx, feedKey(userID)); err != nil {
		storeErrorsTotal.WithLabelValues("clear_feed").Inc()
		return fmt.Errorf("failed to clear feed of user %d: %w", userID, err)
	}
	h.logger.WithField("user_id", userID).Debug("feed cleared")
	return nil
}

// RemoveAuthorFromFeed убирает из ленты зрителя последние посты автора.
// Берутся id из списка автора; более старые посты отсеет фильтр видимости.
// Возвращает число id, для которых удаление прошло без ошибок.
func (h *FeedHooks) RemoveAuthorFromFeed(ctx context.Context, viewerID, authorID int64) (int, error) {
	recent, err := h.store.Range(ctx, authorFeedKey(authorID), 0, h.cfg.MaxAuthorFeed-1)
	if err != nil {
		storeErrorsTotal.WithLabelValues("remove_author_range").Inc()
		return 0, fmt.Errorf("failed to read recent posts of author %d: %w", authorID, err)
	}
	if len(recent) == 0 {
		return 0, nil
	}

	key := feedKey(viewerID)
	batch := h.store.Batch()
	for _, postID := range recent {
		batch.Remove(key, postID)
	}
	res, err := batch.Exec(ctx)
	if err != nil {
		storeErrorsTotal.WithLabelValues("remove_author_batch").Inc()
		return 0, fmt.Errorf("failed to remove author %d from feed of user %d: %w", authorID, viewerID, err)
	}

	done := len(recent) - res.Failed()
	h.logger.WithFields(logrus.Fields{"user_id": viewerID, "author_id": authorID, "posts": done}).Debug("author removed from feed")
	return done, nil
}
