package services

import (
	"context"
	"strconv"
	"time"

	"socialfeed/config"

	"github.com/sirupsen/logrus"
)

// FeedNotifier получает уведомление о постах, записанных в ленты подписчиков
type FeedNotifier interface {
	NotifyFeedPosted(ctx context.Context, postID, authorID int64, followerIDs []int64)
}

// FanoutWriter раскладывает новый пост по лентам.
// Список последних постов автора обновляется всегда: из него читает pull-путь.
type FanoutWriter struct {
	cfg       config.FeedConfig
	store     ListStore
	policy    *FanoutPolicy
	directory FollowDirectory
	notifier  FeedNotifier
	logger    *logrus.Entry
}

func NewFanoutWriter(cfg config.FeedConfig, store ListStore, policy *FanoutPolicy, directory FollowDirectory, notifier FeedNotifier, logger *logrus.Entry) *FanoutWriter {
	return &FanoutWriter{
		cfg:       cfg.WithDefaults(),
		store:     store,
		policy:    policy,
		directory: directory,
		notifier:  notifier,
		logger:    logger.WithField("component", "fanout_writer"),
	}
}

// FanOutPost доставляет пост и возвращает число подписчиков, в чьи ленты он записан.
// Ошибки хранилища не возвращаются: вызывается в фоне после успешной публикации.
func (w *FanoutWriter) FanOutPost(ctx context.Context, postID, authorID int64) int {
	start := time.Now()
	log := w.logger.WithFields(logrus.Fields{"post_id": postID, "author_id": authorID})

	followerCount, err := w.directory.GetFollowerCount(ctx, authorID)
	if err != nil {
		storeErrorsTotal.WithLabelValues("follower_count").Inc()
		log.WithError(err).Warn("follower count lookup failed, treating as 0")
		followerCount = 0
	}

	w.pushAuthorFeed(ctx, postID, authorID, log)

	class := w.policy.Classify(followerCount)
	defer func() {
		fanoutDuration.WithLabelValues(class.String()).Observe(time.Since(start).Seconds())
	}()

	if class == Celebrity {
		w.policy.RecordCelebrity(ctx, authorID)
		log.WithField("followers", followerCount).Debug("celebrity author, fanout deferred to read time")
		return 0
	}

	written := w.forEachFollowerBatch(ctx, authorID, log, func(followers []int64) int {
		return w.pushBatch(ctx, postID, authorID, followers, log)
	})

	fanoutWritesTotal.WithLabelValues(class.String()).Add(float64(written))
	log.WithFields(logrus.Fields{"followers": followerCount, "written": written}).Debug("fanout finished")
	return written
}

// RetractPost убирает пост из списка автора и из лент подписчиков.
// Возвращает число лент подписчиков, обработанных без ошибок.
func (w *FanoutWriter) RetractPost(ctx context.Context, postID, authorID int64) int {
	log := w.logger.WithFields(logrus.Fields{"post_id": postID, "author_id": authorID})
	member := strconv.FormatInt(postID, 10)

	if _, err := w.store.Remove(ctx, authorFeedKey(authorID), member); err != nil {
		storeErrorsTotal.WithLabelValues("retract_author_feed").Inc()
		log.WithError(err).Warn("failed to remove post from author feed")
	}

	// у знаменитостей ленты подписчиков не обходим: удаленный пост
	// отсеивается фильтром видимости при чтении
	followerCount, err := w.directory.GetFollowerCount(ctx, authorID)
	if err != nil {
		followerCount = 0
	}
	if w.policy.Classify(followerCount) == Celebrity {
		return 0
	}

	return w.forEachFollowerBatch(ctx, authorID, log, func(followers []int64) int {
		batch := w.store.Batch()
		for _, followerID := range followers {
			batch.Remove(feedKey(followerID), member)
		}
		res, err := batch.Exec(ctx)
		if err != nil {
			storeErrorsTotal.WithLabelValues("retract_batch").Inc()
			log.WithError(err).Warn("retract batch failed")
			return -1
		}
		return len(followers) - res.Failed()
	})
}

func (w *FanoutWriter) pushAuthorFeed(ctx context.Context, postID, authorID int64, log *logrus.Entry) {
	key := authorFeedKey(authorID)
	batch := w.store.Batch()
	batch.PushFront(key, strconv.FormatInt(postID, 10))
	batch.Trim(key, w.cfg.MaxAuthorFeed)
	batch.Expire(key, w.cfg.AuthorFeedTTLDuration())

	res, err := batch.Exec(ctx)
	for i := 0; err == nil && i < batch.Len(); i++ {
		err = res.Err(i)
	}
	if err != nil {
		storeErrorsTotal.WithLabelValues("author_feed").Inc()
		log.WithError(err).Warn("failed to update author feed")
	}
}

// pushBatch пишет пост в ленты пачки подписчиков одним pipeline.
// Засчитываются подписчики, у которых прошли и LPUSH, и LTRIM. -1 - пачка не ушла совсем.
func (w *FanoutWriter) pushBatch(ctx context.Context, postID, authorID int64, followers []int64, log *logrus.Entry) int {
	member := strconv.FormatInt(postID, 10)
	batch := w.store.Batch()
	type cmdPair struct{ push, trim int }
	pairs := make([]cmdPair, len(followers))
	for i, followerID := range followers {
		key := feedKey(followerID)
		pairs[i] = cmdPair{
			push: batch.PushFront(key, member),
			trim: batch.Trim(key, w.cfg.MaxFeedSize),
		}
	}

	res, err := batch.Exec(ctx)
	if err != nil {
		storeErrorsTotal.WithLabelValues("fanout_batch").Inc()
		log.WithError(err).WithField("batch_size", len(followers)).Warn("fanout batch failed, stopping")
		return -1
	}

	written := make([]int64, 0, len(followers))
	for i, followerID := range followers {
		if res.Err(pairs[i].push) == nil && res.Err(pairs[i].trim) == nil {
			written = append(written, followerID)
		}
	}
	if len(written) < len(followers) {
		storeErrorsTotal.WithLabelValues("fanout_partial").Inc()
		log.WithFields(logrus.Fields{"batch_size": len(followers), "written": len(written)}).Warn("fanout batch partially applied")
	}

	if w.notifier != nil && len(written) > 0 {
		w.notifier.NotifyFeedPosted(ctx, postID, authorID, written)
	}
	return len(written)
}

// forEachFollowerBatch листает подписчиков пачками, пока не придет неполная страница.
// fn возвращает число успешных записей или -1, чтобы прекратить обход.
func (w *FanoutWriter) forEachFollowerBatch(ctx context.Context, authorID int64, log *logrus.Entry, fn func(followers []int64) int) int {
	total := 0
	batchSize := w.cfg.FanoutBatchSize
	for offset := 0; ; offset += batchSize {
		followers, err := w.directory.ListFollowers(ctx, authorID, offset, batchSize)
		if err != nil {
			storeErrorsTotal.WithLabelValues("list_followers").Inc()
			log.WithError(err).WithField("offset", offset).Warn("failed to list followers, stopping")
			return total
		}
		if len(followers) == 0 {
			return total
		}

		n := fn(followers)
		if n < 0 {
			return total
		}
		total += n

		if len(followers) < batchSize {
			return total
		}
	}
}
