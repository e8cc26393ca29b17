package services

import (
	"context"
	"fmt"
	"strconv"

	"socialfeed/config"

	"github.com/sirupsen/logrus"
)

// Classification - стратегия доставки постов автора
type Classification int

const (
	// Broadcast - пост пишется в ленту каждого подписчика при публикации
	Broadcast Classification = iota
	// Celebrity - подписчики забирают посты автора при чтении ленты
	Celebrity
)

func (c Classification) String() string {
	if c == Celebrity {
		return "celebrity"
	}
	return "broadcast"
}

// FanoutPolicy решает, как доставлять посты автора. Множество знаменитостей
// только растет: понижения обратно в Broadcast нет.
type FanoutPolicy struct {
	threshold int64
	store     ListStore
	logger    *logrus.Entry
}

func NewFanoutPolicy(threshold int64, store ListStore, logger *logrus.Entry) *FanoutPolicy {
	if threshold <= 0 {
		threshold = config.DefaultCelebrityThreshold
	}
	return &FanoutPolicy{
		threshold: threshold,
		store:     store,
		logger:    logger.WithField("component", "fanout_policy"),
	}
}

func (p *FanoutPolicy) Threshold() int64 {
	return p.threshold
}

// Classify: Celebrity тогда и только тогда, когда followerCount >= порога
func (p *FanoutPolicy) Classify(followerCount int64) Classification {
	if followerCount >= p.threshold {
		return Celebrity
	}
	return Broadcast
}

// RecordCelebrity добавляет автора в множество знаменитостей. Ошибки только логируются
func (p *FanoutPolicy) RecordCelebrity(ctx context.Context, authorID int64) {
	if err := p.store.AddMembers(ctx, CELEBRITY_SET_KEY, strconv.FormatInt(authorID, 10)); err != nil {
		storeErrorsTotal.WithLabelValues("record_celebrity").Inc()
		p.logger.WithError(err).WithField("author_id", authorID).Warn("failed to record celebrity")
	}
}

func (p *FanoutPolicy) IsCelebrity(ctx context.Context, authorID int64) (bool, error) {
	return p.store.IsMember(ctx, CELEBRITY_SET_KEY, strconv.FormatInt(authorID, 10))
}

// SplitCelebrities делит авторов на знаменитостей и остальных одним батчем
func (p *FanoutPolicy) SplitCelebrities(ctx context.Context, authorIDs []int64) (celebrities, others []int64, err error) {
	if len(authorIDs) == 0 {
		return nil, nil, nil
	}

	batch := p.store.Batch()
	idx := make([]int, len(authorIDs))
	for i, id := range authorIDs {
		idx[i] = batch.IsMember(CELEBRITY_SET_KEY, strconv.FormatInt(id, 10))
	}
	res, err := batch.Exec(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("celebrity lookup: %w", err)
	}

	for i, id := range authorIDs {
		isCelebrity, err := res.Bool(idx[i])
		if err != nil {
			return nil, nil, fmt.Errorf("celebrity lookup for %d: %w", id, err)
		}
		if isCelebrity {
			celebrities = append(celebrities, id)
		} else {
			others = append(others, id)
		}
	}
	return celebrities, others, nil
}
