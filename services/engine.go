package services

import (
	"socialfeed/config"

	"github.com/sirupsen/logrus"
)

// FeedEngine собирает компоненты ленты поверх одного хранилища списков
type FeedEngine struct {
	Config config.FeedConfig
	Policy *FanoutPolicy
	Writer *FanoutWriter
	Reader *FeedReader
	Hooks  *FeedHooks
}

// NewFeedEngine. notifier может быть nil, тогда события о новых постах не отправляются.
func NewFeedEngine(cfg config.FeedConfig, store ListStore, directory FollowDirectory, content ContentStore, notifier FeedNotifier, logger *logrus.Entry) *FeedEngine {
	cfg = cfg.WithDefaults()
	policy := NewFanoutPolicy(cfg.CelebrityThreshold, store, logger)
	return &FeedEngine{
		Config: cfg,
		Policy: policy,
		Writer: NewFanoutWriter(cfg, store, policy, directory, notifier, logger),
		Reader: NewFeedReader(cfg, store, policy, directory, content, logger),
		Hooks:  NewFeedHooks(cfg, store, logger),
	}
}
