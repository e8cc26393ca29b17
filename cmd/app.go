package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"socialfeed/config"
	"socialfeed/db"
	"socialfeed/logs"
	"socialfeed/services"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// app - собранные зависимости процесса
type app struct {
	conf      *config.ConfigSchema
	orm       *gorm.DB
	redis     *redis.Client
	publisher *services.RabbitPublisher
	ws        *services.WSConnManager
	engine    *services.FeedEngine
	queue     *services.QueueService
	posts     *services.PostService
	follows   *services.FollowService
	users     *services.UserService
	logger    *logrus.Entry
}

func loadConfig() (*config.ConfigSchema, error) {
	path := flagConfig
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) && path == "config.yaml" {
		// без файла работаем на значениях по умолчанию и переменных окружения
		path = ""
	}
	if err := config.LoadConfig(path); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return config.AppConfig, nil
}

func buildApp(ctx context.Context, withRabbit bool) (*app, error) {
	conf, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logs.InitLogger("feedd", conf.Logs.Level, conf.Logs.Format)
	a := &app{conf: conf, logger: logs.Log, ws: services.NewWSConnManager()}

	if flagSQLite != "" {
		a.orm, err = db.OpenSQLite(flagSQLite)
	} else {
		a.orm, err = db.ConnectDB(conf)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to the database: %w", err)
	}
	db.ORM = a.orm

	a.redis, err = services.NewRedisClient(ctx, conf.Redis)
	if err != nil {
		// лента продолжит работать из БД, задачи - в горутинах
		a.logger.WithError(err).Warn("redis unavailable, running degraded")
	}

	var notifier services.FeedNotifier = services.NewDirectNotifier(a.ws)
	if withRabbit && !conf.RabbitMQ.Disabled && conf.RabbitMQ.URL != "" {
		a.publisher, err = services.DialRabbitMQ(conf.RabbitMQ.URL, a.logger)
		if err != nil {
			a.logger.WithError(err).Warn("RabbitMQ unavailable, feed events go to local websockets only")
		} else {
			notifier = a.publisher
		}
	}

	var store services.ListStore
	var queueClient redis.UniversalClient
	if a.redis != nil {
		store = services.NewRedisListStore(a.redis)
		queueClient = a.redis
	} else {
		store = services.NewRedisListStore(redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%d", conf.Redis.Host, conf.Redis.Port)}))
	}

	a.engine = services.NewFeedEngine(
		conf.Feed,
		store,
		services.NewGormFollowDirectory(a.orm),
		services.NewGormContentStore(a.orm),
		notifier,
		a.logger,
	)
	a.queue = services.NewQueueService(queueClient, a.engine, conf.Feed.QueueWorkers, a.logger)
	a.posts = services.NewPostService(a.orm, a.engine.Reader, a.queue, a.logger)
	a.follows = services.NewFollowService(a.orm, a.queue, a.logger)
	a.users = services.NewUserService(a.orm, a.queue, a.logger)
	return a, nil
}

func (a *app) Close() {
	a.queue.Wait()
	if a.publisher != nil {
		_ = a.publisher.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if sqlDB, err := a.orm.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
