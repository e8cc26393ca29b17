package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	FEED_UPDATE_QUEUE  = "feed_update_queue"
	QUEUE_POLL_TIMEOUT = 5 * time.Second
)

// TaskAction - тип фоновой задачи над лентами
type TaskAction string

const (
	ActionFanout       TaskAction = "fanout"        // разложить новый пост
	ActionRetract      TaskAction = "retract"       // убрать удаленный пост
	ActionRemove       TaskAction = "remove"        // убрать пост из одной ленты (скрытие)
	ActionRemoveAuthor TaskAction = "remove_author" // скрыть автора (блокировка)
	ActionClear        TaskAction = "clear"         // сбросить ленту
)

var ErrUnknownAction = errors.New("unknown feed task action")

// FeedTask - задача в очереди обновления лент
type FeedTask struct {
	ID         string     `json:"id"`
	Action     TaskAction `json:"action"`
	PostID     int64      `json:"post_id,omitempty"`
	AuthorID   int64      `json:"author_id,omitempty"`
	UserID     int64      `json:"user_id,omitempty"`
	EnqueuedAt time.Time  `json:"enqueued_at"`
}

func NewFanoutTask(postID, authorID int64) FeedTask {
	return FeedTask{Action: ActionFanout, PostID: postID, AuthorID: authorID}
}

func NewRetractTask(postID, authorID int64) FeedTask {
	return FeedTask{Action: ActionRetract, PostID: postID, AuthorID: authorID}
}

func NewRemoveTask(userID, postID int64) FeedTask {
	return FeedTask{Action: ActionRemove, UserID: userID, PostID: postID}
}

func NewRemoveAuthorTask(viewerID, authorID int64) FeedTask {
	return FeedTask{Action: ActionRemoveAuthor, UserID: viewerID, AuthorID: authorID}
}

func NewClearTask(userID int64) FeedTask {
	return FeedTask{Action: ActionClear, UserID: userID}
}

// TaskSubmitter принимает задачу и возвращает управление сразу.
// Ошибок нет: вызывающий код уже сохранил данные в БД, лента догонит.
type TaskSubmitter interface {
	Submit(ctx context.Context, task FeedTask)
}

// QueueService - очередь задач в списке Redis и пул воркеров (BLPOP)
type QueueService struct {
	client  redis.UniversalClient
	engine  *FeedEngine
	workers int
	logger  *logrus.Entry
	wg      sync.WaitGroup
}

// NewQueueService. client может быть nil: тогда задачи выполняются в горутинах
func NewQueueService(client redis.UniversalClient, engine *FeedEngine, workers int, logger *logrus.Entry) *QueueService {
	if workers <= 0 {
		workers = engine.Config.QueueWorkers
	}
	return &QueueService{
		client:  client,
		engine:  engine,
		workers: workers,
		logger:  logger.WithField("component", "feed_queue"),
	}
}

// Submit ставит задачу в очередь. Если Redis недоступен, задача
// выполняется сразу в отдельной горутине.
func (qs *QueueService) Submit(ctx context.Context, task FeedTask) {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if task.EnqueuedAt.IsZero() {
		task.EnqueuedAt = time.Now().UTC()
	}
	log := qs.logger.WithFields(logrus.Fields{"task_id": task.ID, "action": task.Action})

	err := qs.enqueue(ctx, task)
	if err == nil {
		log.Debug("feed task enqueued")
		return
	}

	log.WithError(err).Warn("enqueue failed, running task in background")
	qs.wg.Add(1)
	go func() {
		defer qs.wg.Done()
		if err := qs.Execute(context.Background(), task); err != nil {
			log.WithError(err).Error("background feed task failed")
		}
	}()
}

func (qs *QueueService) enqueue(ctx context.Context, task FeedTask) error {
	if qs.client == nil {
		return fmt.Errorf("redis not available")
	}
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}
	if err := qs.client.RPush(ctx, FEED_UPDATE_QUEUE, data).Err(); err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}
	return nil
}

// StartWorkers запускает воркеры; они останавливаются по отмене ctx
func (qs *QueueService) StartWorkers(ctx context.Context) {
	if qs.client == nil {
		qs.logger.Warn("redis not available, queue workers not started")
		return
	}
	for i := 0; i < qs.workers; i++ {
		qs.wg.Add(1)
		go qs.worker(ctx, i)
	}
}

// Wait дожидается остановки воркеров и фоновых задач
func (qs *QueueService) Wait() {
	qs.wg.Wait()
}

func (qs *QueueService) worker(ctx context.Context, workerID int) {
	defer qs.wg.Done()
	log := qs.logger.WithField("worker", workerID)
	log.Info("feed worker started")

	for {
		select {
		case <-ctx.Done():
			log.Info("feed worker stopping")
			return
		default:
		}

		if _, err := qs.ProcessNext(ctx, QUEUE_POLL_TIMEOUT); err != nil {
			if ctx.Err() != nil {
				continue
			}
			log.WithError(err).Warn("feed task failed")
			if errors.Is(err, errQueueRead) {
				time.Sleep(time.Second)
			}
		}
	}
}

var errQueueRead = errors.New("queue read failed")

// ProcessNext забирает одну задачу и выполняет ее. false - очередь пуста до таймаута.
func (qs *QueueService) ProcessNext(ctx context.Context, timeout time.Duration) (bool, error) {
	if qs.client == nil {
		return false, fmt.Errorf("%w: redis not available", errQueueRead)
	}
	result, err := qs.client.BLPop(ctx, timeout, FEED_UPDATE_QUEUE).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: %v", errQueueRead, err)
	}
	if len(result) < 2 {
		return false, nil
	}

	var task FeedTask
	if err := json.Unmarshal([]byte(result[1]), &task); err != nil {
		feedTasksTotal.WithLabelValues("invalid", "error").Inc()
		return true, fmt.Errorf("failed to unmarshal task: %w", err)
	}
	return true, qs.Execute(ctx, task)
}

// Execute выполняет задачу над движком ленты
func (qs *QueueService) Execute(ctx context.Context, task FeedTask) error {
	log := qs.logger.WithFields(logrus.Fields{"task_id": task.ID, "action": task.Action})
	var err error

	switch task.Action {
	case ActionFanout:
		n := qs.engine.Writer.FanOutPost(ctx, task.PostID, task.AuthorID)
		log.WithField("written", n).Debug("fanout task done")
	case ActionRetract:
		n := qs.engine.Writer.RetractPost(ctx, task.PostID, task.AuthorID)
		log.WithField("feeds", n).Debug("retract task done")
	case ActionRemove:
		err = qs.engine.Hooks.RemoveFromFeed(ctx, task.UserID, task.PostID)
	case ActionRemoveAuthor:
		_, err = qs.engine.Hooks.RemoveAuthorFromFeed(ctx, task.UserID, task.AuthorID)
	case ActionClear:
		err = qs.engine.Hooks.ClearFeed(ctx, task.UserID)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownAction, task.Action)
	}

	status := "ok"
	if err != nil {
		status = "error"
	}
	feedTasksTotal.WithLabelValues(string(task.Action), status).Inc()
	return err
}

// QueueLength - число задач, ожидающих воркеров
func (qs *QueueService) QueueLength(ctx context.Context) (int64, error) {
	if qs.client == nil {
		return 0, fmt.Errorf("redis not available")
	}
	return qs.client.LLen(ctx, FEED_UPDATE_QUEUE).Result()
}

func (qs *QueueService) Workers() int {
	return qs.workers
}
