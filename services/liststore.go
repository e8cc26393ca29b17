package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	FEED_KEY_PREFIX        = "user_feed:"       // лента пользователя (push)
	AUTHOR_FEED_KEY_PREFIX = "author_feed:"     // последние посты автора (pull)
	CELEBRITY_SET_KEY      = "feed:celebrities" // авторы с доставкой при чтении
)

func feedKey(userID int64) string {
	return fmt.Sprintf("%s%d", FEED_KEY_PREFIX, userID)
}

func authorFeedKey(authorID int64) string {
	return fmt.Sprintf("%s%d", AUTHOR_FEED_KEY_PREFIX, authorID)
}

// ListStore - обертка над key-value хранилищем со списками и множествами.
// Бизнес-логики здесь нет.
type ListStore interface {
	PushFront(ctx context.Context, key string, values ...string) error
	Trim(ctx context.Context, key string, maxLen int64) error
	Range(ctx context.Context, key string, start, stop int64) ([]string, error)
	Remove(ctx context.Context, key string, value string) (int64, error)
	Delete(ctx context.Context, keys ...string) error
	IsMember(ctx context.Context, key, member string) (bool, error)
	AddMembers(ctx context.Context, key string, members ...string) error
	Expire(ctx context.Context, key string, ttl time.Duration) error
	Batch() ListBatch
}

// ListBatch копит команды и отправляет их одним запросом (pipeline).
// Батч не атомарен: часть команд может выполниться, часть нет,
// результат каждой команды доступен по ее индексу.
type ListBatch interface {
	PushFront(key string, values ...string) int
	Trim(key string, maxLen int64) int
	Expire(key string, ttl time.Duration) int
	Range(key string, start, stop int64) int
	Remove(key string, value string) int
	IsMember(key, member string) int
	Len() int
	Exec(ctx context.Context) (*BatchResult, error)
}

// BatchResult - результаты команд батча по индексам
type BatchResult struct {
	errs    []error
	strings map[int][]string
	bools   map[int]bool
}

// Err возвращает ошибку команды i (nil - успех)
func (r *BatchResult) Err(i int) error {
	if i < 0 || i >= len(r.errs) {
		return fmt.Errorf("batch command %d out of range", i)
	}
	return r.errs[i]
}

func (r *BatchResult) Strings(i int) ([]string, error) {
	if err := r.Err(i); err != nil {
		return nil, err
	}
	return r.strings[i], nil
}

func (r *BatchResult) Bool(i int) (bool, error) {
	if err := r.Err(i); err != nil {
		return false, err
	}
	return r.bools[i], nil
}

// Failed - количество неуспешных команд
func (r *BatchResult) Failed() int {
	n := 0
	for _, err := range r.errs {
		if err != nil {
			n++
		}
	}
	return n
}

// ErrEmptyBatch - Exec на пустом батче
var ErrEmptyBatch = errors.New("empty batch")

// RedisListStore - реализация ListStore на go-redis
type RedisListStore struct {
	client redis.UniversalClient
}

func NewRedisListStore(client redis.UniversalClient) *RedisListStore {
	return &RedisListStore{client: client}
}

func (s *RedisListStore) PushFront(ctx context.Context, key string, values ...string) error {
	return s.client.LPush(ctx, key, toArgs(values)...).Err()
}

func (s *RedisListStore) Trim(ctx context.Context, key string, maxLen int64) error {
	return s.client.LTrim(ctx, key, 0, maxLen-1).Err()
}

func (s *RedisListStore) Range(ctx context.Context, key string, start, stop int64) ([]string, error) {
	return s.client.LRange(ctx, key, start, stop).Result()
}

func (s *RedisListStore) Remove(ctx context.Context, key string, value string) (int64, error) {
	return s.client.LRem(ctx, key, 0, value).Result()
}

func (s *RedisListStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, keys...).Err()
}

func (s *RedisListStore) IsMember(ctx context.Context, key, member string) (bool, error) {
	return s.client.SIsMember(ctx, key, member).Result()
}

func (s *RedisListStore) AddMembers(ctx context.Context, key string, members ...string) error {
	return s.client.SAdd(ctx, key, toArgs(members)...).Err()
}

func (s *RedisListStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return s.client.Expire(ctx, key, ttl).Err()
}

func (s *RedisListStore) Batch() ListBatch {
	return &redisBatch{pipe: s.client.Pipeline()}
}

type redisBatch struct {
	pipe redis.Pipeliner
	cmds []redis.Cmder
}

func (b *redisBatch) add(cmd redis.Cmder) int {
	b.cmds = append(b.cmds, cmd)
	return len(b.cmds) - 1
}

func (b *redisBatch) PushFront(key string, values ...string) int {
	return b.add(b.pipe.LPush(context.Background(), key, toArgs(values)...))
}

func (b *redisBatch) Trim(key string, maxLen int64) int {
	return b.add(b.pipe.LTrim(context.Background(), key, 0, maxLen-1))
}

func (b *redisBatch) Expire(key string, ttl time.Duration) int {
	return b.add(b.pipe.Expire(context.Background(), key, ttl))
}

func (b *redisBatch) Range(key string, start, stop int64) int {
	return b.add(b.pipe.LRange(context.Background(), key, start, stop))
}

func (b *redisBatch) Remove(key string, value string) int {
	return b.add(b.pipe.LRem(context.Background(), key, 0, value))
}

func (b *redisBatch) IsMember(key, member string) int {
	return b.add(b.pipe.SIsMember(context.Background(), key, member))
}

func (b *redisBatch) Len() int {
	return len(b.cmds)
}

// Exec отправляет батч. Ошибка возвращается только если не выполнилась
// ни одна команда; частичные сбои видны через BatchResult.
func (b *redisBatch) Exec(ctx context.Context) (*BatchResult, error) {
	if len(b.cmds) == 0 {
		return &BatchResult{}, ErrEmptyBatch
	}

	_, execErr := b.pipe.Exec(ctx)

	res := &BatchResult{
		errs:    make([]error, len(b.cmds)),
		strings: make(map[int][]string),
		bools:   make(map[int]bool),
	}
	failed := 0
	for i, cmd := range b.cmds {
		err := cmd.Err()
		if err == redis.Nil {
			err = nil
		}
		if err != nil {
			res.errs[i] = err
			failed++
			continue
		}
		switch c := cmd.(type) {
		case *redis.StringSliceCmd:
			res.strings[i] = c.Val()
		case *redis.BoolCmd:
			res.bools[i] = c.Val()
		}
	}

	if failed == len(b.cmds) {
		if execErr == nil {
			execErr = res.errs[0]
		}
		return res, fmt.Errorf("batch of %d commands failed: %w", len(b.cmds), execErr)
	}
	return res, nil
}

func toArgs(values []string) []interface{} {
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}
