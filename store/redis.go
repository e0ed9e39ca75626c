package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisStore хранилище поверх Redis, ключи без срока жизни
type RedisStore struct {
	Client  *redis.Client
	Ctx     context.Context
	timeout time.Duration
}

// NewRedisStore подключается к Redis и проверяет соединение
func NewRedisStore(addr string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	s := &RedisStore{
		Client:  client,
		Ctx:     context.Background(),
		timeout: 3 * time.Second,
	}

	ctx, cancel := s.opCtx()
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("подключение к redis %s: %w", addr, err)
	}

	return s, nil
}

func (s *RedisStore) opCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(s.Ctx, s.timeout)
}

func (s *RedisStore) Get(key string) (string, bool, error) {
	ctx, cancel := s.opCtx()
	defer cancel()

	val, err := s.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (s *RedisStore) Set(key, value string) error {
	ctx, cancel := s.opCtx()
	defer cancel()

	return s.Client.Set(ctx, key, value, 0).Err()
}

func (s *RedisStore) Delete(key string) error {
	ctx, cancel := s.opCtx()
	defer cancel()

	return s.Client.Del(ctx, key).Err()
}

func (s *RedisStore) Keys(prefix string) ([]string, error) {
	ctx, cancel := s.opCtx()
	defer cancel()

	keys := make([]string, 0)
	iter := s.Client.Scan(ctx, 0, escapeGlob(prefix)+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *RedisStore) Close() error {
	return s.Client.Close()
}

// escapeGlob экранирует спецсимволы шаблона SCAN MATCH
func escapeGlob(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '*', '?', '[', ']', '\\':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}

var _ Store = (*RedisStore)(nil)
