package store

import (
	"fmt"
	"strings"

	"dashboard/config"
)

// Store синхронное хранилище ключ-значение.
// Значения хранятся как сериализованный JSON; последняя запись побеждает.
type Store interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
	Keys(prefix string) ([]string, error)
	Close() error
}

// Open открывает хранилище, выбранное в конфигурации
func Open(cfg *config.Config) (Store, error) {
	switch strings.ToLower(cfg.StoreBackend) {
	case "memory":
		return NewMemoryStore(), nil
	case "bolt", "":
		return NewBoltStore(cfg.StorePath)
	case "sqlite":
		return NewSQLiteStore(cfg.StorePath)
	case "redis":
		return NewRedisStore(cfg.RedisAddr, cfg.RedisDB)
	default:
		return nil, fmt.Errorf("неизвестный тип хранилища %q", cfg.StoreBackend)
	}
}
