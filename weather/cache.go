package weather

import (
	"encoding/json"
	"fmt"
	"time"

	"dashboard/config"
	"dashboard/models"
)

// CachePrefix префикс ключей погоды в хранилище
const CachePrefix = "weather:"

type cacheEntry struct {
	Data      *models.WeatherSnapshot `json:"data"`
	Timestamp int64                   `json:"timestamp"` // unix ms
}

func cacheKey(city string) string {
	return CachePrefix + city
}

// getFromCache читает запись и удаляет ее, если срок истек.
// Нечитаемая запись считается промахом.
func (c *Client) getFromCache(city string) (*models.WeatherSnapshot, bool) {
	key := cacheKey(city)

	raw, found, err := c.kv.Get(key)
	if err != nil {
		config.Warning("ошибка чтения кеша %s: %v", key, err)
		return nil, false
	}
	if !found {
		return nil, false
	}

	var entry cacheEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil || entry.Data == nil {
		config.Warning("поврежденная запись кеша %s, игнорируем", key)
		return nil, false
	}

	age := c.now().Sub(time.UnixMilli(entry.Timestamp))
	if age > c.ttl {
		if err := c.kv.Delete(key); err != nil {
			config.Warning("не удалось удалить устаревшую запись %s: %v", key, err)
		}
		return nil, false
	}

	return entry.Data, true
}

// saveToCache сохраняет снимок под ключом введенного города
func (c *Client) saveToCache(city string, data *models.WeatherSnapshot) error {
	raw, err := json.Marshal(cacheEntry{
		Data:      data,
		Timestamp: c.now().UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("ошибка сериализации кеша: %w", err)
	}
	return c.kv.Set(cacheKey(city), string(raw))
}

// ClearCache удаляет все записи погоды, возвращает их количество
func (c *Client) ClearCache() (int, error) {
	keys, err := c.kv.Keys(CachePrefix)
	if err != nil {
		return 0, fmt.Errorf("ошибка получения ключей кеша: %w", err)
	}
	for _, key := range keys {
		if err := c.kv.Delete(key); err != nil {
			return 0, fmt.Errorf("ошибка удаления %s: %w", key, err)
		}
	}
	return len(keys), nil
}
