package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultSystemPrompt = "Ты ИИ-ассистент личной панели. Отвечай кратко и по делу."
	defaultGreeting     = "Привет! Я ваш ассистент на панели. Чем могу помочь?"
)

type Config struct {
	// Погода (QWeather)
	WeatherAPIKey string
	WeatherGeoURL string
	WeatherAPIURL string
	WeatherLang   string
	WeatherRPS    float64
	WeatherBurst  int
	CacheDuration int // минуты
	DefaultCity   string

	// Чат
	ChatAPIKey        string
	ChatAPIURL        string
	ChatModel         string
	ChatHistoryWindow int
	ChatSystemPrompt  string
	ChatGreeting      string
	ChatRPS           float64

	// Локальное хранилище
	StoreBackend string
	StorePath    string
	RedisAddr    string
	RedisDB      int

	// Проверка сети
	NetProbeAddr     string
	NetProbeInterval time.Duration

	LogLevel string
	LogFile  string
}

func Load() (*Config, error) {
	// Загружаем .env файл если существует
	godotenv.Load()

	config := &Config{
		WeatherAPIKey: getEnv("QWEATHER_API_KEY", ""),
		WeatherGeoURL: getEnv("QWEATHER_GEO_URL", "https://geoapi.qweather.com"),
		WeatherAPIURL: getEnv("QWEATHER_API_URL", "https://devapi.qweather.com"),
		WeatherLang:   getEnv("QWEATHER_LANG", "zh"),
		WeatherRPS:    getEnvAsFloat("QWEATHER_RPS", 5),
		WeatherBurst:  getEnvAsInt("QWEATHER_BURST", 5),
		CacheDuration: getEnvAsInt("CACHE_DURATION", 30),
		DefaultCity:   getEnv("DEFAULT_CITY", "南京"),

		ChatAPIKey:        getEnv("ARK_API_KEY", ""),
		ChatAPIURL:        getEnv("CHAT_API_URL", "https://ark.cn-beijing.volces.com/api/v3/chat/completions"),
		ChatModel:         getEnv("CHAT_MODEL", "doubao-1.5-pro-32k-250115"),
		ChatHistoryWindow: getEnvAsInt("CHAT_HISTORY_WINDOW", 10),
		ChatSystemPrompt:  getEnv("CHAT_SYSTEM_PROMPT", defaultSystemPrompt),
		ChatGreeting:      getEnv("CHAT_GREETING", defaultGreeting),
		ChatRPS:           getEnvAsFloat("CHAT_RPS", 1),

		StoreBackend: getEnv("STORE_BACKEND", "bolt"),
		StorePath:    getEnv("STORE_PATH", "dashboard.db"),
		RedisAddr:    getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:      getEnvAsInt("REDIS_DB", 0),

		NetProbeAddr:     getEnv("NET_PROBE_ADDR", "devapi.qweather.com:443"),
		NetProbeInterval: getEnvAsDuration("NET_PROBE_INTERVAL", 30*time.Second),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", ""),
	}

	if config.CacheDuration <= 0 {
		return nil, fmt.Errorf("CACHE_DURATION должен быть положительным, получено %d", config.CacheDuration)
	}
	if config.ChatHistoryWindow < 0 {
		return nil, fmt.Errorf("CHAT_HISTORY_WINDOW не может быть отрицательным")
	}

	return config, nil
}

// CacheTTL возвращает время жизни записи кеша погоды
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheDuration) * time.Minute
}

// RequireWeather проверяет, что погодный провайдер настроен
func (c *Config) RequireWeather() error {
	if c.WeatherAPIKey == "" {
		return fmt.Errorf("не задан API ключ погоды (QWEATHER_API_KEY)")
	}
	return nil
}

// RequireChat проверяет, что провайдер чата настроен
func (c *Config) RequireChat() error {
	if c.ChatAPIKey == "" {
		return fmt.Errorf("не задан API ключ чата (ARK_API_KEY)")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue
	}

	floatValue, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return floatValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}
