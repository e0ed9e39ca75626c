package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"QWEATHER_API_KEY", "ARK_API_KEY", "CACHE_DURATION", "CHAT_HISTORY_WINDOW", "STORE_BACKEND", "DEFAULT_CITY"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.CacheTTL() != 30*time.Minute {
		t.Errorf("CacheTTL = %s", cfg.CacheTTL())
	}
	if cfg.ChatHistoryWindow != 10 {
		t.Errorf("ChatHistoryWindow = %d", cfg.ChatHistoryWindow)
	}
	if cfg.StoreBackend != "bolt" || cfg.DefaultCity != "南京" {
		t.Errorf("unexpected defaults: backend %q, city %q", cfg.StoreBackend, cfg.DefaultCity)
	}
	if cfg.RequireWeather() == nil || cfg.RequireChat() == nil {
		t.Error("missing keys must be reported")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("QWEATHER_API_KEY", "wk")
	t.Setenv("ARK_API_KEY", "ck")
	t.Setenv("CACHE_DURATION", "5")
	t.Setenv("QWEATHER_RPS", "2.5")
	t.Setenv("NET_PROBE_INTERVAL", "1m")
	t.Setenv("REDIS_DB", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.RequireWeather() != nil || cfg.RequireChat() != nil {
		t.Error("keys are set")
	}
	if cfg.CacheTTL() != 5*time.Minute {
		t.Errorf("CacheTTL = %s", cfg.CacheTTL())
	}
	if cfg.WeatherRPS != 2.5 {
		t.Errorf("WeatherRPS = %v", cfg.WeatherRPS)
	}
	if cfg.NetProbeInterval != time.Minute {
		t.Errorf("NetProbeInterval = %s", cfg.NetProbeInterval)
	}
	if cfg.RedisDB != 0 {
		t.Errorf("invalid int should fall back to default, got %d", cfg.RedisDB)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("CACHE_DURATION", "0")
	if _, err := Load(); err == nil {
		t.Error("expected error for zero cache duration")
	}

	t.Setenv("CACHE_DURATION", "30")
	t.Setenv("CHAT_HISTORY_WINDOW", "-1")
	if _, err := Load(); err == nil {
		t.Error("expected error for negative history window")
	}
}

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	SetLogOutput(&buf)
	t.Cleanup(func() {
		SetLogOutput(os.Stderr)
		logLevel = LevelInfo
	})

	logLevel = ParseLevel("warning")
	Info("скрыто")
	Warning("видно %d", 1)
	Error("ошибка")

	out := buf.String()
	if strings.Contains(out, "скрыто") {
		t.Error("info must be filtered at warning level")
	}
	if !strings.Contains(out, "WARNING: ") || !strings.Contains(out, "видно 1") || !strings.Contains(out, "ERROR: ") {
		t.Errorf("unexpected log output: %q", out)
	}
}

func TestSetupLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "dashboard.log")
	closer, err := SetupLogger("debug", path)
	if err != nil {
		t.Fatalf("SetupLogger failed: %v", err)
	}
	t.Cleanup(func() {
		SetLogOutput(os.Stderr)
		logLevel = LevelInfo
	})

	Debug("запись в файл")
	closer.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("log file not created: %v", err)
	}
	if !strings.Contains(string(data), "запись в файл") {
		t.Errorf("log file content: %q", data)
	}
}
