package config

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Уровни логирования
const (
	LevelDebug = iota
	LevelInfo
	LevelWarning
	LevelError
)

var (
	logMu    sync.RWMutex
	logLevel = LevelInfo

	DebugLogger   = log.New(os.Stderr, "DEBUG: ", log.Ldate|log.Ltime|log.Lshortfile)
	InfoLogger    = log.New(os.Stderr, "INFO: ", log.Ldate|log.Ltime|log.Lshortfile)
	WarningLogger = log.New(os.Stderr, "WARNING: ", log.Ldate|log.Ltime|log.Lshortfile)
	ErrorLogger   = log.New(os.Stderr, "ERROR: ", log.Ldate|log.Ltime|log.Lshortfile)
)

// ParseLevel переводит строковый уровень в константу
func ParseLevel(level string) int {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarning
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// SetupLogger настраивает уровень и вывод логов.
// Если задан файл, логи пишутся одновременно в stderr и в файл.
func SetupLogger(level, file string) (io.Closer, error) {
	var out io.Writer = os.Stderr
	var closer io.Closer = nopCloser{}

	if file != "" {
		if err := os.MkdirAll(filepath.Dir(file), 0755); err != nil {
			return nil, fmt.Errorf("создание каталога логов: %w", err)
		}
		logFile, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("открытие файла логов: %w", err)
		}
		out = io.MultiWriter(os.Stderr, logFile)
		closer = logFile
	}

	SetLogOutput(out)

	logMu.Lock()
	logLevel = ParseLevel(level)
	logMu.Unlock()

	return closer, nil
}

// SetLogOutput перенаправляет все логгеры в w
func SetLogOutput(w io.Writer) {
	DebugLogger.SetOutput(w)
	InfoLogger.SetOutput(w)
	WarningLogger.SetOutput(w)
	ErrorLogger.SetOutput(w)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func enabled(level int) bool {
	logMu.RLock()
	defer logMu.RUnlock()
	return level >= logLevel
}

func Debug(format string, v ...interface{}) {
	if enabled(LevelDebug) {
		DebugLogger.Output(2, fmt.Sprintf(format, v...))
	}
}

func Info(format string, v ...interface{}) {
	if enabled(LevelInfo) {
		InfoLogger.Output(2, fmt.Sprintf(format, v...))
	}
}

func Warning(format string, v ...interface{}) {
	if enabled(LevelWarning) {
		WarningLogger.Output(2, fmt.Sprintf(format, v...))
	}
}

func Error(format string, v ...interface{}) {
	if enabled(LevelError) {
		ErrorLogger.Output(2, fmt.Sprintf(format, v...))
	}
}
