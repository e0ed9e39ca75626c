package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"dashboard/config"
)

// ErrTransport ошибка уровня сети: DNS, отказ в соединении, обрыв
var ErrTransport = errors.New("сетевая ошибка")

// StatusError ответ с кодом вне диапазона 2xx
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("HTTP ошибка: статус %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("HTTP ошибка: статус %d", e.StatusCode)
}

// SleepFunc ждет d или отмены ctx
type SleepFunc func(ctx context.Context, d time.Duration) error

// SleepContext реальная пауза с учетом отмены контекста
func SleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RetryPolicy параметры повторов: число попыток и начальная пауза,
// которая удваивается после каждой неудачи
type RetryPolicy struct {
	Attempts     int
	InitialDelay time.Duration
	Sleep        SleepFunc
}

// DefaultRetryPolicy 3 попытки, паузы 1s и 2s
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts:     3,
		InitialDelay: time.Second,
		Sleep:        SleepContext,
	}
}

// Retry выполняет do до policy.Attempts раз.
// Повторяются ответы не из 2xx и сетевые ошибки; успешный ответ возвращается
// с открытым телом, закрыть его должен вызывающий.
func Retry(ctx context.Context, policy RetryPolicy, do func(ctx context.Context) (*http.Response, error)) (*http.Response, error) {
	attempts := policy.Attempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := policy.Sleep
	if sleep == nil {
		sleep = SleepContext
	}
	delay := policy.InitialDelay

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		resp, err := do(ctx)
		switch {
		case err != nil && ctx.Err() != nil:
			return nil, ctx.Err()
		case err != nil:
			lastErr = fmt.Errorf("%w: %w", ErrTransport, err)
		case resp.StatusCode < 200 || resp.StatusCode > 299:
			lastErr = statusError(resp)
		default:
			return resp, nil
		}

		if attempt == attempts {
			break
		}

		config.Warning("попытка %d/%d не удалась: %v, повтор через %s", attempt, attempts, lastErr, delay)
		if err := sleep(ctx, delay); err != nil {
			return nil, err
		}
		delay *= 2
	}

	return nil, lastErr
}

func statusError(resp *http.Response) *StatusError {
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &StatusError{
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(body)),
	}
}
