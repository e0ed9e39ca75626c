package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"dashboard/config"
	"dashboard/models"
)

// CompletionProvider OpenAI-совместимый chat completions API с потоковым ответом
type CompletionProvider struct {
	apiKey  string
	url     string
	model   string
	client  *http.Client
	limiter *rate.Limiter
}

func NewCompletionProvider(cfg *config.Config) *CompletionProvider {
	limit := rate.Inf
	if cfg.ChatRPS > 0 {
		limit = rate.Limit(cfg.ChatRPS)
	}

	return &CompletionProvider{
		apiKey: cfg.ChatAPIKey,
		url:    cfg.ChatAPIURL,
		model:  cfg.ChatModel,
		// без общего таймаута: поток может идти долго
		client: &http.Client{
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				DialContext:           (&net.Dialer{Timeout: 10 * time.Second}).DialContext,
				TLSHandshakeTimeout:   10 * time.Second,
				ResponseHeaderTimeout: 60 * time.Second,
			},
		},
		limiter: rate.NewLimiter(limit, 1),
	}
}

func (p *CompletionProvider) Name() string {
	return p.model
}

func (p *CompletionProvider) IsAvailable() bool {
	return p.apiKey != ""
}

// Stream отправляет сообщения и возвращает поток дельт ответа.
// Ошибки до начала потока: ErrTransport (сеть) или *StatusError (код не 2xx).
func (p *CompletionProvider) Stream(ctx context.Context, messages []models.ChatMessage) (*DeltaStream, error) {
	if !p.IsAvailable() {
		return nil, fmt.Errorf("провайдер чата не настроен")
	}

	body, err := json.Marshal(models.CompletionRequest{
		Model:    p.model,
		Messages: messages,
		Stream:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации запроса: %w", err)
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	requestID := uuid.New().String()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ошибка создания запроса: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("X-Client-Request-Id", requestID)

	config.Debug("[%s] запрос к %s, сообщений: %d", requestID, p.model, len(messages))

	resp, err := p.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(resp)
	}

	return NewDeltaStream(resp.Body, requestID), nil
}
