package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"dashboard/config"
	"dashboard/models"
	"dashboard/providers"
	"dashboard/store"
)

// DefaultStorageKey ключ переписки в хранилище
const DefaultStorageKey = "chat:transcript"

const defaultApology = "Извините, я столкнулся с проблемой и не могу ответить на ваше сообщение. Попробуйте позже."

var (
	ErrEmptyInput = errors.New("пустое сообщение")
	ErrBusy       = errors.New("предыдущее сообщение еще отправляется")
)

// State фаза отправки сообщения
type State int32

const (
	StateIdle State = iota
	StateSending
	StateStreaming
)

func (s State) String() string {
	switch s {
	case StateSending:
		return "sending"
	case StateStreaming:
		return "streaming"
	default:
		return "idle"
	}
}

// Completer отдает ответ модели потоком дельт
type Completer interface {
	Stream(ctx context.Context, messages []models.ChatMessage) (*providers.DeltaStream, error)
}

type Config struct {
	Greeting      string
	SystemPrompt  string
	HistoryWindow int
	Apology       string
	StorageKey    string
}

// Session переписка с ассистентом, сохраняемая после каждого изменения
type Session struct {
	cfg       Config
	completer Completer
	kv        store.Store

	busy  atomic.Bool
	state atomic.Int32

	mu         sync.RWMutex
	transcript []models.ChatMessage
	typing     strings.Builder
	input      string
}

// NewSession загружает сохраненную переписку или начинает с приветствия
func NewSession(cfg Config, completer Completer, kv store.Store) (*Session, error) {
	if cfg.StorageKey == "" {
		cfg.StorageKey = DefaultStorageKey
	}
	if cfg.Apology == "" {
		cfg.Apology = defaultApology
	}
	if cfg.HistoryWindow < 0 {
		cfg.HistoryWindow = 0
	}

	s := &Session{cfg: cfg, completer: completer, kv: kv}

	raw, found, err := kv.Get(cfg.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("ошибка загрузки переписки: %w", err)
	}
	if found {
		if err := json.Unmarshal([]byte(raw), &s.transcript); err != nil {
			config.Warning("сохраненная переписка повреждена, начинаем заново: %v", err)
			s.transcript = nil
		}
	}
	if len(s.transcript) == 0 {
		s.transcript = []models.ChatMessage{s.greeting()}
		if err := s.persistLocked(); err != nil {
			return nil, err
		}
	}

	return s, nil
}

func (s *Session) greeting() models.ChatMessage {
	return models.ChatMessage{Role: models.RoleAssistant, Content: s.cfg.Greeting}
}

func (s *Session) SetInput(text string) {
	s.mu.Lock()
	s.input = text
	s.mu.Unlock()
}

func (s *Session) Input() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.input
}

// Submit отправляет текущее содержимое поля ввода
func (s *Session) Submit(ctx context.Context, onDelta func(string)) (models.ChatMessage, error) {
	return s.Send(ctx, s.Input(), onDelta)
}

// Send добавляет сообщение пользователя и получает ответ потоком.
// При любой ошибке в переписку добавляется извинение; оно же возвращается
// вместе с причиной ошибки.
func (s *Session) Send(ctx context.Context, text string, onDelta func(string)) (models.ChatMessage, error) {
	if strings.TrimSpace(text) == "" {
		return models.ChatMessage{}, ErrEmptyInput
	}
	if !s.busy.CompareAndSwap(false, true) {
		return models.ChatMessage{}, ErrBusy
	}
	defer s.busy.Store(false)
	defer s.state.Store(int32(StateIdle))

	s.state.Store(int32(StateSending))

	userMessage := models.ChatMessage{Role: models.RoleUser, Content: text}
	s.mu.Lock()
	request := s.buildRequestLocked(userMessage)
	s.transcript = append(s.transcript, userMessage)
	s.input = ""
	s.typing.Reset()
	err := s.persistLocked()
	s.mu.Unlock()
	if err != nil {
		config.Warning("не удалось сохранить переписку: %v", err)
	}

	reply, err := s.stream(ctx, request, onDelta)
	if err != nil {
		config.Error("ошибка чата: %v", err)
		apology := models.ChatMessage{Role: models.RoleAssistant, Content: s.cfg.Apology}
		s.commit(apology)
		return apology, err
	}

	answer := models.ChatMessage{Role: models.RoleAssistant, Content: reply}
	s.commit(answer)
	return answer, nil
}

// buildRequestLocked системная подсказка + последние HistoryWindow сообщений + новое
func (s *Session) buildRequestLocked(userMessage models.ChatMessage) []models.ChatMessage {
	history := s.transcript
	if len(history) > s.cfg.HistoryWindow {
		history = history[len(history)-s.cfg.HistoryWindow:]
	}

	request := make([]models.ChatMessage, 0, len(history)+2)
	request = append(request, models.ChatMessage{Role: models.RoleSystem, Content: s.cfg.SystemPrompt})
	request = append(request, history...)
	request = append(request, userMessage)
	return request
}

func (s *Session) stream(ctx context.Context, request []models.ChatMessage, onDelta func(string)) (string, error) {
	stream, err := s.completer.Stream(ctx, request)
	if err != nil {
		return "", err
	}
	defer stream.Close()

	s.state.Store(int32(StateStreaming))
	for delta, err := range stream.Deltas() {
		if err != nil {
			return "", err
		}
		s.mu.Lock()
		s.typing.WriteString(delta)
		s.mu.Unlock()
		if onDelta != nil {
			onDelta(delta)
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.typing.String(), nil
}

// commit добавляет ответ ассистента и очищает накопитель
func (s *Session) commit(msg models.ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.typing.Reset()
	s.transcript = append(s.transcript, msg)
	if err := s.persistLocked(); err != nil {
		config.Warning("не удалось сохранить переписку: %v", err)
	}
}

// Clear сбрасывает переписку к приветствию
func (s *Session) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.transcript = []models.ChatMessage{s.greeting()}
	return s.persistLocked()
}

func (s *Session) persistLocked() error {
	raw, err := json.Marshal(s.transcript)
	if err != nil {
		return fmt.Errorf("ошибка сериализации переписки: %w", err)
	}
	if err := s.kv.Set(s.cfg.StorageKey, string(raw)); err != nil {
		return fmt.Errorf("ошибка сохранения переписки: %w", err)
	}
	return nil
}

// Transcript копия переписки
func (s *Session) Transcript() []models.ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.ChatMessage, len(s.transcript))
	copy(out, s.transcript)
	return out
}

func (s *Session) State() State {
	return State(s.state.Load())
}

// Typing текст ответа, полученный к текущему моменту
func (s *Session) Typing() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.typing.String()
}
