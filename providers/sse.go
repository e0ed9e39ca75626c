package providers

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"
	"sync/atomic"

	"dashboard/config"
)

// ErrStreamConsumed повторное чтение потока
var ErrStreamConsumed = errors.New("поток ответа уже прочитан")

const (
	sseDataPrefix = "data:"
	sseDone       = "[DONE]"
)

// StreamDecodeError чанк потока, который не удалось разобрать
type StreamDecodeError struct {
	Payload string
	Err     error
}

func (e *StreamDecodeError) Error() string {
	return fmt.Sprintf("не удалось разобрать чанк %q: %v", e.Payload, e.Err)
}

func (e *StreamDecodeError) Unwrap() error {
	return e.Err
}

// DeltaStream конечный поток текстовых дельт из SSE ответа.
// Читается один раз; отмена контекста запроса обрывает чтение.
type DeltaStream struct {
	body      io.ReadCloser
	requestID string
	consumed  atomic.Bool
}

func NewDeltaStream(body io.ReadCloser, requestID string) *DeltaStream {
	return &DeltaStream{body: body, requestID: requestID}
}

// RequestID идентификатор запроса, породившего поток
func (s *DeltaStream) RequestID() string {
	return s.requestID
}

// Close освобождает соединение, если поток не был дочитан
func (s *DeltaStream) Close() error {
	s.consumed.Store(true)
	return s.body.Close()
}

// Deltas возвращает последовательность (дельта, ошибка).
// Ошибка чтения завершает последовательность; битые чанки пропускаются.
func (s *DeltaStream) Deltas() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if !s.consumed.CompareAndSwap(false, true) {
			yield("", ErrStreamConsumed)
			return
		}
		defer s.body.Close()

		scanner := bufio.NewScanner(s.body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if !strings.HasPrefix(line, sseDataPrefix) {
				continue
			}
			data := strings.TrimSpace(strings.TrimPrefix(line, sseDataPrefix))
			if data == sseDone {
				return
			}

			delta, err := decodeDelta(data)
			if err != nil {
				config.Warning("[%s] %v", s.requestID, err)
				continue
			}
			if delta == "" {
				continue
			}
			if !yield(delta, nil) {
				return
			}
		}

		if err := scanner.Err(); err != nil {
			yield("", fmt.Errorf("ошибка чтения потока: %w", err))
		}
	}
}

func decodeDelta(data string) (string, error) {
	var chunk struct {
		Choices []struct {
			Delta struct {
				Content string `json:"content"`
			} `json:"delta"`
		} `json:"choices"`
	}
	if err := json.Unmarshal([]byte(data), &chunk); err != nil {
		return "", &StreamDecodeError{Payload: data, Err: err}
	}
	if len(chunk.Choices) == 0 {
		return "", nil
	}
	return chunk.Choices[0].Delta.Content, nil
}

// Collect дочитывает поток и склеивает дельты
func Collect(s *DeltaStream) (string, error) {
	var sb strings.Builder
	for delta, err := range s.Deltas() {
		if err != nil {
			return sb.String(), err
		}
		sb.WriteString(delta)
	}
	return sb.String(), nil
}
