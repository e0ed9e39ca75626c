package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"dashboard/models"
	"dashboard/providers"
	"dashboard/store"
)

const greeting = "Привет! Чем помочь?"

// fakeCompleter отвечает заранее заданным SSE телом и запоминает запросы
type fakeCompleter struct {
	mu       sync.Mutex
	requests [][]models.ChatMessage
	body     func() io.ReadCloser
	err      error
}

func (f *fakeCompleter) Stream(ctx context.Context, messages []models.ChatMessage) (*providers.DeltaStream, error) {
	f.mu.Lock()
	f.requests = append(f.requests, messages)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return providers.NewDeltaStream(f.body(), "test"), nil
}

func (f *fakeCompleter) lastRequest() []models.ChatMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func sseBody(deltas ...string) func() io.ReadCloser {
	return func() io.ReadCloser {
		var sb strings.Builder
		for _, d := range deltas {
			payload, _ := json.Marshal(map[string]any{
				"choices": []any{map[string]any{"delta": map[string]string{"content": d}}},
			})
			fmt.Fprintf(&sb, "data: %s\n\n", payload)
		}
		sb.WriteString("data: [DONE]\n\n")
		return io.NopCloser(strings.NewReader(sb.String()))
	}
}

func testConfig() Config {
	return Config{
		Greeting:      greeting,
		SystemPrompt:  "system",
		HistoryWindow: 10,
	}
}

func newTestSession(t *testing.T, completer Completer) (*Session, store.Store) {
	t.Helper()
	kv := store.NewMemoryStore()
	s, err := NewSession(testConfig(), completer, kv)
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	return s, kv
}

func persisted(t *testing.T, kv store.Store) []models.ChatMessage {
	t.Helper()
	raw, ok, err := kv.Get(DefaultStorageKey)
	if err != nil || !ok {
		t.Fatalf("transcript not persisted: ok %v, err %v", ok, err)
	}
	var msgs []models.ChatMessage
	if err := json.Unmarshal([]byte(raw), &msgs); err != nil {
		t.Fatalf("bad persisted transcript: %v", err)
	}
	return msgs
}

func TestNewSessionSeedsGreeting(t *testing.T) {
	s, kv := newTestSession(t, &fakeCompleter{})

	got := s.Transcript()
	if len(got) != 1 || got[0].Role != models.RoleAssistant || got[0].Content != greeting {
		t.Fatalf("unexpected initial transcript: %+v", got)
	}
	if len(persisted(t, kv)) != 1 {
		t.Fatal("greeting must be persisted")
	}
}

func TestSendHello(t *testing.T) {
	fc := &fakeCompleter{body: sseBody("Здрав", "ствуйте!")}
	s, kv := newTestSession(t, fc)

	var deltas []string
	reply, err := s.Send(context.Background(), "hello", func(d string) {
		deltas = append(deltas, d)
	})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if reply.Content != "Здравствуйте!" {
		t.Fatalf("reply = %q", reply.Content)
	}
	if len(deltas) != 2 {
		t.Fatalf("expected 2 deltas, got %v", deltas)
	}

	want := []models.ChatMessage{
		{Role: models.RoleAssistant, Content: greeting},
		{Role: models.RoleUser, Content: "hello"},
		{Role: models.RoleAssistant, Content: "Здравствуйте!"},
	}
	for name, got := range map[string][]models.ChatMessage{"memory": s.Transcript(), "store": persisted(t, kv)} {
		if len(got) != len(want) {
			t.Fatalf("%s transcript = %+v", name, got)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("%s transcript[%d] = %+v, want %+v", name, i, got[i], want[i])
			}
		}
	}

	req := fc.lastRequest()
	if len(req) != 3 || req[0].Role != models.RoleSystem || req[2].Content != "hello" {
		t.Fatalf("unexpected request: %+v", req)
	}
	if s.State() != StateIdle || s.Typing() != "" {
		t.Fatalf("session not reset: state %s, typing %q", s.State(), s.Typing())
	}
}

func TestSendEmptyStreamCommitsEmptyReply(t *testing.T) {
	fc := &fakeCompleter{body: sseBody()}
	s, kv := newTestSession(t, fc)

	reply, err := s.Send(context.Background(), "hello", nil)
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if reply.Role != models.RoleAssistant || reply.Content != "" {
		t.Fatalf("reply = %+v, want empty assistant message", reply)
	}

	got := persisted(t, kv)
	if len(got) != 3 || got[1].Content != "hello" || got[2] != reply {
		t.Fatalf("transcript after empty stream: %+v", got)
	}
}

func TestUserMessageVisibleBeforeStreamCompletes(t *testing.T) {
	pr, pw := io.Pipe()
	fc := &fakeCompleter{body: func() io.ReadCloser { return pr }}
	s, kv := newTestSession(t, fc)

	done := make(chan error, 1)
	go func() {
		_, err := s.Send(context.Background(), "hello", nil)
		done <- err
	}()

	deadline := time.Now().Add(2 * time.Second)
	for len(s.Transcript()) < 2 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	got := s.Transcript()
	if len(got) != 2 || got[1].Content != "hello" {
		t.Fatalf("user message not visible while streaming: %+v", got)
	}
	if len(persisted(t, kv)) != 2 {
		t.Fatal("user message must be persisted before the reply")
	}

	fmt.Fprint(pw, "data: {\"choices\":[{\"delta\":{\"content\":\"hi\"}}]}\n\n")
	for s.Typing() != "hi" && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if s.State() != StateStreaming {
		t.Fatalf("state = %s, want streaming", s.State())
	}
	if _, err := s.Send(context.Background(), "again", nil); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy during stream, got %v", err)
	}

	fmt.Fprint(pw, "data: [DONE]\n\n")
	pw.Close()

	if err := <-done; err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if got := s.Transcript(); len(got) != 3 || got[2].Content != "hi" {
		t.Fatalf("final transcript: %+v", got)
	}
}

func TestSendUsesHistoryWindow(t *testing.T) {
	fc := &fakeCompleter{body: sseBody("ok")}
	kv := store.NewMemoryStore()

	var history []models.ChatMessage
	for i := 0; i < 15; i++ {
		role := models.RoleUser
		if i%2 == 1 {
			role = models.RoleAssistant
		}
		history = append(history, models.ChatMessage{Role: role, Content: fmt.Sprintf("m%d", i)})
	}
	raw, _ := json.Marshal(history)
	kv.Set(DefaultStorageKey, string(raw))

	s, err := NewSession(testConfig(), fc, kv)
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	if len(s.Transcript()) != 15 {
		t.Fatalf("saved transcript not loaded: %d", len(s.Transcript()))
	}

	if _, err := s.Send(context.Background(), "new", nil); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	req := fc.lastRequest()
	if len(req) != 12 {
		t.Fatalf("request length = %d, want 12", len(req))
	}
	if req[0].Role != models.RoleSystem {
		t.Fatal("first message must be the system prompt")
	}
	if req[1].Content != "m5" || req[10].Content != "m14" || req[11].Content != "new" {
		t.Fatalf("unexpected window: first %q, last history %q, new %q", req[1].Content, req[10].Content, req[11].Content)
	}
}

func TestSendFailureAppendsApology(t *testing.T) {
	cause := fmt.Errorf("%w: connection refused", providers.ErrTransport)
	fc := &fakeCompleter{err: cause}
	s, kv := newTestSession(t, fc)

	reply, err := s.Send(context.Background(), "hello", nil)
	if !errors.Is(err, providers.ErrTransport) {
		t.Fatalf("expected transport cause, got %v", err)
	}
	if reply.Role != models.RoleAssistant || reply.Content != defaultApology {
		t.Fatalf("reply = %+v, want apology", reply)
	}

	got := persisted(t, kv)
	if len(got) != 3 || got[1].Content != "hello" || got[2].Content != defaultApology {
		t.Fatalf("transcript after failure: %+v", got)
	}

	// следующая отправка не блокируется
	fc.err = nil
	fc.body = sseBody("ok")
	if _, err := s.Send(context.Background(), "retry", nil); err != nil {
		t.Fatalf("Send after failure: %v", err)
	}
}

func TestStreamErrorDiscardsPartialReply(t *testing.T) {
	fc := &fakeCompleter{body: func() io.ReadCloser {
		return io.NopCloser(io.MultiReader(
			strings.NewReader("data: {\"choices\":[{\"delta\":{\"content\":\"частич\"}}]}\n"),
			errReader{},
		))
	}}
	s, _ := newTestSession(t, fc)

	reply, err := s.Send(context.Background(), "hello", nil)
	if err == nil {
		t.Fatal("expected stream error")
	}
	if reply.Content != defaultApology {
		t.Fatalf("partial content leaked: %q", reply.Content)
	}
	if s.Typing() != "" {
		t.Fatal("accumulator must be cleared")
	}
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, errors.New("stream reset") }

func TestSendEmptyInput(t *testing.T) {
	fc := &fakeCompleter{body: sseBody("x")}
	s, _ := newTestSession(t, fc)

	for _, text := range []string{"", "   ", "\n\t"} {
		if _, err := s.Send(context.Background(), text, nil); !errors.Is(err, ErrEmptyInput) {
			t.Fatalf("Send(%q) err = %v", text, err)
		}
	}
	if len(s.Transcript()) != 1 || len(fc.requests) != 0 {
		t.Fatal("empty input must be a no-op")
	}
}

func TestSubmitUsesInputBuffer(t *testing.T) {
	fc := &fakeCompleter{body: sseBody("ok")}
	s, _ := newTestSession(t, fc)

	s.SetInput("строка 1\nстрока 2")
	if _, err := s.Submit(context.Background(), nil); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if s.Input() != "" {
		t.Fatal("input must be cleared after submit")
	}
	if got := s.Transcript()[1].Content; got != "строка 1\nстрока 2" {
		t.Fatalf("user message = %q", got)
	}
}

func TestClearResetsToGreeting(t *testing.T) {
	fc := &fakeCompleter{body: sseBody("ok")}
	s, kv := newTestSession(t, fc)
	if _, err := s.Send(context.Background(), "hello", nil); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	if err := s.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	for name, got := range map[string][]models.ChatMessage{"memory": s.Transcript(), "store": persisted(t, kv)} {
		if len(got) != 1 || got[0].Content != greeting {
			t.Fatalf("%s after Clear: %+v", name, got)
		}
	}
}

func TestReloadFromStore(t *testing.T) {
	fc := &fakeCompleter{body: sseBody("ok")}
	s, kv := newTestSession(t, fc)
	if _, err := s.Send(context.Background(), "hello", nil); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	reloaded, err := NewSession(testConfig(), fc, kv)
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	if len(reloaded.Transcript()) != 3 {
		t.Fatalf("reloaded transcript: %+v", reloaded.Transcript())
	}
}

func TestCorruptTranscriptStartsOver(t *testing.T) {
	kv := store.NewMemoryStore()
	kv.Set(DefaultStorageKey, "not json")

	s, err := NewSession(testConfig(), &fakeCompleter{}, kv)
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	if got := s.Transcript(); len(got) != 1 || got[0].Content != greeting {
		t.Fatalf("expected greeting, got %+v", got)
	}
}
