package providers

import (
	"errors"
	"io"
	"strings"
	"testing"
)

const sampleStream = "data: {\"choices\":[{\"delta\":{\"role\":\"assistant\"}}]}\n\n" +
	"data: {\"choices\":[{\"delta\":{\"content\":\"При\"}}]}\n\n" +
	": keep-alive\n\n" +
	"data: {not json}\n\n" +
	"data: {\"choices\":[{\"delta\":{\"content\":\"вет\"}}]}\n\n" +
	"data: [DONE]\n\n" +
	"data: {\"choices\":[{\"delta\":{\"content\":\"после конца\"}}]}\n\n"

func TestCollectSkipsMalformedChunks(t *testing.T) {
	stream := NewDeltaStream(io.NopCloser(strings.NewReader(sampleStream)), "req-1")

	text, err := Collect(stream)
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if text != "Привет" {
		t.Fatalf("Collect = %q, want %q", text, "Привет")
	}
}

func TestDeltasYieldsInOrder(t *testing.T) {
	stream := NewDeltaStream(io.NopCloser(strings.NewReader(sampleStream)), "req-2")

	var got []string
	for delta, err := range stream.Deltas() {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got = append(got, delta)
	}
	if len(got) != 2 || got[0] != "При" || got[1] != "вет" {
		t.Fatalf("deltas = %v", got)
	}
}

func TestDeltasNotRestartable(t *testing.T) {
	stream := NewDeltaStream(io.NopCloser(strings.NewReader(sampleStream)), "req-3")
	if _, err := Collect(stream); err != nil {
		t.Fatalf("first Collect failed: %v", err)
	}

	_, err := Collect(stream)
	if !errors.Is(err, ErrStreamConsumed) {
		t.Fatalf("expected ErrStreamConsumed, got %v", err)
	}
}

type failingReader struct {
	data string
	read bool
}

func (r *failingReader) Read(p []byte) (int, error) {
	if !r.read {
		r.read = true
		return copy(p, r.data), nil
	}
	return 0, errors.New("connection reset by peer")
}

func TestDeltasReportsReadError(t *testing.T) {
	body := &failingReader{data: "data: {\"choices\":[{\"delta\":{\"content\":\"частично\"}}]}\n"}
	stream := NewDeltaStream(io.NopCloser(body), "req-4")

	text, err := Collect(stream)
	if err == nil {
		t.Fatal("expected read error")
	}
	if text != "частично" {
		t.Fatalf("partial text = %q", text)
	}
}

func TestDecodeDeltaError(t *testing.T) {
	_, err := decodeDelta("{oops")
	var decodeErr *StreamDecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("expected *StreamDecodeError, got %T", err)
	}
	if decodeErr.Payload != "{oops" {
		t.Fatalf("payload = %q", decodeErr.Payload)
	}
}
