package main

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestReadLinesDeliversInOrder(t *testing.T) {
	lines := make(chan string)
	go readLines(context.Background(), strings.NewReader("привет\\\nмир\n/exit\n"), lines)

	var got []string
	for line := range lines {
		got = append(got, line)
	}
	want := []string{"привет\\", "мир", "/exit"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("lines = %q, want %q", got, want)
	}
}

func TestReadLinesStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	lines := make(chan string)

	done := make(chan struct{})
	go func() {
		readLines(ctx, strings.NewReader("a\nb\nc\n"), lines)
		close(done)
	}()

	// никто не читает lines: после отмены горутина должна завершиться сама
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("readLines blocked after cancel")
	}
	if _, ok := <-lines; ok {
		t.Fatal("lines must be closed after cancel")
	}
}
