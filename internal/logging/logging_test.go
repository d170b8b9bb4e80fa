package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestNewWritesJSONToWriter(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, slog.LevelInfo)
	l.Info("hello", "k", "v")
	if !strings.Contains(buf.String(), `"msg":"hello"`) {
		t.Fatalf("expected JSON log line containing msg, got %q", buf.String())
	}
}

func TestNewNilWriterReturnsDefault(t *testing.T) {
	if New(nil, slog.LevelInfo) != slog.Default() {
		t.Fatal("expected New(nil, ...) to return slog.Default()")
	}
}

func TestOrDefaultNil(t *testing.T) {
	if OrDefault(nil) != slog.Default() {
		t.Fatal("expected OrDefault(nil) to return slog.Default()")
	}
}

func TestWithRunIDAttachesAttribute(t *testing.T) {
	var buf bytes.Buffer
	base := New(&buf, slog.LevelInfo)
	l := WithRunID(base, "abc-123")
	l.Info("tick")
	if !strings.Contains(buf.String(), `"run_id":"abc-123"`) {
		t.Fatalf("expected run_id attribute, got %q", buf.String())
	}
}

func TestIntoFromRoundTrip(t *testing.T) {
	base := slog.Default()
	ctx := Into(context.Background(), base)
	if From(ctx) != base {
		t.Fatal("expected From to retrieve the logger attached by Into")
	}
	if From(context.Background()) != slog.Default() {
		t.Fatal("expected From with no attached logger to return slog.Default()")
	}
}
