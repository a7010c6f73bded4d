package utils

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestAppErrorMatchesKindSentinel(t *testing.T) {
	err := NewKindError("fetch analysis", KindNotFound, http.StatusNotFound, "analysis not found", nil)
	wrapped := fmt.Errorf("get result: %w", err)

	if !errors.Is(wrapped, ErrNotFound) {
		t.Fatalf("expected wrapped error to match ErrNotFound")
	}
	if errors.Is(wrapped, ErrBackend) {
		t.Fatalf("not-found error must not match ErrBackend")
	}
	if KindOf(wrapped) != KindNotFound {
		t.Fatalf("unexpected kind %q", KindOf(wrapped))
	}
	if StatusOf(wrapped) != http.StatusNotFound {
		t.Fatalf("unexpected status %d", StatusOf(wrapped))
	}
	if !strings.Contains(err.Error(), "status 404") {
		t.Fatalf("expected status in message, got %q", err.Error())
	}
}

func TestKindOfUnclassified(t *testing.T) {
	if KindOf(errors.New("plain")) != "" {
		t.Fatalf("expected empty kind for plain error")
	}
	if KindOf(NewAppError("op", "msg", nil)) != "" {
		t.Fatalf("expected empty kind for unclassified AppError")
	}
}

func TestParseTimestampFormats(t *testing.T) {
	want := time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC)
	cases := []string{
		"2024-01-02T15:04:05Z",
		"2024-01-02T17:04:05+02:00",
		"1704207845",
		"1704207845000",
	}
	for _, in := range cases {
		got, err := ParseTimestamp(in)
		if err != nil {
			t.Fatalf("parse %q: %v", in, err)
		}
		if !got.Equal(want) {
			t.Fatalf("parse %q: expected %v, got %v", in, want, got)
		}
	}
	if _, err := ParseTimestamp("yesterday"); err == nil {
		t.Fatalf("expected error for unsupported format")
	}
	if _, err := ParseTimestamp(""); err == nil {
		t.Fatalf("expected error for empty value")
	}
}

func TestNewLoggerWithWritersFansOut(t *testing.T) {
	var console, file bytes.Buffer
	logger := NewLoggerWithWriters(&console, &file, "debug")
	logger.Info("adapted payload", "schema", "keyed")

	if !strings.Contains(console.String(), "schema=keyed") {
		t.Fatalf("expected text output, got %q", console.String())
	}
	if !strings.Contains(file.String(), `"schema":"keyed"`) {
		t.Fatalf("expected json output, got %q", file.String())
	}
}
