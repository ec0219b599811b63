package tools

import (
	"context"
	"testing"
	"time"
)

func TestDateTimeUsesDefaultLayout(t *testing.T) {
	clock, err := NewDateTime(nil)
	if err != nil {
		t.Fatalf("build datetime: %v", err)
	}
	clock.now = func() time.Time {
		return time.Date(2024, time.March, 9, 15, 4, 5, 0, time.UTC)
	}
	out, err := clock.Handle(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "Saturday, 09 March 2024 15:04:05 UTC" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestDateTimeCustomLayout(t *testing.T) {
	clock, err := NewDateTime(map[string]any{"layout": "2006-01-02"})
	if err != nil {
		t.Fatalf("build datetime: %v", err)
	}
	clock.now = func() time.Time {
		return time.Date(2031, time.December, 24, 8, 0, 0, 0, time.UTC)
	}
	out, err := clock.Handle(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "2031-12-24" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestDateTimeFailsWithoutClockSource(t *testing.T) {
	clock := &DateTime{layout: defaultDateTimeLayout}
	_, err := clock.Handle(context.Background(), nil)
	if !IsToolExecution(err) {
		t.Fatalf("expected a tool execution error, got %v", err)
	}
}

func TestDateTimeRejectsUnknownSettings(t *testing.T) {
	if _, err := NewDateTime(map[string]any{"timezone": "UTC"}); err == nil {
		t.Fatal("expected settings validation error")
	}
}
