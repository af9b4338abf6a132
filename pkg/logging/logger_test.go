package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in      string
		want    LogLevel
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"verbose", LevelInfo, true},
	}
	for _, tc := range cases {
		got, err := ParseLevel(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParseLevel(%q) err = %v, wantErr %v", tc.in, err, tc.wantErr)
		}
		if got != tc.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestComponentLoggerWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger(&buf, LogConfig{Level: LevelDebug, Format: "json"})

	l.WithComponent("locations").Info("resolved", String("city", "tunis"), Float64("score", 0.93))

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("unmarshal log line: %v (%s)", err, buf.String())
	}
	if rec["msg"] != "resolved" {
		t.Errorf("msg = %v, want resolved", rec["msg"])
	}
	if rec["component"] != "locations" {
		t.Errorf("component = %v, want locations", rec["component"])
	}
	if rec["city"] != "tunis" {
		t.Errorf("city = %v, want tunis", rec["city"])
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger(&buf, LogConfig{Level: LevelWarn, Format: "text"})

	l.Info("dropped")
	if buf.Len() != 0 {
		t.Fatalf("info line written at warn level: %q", buf.String())
	}

	l.Error("kept", errors.New("boom"))
	if !strings.Contains(buf.String(), "boom") {
		t.Errorf("error line missing cause: %q", buf.String())
	}

	buf.Reset()
	l.SetLevel(LevelDebug)
	l.Debug("now visible")
	if !strings.Contains(buf.String(), "now visible") {
		t.Errorf("debug line missing after SetLevel: %q", buf.String())
	}
}

func TestContextLoggerCarriesRequestID(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger(&buf, LogConfig{Level: LevelInfo, Format: "json"})

	ctx := context.WithValue(context.Background(), RequestIDKey, "req-123")
	l.WithComponent("api").Ctx(ctx).Info("handled")

	out := buf.String()
	if !strings.Contains(out, `"request_id":"req-123"`) {
		t.Errorf("request_id missing: %s", out)
	}
	if !strings.Contains(out, `"component":"api"`) {
		t.Errorf("component missing: %s", out)
	}
}
