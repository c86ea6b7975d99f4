package audit

import (
	"bytes"
	"context"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"webmcp-discovery-broker/internal/config"
	"webmcp-discovery-broker/internal/redact"
)

func TestLogSinkRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(&buf, "", 0)
	sink := NewLogSink(config.AuditBasic, redact.New(nil, nil), logger)
	defer sink.Close()

	sink.Emit(context.Background(), Event{Type: EventToolCall, Timestamp: time.Now()})
	sink.Emit(context.Background(), Event{Type: EventRequest, Timestamp: time.Now(), CorrelationID: "abc"})

	deadline := time.Now().Add(time.Second)
	for buf.Len() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	out := buf.String()
	if strings.Contains(out, "tool_call") {
		t.Error("expected tool_call event to be suppressed at basic level")
	}
	if !strings.Contains(out, "abc") {
		t.Errorf("expected request event to be logged, got %q", out)
	}
}

func TestLogSinkRedactsDetail(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(&buf, "", 0)
	sink := NewLogSink(config.AuditFull, redact.New([]string{"password"}, nil), logger)
	defer sink.Close()

	sink.Emit(context.Background(), Event{
		Type:   EventToolCall,
		Detail: map[string]interface{}{"password": "hunter2"},
	})

	deadline := time.Now().Add(time.Second)
	for buf.Len() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if strings.Contains(buf.String(), "hunter2") {
		t.Errorf("expected password redacted from audit log, got %q", buf.String())
	}
}

func TestCorrelationIDFromRequestUsesHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	req.Header.Set("x-request-id", "req-123456")
	if got := CorrelationIDFromRequest(req); got != "req-123456" {
		t.Errorf("expected header-derived id, got %q", got)
	}
}

func TestCorrelationIDFromRequestFallsBackToUUID(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	got := CorrelationIDFromRequest(req)
	if len(got) < 10 {
		t.Errorf("expected uuid fallback, got %q", got)
	}
}
