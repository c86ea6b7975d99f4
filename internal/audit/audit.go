// Package audit implements an append-only, never-blocking
// structured event emitter for every admitted request, tool-call outcome,
// and auth failure, verbosity-gated by the configured AuditLevel.
package audit

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"webmcp-discovery-broker/internal/config"
	"webmcp-discovery-broker/internal/correlation"
	"webmcp-discovery-broker/internal/recorder"
	"webmcp-discovery-broker/internal/redact"
)

// EventType enumerates the kinds of events the sink can emit.
type EventType string

const (
	EventRequest  EventType = "request"
	EventAuth     EventType = "auth_failure"
	EventToolCall EventType = "tool_call"
	EventSession  EventType = "session"
	EventInternal EventType = "internal_error"
)

// Event is one structured audit record.
type Event struct {
	Timestamp     time.Time   `json:"ts"`
	CorrelationID string      `json:"correlation_id"`
	Type          EventType   `json:"type"`
	Level         string      `json:"level"`
	PrincipalID   string      `json:"principal_id,omitempty"`
	Role          string      `json:"role,omitempty"`
	Method        string      `json:"method,omitempty"`
	Tool          string      `json:"tool,omitempty"`
	SessionID     string      `json:"session_id,omitempty"`
	Success       bool        `json:"success"`
	DurationMs    int64       `json:"duration_ms,omitempty"`
	StatusCode    int         `json:"status_code,omitempty"`
	Detail        interface{} `json:"detail,omitempty"`
}

// Sink accepts audit events. Emit must never block or panic the caller;
// failures to reach a downstream endpoint are logged locally.
type Sink interface {
	Emit(ctx context.Context, evt Event)
}

// LogSink writes redacted JSON-lines events via the standard logger. It is
// the default sink and what backs any configured AuditConfig.Endpoint (the
// actual telemetry backend behind that endpoint is an external
// collaborator; LogSink stands in for "deliver it somewhere"
// in-process).
type LogSink struct {
	level   config.AuditLevel
	redact  *redact.Policy
	events  chan Event
	logger  *log.Logger
	trace   *recorder.Recorder
	lastSID string
}

// NewLogSink starts a LogSink with a bounded async queue so Emit never
// blocks the request path; a worker goroutine drains the queue and a full
// queue drops rather than applying backpressure.
// At the `full` level, every admitted event that carries a session id is additionally mirrored to a
// rotating on-disk trace file via internal/recorder, so a session's history
// survives past the in-memory Session.Recording() snapshot; NewRecorder
// failures are logged and tracing is simply skipped, since the audit log
// channel itself remains the durable record.
func NewLogSink(level config.AuditLevel, redactPolicy *redact.Policy, logger *log.Logger) *LogSink {
	if logger == nil {
		logger = log.Default()
	}
	s := &LogSink{
		level:  level,
		redact: redactPolicy,
		events: make(chan Event, 1024),
		logger: logger,
	}
	if level == config.AuditFull {
		if rec, err := recorder.NewRecorder(recorder.TraceDir); err != nil {
			logger.Printf("audit: trace recorder disabled: %v", err)
		} else {
			s.trace = rec
		}
	}
	go s.worker()
	return s
}

func (s *LogSink) worker() {
	for evt := range s.events {
		payload, err := json.Marshal(evt)
		if err != nil {
			s.logger.Printf("audit: failed to encode event: %v", err)
			continue
		}
		s.logger.Println(string(payload))
		s.traceEvent(evt)
	}
}

// traceEvent mirrors evt to the rotating trace file, starting a new one
// whenever the session id changes so each file holds one session's history.
func (s *LogSink) traceEvent(evt Event) {
	if s.trace == nil || evt.SessionID == "" {
		return
	}
	if evt.SessionID != s.lastSID {
		if err := s.trace.Start(evt.SessionID); err != nil {
			s.logger.Printf("audit: trace rotate failed: %v", err)
			return
		}
		s.lastSID = evt.SessionID
	}
	s.trace.Log(string(evt.Type), evt.SessionID, evt.CorrelationID, evt)
}

// Emit queues evt for async delivery if the configured level admits it.
// A full queue drops the event rather than blocking the caller.
func (s *LogSink) Emit(_ context.Context, evt Event) {
	if !s.admits(evt.Type) {
		return
	}
	if s.level != config.AuditFull {
		// Request/response bodies are only carried at the `full` level;
		// at `detailed` we keep the outcome fields only.
		evt.Detail = nil
	} else if s.redact != nil && evt.Detail != nil {
		evt.Detail = s.redact.RedactPayload(normalize(evt.Detail))
	}
	select {
	case s.events <- evt:
	default:
		s.logger.Printf("audit: queue full, dropping event type=%s correlation_id=%s", evt.Type, evt.CorrelationID)
	}
}

// normalize round-trips v through JSON so redaction sees a plain
// map/slice/string tree even when the caller attached a typed struct
// (e.g. a tool result); redaction cannot descend into struct fields.
func normalize(v interface{}) interface{} {
	raw, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return v
	}
	return out
}

func (s *LogSink) admits(t EventType) bool {
	switch s.level {
	case config.AuditNone:
		return false
	case config.AuditBasic:
		return t == EventRequest || t == EventAuth
	case config.AuditDetailed:
		return true
	case config.AuditFull:
		return true
	default:
		return false
	}
}

// Close drains the queue by closing the channel; safe to call once at
// shutdown.
func (s *LogSink) Close() {
	close(s.events)
	if s.trace != nil {
		_ = s.trace.Close()
	}
}

// CorrelationIDFromRequest extracts a trace/correlation id from well-known
// request headers and falls back to a fresh UUID when none is present.
func CorrelationIDFromRequest(r *http.Request) string {
	for _, name := range []string{"traceparent", "x-correlation-id", "x-request-id", "x-cloud-trace-context", "b3"} {
		if v := r.Header.Get(name); v != "" {
			if keys := correlation.FromHeader(name, v); len(keys) > 0 {
				return keys[0].Value
			}
		}
	}
	return uuid.NewString()
}
