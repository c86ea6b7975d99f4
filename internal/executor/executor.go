// Package executor implements the per-call tool dispatcher
// that takes a resolved session and tool name and drives the headless page
// through go-rod, returning a result that is never itself a Go error: every
// failure mode (element not found, timeout, disallowed navigation, JS
// exception) is reported as a structured ToolResult so the broker can
// always produce a JSON-RPC tool result rather than a transport-level
// failure.
package executor

import (
	"fmt"
	"time"

	"github.com/go-rod/rod"

	"webmcp-discovery-broker/internal/discovery"
	"webmcp-discovery-broker/internal/redact"
	"webmcp-discovery-broker/internal/session"
	"webmcp-discovery-broker/internal/urlpolicy"
)

// ToolResult is the outcome of one dispatched tool call.
type ToolResult struct {
	Success     bool        `json:"success"`
	Result      interface{} `json:"result,omitempty"`
	Error       string      `json:"error,omitempty"`
	ErrorKind   string      `json:"errorKind,omitempty"`
	PageChanged bool        `json:"pageChanged,omitempty"`
	NewURL      string      `json:"newUrl,omitempty"`
}

func ok(result interface{}) ToolResult {
	return ToolResult{Success: true, Result: result}
}

func fail(kind string, err error) ToolResult {
	return ToolResult{Success: false, Error: err.Error(), ErrorKind: kind}
}

// Handler implements one tool primitive against a session and its resolved
// page/tab.
type Handler func(sess *session.Session, args map[string]interface{}) ToolResult

// Executor dispatches tool calls by name, consulting discovery to prefer a
// page-declared WebMCP implementation over the built-in primitive.
type Executor struct {
	policy   *urlpolicy.Policy
	redact   *redact.Policy
	prepPage func(*rod.Page)
	handlers map[string]Handler
}

// New builds an Executor with the full fallback-catalog dispatch table
// registered, enforcing policy on any primitive that can itself navigate.
// redactPolicy may be nil, in which case recorded/audited input is passed
// through unmasked (matching an operator who configured no redaction
// fields or patterns at all). prepPage, when non-nil, is run on every page
// a tool call adds to a session (new tabs) so egress enforcement and
// redaction CSS cover those pages too; the browser pool's PreparePage is
// the production value.
func New(policy *urlpolicy.Policy, redactPolicy *redact.Policy, prepPage func(*rod.Page)) *Executor {
	e := &Executor{policy: policy, redact: redactPolicy, prepPage: prepPage, handlers: make(map[string]Handler)}
	e.registerAll()
	return e
}

func (e *Executor) register(name string, h Handler) {
	e.handlers[name] = h
}

// Dispatch resolves the tab for the call, prefers a page-declared WebMCP
// tool when the session's discovery pass found one of the same name, and
// otherwise falls back to the built-in primitive. Never panics: any
// recovered panic from a rod call surfaces as a ToolResult error so one bad
// call cannot take down the broker process.
func (e *Executor) Dispatch(sess *session.Session, disco discovery.Result, name string, args map[string]interface{}) (res ToolResult) {
	sess.LockForCall()
	defer sess.UnlockForCall()

	defer func() {
		if r := recover(); r != nil {
			res = fail("internal", fmt.Errorf("panic during %s: %v", name, r))
		}
	}()

	sess.IncrementCallCount()
	start := time.Now()

	if disco.HasWebMCP {
		if _, found := discovery.FindWebMCPTool(disco, name); found {
			page, _ := sess.Tab(0)
			out, err := discovery.CallOnPage(page, name, args)
			res = toolResultFromPageCall(out, err)
			e.record(sess, name, args, res, start)
			return res
		}
	}

	handler, known := e.handlers[name]
	if !known {
		res = fail("unknown_tool", fmt.Errorf("unknown tool %q", name))
		e.record(sess, name, args, res, start)
		return res
	}

	res = handler(sess, args)
	e.record(sess, name, args, res, start)
	return res
}

func toolResultFromPageCall(out interface{}, err error) ToolResult {
	if err != nil {
		return fail("page_tool_error", err)
	}
	return ok(out)
}

func (e *Executor) record(sess *session.Session, name string, args map[string]interface{}, res ToolResult, start time.Time) {
	if !sess.RecordingEnabled() {
		return
	}
	rec := session.ActionRecord{
		Timestamp:  start,
		ToolName:   name,
		Input:      e.redactInput(args),
		Success:    res.Success,
		DurationMs: time.Since(start).Milliseconds(),
		URL:        sess.URL,
		Error:      res.Error,
	}
	sess.RecordAction(rec)
}

// redactInput applies the configured redaction policy to tool arguments
// before they are retained anywhere.
func (e *Executor) redactInput(args map[string]interface{}) map[string]interface{} {
	if e.redact == nil || args == nil {
		return args
	}
	redacted, ok := e.redact.RedactPayload(args).(map[string]interface{})
	if !ok {
		return args
	}
	return redacted
}
