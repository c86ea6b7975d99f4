package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"webmcp-discovery-broker/internal/audit"
	"webmcp-discovery-broker/internal/auth"
	"webmcp-discovery-broker/internal/browserpool"
	"webmcp-discovery-broker/internal/catalog"
	"webmcp-discovery-broker/internal/config"
	"webmcp-discovery-broker/internal/discovery"
	"webmcp-discovery-broker/internal/executor"
	"webmcp-discovery-broker/internal/session"
	"webmcp-discovery-broker/internal/urlpolicy"

	"github.com/mark3labs/mcp-go/mcp"
)

// CodeSessionPolicy is the application-level JSON-RPC error code for a
// session/open call whose navigation target is blocked by URL policy.
// session/open is not itself a tool call, so it gets its own documented
// code (Data.code="blocked") rather than overloading one of the five
// standard JSON-RPC codes.
const CodeSessionPolicy = -32001

// Broker wires the configured stack together and dispatches JSON-RPC calls:
// one call, one page, one session, advertising either a
// page's own WebMCP tools or the static fallback catalog.
type Broker struct {
	cfg      config.Config
	pool     *browserpool.Pool
	policy   *urlpolicy.Policy
	sessions *session.Store
	executor *executor.Executor
	fallback []catalog.Descriptor
	authz    *auth.Authenticator
	auditor  audit.Sink
}

// New builds a Broker from configuration and the already-constructed
// browser pool, session store, executor and authenticator. policy is the same URL policy
// instance the pool enforces on subresource requests, re-checked here
// against the navigation target a caller supplies to session/open.
// auditor may be nil, in which case no events are emitted.
func New(cfg config.Config, pool *browserpool.Pool, policy *urlpolicy.Policy, sessions *session.Store, exec *executor.Executor, authz *auth.Authenticator, auditor audit.Sink) *Broker {
	return &Broker{
		cfg:      cfg,
		pool:     pool,
		policy:   policy,
		sessions: sessions,
		executor: exec,
		fallback: catalog.BuildCatalog(),
		authz:    authz,
		auditor:  auditor,
	}
}

// callCtx carries the per-call state threaded through method dispatch: the
// authenticated principal, the correlation id assigned at the HTTP
// boundary, and a context for operations that can be cancelled.
type callCtx struct {
	ctx           context.Context
	principal     auth.Principal
	correlationID string
}

func (b *Broker) emit(cc callCtx, evt audit.Event) {
	if b.auditor == nil {
		return
	}
	evt.CorrelationID = cc.correlationID
	evt.PrincipalID = cc.principal.ID
	evt.Role = cc.principal.Role
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	b.auditor.Emit(cc.ctx, evt)
}

// Dispatch handles one decoded JSON-RPC request and returns the response to
// write back, or a zero Response and false when no response body is
// written: for a notification per JSON-RPC 2.0, and for a tools/call whose
// client disconnected mid-call. ctx carries request cancellation
// and correlationID is the id assigned at the HTTP boundary.
func (b *Broker) Dispatch(ctx context.Context, principal auth.Principal, correlationID string, req Request) (Response, bool) {
	if req.JSONRPC != "2.0" || req.Method == "" {
		if req.IsNotification() {
			return Response{}, false
		}
		return errorResponse(req.ID, CodeInvalidRequest, "invalid request"), true
	}

	cc := callCtx{ctx: ctx, principal: principal, correlationID: correlationID}

	switch req.Method {
	case "initialize":
		return b.handleInitialize(cc, req)
	case "initialized", "notifications/initialized", "notifications/cancelled":
		return Response{}, false
	case "ping":
		return resultResponse(req.ID, map[string]interface{}{}), true
	case "tools/list":
		return b.handleToolsList(cc, req)
	case "tools/call":
		return b.handleToolsCall(cc, req)
	case "session/open", "open_session":
		return b.handleSessionOpen(cc, req)
	case "session/close", "close_session":
		return b.handleSessionClose(cc, req)
	case "session/list":
		return b.handleSessionList(cc, req)
	case "resources/list":
		return resultResponse(req.ID, map[string]interface{}{"resources": []interface{}{}}), true
	case "resources/templates/list":
		return resultResponse(req.ID, map[string]interface{}{"resourceTemplates": []interface{}{}}), true
	case "prompts/list":
		return resultResponse(req.ID, map[string]interface{}{"prompts": []interface{}{}}), true
	case "completion/complete":
		return resultResponse(req.ID, map[string]interface{}{"completion": map[string]interface{}{"values": []interface{}{}}}), true
	case "logging/setLevel":
		return resultResponse(req.ID, map[string]interface{}{}), true
	default:
		if req.IsNotification() {
			return Response{}, false
		}
		return errorResponse(req.ID, CodeMethodNotFound, fmt.Sprintf("unknown method %q", req.Method)), true
	}
}

// defaultProtocolVersion is advertised when a caller's initialize request
// omits protocolVersion entirely; otherwise the caller's own value is
// echoed back per MCP's version-negotiation handshake.
const defaultProtocolVersion = "2024-11-05"

type initializeParams struct {
	ProtocolVersion string `json:"protocolVersion"`
}

func (b *Broker) handleInitialize(cc callCtx, req Request) (Response, bool) {
	var params initializeParams
	_ = json.Unmarshal(req.Params, &params)

	version := params.ProtocolVersion
	if version == "" {
		version = defaultProtocolVersion
	}

	return resultResponse(req.ID, map[string]interface{}{
		"protocolVersion": version,
		"serverInfo":      map[string]interface{}{"name": b.cfg.Server.Name, "version": b.cfg.Server.Version},
		"capabilities": map[string]interface{}{
			"tools":       map[string]interface{}{"listChanged": true},
			"resources":   map[string]interface{}{},
			"prompts":     map[string]interface{}{},
			"logging":     map[string]interface{}{},
			"completions": map[string]interface{}{},
		},
	}), true
}

type toolsListParams struct {
	SessionID string `json:"sessionId"`
}

func (b *Broker) handleToolsList(cc callCtx, req Request) (Response, bool) {
	if !b.authz.May(cc.principal, auth.ActionToolList) {
		return forbiddenResponse(req.ID), true
	}

	var params toolsListParams
	_ = json.Unmarshal(req.Params, &params)

	descs := b.fallback
	if params.SessionID != "" {
		if sess, ok := b.sessions.Get(params.SessionID); ok {
			if page, pok := sess.Tab(0); pok {
				descs = discovery.EffectiveCatalog(discovery.Discover(page))
			}
		}
	}

	return resultResponse(req.ID, map[string]interface{}{"tools": toMCPToolList(descs)}), true
}

// toMCPToolList builds the wire-shaped tool list using mark3labs/mcp-go's
// own Tool type, so the "name"/"description"/"inputSchema" JSON shape tracks the MCP
// library's own encoding instead of a hand-rolled map literal.
func toMCPToolList(descs []catalog.Descriptor) []mcp.Tool {
	out := make([]mcp.Tool, 0, len(descs))
	for _, d := range descs {
		schema, err := json.Marshal(d.InputSchema)
		if err != nil {
			schema = json.RawMessage(`{"type":"object"}`)
		}
		out = append(out, mcp.NewToolWithRawSchema(d.Name, d.Description, schema))
	}
	return out
}

type toolsCallParams struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
	SessionID string                 `json:"sessionId"`
}

func (b *Broker) handleToolsCall(cc callCtx, req Request) (Response, bool) {
	var params toolsCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errorResponse(req.ID, CodeInvalidParams, "invalid params: "+err.Error()), true
	}
	if params.Name == "" || params.SessionID == "" {
		return errorResponse(req.ID, CodeInvalidParams, "name and sessionId are required"), true
	}

	category := b.categoryOf(params.Name)
	if !b.authz.May(cc.principal, auth.ActionToolCall(category)) {
		b.emit(cc, audit.Event{Type: audit.EventAuth, Level: "basic", Method: req.Method, Tool: params.Name, SessionID: params.SessionID, Success: false, StatusCode: 403})
		return forbiddenResponse(req.ID), true
	}

	sess, ok := b.sessions.Get(params.SessionID)
	if !ok {
		return errorResponse(req.ID, CodeInvalidParams, "unknown or expired sessionId"), true
	}

	page, _ := sess.Tab(0)
	disco := discovery.Discover(page)
	sess.SetHasWebMCP(disco.HasWebMCP)

	start := time.Now()
	result := b.executor.Dispatch(sess, disco, params.Name, params.Arguments)

	// A client that disconnected mid-call still gets the call run to
	// completion against the page (the session stays intact), but the
	// result is discarded and the cancellation is what gets audited.
	if cc.ctx.Err() != nil {
		b.emit(cc, audit.Event{
			Type:       audit.EventToolCall,
			Level:      "detailed",
			Method:     req.Method,
			Tool:       params.Name,
			SessionID:  params.SessionID,
			Success:    false,
			DurationMs: time.Since(start).Milliseconds(),
			Detail:     map[string]interface{}{"cancelled": true},
		})
		return Response{}, false
	}

	b.emit(cc, audit.Event{
		Type:       audit.EventToolCall,
		Level:      "detailed",
		Method:     req.Method,
		Tool:       params.Name,
		SessionID:  params.SessionID,
		Success:    result.Success,
		DurationMs: time.Since(start).Milliseconds(),
		Detail:     map[string]interface{}{"arguments": params.Arguments, "result": result},
	})

	return resultResponse(req.ID, &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(resultText(result))},
		IsError: !result.Success,
	}), true
}

func resultText(r executor.ToolResult) string {
	if r.Success {
		b, _ := json.Marshal(r.Result)
		return string(b)
	}
	return r.Error
}

// categoryOf maps a tool name to its RBAC category via the fallback
// catalog, defaulting to "page" for page-declared tools that have no
// catalog entry.
func (b *Broker) categoryOf(name string) string {
	for _, d := range b.fallback {
		if d.Name == name {
			return d.Category
		}
	}
	return "page"
}

// sessionOpenParams is the payload for the custom "session/open" method:
// the broker's session-lifecycle extension to the standard MCP method set,
// covering session creation (no standard MCP method names
// this, so it is modeled the same way the standard methods are:
// slash-namespaced, JSON-RPC dispatched).
type sessionOpenParams struct {
	URL        string  `json:"url"`
	TTLMinutes float64 `json:"ttlMinutes"`
	Recording  *bool   `json:"recording"`
}

const navigationTimeout = 30 * time.Second

// handleSessionOpen implements "open_session": checks RBAC, re-validates the navigation target
// against URL policy before spending a browser on it, acquires one from
// the pool, navigates to the target, and stores a fresh Session.
func (b *Broker) handleSessionOpen(cc callCtx, req Request) (Response, bool) {
	if !b.authz.May(cc.principal, auth.ActionSessionCreate) {
		b.emit(cc, audit.Event{Type: audit.EventAuth, Level: "basic", Method: req.Method, Success: false, StatusCode: 403})
		return forbiddenResponse(req.ID), true
	}

	var params sessionOpenParams
	if err := json.Unmarshal(req.Params, &params); err != nil || params.URL == "" {
		return errorResponse(req.ID, CodeInvalidParams, "url is required"), true
	}

	if b.policy != nil {
		if decision := b.policy.IsAllowed(params.URL); !decision.Allowed {
			return Response{JSONRPC: "2.0", ID: req.ID, Error: &RPCError{
				Code:    CodeSessionPolicy,
				Message: "navigation target blocked by url policy",
				Data:    map[string]interface{}{"code": "blocked", "url": params.URL, "reason": decision.Reason},
			}}, true
		}
	}

	handle, err := b.pool.Acquire(cc.ctx)
	if err != nil {
		// Pool exhaustion is surfaced as -32603 with a documented code
		// string so clients may back off.
		return Response{JSONRPC: "2.0", ID: req.ID, Error: &RPCError{
			Code:    CodeInternalError,
			Message: "browser pool exhausted",
			Data:    map[string]interface{}{"code": "pool_exhausted"},
		}}, true
	}

	if err := handle.Page.Timeout(navigationTimeout).Navigate(params.URL); err != nil {
		b.pool.Release(handle.ID)
		return errorResponse(req.ID, CodeInternalError, fmt.Sprintf("navigate: %v", err)), true
	}
	_ = handle.Page.Timeout(navigationTimeout).WaitLoad()

	ttl := time.Duration(params.TTLMinutes * float64(time.Minute))
	if ttl <= 0 {
		ttl = b.cfg.Session.SessionTTL()
	}
	sess := b.sessions.Create(handle.ID, handle.Page, params.URL, ttl)

	recording := b.cfg.Session.RecordingDefault
	if params.Recording != nil {
		recording = *params.Recording
	}
	sess.SetRecording(recording)

	b.emit(cc, audit.Event{Type: audit.EventSession, Level: "basic", Method: req.Method, SessionID: sess.ID, Success: true})

	return resultResponse(req.ID, map[string]interface{}{
		"sessionId": sess.ID,
		"url":       sess.URL,
		"expiresAt": sess.ExpiresAt,
	}), true
}

type sessionIDParams struct {
	SessionID string `json:"sessionId"`
}

// handleSessionClose implements "close_session": idempotent,
// closes the owning browser and frees its slot in the pool.
func (b *Broker) handleSessionClose(cc callCtx, req Request) (Response, bool) {
	if !b.authz.May(cc.principal, auth.ActionSessionClose) {
		b.emit(cc, audit.Event{Type: audit.EventAuth, Level: "basic", Method: req.Method, Success: false, StatusCode: 403})
		return forbiddenResponse(req.ID), true
	}

	var params sessionIDParams
	if err := json.Unmarshal(req.Params, &params); err != nil || params.SessionID == "" {
		return errorResponse(req.ID, CodeInvalidParams, "sessionId is required"), true
	}

	b.sessions.Close(params.SessionID)
	b.emit(cc, audit.Event{Type: audit.EventSession, Level: "basic", Method: req.Method, SessionID: params.SessionID, Success: true})

	return resultResponse(req.ID, map[string]interface{}{"closed": true}), true
}

// handleSessionList reports the active session count, the closest
// equivalent to the store's ActiveCount exposed over the wire, gated
// on the same action as reading a single session.
func (b *Broker) handleSessionList(cc callCtx, req Request) (Response, bool) {
	if !b.authz.May(cc.principal, auth.ActionSessionRead) {
		return forbiddenResponse(req.ID), true
	}
	return resultResponse(req.ID, map[string]interface{}{
		"activeCount": b.sessions.ActiveCount(),
		"poolSize":    b.pool.Size(),
	}), true
}
