package broker

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"

	"webmcp-discovery-broker/internal/audit"
	"webmcp-discovery-broker/internal/auth"
)

// maxRequestBodyBytes caps the /mcp POST body. Not a configurable tunable,
// just a fixed transport-level constant.
const maxRequestBodyBytes = 4 << 20 // 4 MiB

// Transport terminates TLS upstream of it (e.g. a reverse proxy) and
// serves the single POST /mcp endpoint plus the GET /health probe.
// Auth runs before protocol dispatch; an audit event is written for every
// request on the way out with the observed duration.
type Transport struct {
	broker *Broker
	authz  *auth.Authenticator
	audit  audit.Sink
}

// NewTransport builds an HTTP transport around broker, authenticating
// every request with authz and emitting one audit event per request to
// auditor (which may be nil).
func NewTransport(b *Broker, authz *auth.Authenticator, auditor audit.Sink) *Transport {
	return &Transport{broker: b, authz: authz, audit: auditor}
}

// Mux returns the broker's routes, ready to be wrapped in an *http.Server.
func (t *Transport) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/mcp", t.handleMCP)
	mux.HandleFunc("/health", t.handleHealth)
	return mux
}

// handleHealth answers the liveness probe: 200 whenever the process can
// serve the request, with the pool size and active session count in the
// body. Pool state is reported, not checked; no other status is returned.
func (t *Transport) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":         "ok",
		"poolSize":       t.broker.pool.Size(),
		"activeSessions": t.broker.sessions.ActiveCount(),
	})
}

// handleMCP reads one JSON-RPC envelope from the POST body, authenticates
// the caller, dispatches it through the Broker, and writes back the
// response. Every branch funnels through the deferred audit emission so a
// malformed body, a failed auth, and a successful tool call each produce
// exactly one request event; a failed auth additionally emits an
// auth_failure event.
func (t *Transport) handleMCP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	corrID := audit.CorrelationIDFromRequest(r)
	status := http.StatusOK
	method := ""
	authenticated := false
	var principalID, role string

	defer func() {
		if t.audit == nil {
			return
		}
		t.audit.Emit(r.Context(), audit.Event{
			Timestamp:     time.Now(),
			CorrelationID: corrID,
			Type:          audit.EventRequest,
			Level:         "basic",
			PrincipalID:   principalID,
			Role:          role,
			Method:        method,
			Success:       authenticated && status < 400,
			DurationMs:    time.Since(start).Milliseconds(),
			StatusCode:    status,
		})
	}()

	if r.Method != http.MethodPost {
		status = http.StatusMethodNotAllowed
		http.Error(w, "method not allowed", status)
		return
	}

	limited := http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	raw, err := io.ReadAll(limited)
	if err != nil {
		// Still HTTP 200: the JSON-RPC body carries the error.
		t.writeRPCError(w, nil, CodeParseError, "request body too large or unreadable")
		return
	}

	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		t.writeRPCError(w, nil, CodeParseError, "invalid json: "+err.Error())
		return
	}
	method = req.Method

	principal, err := t.authz.Authenticate(r)
	if err != nil {
		status = http.StatusUnauthorized
		if t.audit != nil {
			t.audit.Emit(r.Context(), audit.Event{
				Timestamp: time.Now(), CorrelationID: corrID, Type: audit.EventAuth,
				Level: "basic", Method: method, Success: false, StatusCode: status,
			})
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(errorResponse(req.ID, CodeInvalidRequest, "unauthenticated"))
		return
	}
	authenticated = true
	principalID, role = principal.ID, principal.Role

	resp, hasBody := t.broker.Dispatch(r.Context(), principal, corrID, req)
	if !hasBody {
		w.WriteHeader(http.StatusOK)
		return
	}
	if resp.HTTPStatus != 0 {
		status = resp.HTTPStatus
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("broker: failed to encode response: %v", err)
	}
}

func (t *Transport) writeRPCError(w http.ResponseWriter, id interface{}, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(errorResponse(id, code, message))
}
