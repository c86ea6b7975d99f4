package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"webmcp-discovery-broker/internal/audit"
	"webmcp-discovery-broker/internal/auth"
	"webmcp-discovery-broker/internal/broker"
	"webmcp-discovery-broker/internal/browserpool"
	"webmcp-discovery-broker/internal/config"
	"webmcp-discovery-broker/internal/executor"
	"webmcp-discovery-broker/internal/redact"
	"webmcp-discovery-broker/internal/session"
	"webmcp-discovery-broker/internal/urlpolicy"
)

// newTestServer wires the full stack the way main() does, without starting a
// real net.Listener, so /mcp and /health can be exercised directly through
// httptest.
func newTestServer(t *testing.T, cfg config.Config) *httptest.Server {
	t.Helper()

	redaction := redact.New(cfg.Redaction.Fields, cfg.Redaction.Patterns)
	policy := urlpolicy.New(cfg.Policy.AllowedDomains, cfg.Policy.BlockedDomains)
	pool := browserpool.New(cfg.Pool.MaxBrowsers, cfg.Policy.EgressControl, policy, redaction)
	store := session.NewStore(pool)
	exec := executor.New(policy, redaction, pool.PreparePage)
	authz := auth.New(cfg.Auth)
	var auditor audit.Sink // nil is a valid sink; Broker skips emission

	b := broker.New(cfg, pool, policy, store, exec, authz, auditor)
	transport := broker.NewTransport(b, authz, auditor)

	srv := httptest.NewServer(transport.Mux())
	t.Cleanup(func() {
		srv.Close()
		store.Shutdown()
		pool.CloseAll()
	})
	return srv
}

func postJSONRPC(t *testing.T, srv *httptest.Server, apiKey string, body map[string]interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()

	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/mcp", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("api-key", apiKey)
	}

	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	var decoded map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp, decoded
}

func testConfig() config.Config {
	cfg := config.DefaultConfig()
	cfg.Auth.Mode = config.AuthModeAPIKey
	cfg.Auth.APIKeys = map[string]string{"test-key": "admin"}
	cfg.Auth.RBACEnabled = true
	cfg.Pool.MaxBrowsers = 1
	return cfg
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t, testConfig())

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("get /health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestInitializeAndToolsList(t *testing.T) {
	srv := newTestServer(t, testConfig())

	resp, decoded := postJSONRPC(t, srv, "test-key", map[string]interface{}{
		"jsonrpc": "2.0", "id": 1, "method": "initialize",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("initialize: expected 200, got %d", resp.StatusCode)
	}
	if decoded["error"] != nil {
		t.Fatalf("initialize returned error: %v", decoded["error"])
	}

	_, decoded = postJSONRPC(t, srv, "test-key", map[string]interface{}{
		"jsonrpc": "2.0", "id": 2, "method": "tools/list",
	})
	result, ok := decoded["result"].(map[string]interface{})
	if !ok {
		t.Fatalf("tools/list: unexpected result shape: %v", decoded)
	}
	tools, ok := result["tools"].([]interface{})
	if !ok || len(tools) == 0 {
		t.Fatalf("tools/list: expected a non-empty catalog, got %v", result["tools"])
	}
}

func TestInitializeEchoesCallerProtocolVersion(t *testing.T) {
	srv := newTestServer(t, testConfig())

	_, decoded := postJSONRPC(t, srv, "test-key", map[string]interface{}{
		"jsonrpc": "2.0", "id": 1, "method": "initialize",
		"params": map[string]interface{}{"protocolVersion": "2025-03-26"},
	})
	result, ok := decoded["result"].(map[string]interface{})
	if !ok {
		t.Fatalf("initialize: unexpected result shape: %v", decoded)
	}
	if result["protocolVersion"] != "2025-03-26" {
		t.Fatalf("expected caller's protocolVersion echoed back, got %v", result["protocolVersion"])
	}
	caps, ok := result["capabilities"].(map[string]interface{})
	if !ok {
		t.Fatalf("initialize: missing capabilities: %v", decoded)
	}
	if _, ok := caps["completions"]; !ok {
		t.Fatalf("initialize: expected a completions capability, got %v", caps)
	}

	_, decoded = postJSONRPC(t, srv, "test-key", map[string]interface{}{
		"jsonrpc": "2.0", "id": 2, "method": "initialize",
	})
	result = decoded["result"].(map[string]interface{})
	if result["protocolVersion"] != "2024-11-05" {
		t.Fatalf("expected default protocolVersion when omitted, got %v", result["protocolVersion"])
	}
}

func TestUnauthenticatedRequestIsRejected(t *testing.T) {
	srv := newTestServer(t, testConfig())

	resp, _ := postJSONRPC(t, srv, "", map[string]interface{}{
		"jsonrpc": "2.0", "id": 1, "method": "tools/list",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for missing credential, got %d", resp.StatusCode)
	}
}

func TestForbiddenActionReturns403(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.APIKeys = map[string]string{"viewer-key": "viewer"}
	srv := newTestServer(t, cfg)

	resp, decoded := postJSONRPC(t, srv, "viewer-key", map[string]interface{}{
		"jsonrpc": "2.0", "id": 1, "method": "session/open",
		"params": map[string]interface{}{"url": "https://example.com"},
	})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for viewer calling session/open, got %d: %v", resp.StatusCode, decoded)
	}
}

func TestUnknownMethodReturnsMethodNotFound(t *testing.T) {
	srv := newTestServer(t, testConfig())

	_, decoded := postJSONRPC(t, srv, "test-key", map[string]interface{}{
		"jsonrpc": "2.0", "id": 1, "method": "not/a/real/method",
	})
	errObj, ok := decoded["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected an error object, got %v", decoded)
	}
	if code, _ := errObj["code"].(float64); int(code) != broker.CodeMethodNotFound {
		t.Fatalf("expected method-not-found code, got %v", errObj["code"])
	}
}
