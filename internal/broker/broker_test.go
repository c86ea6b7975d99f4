package broker

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webmcp-discovery-broker/internal/auth"
	"webmcp-discovery-broker/internal/browserpool"
	"webmcp-discovery-broker/internal/config"
	"webmcp-discovery-broker/internal/executor"
	"webmcp-discovery-broker/internal/redact"
	"webmcp-discovery-broker/internal/session"
	"webmcp-discovery-broker/internal/urlpolicy"
)

func newTestBroker(t *testing.T, cfg config.Config) *Broker {
	t.Helper()

	redaction := redact.New(cfg.Redaction.Fields, cfg.Redaction.Patterns)
	policy := urlpolicy.New(cfg.Policy.AllowedDomains, cfg.Policy.BlockedDomains)
	pool := browserpool.New(cfg.Pool.MaxBrowsers, cfg.Policy.EgressControl, policy, redaction)
	store := session.NewStore(pool)
	exec := executor.New(policy, redaction, pool.PreparePage)
	authz := auth.New(cfg.Auth)

	t.Cleanup(func() {
		store.Shutdown()
		pool.CloseAll()
	})
	return New(cfg, pool, policy, store, exec, authz, nil)
}

func adminPrincipal() auth.Principal {
	return auth.Principal{ID: "test-admin", Source: auth.SourceAPIKey, Role: "admin"}
}

func dispatch(b *Broker, p auth.Principal, method string, params interface{}) (Response, bool) {
	raw, _ := json.Marshal(params)
	return b.Dispatch(context.Background(), p, "corr-test", Request{
		JSONRPC: "2.0", ID: 1, Method: method, Params: raw,
	})
}

func TestDispatchInitializeEchoesProtocolVersion(t *testing.T) {
	b := newTestBroker(t, config.DefaultConfig())

	resp, hasBody := dispatch(b, adminPrincipal(), "initialize",
		map[string]interface{}{"protocolVersion": "2025-06-18"})
	require.True(t, hasBody)
	require.Nil(t, resp.Error)

	result := resp.Result.(map[string]interface{})
	assert.Equal(t, "2025-06-18", result["protocolVersion"])

	caps := result["capabilities"].(map[string]interface{})
	assert.Contains(t, caps, "tools")
	assert.Contains(t, caps, "completions")
}

func TestDispatchPingAcknowledges(t *testing.T) {
	b := newTestBroker(t, config.DefaultConfig())

	resp, hasBody := dispatch(b, adminPrincipal(), "ping", nil)
	require.True(t, hasBody)
	assert.Nil(t, resp.Error)
}

func TestDispatchNotificationProducesNoBody(t *testing.T) {
	b := newTestBroker(t, config.DefaultConfig())

	_, hasBody := b.Dispatch(context.Background(), adminPrincipal(), "corr",
		Request{JSONRPC: "2.0", Method: "notifications/initialized"})
	assert.False(t, hasBody)
}

func TestDispatchUnknownMethod(t *testing.T) {
	b := newTestBroker(t, config.DefaultConfig())

	resp, hasBody := dispatch(b, adminPrincipal(), "no/such/method", nil)
	require.True(t, hasBody)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeMethodNotFound, resp.Error.Code)
}

func TestDispatchToolsListReturnsFallbackCatalog(t *testing.T) {
	b := newTestBroker(t, config.DefaultConfig())

	resp, hasBody := dispatch(b, adminPrincipal(), "tools/list", nil)
	require.True(t, hasBody)
	require.Nil(t, resp.Error)

	result := resp.Result.(map[string]interface{})
	tools := result["tools"]
	raw, err := json.Marshal(tools)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "browser_navigate")
	assert.Contains(t, string(raw), "browser_click")
}

func TestDispatchToolsListForbiddenForUnknownRole(t *testing.T) {
	b := newTestBroker(t, config.DefaultConfig())

	resp, hasBody := dispatch(b, auth.Principal{ID: "x", Role: "nobody"}, "tools/list", nil)
	require.True(t, hasBody)
	require.NotNil(t, resp.Error)
	assert.Equal(t, 403, resp.HTTPStatus)
}

func TestDispatchSessionOpenBlockedByPolicy(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Policy.AllowedDomains = []string{"example.com"}
	b := newTestBroker(t, cfg)

	resp, hasBody := dispatch(b, adminPrincipal(), "session/open",
		map[string]interface{}{"url": "https://blocked.test"})
	require.True(t, hasBody)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeSessionPolicy, resp.Error.Code)

	data := resp.Error.Data.(map[string]interface{})
	assert.Equal(t, "blocked", data["code"])
	assert.Equal(t, 0, b.pool.Size())
}

func TestDispatchSessionOpenRequiresURL(t *testing.T) {
	b := newTestBroker(t, config.DefaultConfig())

	resp, hasBody := dispatch(b, adminPrincipal(), "open_session", map[string]interface{}{})
	require.True(t, hasBody)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeInvalidParams, resp.Error.Code)
}

func TestDispatchToolsCallUnknownSession(t *testing.T) {
	b := newTestBroker(t, config.DefaultConfig())

	resp, hasBody := dispatch(b, adminPrincipal(), "tools/call",
		map[string]interface{}{"name": "browser_click", "sessionId": "nope"})
	require.True(t, hasBody)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeInvalidParams, resp.Error.Code)
}

func TestDispatchSessionCloseIsIdempotent(t *testing.T) {
	b := newTestBroker(t, config.DefaultConfig())

	resp, hasBody := dispatch(b, adminPrincipal(), "close_session",
		map[string]interface{}{"sessionId": "never-existed"})
	require.True(t, hasBody)
	assert.Nil(t, resp.Error)
}

func TestCategoryOfFallsBackForPageTools(t *testing.T) {
	b := newTestBroker(t, config.DefaultConfig())

	assert.Equal(t, "navigation", b.categoryOf("browser_navigate"))
	assert.Equal(t, "page", b.categoryOf("some_page_declared_tool"))
}

func TestResultTextEncodesSuccessAndError(t *testing.T) {
	okRes := executor.ToolResult{Success: true, Result: map[string]interface{}{"text": "hi"}}
	assert.JSONEq(t, `{"text":"hi"}`, resultText(okRes))

	failRes := executor.ToolResult{Success: false, Error: "boom"}
	assert.Equal(t, "boom", resultText(failRes))
}
