package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"webmcp-discovery-broker/internal/config"
)

func TestAuthenticateAPIKey(t *testing.T) {
	a := New(config.AuthConfig{
		Mode:        config.AuthModeAPIKey,
		APIKeys:     map[string]string{"secret123": "admin"},
		RBACEnabled: true,
	})

	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	req.Header.Set("api-key", "secret123")

	p, err := a.Authenticate(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Role != "admin" || p.Source != SourceAPIKey {
		t.Errorf("unexpected principal: %+v", p)
	}
}

func TestAuthenticateAPIKeyMissing(t *testing.T) {
	a := New(config.AuthConfig{Mode: config.AuthModeAPIKey, APIKeys: map[string]string{}})
	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	if _, err := a.Authenticate(req); err == nil {
		t.Fatal("expected error for missing api key")
	}
}

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func TestAuthenticateTokenValidTenantAndAudience(t *testing.T) {
	a := New(config.AuthConfig{
		Mode:        config.AuthModeToken,
		TenantID:    "tenant-1",
		ClientID:    "client-1",
		RBACEnabled: true,
	})
	tok := signToken(t, jwt.MapClaims{
		"tid":  "tenant-1",
		"aud":  "client-1",
		"sub":  "user-42",
		"role": "operator",
		"exp":  float64(time.Now().Add(time.Hour).Unix()),
	})
	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	req.Header.Set("Authorization", "Bearer "+tok)

	p, err := a.Authenticate(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Role != "operator" || p.ID != "user-42" {
		t.Errorf("unexpected principal: %+v", p)
	}
}

func TestAuthenticateTokenExpired(t *testing.T) {
	a := New(config.AuthConfig{Mode: config.AuthModeToken})
	tok := signToken(t, jwt.MapClaims{
		"exp": float64(time.Now().Add(-time.Hour).Unix()),
	})
	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	if _, err := a.Authenticate(req); err == nil {
		t.Fatal("expected error for expired token")
	}
}

func TestAuthenticateTenantMismatch(t *testing.T) {
	a := New(config.AuthConfig{Mode: config.AuthModeToken, TenantID: "tenant-1"})
	tok := signToken(t, jwt.MapClaims{"tid": "tenant-2"})
	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	if _, err := a.Authenticate(req); err == nil {
		t.Fatal("expected error for tenant mismatch")
	}
}

func TestAuthenticateBothModeFallsBackToToken(t *testing.T) {
	a := New(config.AuthConfig{Mode: config.AuthModeBoth, RBACEnabled: true})
	tok := signToken(t, jwt.MapClaims{"role": "viewer", "sub": "u1"})
	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	req.Header.Set("Authorization", "Bearer "+tok)

	p, err := a.Authenticate(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Role != "viewer" {
		t.Errorf("expected viewer role, got %s", p.Role)
	}
}

func TestRBACDisabledGrantsAdmin(t *testing.T) {
	a := New(config.AuthConfig{
		Mode:        config.AuthModeAPIKey,
		APIKeys:     map[string]string{"k": "viewer"},
		RBACEnabled: false,
	})
	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	req.Header.Set("api-key", "k")
	p, err := a.Authenticate(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Role != "admin" {
		t.Errorf("expected admin when RBAC disabled, got %s", p.Role)
	}
}

func TestRoleTableMay(t *testing.T) {
	table := DefaultRoleTable()
	if !table.May("admin", ActionToolCall("anything")) {
		t.Error("expected admin to be allowed any action")
	}
	if table.May("viewer", ActionSessionCreate) {
		t.Error("expected viewer to be denied session.create")
	}
	if !table.May("viewer", ActionToolCall("extraction")) {
		t.Error("expected viewer to be allowed extraction tools")
	}
	if table.May("unknown-role", ActionToolList) {
		t.Error("expected unknown role to be denied by default")
	}
}
