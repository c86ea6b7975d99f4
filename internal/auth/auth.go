// Package auth implements principal resolution from API-key or
// bearer-token credentials, and coarse-grained RBAC over broker actions.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"webmcp-discovery-broker/internal/config"
)

// Source identifies which credential mechanism authenticated a request.
type Source string

const (
	SourceAPIKey Source = "apikey"
	SourceToken  Source = "token"
)

// Principal is the authenticated identity attached to a request.
type Principal struct {
	ID     string
	Source Source
	Role   string
	Scopes []string
}

// Action is a coarse permission unit, e.g. "session.create" or
// "tool.call:navigation".
type Action string

const (
	ActionSessionCreate Action = "session.create"
	ActionSessionRead   Action = "session.read"
	ActionSessionClose  Action = "session.close"
	ActionToolList      Action = "tool.list"
)

// ActionToolCall builds the coarse action for calling a tool in category.
func ActionToolCall(category string) Action {
	return Action("tool.call:" + category)
}

var (
	// ErrUnauthenticated maps to HTTP 401: missing/invalid credential.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden maps to HTTP 403: authenticated but not permitted.
	ErrForbidden = errors.New("forbidden")
)

// RoleTable maps a role name to the set of actions it may perform. "*"
// grants every action including every tool category.
type RoleTable map[string]map[Action]struct{}

// DefaultRoleTable is the static role -> allowed-action table.
// admin can do everything; operator can drive sessions and call tools but
// not view audit internals; viewer is read-only and may only list/call
// non-mutating categories.
func DefaultRoleTable() RoleTable {
	all := func(actions ...Action) map[Action]struct{} {
		m := make(map[Action]struct{}, len(actions))
		for _, a := range actions {
			m[a] = struct{}{}
		}
		return m
	}

	return RoleTable{
		"admin": all("*"),
		"operator": all(
			ActionSessionCreate, ActionSessionRead, ActionSessionClose,
			ActionToolList,
			ActionToolCall("navigation"), ActionToolCall("interaction"),
			ActionToolCall("forms"), ActionToolCall("capture"),
			ActionToolCall("extraction"), ActionToolCall("waiting"),
			ActionToolCall("scrolling"), ActionToolCall("dialogs"),
			ActionToolCall("downloads"), ActionToolCall("cookies"),
			ActionToolCall("accessibility"), ActionToolCall("network"),
			ActionToolCall("device"), ActionToolCall("storage"),
			ActionToolCall("tabs"), ActionToolCall("console"),
			ActionToolCall("media"), ActionToolCall("drag_drop"),
			ActionToolCall("rich_text"), ActionToolCall("shadow_dom"),
			ActionToolCall("performance"), ActionToolCall("visual"),
			ActionToolCall("permissions"), ActionToolCall("clipboard"),
			ActionToolCall("frames"), ActionToolCall("composite"),
			ActionToolCall("recovery"), ActionToolCall("recording"),
			ActionToolCall("evaluation"), ActionToolCall("egress"),
		),
		"viewer": all(
			ActionSessionRead, ActionToolList,
			ActionToolCall("extraction"), ActionToolCall("accessibility"),
			ActionToolCall("visual"), ActionToolCall("performance"),
			ActionToolCall("console"),
		),
	}
}

// May reports whether role is permitted to perform action under table.
func (t RoleTable) May(role string, action Action) bool {
	allowed, ok := t[role]
	if !ok {
		return false
	}
	if _, ok := allowed["*"]; ok {
		return true
	}
	_, ok = allowed[action]
	return ok
}

// Authenticator resolves a Principal from an inbound HTTP request per the
// configured AuthMode, and answers RBAC questions for it.
type Authenticator struct {
	cfg   config.AuthConfig
	roles RoleTable
}

// New builds an Authenticator from configuration and the default role
// table. When RBAC is disabled every authenticated principal is admin.
func New(cfg config.AuthConfig) *Authenticator {
	return &Authenticator{cfg: cfg, roles: DefaultRoleTable()}
}

// Authenticate resolves a Principal from the request's credentials per the
// configured mode. Returns ErrUnauthenticated if no valid credential is
// present under any mechanism the mode allows.
func (a *Authenticator) Authenticate(r *http.Request) (Principal, error) {
	var (
		principal Principal
		err       error
	)

	switch a.cfg.Mode {
	case config.AuthModeAPIKey:
		principal, err = a.apiKeyPrincipal(r)
	case config.AuthModeToken:
		principal, err = a.tokenPrincipal(r)
	case config.AuthModeBoth:
		if principal, err = a.apiKeyPrincipal(r); err != nil {
			principal, err = a.tokenPrincipal(r)
		}
	default:
		return Principal{}, fmt.Errorf("%w: unknown auth mode %q", ErrUnauthenticated, a.cfg.Mode)
	}
	if err != nil {
		return Principal{}, err
	}

	if !a.cfg.RBACEnabled {
		principal.Role = "admin"
	}
	return principal, nil
}

func (a *Authenticator) apiKeyPrincipal(r *http.Request) (Principal, error) {
	key := r.Header.Get("api-key")
	if key == "" {
		key = r.Header.Get("x-api-key")
	}
	if key == "" {
		return Principal{}, ErrUnauthenticated
	}
	role, ok := a.cfg.APIKeys[key]
	if !ok {
		return Principal{}, ErrUnauthenticated
	}
	return Principal{ID: "apikey:" + shortID(key), Source: SourceAPIKey, Role: role}, nil
}

func (a *Authenticator) tokenPrincipal(r *http.Request) (Principal, error) {
	authz := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(authz, prefix) {
		return Principal{}, ErrUnauthenticated
	}
	raw := strings.TrimPrefix(authz, prefix)

	// No signing key material is part of the configuration surface
	// (issuer validation is tenant id + audience only), so we validate
	// claims rather than a signature; a real deployment would front this
	// with a JWKS-verifying reverse proxy or extend AuthConfig with a key.
	claims := jwt.MapClaims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
	_, _, err := parser.ParseUnverified(raw, claims)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: malformed token: %v", ErrUnauthenticated, err)
	}

	if a.cfg.TenantID != "" && fmt.Sprintf("%v", claims["tid"]) != a.cfg.TenantID {
		return Principal{}, fmt.Errorf("%w: tenant mismatch", ErrUnauthenticated)
	}
	if a.cfg.ClientID != "" {
		aud, _ := claims["aud"].(string)
		if aud != a.cfg.ClientID && !audienceContains(claims, a.cfg.ClientID) {
			return Principal{}, fmt.Errorf("%w: audience mismatch", ErrUnauthenticated)
		}
	}
	if exp, ok := claims["exp"]; ok {
		if expFloat, ok := exp.(float64); ok && time.Unix(int64(expFloat), 0).Before(time.Now()) {
			return Principal{}, fmt.Errorf("%w: token expired", ErrUnauthenticated)
		}
	}

	role, _ := claims["role"].(string)
	if role == "" {
		role = "viewer"
	}
	subject, _ := claims["sub"].(string)

	return Principal{ID: subject, Source: SourceToken, Role: role}, nil
}

func audienceContains(claims jwt.MapClaims, want string) bool {
	list, ok := claims["aud"].([]interface{})
	if !ok {
		return false
	}
	for _, v := range list {
		if s, ok := v.(string); ok && s == want {
			return true
		}
	}
	return false
}

// May answers whether principal may perform action, per the RBAC table.
func (a *Authenticator) May(principal Principal, action Action) bool {
	return a.roles.May(principal.Role, action)
}

func shortID(s string) string {
	if len(s) <= 8 {
		return s
	}
	return s[:8]
}
