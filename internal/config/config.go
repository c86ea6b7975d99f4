// Package config loads the broker's process-level configuration from
// environment variables, with an optional YAML file overlay for local
// development.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// AuthMode selects which credential mechanisms the broker accepts.
type AuthMode string

const (
	AuthModeAPIKey AuthMode = "apikey"
	AuthModeToken  AuthMode = "token"
	AuthModeBoth   AuthMode = "both"
)

// AuditLevel controls how much detail the audit sink records.
type AuditLevel string

const (
	AuditNone     AuditLevel = "none"
	AuditBasic    AuditLevel = "basic"
	AuditDetailed AuditLevel = "detailed"
	AuditFull     AuditLevel = "full"
)

// ServerConfig describes process identity used in MCP initialize responses.
type ServerConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// PoolConfig bounds the browser pool.
type PoolConfig struct {
	MaxBrowsers int `yaml:"max_browsers"`
}

// AuthConfig configures authentication and RBAC.
type AuthConfig struct {
	Mode        AuthMode          `yaml:"mode"`
	APIKeys     map[string]string `yaml:"api_keys"` // key -> role
	TenantID    string            `yaml:"tenant_id"`
	ClientID    string            `yaml:"client_id"`
	RBACEnabled bool              `yaml:"rbac_enabled"`
}

// PolicyConfig configures the URL allow/block policy.
type PolicyConfig struct {
	AllowedDomains []string `yaml:"allowed_domains"`
	BlockedDomains []string `yaml:"blocked_domains"`
	EgressControl  bool     `yaml:"network_egress_control"`
}

// AuditConfig configures the audit sink.
type AuditConfig struct {
	Level    AuditLevel `yaml:"log_level"`
	Endpoint string     `yaml:"endpoint"`
}

// RedactionConfig configures payload and screenshot redaction.
type RedactionConfig struct {
	Fields   []string `yaml:"fields"`
	Patterns []string `yaml:"patterns"`
}

// SessionConfig configures session store defaults.
type SessionConfig struct {
	TTLMinutes       float64 `yaml:"ttl_minutes"`
	RecordingDefault bool    `yaml:"recording_default"`
}

// Config is the full set of broker tunables.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Pool      PoolConfig      `yaml:"pool"`
	Auth      AuthConfig      `yaml:"auth"`
	Policy    PolicyConfig    `yaml:"policy"`
	Audit     AuditConfig     `yaml:"audit"`
	Redaction RedactionConfig `yaml:"redaction"`
	Session   SessionConfig   `yaml:"session"`
}

// SessionTTL returns the configured session TTL as a duration.
func (c SessionConfig) SessionTTL() time.Duration {
	if c.TTLMinutes <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(c.TTLMinutes * float64(time.Minute))
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Name:    "webmcp-discovery-broker",
			Version: "0.1.0",
		},
		Pool: PoolConfig{MaxBrowsers: 5},
		Auth: AuthConfig{
			Mode:        AuthModeAPIKey,
			APIKeys:     map[string]string{},
			RBACEnabled: true,
		},
		Policy: PolicyConfig{
			EgressControl: true,
		},
		Audit: AuditConfig{Level: AuditBasic},
		Session: SessionConfig{
			TTLMinutes:       15,
			RecordingDefault: false,
		},
	}
}

// Load builds a Config from an optional YAML file overlaid with the
// broker environment variables. Environment variables take
// precedence over the file, and the file is optional: an empty path (or a
// missing file) falls back to DefaultConfig() plus environment overlay,
// so a containerized deployment can run on env vars alone.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

// applyEnv binds the broker's environment variables onto cfg
// using viper, the way the rest of the retrieved corpus layers env config
// over a struct (cklxx-elephant.ai's viper-backed CLI config).
func applyEnv(cfg *Config) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	bind := []string{
		"maxBrowsers", "authMode", "apiKeys", "tenantId", "clientId",
		"rbacEnabled", "allowedDomains", "blockedDomains",
		"networkEgressControl", "auditLogLevel", "auditEndpoint",
		"sessionRecording", "redactionFields", "redactionPatterns",
		"sessionTtlMinutes",
	}
	for _, key := range bind {
		_ = v.BindEnv(key)
	}

	if v.IsSet("maxBrowsers") {
		cfg.Pool.MaxBrowsers = v.GetInt("maxBrowsers")
	}
	if v.IsSet("authMode") {
		cfg.Auth.Mode = AuthMode(v.GetString("authMode"))
	}
	if v.IsSet("apiKeys") {
		var m map[string]string
		if err := yaml.Unmarshal([]byte(v.GetString("apiKeys")), &m); err == nil {
			cfg.Auth.APIKeys = m
		}
	}
	if v.IsSet("tenantId") {
		cfg.Auth.TenantID = v.GetString("tenantId")
	}
	if v.IsSet("clientId") {
		cfg.Auth.ClientID = v.GetString("clientId")
	}
	if v.IsSet("rbacEnabled") {
		cfg.Auth.RBACEnabled = v.GetBool("rbacEnabled")
	}
	if v.IsSet("allowedDomains") {
		cfg.Policy.AllowedDomains = splitCSV(v.GetString("allowedDomains"))
	}
	if v.IsSet("blockedDomains") {
		cfg.Policy.BlockedDomains = splitCSV(v.GetString("blockedDomains"))
	}
	if v.IsSet("networkEgressControl") {
		cfg.Policy.EgressControl = v.GetBool("networkEgressControl")
	}
	if v.IsSet("auditLogLevel") {
		cfg.Audit.Level = AuditLevel(v.GetString("auditLogLevel"))
	}
	if v.IsSet("auditEndpoint") {
		cfg.Audit.Endpoint = v.GetString("auditEndpoint")
	}
	if v.IsSet("sessionRecording") {
		cfg.Session.RecordingDefault = v.GetBool("sessionRecording")
	}
	if v.IsSet("redactionFields") {
		cfg.Redaction.Fields = splitCSV(v.GetString("redactionFields"))
	}
	if v.IsSet("redactionPatterns") {
		cfg.Redaction.Patterns = splitCSV(v.GetString("redactionPatterns"))
	}
	if v.IsSet("sessionTtlMinutes") {
		cfg.Session.TTLMinutes = v.GetFloat64("sessionTtlMinutes")
	}
}

func splitCSV(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
