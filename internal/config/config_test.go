package config

import "testing"

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Pool.MaxBrowsers != 5 {
		t.Errorf("expected default max browsers 5, got %d", cfg.Pool.MaxBrowsers)
	}
	if cfg.Auth.Mode != AuthModeAPIKey {
		t.Errorf("expected default auth mode apikey, got %s", cfg.Auth.Mode)
	}
	if !cfg.Policy.EgressControl {
		t.Error("expected egress control to default on")
	}
	if cfg.Session.SessionTTL().Minutes() != 15 {
		t.Errorf("expected default TTL 15m, got %s", cfg.Session.SessionTTL())
	}
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Pool.MaxBrowsers != 5 {
		t.Errorf("expected defaults to apply, got %+v", cfg)
	}
}

func TestLoadEnvOverlay(t *testing.T) {
	t.Setenv("MAXBROWSERS", "9")
	t.Setenv("AUTHMODE", "token")
	t.Setenv("ALLOWEDDOMAINS", "example.com, foo.test")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Pool.MaxBrowsers != 9 {
		t.Errorf("expected env override to set MaxBrowsers=9, got %d", cfg.Pool.MaxBrowsers)
	}
	if cfg.Auth.Mode != AuthModeToken {
		t.Errorf("expected auth mode token, got %s", cfg.Auth.Mode)
	}
	if len(cfg.Policy.AllowedDomains) != 2 || cfg.Policy.AllowedDomains[0] != "example.com" {
		t.Errorf("expected parsed allowed domains, got %v", cfg.Policy.AllowedDomains)
	}
}

func TestSplitCSV(t *testing.T) {
	if got := splitCSV(""); got != nil {
		t.Errorf("expected nil for empty string, got %v", got)
	}
	got := splitCSV(" a, b ,c")
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}
