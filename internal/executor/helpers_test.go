package executor

import (
	"errors"
	"testing"
	"time"

	"webmcp-discovery-broker/internal/redact"
	"webmcp-discovery-broker/internal/session"
)

func TestTimeoutFromClampsAndDefaults(t *testing.T) {
	if got := timeoutFrom(map[string]interface{}{}); got != DefaultTimeout {
		t.Errorf("expected default timeout, got %v", got)
	}
	if got := timeoutFrom(map[string]interface{}{"timeoutMs": 500}); got != 500*time.Millisecond {
		t.Errorf("unexpected timeout: %v", got)
	}
	if got := timeoutFrom(map[string]interface{}{"timeoutMs": 999999}); got != MaxTimeout {
		t.Errorf("expected clamp to MaxTimeout, got %v", got)
	}
}

func TestEscapeCSSSelector(t *testing.T) {
	got := escapeCSSSelector("foo:bar baz")
	want := `foo\:bar\ baz`
	if got != want {
		t.Errorf("escapeCSSSelector(%q) = %q, want %q", "foo:bar baz", got, want)
	}
}

func TestEscapeAttributeValue(t *testing.T) {
	got := escapeAttributeValue(`quote"backslash\`)
	want := `quote\"backslash\\`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestLocatorFromReadsAllFields(t *testing.T) {
	args := map[string]interface{}{
		"selector": "#id", "text": "Click me", "role": "button", "name": "submit",
		"label": "Email", "placeholder": "you@example.com", "testId": "login-btn",
	}
	loc := locatorFrom(args)
	if loc.Selector != "#id" || loc.Text != "Click me" || loc.Role != "button" ||
		loc.Name != "submit" || loc.Label != "Email" || loc.Placeholder != "you@example.com" ||
		loc.TestID != "login-btn" {
		t.Errorf("unexpected locatorArgs: %+v", loc)
	}
}

func TestGetIntParsesMultipleShapes(t *testing.T) {
	cases := []struct {
		v    interface{}
		want int
	}{
		{5, 5}, {int64(7), 7}, {float64(9), 9}, {"11", 11}, {"nope", -1},
	}
	for _, c := range cases {
		got := getInt(map[string]interface{}{"k": c.v}, "k", -1)
		if got != c.want {
			t.Errorf("getInt(%v) = %d, want %d", c.v, got, c.want)
		}
	}
}

func TestClassifyJSError(t *testing.T) {
	cases := map[string]string{
		"context deadline exceeded": "timeout",
		"SyntaxError: bad":          "syntax",
		"ReferenceError: x":         "runtime",
		"SecurityError: blocked":    "security",
		"something else":            "unknown",
	}
	for msg, want := range cases {
		got := classifyJSError(errors.New(msg))
		if got != want {
			t.Errorf("classifyJSError(%q) = %q, want %q", msg, got, want)
		}
	}
}

func TestRegisterAndResolveFingerprintRoundTrips(t *testing.T) {
	sess := &session.Session{Registry: session.NewElementRegistry()}

	loc := locatorArgs{TestID: "login-btn"}
	ref := registerFingerprint(sess, loc)
	if ref == "" {
		t.Fatal("expected a non-empty ref for a testId locator")
	}

	resolved := resolveLocator(sess, map[string]interface{}{"ref": ref})
	if resolved.TestID != "login-btn" {
		t.Errorf("expected resolveLocator to recover testId from the fingerprint, got %+v", resolved)
	}

	sess.Registry.Clear()
	afterClear := resolveLocator(sess, map[string]interface{}{"ref": ref})
	if afterClear.TestID != "" {
		t.Errorf("expected a cleared registry to yield no fingerprint, got %+v", afterClear)
	}
}

func TestRegisterFingerprintSkipsUnidentifiableLocators(t *testing.T) {
	sess := &session.Session{Registry: session.NewElementRegistry()}
	if ref := registerFingerprint(sess, locatorArgs{}); ref != "" {
		t.Errorf("expected no ref for an empty locator, got %q", ref)
	}
}

func TestRetryWhileThrewStopsOnSuccess(t *testing.T) {
	attempts := 0
	err := retryWhileThrew(5, func() error {
		attempts++
		if attempts == 2 {
			return nil
		}
		return errors.New("not yet")
	})
	if err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if attempts != 2 {
		t.Errorf("expected exactly 2 attempts, got %d", attempts)
	}
}

func TestRedactInputMasksSensitiveFields(t *testing.T) {
	e := &Executor{redact: redact.New([]string{"password"}, nil)}
	args := map[string]interface{}{
		"fields":   map[string]interface{}{"#pw": "hunter2"},
		"password": "hunter2",
	}
	got := e.redactInput(args)
	if got["password"] != redact.Sentinel {
		t.Fatalf("expected password field masked, got %+v", got)
	}
}

func TestRedactInputPassesThroughWithNilPolicy(t *testing.T) {
	e := &Executor{}
	args := map[string]interface{}{"password": "hunter2"}
	got := e.redactInput(args)
	if got["password"] != "hunter2" {
		t.Fatalf("expected passthrough with nil policy, got %+v", got)
	}
}

func TestRetryWhileThrewExhaustsBudget(t *testing.T) {
	attempts := 0
	err := retryWhileThrew(3, func() error {
		attempts++
		return errors.New("always fails")
	})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if attempts != 3 {
		t.Errorf("expected exactly 3 attempts, got %d", attempts)
	}
}
