package redact

import (
	"strings"
	"testing"
)

func TestRedactPayloadFieldNames(t *testing.T) {
	p := New([]string{"password", "ApiKey"}, nil)
	in := map[string]interface{}{
		"username": "alice",
		"Password": "hunter2",
		"nested": map[string]interface{}{
			"apikey": "secret-value",
			"ok":     "fine",
		},
	}
	out := p.RedactPayload(in).(map[string]interface{})
	if out["Password"] != Sentinel {
		t.Errorf("expected Password field redacted, got %v", out["Password"])
	}
	if out["username"] != "alice" {
		t.Errorf("expected username untouched, got %v", out["username"])
	}
	nested := out["nested"].(map[string]interface{})
	if nested["apikey"] != Sentinel {
		t.Errorf("expected nested apikey redacted, got %v", nested["apikey"])
	}
	if nested["ok"] != "fine" {
		t.Errorf("expected nested ok untouched, got %v", nested["ok"])
	}
}

func TestRedactPayloadDoesNotMutateInput(t *testing.T) {
	p := New([]string{"password"}, nil)
	in := map[string]interface{}{"password": "hunter2"}
	_ = p.RedactPayload(in)
	if in["password"] != "hunter2" {
		t.Error("expected input map to remain unmutated")
	}
}

func TestRedactPayloadRegexOnStrings(t *testing.T) {
	p := New(nil, []string{`\d{3}-\d{2}-\d{4}`})
	in := map[string]interface{}{"note": "ssn is 123-45-6789 here"}
	out := p.RedactPayload(in).(map[string]interface{})
	if out["note"] != "ssn is "+Sentinel+" here" {
		t.Errorf("expected regex match redacted, got %v", out["note"])
	}
}

func TestRedactPayloadArrays(t *testing.T) {
	p := New([]string{"secret"}, nil)
	in := []interface{}{
		map[string]interface{}{"secret": "x"},
		"plain",
	}
	out := p.RedactPayload(in).([]interface{})
	m := out[0].(map[string]interface{})
	if m["secret"] != Sentinel {
		t.Errorf("expected array element redacted, got %v", m["secret"])
	}
	if out[1] != "plain" {
		t.Errorf("expected plain string untouched, got %v", out[1])
	}
}

func TestInvalidRegexIsSkippedNotFatal(t *testing.T) {
	p := New(nil, []string{"("})
	out := p.RedactPayload("unchanged")
	if out != "unchanged" {
		t.Errorf("expected invalid pattern to be ignored, got %v", out)
	}
}

func TestScreenshotStyleSnippetMentionsPasswordAndSensitive(t *testing.T) {
	css := ScreenshotStyleSnippet()
	if css == "" {
		t.Fatal("expected non-empty CSS snippet")
	}
	if !strings.Contains(css, "password") {
		t.Errorf("expected snippet to target password inputs, got %q", css)
	}
	if !strings.Contains(css, "sensitive") {
		t.Errorf("expected snippet to target .sensitive elements, got %q", css)
	}
}
