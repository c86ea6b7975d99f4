// Package redact implements masking of sensitive field names
// and regex-matched substrings before any payload leaves the process (logs,
// audit, recording, error messages), plus a CSS snippet injected into every
// brokered page so screenshots never capture secrets.
package redact

import (
	"regexp"
	"strings"
)

// Sentinel is the fixed replacement string for redacted values.
const Sentinel = "[REDACTED]"

// Policy holds the configured field-name set and ordered regex list.
type Policy struct {
	fields   map[string]struct{}
	patterns []*regexp.Regexp
}

// New compiles a Policy from configured field names and regex patterns.
// Invalid regexes are skipped rather than failing construction, since a
// malformed pattern in operator config should not take the whole broker
// down; it simply won't be applied.
func New(fields, patterns []string) *Policy {
	p := &Policy{fields: make(map[string]struct{}, len(fields))}
	for _, f := range fields {
		p.fields[strings.ToLower(strings.TrimSpace(f))] = struct{}{}
	}
	for _, pat := range patterns {
		if pat == "" {
			continue
		}
		if re, err := regexp.Compile(pat); err == nil {
			p.patterns = append(p.patterns, re)
		}
	}
	return p
}

func (p *Policy) isSensitiveField(name string) bool {
	_, ok := p.fields[strings.ToLower(name)]
	return ok
}

// RedactPayload walks an arbitrary JSON-shaped value (the result of
// json.Unmarshal into interface{}, or an equivalent map/slice/scalar tree)
// and returns a new value with sensitive object fields replaced by Sentinel
// and regex matches masked within string leaves. The input is never
// mutated.
func (p *Policy) RedactPayload(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, child := range val {
			if p.isSensitiveField(k) {
				out[k] = Sentinel
				continue
			}
			out[k] = p.RedactPayload(child)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, child := range val {
			out[i] = p.RedactPayload(child)
		}
		return out
	case string:
		return p.redactString(val)
	default:
		return val
	}
}

func (p *Policy) redactString(s string) string {
	for _, re := range p.patterns {
		s = re.ReplaceAllString(s, Sentinel)
	}
	return s
}

// ScreenshotStyleSnippet returns a CSS fragment injected into every new page
// so password inputs and elements bearing a "sensitive" marker class render
// obscured.
func ScreenshotStyleSnippet() string {
	return `
input[type="password"] {
  -webkit-text-security: disc !important;
  color: transparent !important;
  text-shadow: 0 0 8px rgba(0,0,0,0.9) !important;
}
.sensitive, [data-sensitive], [data-webmcp-sensitive] {
  filter: blur(6px) !important;
}
`
}
