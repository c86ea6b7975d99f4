package executor

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-rod/rod"

	"webmcp-discovery-broker/internal/session"
)

// DefaultTimeout is applied to any tool that accepts a timeoutMs argument
// without specifying one.
const DefaultTimeout = 30 * time.Second

// MaxTimeout clamps caller-supplied timeouts to a sane ceiling so a
// misbehaving caller cannot park a dispatcher goroutine indefinitely.
const MaxTimeout = 120 * time.Second

func getString(args map[string]interface{}, key string) string {
	v, ok := args[key]
	if !ok {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	default:
		return fmt.Sprintf("%v", s)
	}
}

func getBool(args map[string]interface{}, key string, fallback bool) bool {
	v, ok := args[key]
	if !ok {
		return fallback
	}
	if b, ok := v.(bool); ok {
		return b
	}
	return fallback
}

func getInt(args map[string]interface{}, key string, fallback int) int {
	v, ok := args[key]
	if !ok {
		return fallback
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case string:
		if parsed, err := strconv.Atoi(n); err == nil {
			return parsed
		}
	}
	return fallback
}

func getMap(args map[string]interface{}, key string) map[string]interface{} {
	v, _ := args[key].(map[string]interface{})
	return v
}

// timeoutFrom resolves a timeoutMs argument to a clamped duration.
func timeoutFrom(args map[string]interface{}) time.Duration {
	ms := getInt(args, "timeoutMs", int(DefaultTimeout/time.Millisecond))
	d := time.Duration(ms) * time.Millisecond
	if d <= 0 {
		return DefaultTimeout
	}
	if d > MaxTimeout {
		return MaxTimeout
	}
	return d
}

// escapeCSSSelector escapes characters that are meaningful in a CSS
// selector, so a raw value (e.g. an id containing ':') can be embedded in
// an attribute/id selector literal.
func escapeCSSSelector(s string) string {
	var result []rune
	for _, r := range s {
		switch r {
		case '/', '.', ':', '[', ']', '(', ')', '#', '>', '+', '~', '=', '^', '$', '*', '|', '!', '@', '%', '&', '\'', '"', '`', '{', '}', ' ':
			result = append(result, '\\', r)
		default:
			result = append(result, r)
		}
	}
	return string(result)
}

// escapeAttributeValue escapes a value for embedding inside a double-quoted
// CSS attribute selector, e.g. [data-testid="VALUE"].
func escapeAttributeValue(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return s
}

// locatorArgs captures the element-addressing fields every element-targeting
// primitive accepts: a raw CSS selector, or one of five
// semantic locators, optionally shadow-DOM-piercing via a `host >> inner`
// selector string.
type locatorArgs struct {
	Selector    string
	Text        string
	Role        string
	Name        string
	Label       string
	Placeholder string
	TestID      string
}

func locatorFrom(args map[string]interface{}) locatorArgs {
	return locatorArgs{
		Selector:    getString(args, "selector"),
		Text:        getString(args, "text"),
		Role:        getString(args, "role"),
		Name:        getString(args, "name"),
		Label:       getString(args, "label"),
		Placeholder: getString(args, "placeholder"),
		TestID:      getString(args, "testId"),
	}
}

// resolveLocator builds a locatorArgs from args the way locatorFrom does,
// additionally filling in any still-empty semantic field from a previously
// registered ElementFingerprint when the caller supplies a "ref" that the
// session's ElementRegistry still recognizes. A ref from before the last
// navigation resolves to nothing (the registry is cleared on navigate) and
// the locator falls back to whatever explicit fields the caller also gave,
// degrading gracefully rather than erroring out.
func resolveLocator(sess *session.Session, args map[string]interface{}) locatorArgs {
	loc := locatorFrom(args)
	ref := getString(args, "ref")
	if ref == "" || sess == nil || sess.Registry == nil {
		return loc
	}
	fp := sess.Registry.Get(ref)
	if fp == nil {
		return loc
	}
	if loc.Selector == "" && fp.ID != "" {
		loc.Selector = "#" + escapeCSSSelector(fp.ID)
	}
	if loc.TestID == "" {
		loc.TestID = fp.DataTestID
	}
	if loc.Label == "" {
		loc.Label = fp.AriaLabel
	}
	if loc.Role == "" {
		loc.Role = fp.Role
	}
	if loc.Name == "" {
		loc.Name = fp.Name
	}
	if loc.Text == "" {
		loc.Text = fp.TextContent
	}
	return loc
}

// fingerprintRef derives a stable ref string from whichever semantic field a
// resolved locator actually matched on, preferring the most specific.
// Returns "" when the locator carries nothing worth remembering (e.g. a
// bare shadow-piercing selector), in which case no fingerprint is kept.
func fingerprintRef(loc locatorArgs) string {
	switch {
	case loc.TestID != "":
		return "testid:" + loc.TestID
	case loc.Label != "":
		return "label:" + loc.Label
	case loc.Placeholder != "":
		return "placeholder:" + loc.Placeholder
	case loc.Role != "" && loc.Name != "":
		return "role:" + loc.Role + ":" + loc.Name
	case loc.Text != "":
		return "text:" + loc.Text
	case strings.HasPrefix(loc.Selector, "#"):
		return "id:" + strings.TrimPrefix(loc.Selector, "#")
	default:
		return ""
	}
}

// registerFingerprint records the locator that successfully resolved an
// element under its derived ref so a later call can re-address the same
// element via {"ref": ...} instead of repeating the full locator. Returns
// the ref it stored, or "" if the locator had nothing fingerprint-worthy.
func registerFingerprint(sess *session.Session, loc locatorArgs) string {
	if sess == nil || sess.Registry == nil {
		return ""
	}
	ref := fingerprintRef(loc)
	if ref == "" {
		return ""
	}
	sess.Registry.Register(&session.ElementFingerprint{
		Ref:         ref,
		ID:          strings.TrimPrefix(loc.Selector, "#"),
		Name:        loc.Name,
		DataTestID:  loc.TestID,
		AriaLabel:   loc.Label,
		Role:        loc.Role,
		TextContent: loc.Text,
	})
	return ref
}

// findElement resolves a locatorArgs to a single rod.Element, trying in
// order: raw CSS selector, shadow-piercing selector (`>>`), then each
// semantic locator, in order of specificity.
func findElement(page *rod.Page, loc locatorArgs, timeout time.Duration) (*rod.Element, error) {
	pg := page.Timeout(timeout)

	if sel := loc.Selector; sel != "" {
		if strings.Contains(sel, ">>") {
			return findShadowPiercing(page, sel, timeout)
		}
		if el, err := pg.Element(sel); err == nil {
			return el, nil
		}
	}

	if loc.TestID != "" {
		if el, err := pg.Element(`[data-testid="` + escapeAttributeValue(loc.TestID) + `"]`); err == nil {
			return el, nil
		}
	}

	if loc.Label != "" {
		if el, err := findByLabel(page, loc.Label, timeout); err == nil {
			return el, nil
		}
	}

	if loc.Placeholder != "" {
		if el, err := pg.Element(`[placeholder="` + escapeAttributeValue(loc.Placeholder) + `"]`); err == nil {
			return el, nil
		}
	}

	if loc.Role != "" {
		sel := `[role="` + escapeAttributeValue(loc.Role) + `"]`
		if loc.Name != "" {
			if el, err := pg.ElementR(sel, loc.Name); err == nil {
				return el, nil
			}
		}
		if el, err := pg.Element(sel); err == nil {
			return el, nil
		}
	}

	if loc.Text != "" {
		if el, err := pg.ElementR("*", loc.Text); err == nil {
			return el, nil
		}
	}

	return nil, fmt.Errorf("no element matched locator %+v", loc)
}

// findByLabel resolves a <label> by its text to the form control it
// describes, either via its `for` attribute or by containment.
func findByLabel(page *rod.Page, label string, timeout time.Duration) (*rod.Element, error) {
	pg := page.Timeout(timeout)
	labelEl, err := pg.ElementR("label", label)
	if err != nil {
		return nil, err
	}
	forAttr, err := labelEl.Attribute("for")
	if err == nil && forAttr != nil && *forAttr != "" {
		if el, err := pg.Element("#" + escapeCSSSelector(*forAttr)); err == nil {
			return el, nil
		}
	}
	return labelEl.Element("input, textarea, select")
}

// findShadowPiercing resolves a `host-selector >> inner-selector` locator by
// recursively descending into shadow roots, per the `>>` syntax adopted for
// shadow-DOM addressing.
func findShadowPiercing(page *rod.Page, selector string, timeout time.Duration) (*rod.Element, error) {
	parts := strings.Split(selector, ">>")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	if len(parts) < 2 {
		return nil, fmt.Errorf("invalid shadow selector %q", selector)
	}

	host, err := page.Timeout(timeout).Element(parts[0])
	if err != nil {
		return nil, fmt.Errorf("shadow host %q not found: %w", parts[0], err)
	}

	var current *rod.Element = host
	for _, part := range parts[1:] {
		root, err := current.ShadowRoot()
		if err != nil {
			return nil, fmt.Errorf("no shadow root on %q: %w", part, err)
		}
		current, err = root.Timeout(timeout).Element(part)
		if err != nil {
			return nil, fmt.Errorf("shadow part %q not found: %w", part, err)
		}
	}
	return current, nil
}

// withElement resolves the locator in args against the session's target tab
// and runs fn on the element, translating a resolution failure into a
// not_found ToolResult and any other error into an action_failed one.
func withElement(sess *session.Session, args map[string]interface{}, fn func(el *rod.Element) error) ToolResult {
	page, err := pageFor(sess, args)
	if err != nil {
		return fail("not_found", err)
	}
	loc := resolveLocator(sess, args)
	el, err := findElement(page, loc, timeoutFrom(args))
	if err != nil {
		return fail("not_found", err)
	}
	if err := fn(el); err != nil {
		return fail("action_failed", err)
	}
	return okWithRef(sess, loc)
}

// okWithRef returns a success ToolResult carrying the ref a caller can reuse
// to re-address the same element ({"ref": ...}), or a bare success when the
// locator had nothing fingerprint-worthy to remember.
func okWithRef(sess *session.Session, loc locatorArgs) ToolResult {
	if ref := registerFingerprint(sess, loc); ref != "" {
		return ok(map[string]interface{}{"ref": ref})
	}
	return ok(nil)
}

// classifyJSError buckets an evaluate failure for structured error
// reporting.
func classifyJSError(err error) string {
	if err == nil {
		return ""
	}
	s := err.Error()
	switch {
	case strings.Contains(s, "context deadline exceeded"), strings.Contains(s, "imeout"):
		return "timeout"
	case strings.Contains(s, "SyntaxError"):
		return "syntax"
	case strings.Contains(s, "ReferenceError"), strings.Contains(s, "TypeError"):
		return "runtime"
	case strings.Contains(s, "SecurityError"), strings.Contains(s, "cross-origin"):
		return "security"
	default:
		return "unknown"
	}
}
