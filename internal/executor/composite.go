package executor

import (
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"webmcp-discovery-broker/internal/session"
)

// The common*Selectors lists are fallback CSS guesses tried in order when a
// composite tool's caller-supplied selector is absent or does not match.
// Composites that resolve through them report which selector actually worked.
var commonUsernameSelectors = []string{
	`input[type="email"]`, `input[name="username"]`, `input[name="email"]`,
	`input[autocomplete="username"]`, `#username`, `#email`,
}
var commonPasswordSelectors = []string{
	`input[type="password"]`, `input[name="password"]`, `#password`,
}
var commonSubmitSelectors = []string{
	`button[type="submit"]`, `input[type="submit"]`, `button[name="submit"]`,
}
var commonSearchSelectors = []string{
	`input[type="search"]`, `input[name="q"]`, `input[aria-label="Search" i]`, `input[placeholder*="search" i]`,
}

func firstMatching(page *rod.Page, candidates []string, explicit string) (*rod.Element, string, error) {
	if explicit != "" {
		el, err := page.Timeout(DefaultTimeout).Element(explicit)
		if err == nil {
			return el, explicit, nil
		}
	}
	var lastErr error
	for _, sel := range candidates {
		el, err := page.Timeout(probeTimeout).Element(sel)
		if err == nil {
			return el, sel, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no candidate selector matched")
	}
	return nil, "", lastErr
}

// probeTimeout bounds each fallback-selector probe in a composite tool so a
// handful of misses doesn't add up to the full default timeout.
const probeTimeout = 1500 * time.Millisecond

func (e *Executor) registerComposites() {
	e.register("browser_login", func(sess *session.Session, args map[string]interface{}) ToolResult {
		username := getString(args, "username")
		password := getString(args, "password")
		if username == "" || password == "" {
			return fail("invalid_argument", fmt.Errorf("username and password are required"))
		}
		page, err := pageFor(sess, args)
		if err != nil {
			return fail("not_found", err)
		}

		userEl, userSel, err := firstMatching(page, commonUsernameSelectors, getString(args, "usernameSelector"))
		if err != nil {
			return fail("not_found", fmt.Errorf("username field: %w", err))
		}
		if err := userEl.Input(username); err != nil {
			return fail("action_failed", err)
		}

		passEl, passSel, err := firstMatching(page, commonPasswordSelectors, getString(args, "passwordSelector"))
		if err != nil {
			return fail("not_found", fmt.Errorf("password field: %w", err))
		}
		if err := passEl.Input(password); err != nil {
			return fail("action_failed", err)
		}

		submitEl, submitSel, err := firstMatching(page, commonSubmitSelectors, getString(args, "submitSelector"))
		if err != nil {
			return fail("not_found", fmt.Errorf("submit control: %w", err))
		}
		if err := submitEl.Click(proto.InputMouseButtonLeft, 1); err != nil {
			return fail("action_failed", err)
		}

		return ok(map[string]interface{}{
			"usernameSelectorUsed": userSel,
			"passwordSelectorUsed": passSel,
			"submitSelectorUsed":   submitSel,
		})
	})

	e.register("browser_fill_form_composite", func(sess *session.Session, args map[string]interface{}) ToolResult {
		fields := getMap(args, "fields")
		if len(fields) == 0 {
			return fail("invalid_argument", fmt.Errorf("fields is required"))
		}
		page, err := pageFor(sess, args)
		if err != nil {
			return fail("not_found", err)
		}
		var used []string
		for name, value := range fields {
			el, err := findElement(page, locatorArgs{Label: name, Placeholder: name, TestID: name}, timeoutFrom(args))
			if err != nil {
				return fail("not_found", fmt.Errorf("field %q: %w", name, err))
			}
			if err := el.Input(fmt.Sprintf("%v", value)); err != nil {
				return fail("action_failed", fmt.Errorf("field %q: %w", name, err))
			}
			used = append(used, name)
		}
		return ok(map[string]interface{}{"fieldsFilled": used})
	})

	e.register("browser_search", func(sess *session.Session, args map[string]interface{}) ToolResult {
		query := getString(args, "query")
		if query == "" {
			return fail("invalid_argument", fmt.Errorf("query is required"))
		}
		page, err := pageFor(sess, args)
		if err != nil {
			return fail("not_found", err)
		}
		el, sel, err := firstMatching(page, commonSearchSelectors, getString(args, "selector"))
		if err != nil {
			return fail("not_found", fmt.Errorf("search box: %w", err))
		}
		if err := el.Input(query); err != nil {
			return fail("action_failed", err)
		}
		if err := page.Keyboard.Type(keyByName["Enter"]); err != nil {
			return fail("action_failed", err)
		}
		return ok(map[string]interface{}{"selectorUsed": sel})
	})

	e.register("browser_checkout", func(sess *session.Session, args map[string]interface{}) ToolResult {
		fields := getMap(args, "fields")
		if len(fields) == 0 {
			return fail("invalid_argument", fmt.Errorf("fields is required"))
		}
		page, err := pageFor(sess, args)
		if err != nil {
			return fail("not_found", err)
		}
		var filled []string
		for name, value := range fields {
			el, err := findElement(page, locatorArgs{Label: name, Placeholder: name, TestID: name, Selector: `[name="` + escapeAttributeValue(name) + `"]`}, timeoutFrom(args))
			if err != nil {
				continue // checkout fields vary widely; best-effort, report what was filled
			}
			if err := el.Input(fmt.Sprintf("%v", value)); err == nil {
				filled = append(filled, name)
			}
		}
		submitEl, submitSel, err := firstMatching(page, commonSubmitSelectors, getString(args, "submitSelector"))
		if err != nil {
			return ok(map[string]interface{}{"fieldsFilled": filled, "submitted": false})
		}
		_ = submitEl.Click(proto.InputMouseButtonLeft, 1)
		return ok(map[string]interface{}{"fieldsFilled": filled, "submitted": true, "submitSelectorUsed": submitSel})
	})
}
