package executor

import (
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"webmcp-discovery-broker/internal/session"
)

// pageFor resolves the "tab" argument to the target page, defaulting to the
// session's active tab (the primary page until browser_switch_tab changes
// it). When the primary tab is targeted and a prior
// browser_switch_frame call is still in effect, calls are scoped to that
// frame instead.
func pageFor(sess *session.Session, args map[string]interface{}) (*rod.Page, error) {
	idx := getInt(args, "tab", sess.ActiveTab())
	if idx <= 0 {
		if frame := sess.ActiveFrame(); frame != nil {
			return frame, nil
		}
	}
	page, ok := sess.Tab(idx)
	if !ok || page == nil {
		return nil, fmt.Errorf("no such tab: %d", idx)
	}
	return page, nil
}

// currentURL reads the page's live URL after a history navigation or
// reload, falling back to fallback (the session's last known URL) if the
// page info can't be read.
func currentURL(page *rod.Page, fallback string) string {
	info, err := page.Info()
	if err != nil || info == nil {
		return fallback
	}
	return info.URL
}

func (e *Executor) registerNavigation() {
	e.register("browser_navigate", func(sess *session.Session, args map[string]interface{}) ToolResult {
		page, err := pageFor(sess, args)
		if err != nil {
			return fail("not_found", err)
		}
		url := getString(args, "url")
		if url == "" {
			return fail("invalid_argument", fmt.Errorf("url is required"))
		}
		if e.policy != nil {
			if decision := e.policy.IsAllowed(url); !decision.Allowed {
				return fail("egress_blocked", fmt.Errorf("navigation blocked: %s", decision.Reason))
			}
		}
		if err := page.Timeout(DefaultTimeout).Navigate(url); err != nil {
			return fail("navigation_failed", err)
		}
		_ = page.Timeout(DefaultTimeout).WaitLoad()
		sess.Registry.Clear()
		sess.SetActiveFrame(nil)
		sess.URL = url
		return ToolResult{Success: true, PageChanged: true, NewURL: url}
	})

	e.register("browser_go_back", func(sess *session.Session, args map[string]interface{}) ToolResult {
		page, err := pageFor(sess, args)
		if err != nil {
			return fail("not_found", err)
		}
		if err := page.NavigateBack(); err != nil {
			return fail("navigation_failed", err)
		}
		_ = page.Timeout(DefaultTimeout).WaitLoad()
		sess.Registry.Clear()
		sess.SetActiveFrame(nil)
		url := currentURL(page, sess.URL)
		sess.URL = url
		return ToolResult{Success: true, PageChanged: true, NewURL: url}
	})

	e.register("browser_go_forward", func(sess *session.Session, args map[string]interface{}) ToolResult {
		page, err := pageFor(sess, args)
		if err != nil {
			return fail("not_found", err)
		}
		if err := page.NavigateForward(); err != nil {
			return fail("navigation_failed", err)
		}
		_ = page.Timeout(DefaultTimeout).WaitLoad()
		sess.Registry.Clear()
		sess.SetActiveFrame(nil)
		url := currentURL(page, sess.URL)
		sess.URL = url
		return ToolResult{Success: true, PageChanged: true, NewURL: url}
	})

	e.register("browser_reload", func(sess *session.Session, args map[string]interface{}) ToolResult {
		page, err := pageFor(sess, args)
		if err != nil {
			return fail("not_found", err)
		}
		if err := page.Reload(); err != nil {
			return fail("navigation_failed", err)
		}
		_ = page.Timeout(DefaultTimeout).WaitLoad()
		sess.Registry.Clear()
		sess.SetActiveFrame(nil)
		sess.URL = currentURL(page, sess.URL)
		return ok(nil)
	})

	e.register("browser_stop_loading", func(sess *session.Session, args map[string]interface{}) ToolResult {
		page, err := pageFor(sess, args)
		if err != nil {
			return fail("not_found", err)
		}
		if err := (proto.PageStopLoading{}).Call(page); err != nil {
			return fail("internal", err)
		}
		return ok(nil)
	})
}

func (e *Executor) registerWaiting() {
	e.register("browser_wait_for_selector", func(sess *session.Session, args map[string]interface{}) ToolResult {
		page, err := pageFor(sess, args)
		if err != nil {
			return fail("not_found", err)
		}
		loc := resolveLocator(sess, args)
		if _, err := findElement(page, loc, timeoutFrom(args)); err != nil {
			return fail("timeout", err)
		}
		return ok(nil)
	})

	e.register("browser_wait_for_navigation", func(sess *session.Session, args map[string]interface{}) ToolResult {
		page, err := pageFor(sess, args)
		if err != nil {
			return fail("not_found", err)
		}
		waited := page.Timeout(timeoutFrom(args)).WaitNavigation(proto.PageLifecycleEventNameLoad)
		waited()
		return ok(nil)
	})

	e.register("browser_wait_for_text", func(sess *session.Session, args map[string]interface{}) ToolResult {
		page, err := pageFor(sess, args)
		if err != nil {
			return fail("not_found", err)
		}
		text := getString(args, "text")
		if text == "" {
			return fail("invalid_argument", fmt.Errorf("text is required"))
		}
		if _, err := page.Timeout(timeoutFrom(args)).ElementR("*", text); err != nil {
			return fail("timeout", err)
		}
		return ok(nil)
	})

	e.register("browser_wait", func(sess *session.Session, args map[string]interface{}) ToolResult {
		ms := getInt(args, "ms", 0)
		if ms <= 0 {
			return fail("invalid_argument", fmt.Errorf("ms must be positive"))
		}
		time.Sleep(time.Duration(ms) * time.Millisecond)
		return ok(nil)
	})
}

func (e *Executor) registerScrolling() {
	e.register("browser_scroll_into_view", func(sess *session.Session, args map[string]interface{}) ToolResult {
		page, err := pageFor(sess, args)
		if err != nil {
			return fail("not_found", err)
		}
		el, err := findElement(page, resolveLocator(sess, args), timeoutFrom(args))
		if err != nil {
			return fail("not_found", err)
		}
		if err := el.ScrollIntoView(); err != nil {
			return fail("internal", err)
		}
		return ok(nil)
	})

	e.register("browser_scroll_by", func(sess *session.Session, args map[string]interface{}) ToolResult {
		page, err := pageFor(sess, args)
		if err != nil {
			return fail("not_found", err)
		}
		dx := getInt(args, "dx", 0)
		dy := getInt(args, "dy", 0)
		if _, err := page.Eval(`(dx, dy) => window.scrollBy(dx, dy)`, dx, dy); err != nil {
			return fail("internal", err)
		}
		return ok(nil)
	})

	e.register("browser_scroll_to_top", func(sess *session.Session, args map[string]interface{}) ToolResult {
		page, err := pageFor(sess, args)
		if err != nil {
			return fail("not_found", err)
		}
		if _, err := page.Eval(`() => window.scrollTo(0, 0)`); err != nil {
			return fail("internal", err)
		}
		return ok(nil)
	})

	e.register("browser_scroll_to_bottom", func(sess *session.Session, args map[string]interface{}) ToolResult {
		page, err := pageFor(sess, args)
		if err != nil {
			return fail("not_found", err)
		}
		if _, err := page.Eval(`() => window.scrollTo(0, document.body.scrollHeight)`); err != nil {
			return fail("internal", err)
		}
		return ok(nil)
	})
}
