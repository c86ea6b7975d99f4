package executor

import (
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"webmcp-discovery-broker/internal/session"
)

func (e *Executor) registerAccessibilityAndNetwork() {
	e.register("browser_get_accessibility_tree", func(sess *session.Session, args map[string]interface{}) ToolResult {
		page, err := pageFor(sess, args)
		if err != nil {
			return fail("not_found", err)
		}
		tree, err := proto.AccessibilityGetFullAXTree{}.Call(page)
		if err != nil {
			return fail("internal", err)
		}
		return ok(tree.Nodes)
	})

	e.register("browser_get_interactive_elements", func(sess *session.Session, args map[string]interface{}) ToolResult {
		page, err := pageFor(sess, args)
		if err != nil {
			return fail("not_found", err)
		}
		res, err := page.Eval(`() => {
			const sel = 'button, a[href], input:not([type="hidden"]), select, textarea, [role="button"], [contenteditable="true"]';
			return Array.from(document.querySelectorAll(sel)).slice(0, 200).map((el, i) => ({
				index: i,
				tag: el.tagName.toLowerCase(),
				text: (el.innerText || el.value || '').trim().slice(0, 80),
				testId: el.getAttribute('data-testid') || '',
				role: el.getAttribute('role') || '',
			}));
		}`)
		if err != nil {
			return fail("internal", err)
		}
		var out []map[string]interface{}
		_ = res.Value.Unmarshal(&out)
		return ok(out)
	})

	e.register("browser_start_network_log", func(sess *session.Session, args map[string]interface{}) ToolResult {
		sess.SetNetworkLogging(true)
		return ok(nil)
	})

	e.register("browser_get_network_log", func(sess *session.Session, args map[string]interface{}) ToolResult {
		return ok(sess.NetworkLog())
	})

	e.register("browser_block_urls", func(sess *session.Session, args map[string]interface{}) ToolResult {
		urlPattern := getString(args, "urlPattern")
		if urlPattern == "" {
			return fail("invalid_argument", fmt.Errorf("urlPattern is required"))
		}
		page, err := pageFor(sess, args)
		if err != nil {
			return fail("not_found", err)
		}
		router := page.HijackRequests()
		router.MustAdd(urlPattern, func(h *rod.Hijack) {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
		})
		go router.Run()
		return ok(map[string]interface{}{"urlPattern": urlPattern})
	})

	e.register("browser_mock_response", func(sess *session.Session, args map[string]interface{}) ToolResult {
		urlPattern := getString(args, "urlPattern")
		if urlPattern == "" {
			return fail("invalid_argument", fmt.Errorf("urlPattern is required"))
		}
		page, err := pageFor(sess, args)
		if err != nil {
			return fail("not_found", err)
		}
		status := getInt(args, "status", 200)
		body := getString(args, "body")
		router := page.HijackRequests()
		router.MustAdd(urlPattern, func(h *rod.Hijack) {
			h.Response.Payload().ResponseCode = status
			h.Response.SetBody(body)
		})
		go router.Run()
		return ok(nil)
	})
}
