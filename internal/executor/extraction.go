package executor

import (
	"fmt"

	"webmcp-discovery-broker/internal/session"
)

func (e *Executor) registerExtraction() {
	e.register("browser_get_text", func(sess *session.Session, args map[string]interface{}) ToolResult {
		page, err := pageFor(sess, args)
		if err != nil {
			return fail("not_found", err)
		}
		loc := resolveLocator(sess, args)
		if loc.Selector == "" && loc.TestID == "" && loc.Text == "" && loc.Role == "" && loc.Label == "" && loc.Placeholder == "" {
			text, err := page.Eval(`() => document.body.innerText`)
			if err != nil {
				return fail("internal", err)
			}
			return ok(map[string]interface{}{"text": text.Value.Str()})
		}
		el, err := findElement(page, loc, timeoutFrom(args))
		if err != nil {
			return fail("not_found", err)
		}
		text, err := el.Text()
		if err != nil {
			return fail("internal", err)
		}
		return ok(map[string]interface{}{"text": text})
	})

	e.register("browser_get_html", func(sess *session.Session, args map[string]interface{}) ToolResult {
		page, err := pageFor(sess, args)
		if err != nil {
			return fail("not_found", err)
		}
		loc := resolveLocator(sess, args)
		if loc.Selector == "" && loc.TestID == "" && loc.Text == "" && loc.Role == "" && loc.Label == "" && loc.Placeholder == "" {
			html, err := page.HTML()
			if err != nil {
				return fail("internal", err)
			}
			return ok(map[string]interface{}{"html": html})
		}
		el, err := findElement(page, loc, timeoutFrom(args))
		if err != nil {
			return fail("not_found", err)
		}
		html, err := el.HTML()
		if err != nil {
			return fail("internal", err)
		}
		return ok(map[string]interface{}{"html": html})
	})

	e.register("browser_get_attribute", func(sess *session.Session, args map[string]interface{}) ToolResult {
		attr := getString(args, "attribute")
		if attr == "" {
			return fail("invalid_argument", fmt.Errorf("attribute is required"))
		}
		page, err := pageFor(sess, args)
		if err != nil {
			return fail("not_found", err)
		}
		el, err := findElement(page, resolveLocator(sess, args), timeoutFrom(args))
		if err != nil {
			return fail("not_found", err)
		}
		val, err := el.Attribute(attr)
		if err != nil {
			return fail("internal", err)
		}
		if val == nil {
			return ok(nil)
		}
		return ok(*val)
	})

	e.register("browser_get_table", func(sess *session.Session, args map[string]interface{}) ToolResult {
		page, err := pageFor(sess, args)
		if err != nil {
			return fail("not_found", err)
		}
		el, err := findElement(page, resolveLocator(sess, args), timeoutFrom(args))
		if err != nil {
			return fail("not_found", err)
		}
		rows, err := el.Eval(`() => Array.from(this.querySelectorAll('tr')).map(
			tr => Array.from(tr.querySelectorAll('th,td')).map(c => c.innerText.trim())
		)`)
		if err != nil {
			return fail("internal", err)
		}
		var out [][]string
		if err := rows.Value.Unmarshal(&out); err != nil {
			return fail("internal", err)
		}
		return ok(out)
	})

	e.register("browser_get_url", func(sess *session.Session, args map[string]interface{}) ToolResult {
		page, err := pageFor(sess, args)
		if err != nil {
			return fail("not_found", err)
		}
		info, err := page.Info()
		if err != nil {
			return fail("internal", err)
		}
		return ok(map[string]interface{}{"url": info.URL})
	})

	e.register("browser_get_title", func(sess *session.Session, args map[string]interface{}) ToolResult {
		page, err := pageFor(sess, args)
		if err != nil {
			return fail("not_found", err)
		}
		info, err := page.Info()
		if err != nil {
			return fail("internal", err)
		}
		return ok(map[string]interface{}{"title": info.Title})
	})

	e.register("browser_count_elements", func(sess *session.Session, args map[string]interface{}) ToolResult {
		selector := getString(args, "selector")
		if selector == "" {
			return fail("invalid_argument", fmt.Errorf("selector is required"))
		}
		page, err := pageFor(sess, args)
		if err != nil {
			return fail("not_found", err)
		}
		els, err := page.Elements(selector)
		if err != nil {
			return fail("internal", err)
		}
		return ok(map[string]interface{}{"count": len(els)})
	})

	e.register("browser_is_visible", func(sess *session.Session, args map[string]interface{}) ToolResult {
		page, err := pageFor(sess, args)
		if err != nil {
			return fail("not_found", err)
		}
		el, err := findElement(page, resolveLocator(sess, args), timeoutFrom(args))
		if err != nil {
			return ok(map[string]interface{}{"visible": false, "found": false})
		}
		visible, err := el.Visible()
		if err != nil {
			return fail("internal", err)
		}
		return ok(map[string]interface{}{"visible": visible, "found": true})
	})

	e.register("browser_get_links", func(sess *session.Session, args map[string]interface{}) ToolResult {
		page, err := pageFor(sess, args)
		if err != nil {
			return fail("not_found", err)
		}
		raw, err := page.Eval(`() => Array.from(document.querySelectorAll('a[href]')).map(
			a => ({ href: a.href, text: a.innerText.trim() })
		)`)
		if err != nil {
			return fail("internal", err)
		}
		var links []map[string]string
		if err := raw.Value.Unmarshal(&links); err != nil {
			return fail("internal", err)
		}
		return ok(links)
	})
}
