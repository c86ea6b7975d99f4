package executor

import (
	"fmt"

	"github.com/go-rod/rod"

	"webmcp-discovery-broker/internal/session"
)

func (e *Executor) registerForms() {
	e.register("browser_fill_form", func(sess *session.Session, args map[string]interface{}) ToolResult {
		page, err := pageFor(sess, args)
		if err != nil {
			return fail("not_found", err)
		}
		fields := getMap(args, "fields")
		if len(fields) == 0 {
			return fail("invalid_argument", fmt.Errorf("fields is required"))
		}
		var filled int
		for selector, value := range fields {
			el, err := findElement(page, locatorArgs{Selector: selector}, timeoutFrom(args))
			if err != nil {
				return fail("not_found", fmt.Errorf("field %q: %w", selector, err))
			}
			if err := el.Input(fmt.Sprintf("%v", value)); err != nil {
				return fail("action_failed", fmt.Errorf("field %q: %w", selector, err))
			}
			filled++
		}
		return ok(map[string]interface{}{"filledCount": filled})
	})

	e.register("browser_submit_form", func(sess *session.Session, args map[string]interface{}) ToolResult {
		page, err := pageFor(sess, args)
		if err != nil {
			return fail("not_found", err)
		}
		el, err := findElement(page, resolveLocator(sess, args), timeoutFrom(args))
		if err != nil {
			return fail("not_found", err)
		}
		_, err = el.Eval(`() => { const f = this.closest('form'); if (f) f.requestSubmit ? f.requestSubmit() : f.submit(); }`)
		if err != nil {
			return fail("action_failed", err)
		}
		return ok(nil)
	})

	e.register("browser_clear_field", func(sess *session.Session, args map[string]interface{}) ToolResult {
		return withElement(sess, args, func(el *rod.Element) error {
			return el.Input("")
		})
	})

	e.register("browser_upload_file", func(sess *session.Session, args map[string]interface{}) ToolResult {
		path := getString(args, "path")
		if path == "" {
			return fail("invalid_argument", fmt.Errorf("path is required"))
		}
		return withElement(sess, args, func(el *rod.Element) error {
			return el.SetFiles([]string{path})
		})
	})
}
