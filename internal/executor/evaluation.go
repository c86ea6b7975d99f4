package executor

import (
	"fmt"

	"webmcp-discovery-broker/internal/session"
)

func (e *Executor) registerEvaluation() {
	e.register("browser_evaluate", func(sess *session.Session, args map[string]interface{}) ToolResult {
		script := getString(args, "script")
		if script == "" {
			return fail("invalid_argument", fmt.Errorf("script is required"))
		}
		page, err := pageFor(sess, args)
		if err != nil {
			return fail("not_found", err)
		}
		res, err := page.Eval(fmt.Sprintf("() => (%s)", script))
		if err != nil {
			return ToolResult{Success: false, Error: classifyJSError(err) + ": " + err.Error(), ErrorKind: "js_error"}
		}
		var out interface{}
		_ = res.Value.Unmarshal(&out)
		return ok(out)
	})

	e.register("browser_evaluate_on_element", func(sess *session.Session, args map[string]interface{}) ToolResult {
		script := getString(args, "script")
		if script == "" {
			return fail("invalid_argument", fmt.Errorf("script is required"))
		}
		page, err := pageFor(sess, args)
		if err != nil {
			return fail("not_found", err)
		}
		el, err := findElement(page, resolveLocator(sess, args), timeoutFrom(args))
		if err != nil {
			return fail("not_found", err)
		}
		// rod binds the element as `this`; expose it under the documented
		// `el` name for the caller's expression.
		res, err := el.Eval(fmt.Sprintf("() => { const el = this; return (%s); }", script))
		if err != nil {
			return ToolResult{Success: false, Error: classifyJSError(err) + ": " + err.Error(), ErrorKind: "js_error"}
		}
		var out interface{}
		_ = res.Value.Unmarshal(&out)
		return ok(out)
	})
}
