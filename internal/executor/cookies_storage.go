package executor

import (
	"fmt"

	"github.com/go-rod/rod/lib/proto"

	"webmcp-discovery-broker/internal/session"
)

func (e *Executor) registerCookiesAndStorage() {
	e.register("browser_get_cookies", func(sess *session.Session, args map[string]interface{}) ToolResult {
		page, err := pageFor(sess, args)
		if err != nil {
			return fail("not_found", err)
		}
		cookies, err := page.Cookies(nil)
		if err != nil {
			return fail("internal", err)
		}
		out := make([]map[string]interface{}, 0, len(cookies))
		for _, c := range cookies {
			out = append(out, map[string]interface{}{
				"name": c.Name, "value": c.Value, "domain": c.Domain, "path": c.Path,
			})
		}
		return ok(out)
	})

	e.register("browser_set_cookie", func(sess *session.Session, args map[string]interface{}) ToolResult {
		name := getString(args, "name")
		value := getString(args, "value")
		if name == "" || value == "" {
			return fail("invalid_argument", fmt.Errorf("name and value are required"))
		}
		page, err := pageFor(sess, args)
		if err != nil {
			return fail("not_found", err)
		}
		cookie := &proto.NetworkCookieParam{Name: name, Value: value}
		if domain := getString(args, "domain"); domain != "" {
			cookie.Domain = domain
		}
		if err := page.SetCookies([]*proto.NetworkCookieParam{cookie}); err != nil {
			return fail("internal", err)
		}
		return ok(nil)
	})

	e.register("browser_clear_cookies", func(sess *session.Session, args map[string]interface{}) ToolResult {
		page, err := pageFor(sess, args)
		if err != nil {
			return fail("not_found", err)
		}
		if err := (proto.NetworkClearBrowserCookies{}).Call(page); err != nil {
			return fail("internal", err)
		}
		return ok(nil)
	})

	e.register("browser_get_local_storage", storageGetter("localStorage"))
	e.register("browser_get_session_storage", storageGetter("sessionStorage"))

	e.register("browser_set_local_storage", func(sess *session.Session, args map[string]interface{}) ToolResult {
		key := getString(args, "key")
		value := getString(args, "value")
		if key == "" {
			return fail("invalid_argument", fmt.Errorf("key is required"))
		}
		page, err := pageFor(sess, args)
		if err != nil {
			return fail("not_found", err)
		}
		if _, err := page.Eval(`(k, v) => localStorage.setItem(k, v)`, key, value); err != nil {
			return fail("internal", err)
		}
		return ok(nil)
	})

	e.register("browser_set_session_storage", func(sess *session.Session, args map[string]interface{}) ToolResult {
		key := getString(args, "key")
		value := getString(args, "value")
		if key == "" {
			return fail("invalid_argument", fmt.Errorf("key is required"))
		}
		page, err := pageFor(sess, args)
		if err != nil {
			return fail("not_found", err)
		}
		if _, err := page.Eval(`(k, v) => sessionStorage.setItem(k, v)`, key, value); err != nil {
			return fail("internal", err)
		}
		return ok(nil)
	})

	e.register("browser_clear_local_storage", func(sess *session.Session, args map[string]interface{}) ToolResult {
		page, err := pageFor(sess, args)
		if err != nil {
			return fail("not_found", err)
		}
		if _, err := page.Eval(`() => localStorage.clear()`); err != nil {
			return fail("internal", err)
		}
		return ok(nil)
	})

	e.register("browser_get_indexed_db", func(sess *session.Session, args map[string]interface{}) ToolResult {
		page, err := pageFor(sess, args)
		if err != nil {
			return fail("not_found", err)
		}
		res, err := page.Eval(`() => indexedDB.databases ? indexedDB.databases().then(dbs => dbs.map(d => d.name)) : []`)
		if err != nil {
			return fail("internal", err)
		}
		var names []string
		_ = res.Value.Unmarshal(&names)
		return ok(names)
	})
}

func storageGetter(jsObject string) func(sess *session.Session, args map[string]interface{}) ToolResult {
	return func(sess *session.Session, args map[string]interface{}) ToolResult {
		page, err := pageFor(sess, args)
		if err != nil {
			return fail("not_found", err)
		}
		res, err := page.Eval(fmt.Sprintf(`() => {
			const out = {};
			for (let i = 0; i < %s.length; i++) {
				const k = %s.key(i);
				out[k] = %s.getItem(k);
			}
			return out;
		}`, jsObject, jsObject, jsObject))
		if err != nil {
			return fail("internal", err)
		}
		var out map[string]string
		_ = res.Value.Unmarshal(&out)
		return ok(out)
	}
}
