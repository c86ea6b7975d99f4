package executor

import (
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"

	"webmcp-discovery-broker/internal/session"
)

func (e *Executor) registerInteraction() {
	e.register("browser_click", func(sess *session.Session, args map[string]interface{}) ToolResult {
		return withElement(sess, args, func(el *rod.Element) error { return el.Click(proto.InputMouseButtonLeft, 1) })
	})

	e.register("browser_double_click", func(sess *session.Session, args map[string]interface{}) ToolResult {
		return withElement(sess, args, func(el *rod.Element) error { return el.Click(proto.InputMouseButtonLeft, 2) })
	})

	e.register("browser_right_click", func(sess *session.Session, args map[string]interface{}) ToolResult {
		return withElement(sess, args, func(el *rod.Element) error { return el.Click(proto.InputMouseButtonRight, 1) })
	})

	e.register("browser_hover", func(sess *session.Session, args map[string]interface{}) ToolResult {
		return withElement(sess, args, func(el *rod.Element) error { return el.Hover() })
	})

	e.register("browser_focus", func(sess *session.Session, args map[string]interface{}) ToolResult {
		return withElement(sess, args, func(el *rod.Element) error { return el.Focus() })
	})

	e.register("browser_type", func(sess *session.Session, args map[string]interface{}) ToolResult {
		text := getString(args, "text")
		return withElement(sess, args, func(el *rod.Element) error {
			if err := el.SelectAllText(); err == nil {
				_ = el.Input("")
			}
			return el.Input(text)
		})
	})

	e.register("browser_press_key", func(sess *session.Session, args map[string]interface{}) ToolResult {
		page, err := pageFor(sess, args)
		if err != nil {
			return fail("not_found", err)
		}
		key := getString(args, "key")
		if key == "" {
			return fail("invalid_argument", fmt.Errorf("key is required"))
		}
		k, known := keyByName[key]
		if !known {
			return fail("invalid_argument", fmt.Errorf("unknown key %q", key))
		}
		if err := page.Keyboard.Type(k); err != nil {
			return fail("internal", err)
		}
		return ok(nil)
	})

	e.register("browser_select_option", func(sess *session.Session, args map[string]interface{}) ToolResult {
		value := getString(args, "value")
		if value == "" {
			return fail("invalid_argument", fmt.Errorf("value is required"))
		}
		return withElement(sess, args, func(el *rod.Element) error {
			byValue := `option[value="` + escapeAttributeValue(value) + `"]`
			if err := el.Select([]string{byValue}, true, rod.SelectorTypeCSSSector); err == nil {
				return nil
			}
			// fall back to matching the option's visible text
			return el.Select([]string{value}, true, rod.SelectorTypeText)
		})
	})

	e.register("browser_check", func(sess *session.Session, args map[string]interface{}) ToolResult {
		return setChecked(sess, args, true)
	})
	e.register("browser_uncheck", func(sess *session.Session, args map[string]interface{}) ToolResult {
		return setChecked(sess, args, false)
	})
}

// keyByName maps wire-level key names to go-rod input keys, covering the
// common editing/navigation keys an automation caller would send.
var keyByName = map[string]input.Key{
	"Enter":      input.Enter,
	"Tab":        input.Tab,
	"Escape":     input.Escape,
	"Backspace":  input.Backspace,
	"Delete":     input.Delete,
	"ArrowUp":    input.ArrowUp,
	"ArrowDown":  input.ArrowDown,
	"ArrowLeft":  input.ArrowLeft,
	"ArrowRight": input.ArrowRight,
	"Home":       input.Home,
	"End":        input.End,
	"PageUp":     input.PageUp,
	"PageDown":   input.PageDown,
	"Space":      input.Space,
}

func setChecked(sess *session.Session, args map[string]interface{}, want bool) ToolResult {
	return withElement(sess, args, func(el *rod.Element) error {
		checked, err := el.Property("checked")
		if err != nil {
			return err
		}
		if checked.Bool() == want {
			return nil
		}
		return el.Click(proto.InputMouseButtonLeft, 1)
	})
}
