package executor

import (
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"webmcp-discovery-broker/internal/session"
)

func (e *Executor) registerRichInteraction() {
	e.register("browser_drag_and_drop", func(sess *session.Session, args map[string]interface{}) ToolResult {
		srcSel := getString(args, "sourceSelector")
		dstSel := getString(args, "targetSelector")
		if srcSel == "" || dstSel == "" {
			return fail("invalid_argument", fmt.Errorf("sourceSelector and targetSelector are required"))
		}
		page, err := pageFor(sess, args)
		if err != nil {
			return fail("not_found", err)
		}
		src, err := findElement(page, locatorArgs{Selector: srcSel}, timeoutFrom(args))
		if err != nil {
			return fail("not_found", fmt.Errorf("source: %w", err))
		}
		dst, err := findElement(page, locatorArgs{Selector: dstSel}, timeoutFrom(args))
		if err != nil {
			return fail("not_found", fmt.Errorf("target: %w", err))
		}
		srcBox, err := src.Shape()
		if err != nil {
			return fail("internal", err)
		}
		dstBox, err := dst.Shape()
		if err != nil {
			return fail("internal", err)
		}
		sx, sy := srcBox.Box().X+srcBox.Box().Width/2, srcBox.Box().Y+srcBox.Box().Height/2
		dx, dy := dstBox.Box().X+dstBox.Box().Width/2, dstBox.Box().Y+dstBox.Box().Height/2

		mouse := page.Mouse
		if err := mouse.MoveTo(proto.NewPoint(sx, sy)); err != nil {
			return fail("internal", err)
		}
		if err := mouse.Down(proto.InputMouseButtonLeft, 1); err != nil {
			return fail("internal", err)
		}
		if err := mouse.MoveTo(proto.NewPoint(dx, dy)); err != nil {
			return fail("internal", err)
		}
		if err := mouse.Up(proto.InputMouseButtonLeft, 1); err != nil {
			return fail("internal", err)
		}
		return ok(nil)
	})

	e.register("browser_set_rich_text", func(sess *session.Session, args map[string]interface{}) ToolResult {
		html := getString(args, "html")
		return withElement(sess, args, func(el *rod.Element) error {
			_, err := el.Eval(`(html) => { this.innerHTML = html; }`, html)
			return err
		})
	})

	e.register("browser_pierce_shadow", func(sess *session.Session, args map[string]interface{}) ToolResult {
		selector := getString(args, "selector")
		if selector == "" {
			return fail("invalid_argument", fmt.Errorf("selector is required"))
		}
		page, err := pageFor(sess, args)
		if err != nil {
			return fail("not_found", err)
		}
		el, err := findShadowPiercing(page, selector, timeoutFrom(args))
		if err != nil {
			return fail("not_found", err)
		}
		text, _ := el.Text()
		return ok(map[string]interface{}{"text": text})
	})
}
