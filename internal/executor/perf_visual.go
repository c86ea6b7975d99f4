package executor

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strconv"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"webmcp-discovery-broker/internal/session"
)

func (e *Executor) registerPerformanceAndVisual() {
	e.register("browser_get_performance_metrics", func(sess *session.Session, args map[string]interface{}) ToolResult {
		page, err := pageFor(sess, args)
		if err != nil {
			return fail("not_found", err)
		}
		res, err := page.Eval(`() => {
			const nav = performance.getEntriesByType('navigation')[0] || {};
			const paint = {};
			for (const p of performance.getEntriesByType('paint')) { paint[p.name] = p.startTime; }
			return {
				domContentLoaded: nav.domContentLoadedEventEnd || 0,
				loadEvent: nav.loadEventEnd || 0,
				firstPaint: paint['first-paint'] || 0,
				firstContentfulPaint: paint['first-contentful-paint'] || 0,
			};
		}`)
		if err != nil {
			return fail("internal", err)
		}
		var out map[string]interface{}
		_ = res.Value.Unmarshal(&out)
		return ok(out)
	})

	e.register("browser_compare_visual", func(sess *session.Session, args map[string]interface{}) ToolResult {
		baseline := getString(args, "baselineBase64")
		if baseline == "" {
			return fail("invalid_argument", fmt.Errorf("baselineBase64 is required"))
		}
		baselineBytes, err := base64.StdEncoding.DecodeString(baseline)
		if err != nil {
			return fail("invalid_argument", fmt.Errorf("baselineBase64: %w", err))
		}
		page, err := pageFor(sess, args)
		if err != nil {
			return fail("not_found", err)
		}
		current, err := page.Screenshot(false, &proto.PageCaptureScreenshot{Format: proto.PageCaptureScreenshotFormatPng})
		if err != nil {
			return fail("internal", err)
		}
		// Byte-identical PNGs are a match; any difference, a byte-length
		// mismatch included, is reported as a diff. Pixel-level comparison is
		// left to the caller, which receives both encodings.
		return ok(map[string]interface{}{
			"matches":         bytes.Equal(current, baselineBytes),
			"currentByteSize": len(current),
			"currentBase64":   base64.StdEncoding.EncodeToString(current),
			"note":            "pixel-level diffing is not performed broker-side; compare the returned screenshot to your baseline",
		})
	})

	e.register("browser_set_permission", func(sess *session.Session, args map[string]interface{}) ToolResult {
		name := getString(args, "name")
		if name == "" {
			return fail("invalid_argument", fmt.Errorf("name is required"))
		}
		allow := getBool(args, "allow", true)
		page, err := pageFor(sess, args)
		if err != nil {
			return fail("not_found", err)
		}
		info, err := page.Info()
		if err != nil {
			return fail("internal", err)
		}
		if allow {
			if err := (proto.BrowserGrantPermissions{
				Origin:      info.URL,
				Permissions: []proto.BrowserPermissionType{proto.BrowserPermissionType(name)},
			}).Call(page); err != nil {
				return fail("internal", err)
			}
		} else {
			if err := (proto.BrowserResetPermissions{}).Call(page); err != nil {
				return fail("internal", err)
			}
		}
		return ok(nil)
	})

	e.register("browser_read_clipboard", func(sess *session.Session, args map[string]interface{}) ToolResult {
		page, err := pageFor(sess, args)
		if err != nil {
			return fail("not_found", err)
		}
		res, err := page.Eval(`() => navigator.clipboard.readText()`)
		if err != nil {
			return fail("internal", err)
		}
		return ok(res.Value.Str())
	})

	e.register("browser_write_clipboard", func(sess *session.Session, args map[string]interface{}) ToolResult {
		text := getString(args, "text")
		page, err := pageFor(sess, args)
		if err != nil {
			return fail("not_found", err)
		}
		if _, err := page.Eval(`(t) => navigator.clipboard.writeText(t)`, text); err != nil {
			return fail("internal", err)
		}
		return ok(nil)
	})

	e.register("browser_list_frames", func(sess *session.Session, args map[string]interface{}) ToolResult {
		page, err := pageFor(sess, args)
		if err != nil {
			return fail("not_found", err)
		}
		res, err := page.Eval(`() => Array.from(document.querySelectorAll('iframe')).map(
			(f, i) => ({ index: i, name: f.name || '', src: f.src || '' })
		)`)
		if err != nil {
			return fail("internal", err)
		}
		var out []map[string]interface{}
		_ = res.Value.Unmarshal(&out)
		return ok(out)
	})

	e.register("browser_switch_frame", func(sess *session.Session, args map[string]interface{}) ToolResult {
		frame := getString(args, "frame")
		if frame == "" {
			return fail("invalid_argument", fmt.Errorf("frame is required"))
		}
		page, err := pageFor(sess, args)
		if err != nil {
			return fail("not_found", err)
		}
		els, err := page.Elements("iframe")
		if err != nil {
			return fail("internal", err)
		}

		var target *rod.Element
		if idx, convErr := strconv.Atoi(frame); convErr == nil {
			if idx < 0 || idx >= len(els) {
				return fail("not_found", fmt.Errorf("no iframe at index %d", idx))
			}
			target = els[idx]
		} else {
			for _, el := range els {
				if name, _ := el.Attribute("name"); name != nil && *name == frame {
					target = el
					break
				}
				if src, _ := el.Attribute("src"); src != nil && *src == frame {
					target = el
					break
				}
			}
			if target == nil {
				return fail("not_found", fmt.Errorf("no iframe matching %q", frame))
			}
		}

		framePage, err := target.Frame()
		if err != nil {
			return fail("internal", err)
		}
		sess.SetActiveFrame(framePage)
		return ok(nil)
	})
}
