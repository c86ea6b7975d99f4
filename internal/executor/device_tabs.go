package executor

import (
	"fmt"

	"github.com/go-rod/rod/lib/devices"
	"github.com/go-rod/rod/lib/proto"

	"webmcp-discovery-broker/internal/session"
)

func (e *Executor) registerDeviceAndTabs() {
	e.register("browser_set_viewport", func(sess *session.Session, args map[string]interface{}) ToolResult {
		page, err := pageFor(sess, args)
		if err != nil {
			return fail("not_found", err)
		}
		width := getInt(args, "width", 0)
		height := getInt(args, "height", 0)
		if width <= 0 || height <= 0 {
			return fail("invalid_argument", fmt.Errorf("width and height must be positive"))
		}
		if err := (proto.EmulationSetDeviceMetricsOverride{
			Width: width, Height: height, DeviceScaleFactor: 1.0, Mobile: false,
		}).Call(page); err != nil {
			return fail("internal", err)
		}
		return ok(nil)
	})

	e.register("browser_emulate_device", func(sess *session.Session, args map[string]interface{}) ToolResult {
		name := getString(args, "device")
		if name == "" {
			return fail("invalid_argument", fmt.Errorf("device is required"))
		}
		page, err := pageFor(sess, args)
		if err != nil {
			return fail("not_found", err)
		}
		device, found := deviceByName(name)
		if !found {
			return fail("invalid_argument", fmt.Errorf("unknown device profile %q", name))
		}
		if err := page.Emulate(device); err != nil {
			return fail("internal", err)
		}
		return ok(nil)
	})

	e.register("browser_get_viewport", func(sess *session.Session, args map[string]interface{}) ToolResult {
		page, err := pageFor(sess, args)
		if err != nil {
			return fail("not_found", err)
		}
		res, err := page.Eval(`() => ({ width: window.innerWidth, height: window.innerHeight, dpr: window.devicePixelRatio })`)
		if err != nil {
			return fail("internal", err)
		}
		var out map[string]interface{}
		_ = res.Value.Unmarshal(&out)
		return ok(out)
	})

	e.register("browser_new_tab", func(sess *session.Session, args map[string]interface{}) ToolResult {
		url := getString(args, "url")
		if url != "" && e.policy != nil {
			if decision := e.policy.IsAllowed(url); !decision.Allowed {
				return fail("egress_blocked", fmt.Errorf("navigation blocked: %s", decision.Reason))
			}
		}
		page, err := sess.Page.Browser().Page(proto.TargetCreateTarget{URL: "about:blank"})
		if err != nil {
			return fail("internal", err)
		}
		if e.prepPage != nil {
			e.prepPage(page)
		}
		if url != "" {
			if err := page.Timeout(DefaultTimeout).Navigate(url); err != nil {
				_ = page.Close()
				return fail("navigation_failed", err)
			}
			_ = page.Timeout(DefaultTimeout).WaitLoad()
		}
		idx := sess.RegisterTab(page)
		return ok(map[string]interface{}{"index": idx})
	})

	e.register("browser_list_tabs", func(sess *session.Session, args map[string]interface{}) ToolResult {
		out := []map[string]interface{}{{"index": 0, "primary": true, "active": sess.ActiveTab() == 0}}
		for i, tab := range sess.ExtraTabs {
			out = append(out, map[string]interface{}{
				"index": i + 1, "primary": false,
				"active": sess.ActiveTab() == i+1,
				"closed": tab == nil,
			})
		}
		return ok(out)
	})

	e.register("browser_switch_tab", func(sess *session.Session, args map[string]interface{}) ToolResult {
		idx := getInt(args, "index", -1)
		if _, ok := sess.Tab(idx); !ok {
			return fail("not_found", fmt.Errorf("no such tab: %d", idx))
		}
		sess.SetActiveTab(idx)
		return ok(map[string]interface{}{"index": idx})
	})

	e.register("browser_close_tab", func(sess *session.Session, args map[string]interface{}) ToolResult {
		idx := getInt(args, "index", -1)
		page, found := sess.CloseTab(idx)
		if !found {
			return fail("invalid_argument", fmt.Errorf("cannot close primary tab or unknown index %d", idx))
		}
		if err := page.Close(); err != nil {
			return fail("internal", err)
		}
		return ok(nil)
	})
}

func deviceByName(name string) (devices.Device, bool) {
	switch name {
	case "iPhone X", "iphonex", "iPhone", "iphone":
		return devices.IPhoneX, true
	case "iPad", "ipad":
		return devices.IPad, true
	default:
		return devices.Device{}, false
	}
}
