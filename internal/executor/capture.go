package executor

import (
	"encoding/base64"

	"github.com/go-rod/rod/lib/proto"

	"webmcp-discovery-broker/internal/session"
)

func (e *Executor) registerCapture() {
	e.register("browser_screenshot", func(sess *session.Session, args map[string]interface{}) ToolResult {
		page, err := pageFor(sess, args)
		if err != nil {
			return fail("not_found", err)
		}

		loc := resolveLocator(sess, args)
		if loc.Selector != "" || loc.TestID != "" || loc.Text != "" || loc.Role != "" || loc.Label != "" || loc.Placeholder != "" {
			el, err := findElement(page, loc, timeoutFrom(args))
			if err != nil {
				return fail("not_found", err)
			}
			bytes, err := el.Screenshot(proto.PageCaptureScreenshotFormatPng, 0)
			if err != nil {
				return fail("internal", err)
			}
			return ok(map[string]interface{}{"imageBase64": base64.StdEncoding.EncodeToString(bytes), "format": "png"})
		}

		fullPage := getBool(args, "fullPage", false)
		req := &proto.PageCaptureScreenshot{Format: proto.PageCaptureScreenshotFormatPng}
		if fullPage {
			metrics, err := proto.PageGetLayoutMetrics{}.Call(page)
			if err == nil && metrics.CSSContentSize != nil {
				req.Clip = &proto.PageViewport{
					X: 0, Y: 0,
					Width: metrics.CSSContentSize.Width, Height: metrics.CSSContentSize.Height,
					Scale: 1,
				}
			}
		}
		bytes, err := page.Screenshot(fullPage, req)
		if err != nil {
			return fail("internal", err)
		}
		return ok(map[string]interface{}{"imageBase64": base64.StdEncoding.EncodeToString(bytes), "format": "png"})
	})

	e.register("browser_pdf", func(sess *session.Session, args map[string]interface{}) ToolResult {
		page, err := pageFor(sess, args)
		if err != nil {
			return fail("not_found", err)
		}
		reader, err := page.PDF(&proto.PagePrintToPDF{})
		if err != nil {
			return fail("internal", err)
		}
		buf := make([]byte, 0, 1<<16)
		chunk := make([]byte, 1<<16)
		for {
			n, rerr := reader.Read(chunk)
			if n > 0 {
				buf = append(buf, chunk[:n]...)
			}
			if rerr != nil {
				break
			}
		}
		return ok(map[string]interface{}{"pdfBase64": base64.StdEncoding.EncodeToString(buf), "format": "pdf"})
	})
}
