package executor

import (
	"github.com/go-rod/rod/lib/proto"

	"webmcp-discovery-broker/internal/session"
)

func (e *Executor) registerConsoleAndMedia() {
	e.register("browser_get_console_logs", func(sess *session.Session, args map[string]interface{}) ToolResult {
		return ok(sess.ConsoleLogs())
	})

	e.register("browser_get_page_errors", func(sess *session.Session, args map[string]interface{}) ToolResult {
		return ok(sess.PageErrors())
	})

	e.register("browser_grant_media_permissions", func(sess *session.Session, args map[string]interface{}) ToolResult {
		page, err := pageFor(sess, args)
		if err != nil {
			return fail("not_found", err)
		}
		info, err := page.Info()
		if err != nil {
			return fail("internal", err)
		}
		if err := (proto.BrowserGrantPermissions{
			Origin:      originOf(info.URL),
			Permissions: []proto.BrowserPermissionType{proto.BrowserPermissionTypeAudioCapture, proto.BrowserPermissionTypeVideoCapture},
		}).Call(page); err != nil {
			return fail("internal", err)
		}
		return ok(nil)
	})
}

func originOf(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	return rawURL
}
