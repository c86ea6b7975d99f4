package executor

import (
	"fmt"

	"github.com/go-rod/rod/lib/proto"

	"webmcp-discovery-broker/internal/session"
)

func (e *Executor) registerDialogsAndDownloads() {
	e.register("browser_handle_dialog", func(sess *session.Session, args map[string]interface{}) ToolResult {
		page, err := pageFor(sess, args)
		if err != nil {
			return fail("not_found", err)
		}
		accept := getBool(args, "accept", true)
		promptText := getString(args, "promptText")

		wait, handle := page.HandleDialog()
		go func() {
			wait()
			_ = handle(&proto.PageHandleJavaScriptDialog{Accept: accept, PromptText: promptText})
		}()
		return ok(nil)
	})

	e.register("browser_wait_for_download", func(sess *session.Session, args map[string]interface{}) ToolResult {
		page, err := pageFor(sess, args)
		if err != nil {
			return fail("not_found", err)
		}
		wait := page.Browser().Timeout(timeoutFrom(args)).WaitDownload(".")
		info := wait()
		if info == nil {
			return fail("timeout", fmt.Errorf("no download observed within timeout"))
		}
		return ok(map[string]interface{}{"fileName": info.SuggestedFilename, "guid": info.GUID})
	})
}
