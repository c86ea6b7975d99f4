package session

import (
	"strings"
	"time"

	"github.com/go-rod/rod/lib/proto"
)

// installPageLogging subscribes to the session's page for the CDP events
// backing browser_get_console_logs, browser_get_page_errors and
// browser_get_network_log (internal/executor), so those primitives have a
// live bounded buffer to read instead of a fabricated empty result. Runs
// for the lifetime of the page; go-rod tears the subscription down when the
// page closes.
func (s *Session) installPageLogging() {
	if s.Page == nil {
		return
	}

	_ = proto.RuntimeEnable{}.Call(s.Page)
	_ = proto.NetworkEnable{}.Call(s.Page)

	go s.Page.EachEvent(
		func(e *proto.RuntimeConsoleAPICalled) {
			s.AppendConsoleLog(ConsoleLogEntry{
				Timestamp: time.Now(),
				Level:     string(e.Type),
				Text:      consoleArgsToText(e.Args),
			})
		},
		func(e *proto.RuntimeExceptionThrown) {
			if e.ExceptionDetails == nil {
				return
			}
			s.AppendPageError(e.ExceptionDetails.Text)
		},
		func(e *proto.NetworkRequestWillBeSent) {
			if !s.NetworkLogging() || e.Request == nil {
				return
			}
			s.AppendNetworkLog(NetworkLogEntry{
				Timestamp: time.Now(),
				Method:    e.Request.Method,
				URL:       e.Request.URL,
			})
		},
	)()
}

// consoleArgsToText renders a console.* call's arguments into one line,
// preferring each remote object's description (the form the DevTools
// console itself renders for non-primitive values) and falling back to its
// runtime type when no description is available.
func consoleArgsToText(args []*proto.RuntimeRemoteObject) string {
	parts := make([]string, 0, len(args))
	for _, a := range args {
		if a == nil {
			continue
		}
		if a.Description != "" {
			parts = append(parts, a.Description)
			continue
		}
		parts = append(parts, string(a.Type))
	}
	return strings.Join(parts, " ")
}
