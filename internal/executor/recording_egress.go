package executor

import (
	"fmt"

	"webmcp-discovery-broker/internal/session"
)

func (e *Executor) registerRecordingAndEgress() {
	e.register("browser_set_recording", func(sess *session.Session, args map[string]interface{}) ToolResult {
		enabled := getBool(args, "enabled", true)
		sess.SetRecording(enabled)
		return ok(map[string]interface{}{"enabled": enabled})
	})

	e.register("browser_get_recording", func(sess *session.Session, args map[string]interface{}) ToolResult {
		return ok(sess.Recording())
	})

	e.register("browser_get_egress_policy", func(sess *session.Session, args map[string]interface{}) ToolResult {
		if e.policy == nil {
			return ok(map[string]interface{}{"egressControlEnabled": false})
		}
		decision := e.policy.IsAllowed(sess.URL)
		return ok(map[string]interface{}{
			"egressControlEnabled": true,
			"allowedDomains":       e.policy.AllowedDomains(),
			"blockedDomains":       e.policy.BlockedDomains(),
			"currentURLAllowed":    decision.Allowed,
			"reason":               decision.Reason,
		})
	})

	e.register("browser_block_domains", func(sess *session.Session, args map[string]interface{}) ToolResult {
		if e.policy == nil {
			return fail("invalid_argument", fmt.Errorf("egress control is not configured"))
		}
		raw, _ := args["domains"].([]interface{})
		var domains []string
		for _, v := range raw {
			if s, ok := v.(string); ok && s != "" {
				domains = append(domains, s)
			}
		}
		if len(domains) == 0 {
			return fail("invalid_argument", fmt.Errorf("domains is required"))
		}
		e.policy.BlockDomains(domains)
		return ok(map[string]interface{}{"blockedDomains": e.policy.BlockedDomains()})
	})
}

func (e *Executor) registerAll() {
	e.registerNavigation()
	e.registerInteraction()
	e.registerForms()
	e.registerCapture()
	e.registerExtraction()
	e.registerWaiting()
	e.registerScrolling()
	e.registerEvaluation()
	e.registerDialogsAndDownloads()
	e.registerCookiesAndStorage()
	e.registerAccessibilityAndNetwork()
	e.registerDeviceAndTabs()
	e.registerConsoleAndMedia()
	e.registerRichInteraction()
	e.registerPerformanceAndVisual()
	e.registerComposites()
	e.registerRecovery()
	e.registerRecordingAndEgress()
}
