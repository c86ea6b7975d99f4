package executor

import (
	"fmt"
	"time"

	"github.com/go-rod/rod/lib/proto"

	"webmcp-discovery-broker/internal/session"
)

// retryAttemptDelay is the pause after each failed attempt of a recovery
// primitive.
const retryAttemptDelay = 300 * time.Millisecond

// retryWhileThrew runs attempt up to maxRetries times and stops retrying as
// soon as an attempt succeeds; scrolling and visibility waits, where a
// primitive uses them, happen inside its attempt function. Per the decided semantics for the error-recovery category, a
// retry is only taken when the previous attempt itself threw (a resolution
// or click/fill error) — a successful attempt never triggers another try,
// and an unresolvable element after the first failure still gets the full
// retry budget, since the page may still be settling.
func retryWhileThrew(maxRetries int, attempt func() error) error {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	var lastErr error
	for i := 0; i < maxRetries; i++ {
		lastErr = attempt()
		if lastErr == nil {
			return nil
		}
		time.Sleep(retryAttemptDelay)
	}
	return lastErr
}

func (e *Executor) registerRecovery() {
	e.register("browser_safe_click", func(sess *session.Session, args map[string]interface{}) ToolResult {
		page, err := pageFor(sess, args)
		if err != nil {
			return fail("not_found", err)
		}
		loc := resolveLocator(sess, args)
		retries := getInt(args, "retries", 3)

		err = retryWhileThrew(retries, func() error {
			el, err := findElement(page, loc, timeoutFrom(args))
			if err != nil {
				return err
			}
			if err := el.ScrollIntoView(); err != nil {
				return err
			}
			if err := el.WaitVisible(); err != nil {
				return err
			}
			return el.Click(proto.InputMouseButtonLeft, 1)
		})
		if err != nil {
			return fail("action_failed", err)
		}
		return okWithRef(sess, loc)
	})

	e.register("browser_safe_fill", func(sess *session.Session, args map[string]interface{}) ToolResult {
		text := getString(args, "text")
		if text == "" {
			return fail("invalid_argument", fmt.Errorf("text is required"))
		}
		page, err := pageFor(sess, args)
		if err != nil {
			return fail("not_found", err)
		}
		loc := resolveLocator(sess, args)
		retries := getInt(args, "retries", 3)

		err = retryWhileThrew(retries, func() error {
			el, err := findElement(page, loc, timeoutFrom(args))
			if err != nil {
				return err
			}
			if err := el.ScrollIntoView(); err != nil {
				return err
			}
			if err := el.WaitVisible(); err != nil {
				return err
			}
			return el.Input(text)
		})
		if err != nil {
			return fail("action_failed", err)
		}
		return okWithRef(sess, loc)
	})

	e.register("browser_wait_and_click", func(sess *session.Session, args map[string]interface{}) ToolResult {
		page, err := pageFor(sess, args)
		if err != nil {
			return fail("not_found", err)
		}
		loc := resolveLocator(sess, args)
		retries := getInt(args, "retries", 3)
		timeout := timeoutFrom(args)

		err = retryWhileThrew(retries, func() error {
			el, err := findElement(page, loc, timeout)
			if err != nil {
				return err
			}
			return el.Click(proto.InputMouseButtonLeft, 1)
		})
		if err != nil {
			return fail("timeout", err)
		}
		return okWithRef(sess, loc)
	})
}
