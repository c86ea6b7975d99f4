// Package browserpool manages a bounded set of headless
// browser processes, each launched fresh per acquire (no warm reuse), with
// egress control wired in at context-creation time via a request
// interceptor consulting urlpolicy, and redaction CSS injected into every
// new page.
package browserpool

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"webmcp-discovery-broker/internal/redact"
	"webmcp-discovery-broker/internal/urlpolicy"
)

// ErrExhausted is returned by Acquire when the pool is already at capacity.
var ErrExhausted = errors.New("browser pool exhausted")

const brokerUserAgent = "webmcp-discovery-broker/1.0 (+headless)"

// Handle is what Acquire returns: the live-set id, the dedicated browser
// process, and the primary page, which lives inside a fresh incognito
// browsing context of that browser.
type Handle struct {
	ID      string
	Browser *rod.Browser
	Page    *rod.Page
}

// Pool owns the live set of browser processes and enforces maxBrowsers.
type Pool struct {
	maxBrowsers   int
	egressControl bool
	policy        *urlpolicy.Policy
	redaction     *redact.Policy

	mu   sync.Mutex
	live map[string]*rod.Browser
}

// New builds a Pool bounded at maxBrowsers, enforcing policy on every
// subresource request when egressControl is true.
func New(maxBrowsers int, egressControl bool, policy *urlpolicy.Policy, redaction *redact.Policy) *Pool {
	if maxBrowsers <= 0 {
		maxBrowsers = 1
	}
	return &Pool{
		maxBrowsers:   maxBrowsers,
		egressControl: egressControl,
		policy:        policy,
		redaction:     redaction,
		live:          make(map[string]*rod.Browser),
	}
}

// Size returns the current number of live browser processes.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.live)
}

// Acquire launches a new hardened headless browser, opens a fresh incognito
// context and primary page, installs the egress interceptor, and injects
// the redaction CSS. The capacity check and live-set reservation happen
// under a single lock so the cap is never exceeded under concurrent
// requests.
func (p *Pool) Acquire(ctx context.Context) (*Handle, error) {
	id := uuid.NewString()

	p.mu.Lock()
	if len(p.live) >= p.maxBrowsers {
		p.mu.Unlock()
		return nil, ErrExhausted
	}
	p.live[id] = nil // reserve the slot before the slow launch
	p.mu.Unlock()

	browser, err := p.launch(ctx)
	if err != nil {
		p.mu.Lock()
		delete(p.live, id)
		p.mu.Unlock()
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	p.mu.Lock()
	p.live[id] = browser
	p.mu.Unlock()

	page, err := p.newPage(browser)
	if err != nil {
		_ = browser.Close()
		p.mu.Lock()
		delete(p.live, id)
		p.mu.Unlock()
		return nil, fmt.Errorf("create page: %w", err)
	}

	return &Handle{ID: id, Browser: browser, Page: page}, nil
}

// launch starts a new headless Chrome with a hardened argument set: no
// sandbox fallback, disabled shared-memory dir, disabled GPU.
func (p *Pool) launch(ctx context.Context) (*rod.Browser, error) {
	l := launcher.New().
		Headless(true).
		Set(flags.Flag("no-sandbox")).
		Set(flags.Flag("disable-setuid-sandbox")).
		Set(flags.Flag("disable-dev-shm-usage")).
		Set(flags.Flag("disable-gpu")).
		Set(flags.Flag("disable-software-rasterizer"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, err
	}
	if ctx != nil && ctx.Err() != nil {
		return nil, ctx.Err()
	}

	// The browser deliberately does not inherit the acquiring request's
	// context: its lifetime is the session's, ended by Release/CloseAll,
	// not by the HTTP request that happened to create it.
	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, err
	}
	return browser, nil
}

func (p *Pool) newPage(browser *rod.Browser) (*rod.Page, error) {
	incognito, err := browser.Incognito()
	if err != nil {
		return nil, err
	}

	page, err := incognito.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, err
	}

	if err := (proto.EmulationSetDeviceMetricsOverride{
		Width: 1366, Height: 768, DeviceScaleFactor: 1.0, Mobile: false,
	}).Call(page); err != nil {
		log.Printf("browserpool: warning: failed to set viewport: %v", err)
	}
	if err := (proto.NetworkSetUserAgentOverride{UserAgent: brokerUserAgent}).Call(page); err != nil {
		log.Printf("browserpool: warning: failed to set user agent: %v", err)
	}

	p.PreparePage(page)

	return page, nil
}

// PreparePage installs the egress interceptor and redaction CSS on a page.
// The pool applies it to every primary page it creates; the executor applies
// it to pages that join a session later (new tabs, popups) so they carry the
// same policy enforcement as the primary page.
func (p *Pool) PreparePage(page *rod.Page) {
	p.installEgressInterceptor(page)
	p.injectRedactionCSS(page)
}

// installEgressInterceptor wires URL policy into every subresource request
// the page makes, aborting disallowed ones.
func (p *Pool) installEgressInterceptor(page *rod.Page) {
	if !p.egressControl || p.policy == nil {
		return
	}
	router := page.HijackRequests()
	router.MustAdd("*", func(hijack *rod.Hijack) {
		target := hijack.Request.URL().String()
		if decision := p.policy.IsAllowed(target); !decision.Allowed {
			hijack.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		hijack.ContinueRequest(&proto.FetchContinueRequest{})
	})
	go router.Run()
}

// injectRedactionCSS installs the screenshot-obscuring style on every
// document load for this page.
func (p *Pool) injectRedactionCSS(page *rod.Page) {
	if p.redaction == nil {
		return
	}
	css := redact.ScreenshotStyleSnippet()
	_, err := page.EvalOnNewDocument(fmt.Sprintf(`(() => {
		const style = document.createElement('style');
		style.textContent = %q;
		document.documentElement.appendChild(style);
	})()`, css))
	if err != nil {
		log.Printf("browserpool: warning: failed to inject redaction css: %v", err)
	}
}

// Release closes and forgets the browser process identified by id.
// Idempotent: closing an id not in the live set is a no-op.
func (p *Pool) Release(id string) {
	p.mu.Lock()
	browser, ok := p.live[id]
	delete(p.live, id)
	p.mu.Unlock()

	if ok && browser != nil {
		_ = browser.Close()
	}
}

// CloseAll releases every live browser in parallel, used at shutdown so
// N slow-closing Chrome processes don't serialize the broker's exit, the
// same pattern the flaresolverr-go pool uses for its own teardown.
func (p *Pool) CloseAll() {
	p.mu.Lock()
	ids := make([]string, 0, len(p.live))
	for id := range p.live {
		ids = append(ids, id)
	}
	p.mu.Unlock()

	var eg errgroup.Group
	for _, id := range ids {
		id := id
		eg.Go(func() error {
			p.Release(id)
			return nil
		})
	}
	_ = eg.Wait()
}
