// Package urlpolicy implements a pure allow/block decision
// over the host component of a URL, applied both to caller-supplied
// navigation targets and to every subresource request a brokered browser
// makes.
package urlpolicy

import (
	"net/url"
	"strings"
	"sync"
)

// Decision is the result of evaluating a URL against the configured policy.
type Decision struct {
	Allowed bool
	Reason  string
}

// Policy holds the configured allow/block host lists, lower-cased once at
// construction so every check is a cheap, case-insensitive comparison.
// The block list can grow at runtime via BlockDomains; the same Policy
// instance is shared by the browser pool's request interceptor and the
// broker's navigation pre-check, so a runtime block takes effect on both.
type Policy struct {
	mu      sync.RWMutex
	allowed []string
	blocked []string
}

// New builds a Policy from the raw (mixed-case) domain lists in config.
func New(allowedDomains, blockedDomains []string) *Policy {
	return &Policy{
		allowed: lowerAll(allowedDomains),
		blocked: lowerAll(blockedDomains),
	}
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(strings.TrimSpace(s))
	}
	return out
}

// IsAllowed parses the URL, extracts and lowercases the host, then:
// deny on block-list match, deny on non-empty allow-list miss, else allow.
// Malformed URLs are denied.
func (p *Policy) IsAllowed(rawURL string) Decision {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return Decision{Allowed: false, Reason: "malformed url"}
	}

	host := strings.ToLower(u.Hostname())

	p.mu.RLock()
	defer p.mu.RUnlock()

	if matchesAny(host, p.blocked) {
		return Decision{Allowed: false, Reason: "host blocked: " + host}
	}

	if len(p.allowed) > 0 && !matchesAny(host, p.allowed) {
		return Decision{Allowed: false, Reason: "host not in allow list: " + host}
	}

	return Decision{Allowed: true}
}

// BlockDomains adds domains to the block list at runtime; subsequent checks
// from every consumer of this Policy deny them.
func (p *Policy) BlockDomains(domains []string) {
	p.mu.Lock()
	p.blocked = append(p.blocked, lowerAll(domains)...)
	p.mu.Unlock()
}

// BlockedDomains returns a snapshot of the current block list.
func (p *Policy) BlockedDomains() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, len(p.blocked))
	copy(out, p.blocked)
	return out
}

// AllowedDomains returns a snapshot of the configured allow list.
func (p *Policy) AllowedDomains() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, len(p.allowed))
	copy(out, p.allowed)
	return out
}

// matchesAny reports whether host equals an entry or is a dot-boundary
// subdomain of one, e.g. "a.example.com" matches "example.com" but
// "notexample.com" does not.
func matchesAny(host string, list []string) bool {
	for _, entry := range list {
		if entry == "" {
			continue
		}
		if host == entry || strings.HasSuffix(host, "."+entry) {
			return true
		}
	}
	return false
}
