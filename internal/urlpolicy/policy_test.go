package urlpolicy

import "testing"

func TestIsAllowedNoLists(t *testing.T) {
	p := New(nil, nil)
	if d := p.IsAllowed("https://example.com/page"); !d.Allowed {
		t.Errorf("expected allow with empty lists, got deny: %s", d.Reason)
	}
}

func TestIsAllowedBlockList(t *testing.T) {
	p := New(nil, []string{"blocked.test"})
	if d := p.IsAllowed("https://blocked.test/x"); d.Allowed {
		t.Error("expected deny for exact blocked host")
	}
	if d := p.IsAllowed("https://sub.blocked.test/x"); d.Allowed {
		t.Error("expected deny for subdomain of blocked host")
	}
	if d := p.IsAllowed("https://notblocked.test/x"); !d.Allowed {
		t.Error("expected allow for unrelated host")
	}
}

func TestIsAllowedAllowList(t *testing.T) {
	p := New([]string{"example.com"}, nil)
	if d := p.IsAllowed("https://example.com"); !d.Allowed {
		t.Error("expected allow for exact match")
	}
	if d := p.IsAllowed("https://api.example.com"); !d.Allowed {
		t.Error("expected allow for subdomain")
	}
	if d := p.IsAllowed("https://evil.test"); d.Allowed {
		t.Error("expected deny for host outside allow list")
	}
	if d := p.IsAllowed("https://notexample.com"); d.Allowed {
		t.Error("expected deny: notexample.com is not a dot-boundary subdomain of example.com")
	}
}

func TestIsAllowedCaseInsensitive(t *testing.T) {
	p := New([]string{"Example.COM"}, nil)
	if d := p.IsAllowed("https://EXAMPLE.com"); !d.Allowed {
		t.Error("expected case-insensitive host match")
	}
}

func TestIsAllowedMalformed(t *testing.T) {
	p := New(nil, nil)
	if d := p.IsAllowed("://not a url"); d.Allowed {
		t.Error("expected deny for malformed url")
	}
	if d := p.IsAllowed(""); d.Allowed {
		t.Error("expected deny for empty url")
	}
}

func TestIsAllowedBlockTakesPrecedence(t *testing.T) {
	p := New([]string{"example.com"}, []string{"example.com"})
	if d := p.IsAllowed("https://example.com"); d.Allowed {
		t.Error("expected block list to take precedence over allow list")
	}
}

func TestBlockDomainsTakesEffectAtRuntime(t *testing.T) {
	p := New(nil, nil)
	if d := p.IsAllowed("https://late-blocked.test"); !d.Allowed {
		t.Fatalf("expected allow before runtime block, got deny: %s", d.Reason)
	}

	p.BlockDomains([]string{"Late-Blocked.TEST"})
	if d := p.IsAllowed("https://late-blocked.test"); d.Allowed {
		t.Error("expected deny after runtime block")
	}
	if d := p.IsAllowed("https://sub.late-blocked.test"); d.Allowed {
		t.Error("expected deny for subdomain after runtime block")
	}

	blocked := p.BlockedDomains()
	if len(blocked) != 1 || blocked[0] != "late-blocked.test" {
		t.Errorf("expected lower-cased snapshot of the block list, got %v", blocked)
	}
}
