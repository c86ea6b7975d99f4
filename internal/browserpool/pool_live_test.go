//go:build live

// Package browserpool live tests exercise a real headless Chrome. Run with
// `go test -tags live ./...` on a machine with Chrome/Chromium available;
// skipped by default.
package browserpool

import (
	"context"
	"testing"

	"webmcp-discovery-broker/internal/redact"
	"webmcp-discovery-broker/internal/urlpolicy"
)

func TestAcquireReleaseLiveBrowser(t *testing.T) {
	p := New(1, true, urlpolicy.New(nil, nil), redact.New(nil, nil))

	handle, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if p.Size() != 1 {
		t.Fatalf("expected size 1 after acquire, got %d", p.Size())
	}

	if _, err := p.Acquire(context.Background()); err != ErrExhausted {
		t.Fatalf("expected second acquire to be exhausted, got %v", err)
	}

	p.Release(handle.ID)
	if p.Size() != 0 {
		t.Fatalf("expected size 0 after release, got %d", p.Size())
	}
}

func TestEgressBlockedNavigationLiveTest(t *testing.T) {
	policy := urlpolicy.New([]string{"example.com"}, nil)
	p := New(1, true, policy, redact.New(nil, nil))

	handle, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer p.Release(handle.ID)

	if err := handle.Page.Navigate("https://blocked.test"); err == nil {
		t.Fatal("expected navigation to a host outside the allow list to fail")
	}
}
