package executor

import (
	"testing"

	"webmcp-discovery-broker/internal/catalog"
	"webmcp-discovery-broker/internal/discovery"
	"webmcp-discovery-broker/internal/redact"
	"webmcp-discovery-broker/internal/session"
	"webmcp-discovery-broker/internal/urlpolicy"
)

func newTestExecutor() *Executor {
	return New(urlpolicy.New(nil, nil), redact.New(nil, nil), nil)
}

func TestEveryCatalogToolHasAHandler(t *testing.T) {
	e := newTestExecutor()
	for _, d := range catalog.BuildCatalog() {
		if _, ok := e.handlers[d.Name]; !ok {
			t.Errorf("catalog tool %q has no registered handler", d.Name)
		}
	}
}

func TestEveryHandlerIsAdvertisedInTheCatalog(t *testing.T) {
	advertised := make(map[string]struct{})
	for _, d := range catalog.BuildCatalog() {
		advertised[d.Name] = struct{}{}
	}
	e := newTestExecutor()
	for name := range e.handlers {
		if _, ok := advertised[name]; !ok {
			t.Errorf("handler %q is not advertised in the catalog", name)
		}
	}
}

func TestDispatchUnknownToolReturnsStructuredError(t *testing.T) {
	e := newTestExecutor()
	sess := &session.Session{Registry: session.NewElementRegistry()}

	res := e.Dispatch(sess, discovery.Result{}, "no_such_tool", nil)
	if res.Success {
		t.Fatal("expected failure for unknown tool")
	}
	if res.ErrorKind != "unknown_tool" {
		t.Errorf("expected unknown_tool kind, got %q", res.ErrorKind)
	}
}

func TestDispatchRecordsActionWhenRecordingEnabled(t *testing.T) {
	e := New(nil, redact.New([]string{"password"}, nil), nil)
	sess := &session.Session{Registry: session.NewElementRegistry()}
	sess.SetRecording(true)

	e.Dispatch(sess, discovery.Result{}, "no_such_tool", map[string]interface{}{"password": "hunter2"})

	rec := sess.Recording()
	if len(rec) != 1 {
		t.Fatalf("expected exactly one action record, got %d", len(rec))
	}
	if rec[0].Success {
		t.Error("expected the record to reflect the failed call")
	}
	if rec[0].Input["password"] != redact.Sentinel {
		t.Errorf("expected recorded input redacted, got %v", rec[0].Input)
	}
}
