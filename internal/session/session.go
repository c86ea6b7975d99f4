// Package session holds the broker-side state for one caller's dedicated
// browser: the Session entity, its ActionRecord recording, and the
// TTL-evicting Store that owns every live session.
package session

import (
	"sync"
	"time"

	"github.com/go-rod/rod"
)

// ActionRecord is one recorded tool-call outcome, appended atomically to a
// session's recording when recording is enabled.
type ActionRecord struct {
	Timestamp  time.Time              `json:"timestamp"`
	ToolName   string                 `json:"tool_name"`
	Input      map[string]interface{} `json:"input"` // post-redaction
	Success    bool                   `json:"success"`
	DurationMs int64                  `json:"duration_ms"`
	URL        string                 `json:"url"`
	Error      string                 `json:"error,omitempty"`
}

// Session is the broker-side handle tying one caller to one dedicated
// browser+context+page for the duration of a TTL.
type Session struct {
	ID        string
	BrowserID string // key into the browser pool's live set
	Page      *rod.Page
	ExtraTabs []*rod.Page // additional pages registered under this session

	URL       string
	CreatedAt time.Time
	ExpiresAt time.Time

	mu               sync.Mutex
	callLease        sync.Mutex
	callCount        int
	activeTab        int
	hasWebMCP        bool
	recordingEnabled bool
	recording        []ActionRecord

	// Registry caches fingerprints of elements resolved on this session so
	// a later call can re-address one by ref instead of repeating its
	// locator.
	Registry *ElementRegistry

	// activeFrame is the page context browser_switch_frame last resolved a
	// call into, or nil when calls target the primary page/tab. Cleared on
	// every navigation since a frame's lifetime doesn't survive a page load.
	activeFrame *rod.Page

	consoleLogs []ConsoleLogEntry
	pageErrors  []string
	networkLog  []NetworkLogEntry
	netLogging  bool
}

// ActiveFrame returns the frame page a prior browser_switch_frame call
// scoped this session to, or nil if calls should target the primary page.
func (s *Session) ActiveFrame() *rod.Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeFrame
}

// SetActiveFrame scopes subsequent tool calls on the primary tab to frame,
// until the next navigation or SetActiveFrame(nil).
func (s *Session) SetActiveFrame(frame *rod.Page) {
	s.mu.Lock()
	s.activeFrame = frame
	s.mu.Unlock()
}

// CallCount returns how many tool calls have been dispatched on this
// session so far.
func (s *Session) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.callCount
}

// IncrementCallCount is invoked by the executor on every dispatched call.
func (s *Session) IncrementCallCount() {
	s.mu.Lock()
	s.callCount++
	s.mu.Unlock()
}

// HasWebMCP reports whether the page was found to expose its own tools.
func (s *Session) HasWebMCP() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasWebMCP
}

// SetHasWebMCP records the outcome of the first discovery call.
func (s *Session) SetHasWebMCP(v bool) {
	s.mu.Lock()
	s.hasWebMCP = v
	s.mu.Unlock()
}

// RecordingEnabled reports whether action recording is currently on.
func (s *Session) RecordingEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recordingEnabled
}

// SetRecording toggles action recording for this session.
func (s *Session) SetRecording(enabled bool) {
	s.mu.Lock()
	s.recordingEnabled = enabled
	s.mu.Unlock()
}

// RecordAction appends rec to the session's recording iff recording is
// enabled, satisfying the "at most one ActionRecord per successful call,
// iff recording is enabled" invariant.
func (s *Session) RecordAction(rec ActionRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.recordingEnabled {
		s.recording = append(s.recording, rec)
	}
}

// Recording returns a snapshot of the recorded actions.
func (s *Session) Recording() []ActionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ActionRecord, len(s.recording))
	copy(out, s.recording)
	return out
}

// RegisterTab appends a cross-page tab (new window/popup) to this session
// so subsequent tool calls may target it by index.
func (s *Session) RegisterTab(p *rod.Page) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ExtraTabs = append(s.ExtraTabs, p)
	return len(s.ExtraTabs) // 1-based index; 0 means the primary page
}

// Tab returns the page for tab index idx: 0 is the primary page, 1..N are
// ExtraTabs in registration order. A closed extra tab's index stays
// reserved (so later indices don't shift) but no longer resolves.
func (s *Session) Tab(idx int) (*rod.Page, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx <= 0 {
		return s.Page, true
	}
	if idx-1 < len(s.ExtraTabs) && s.ExtraTabs[idx-1] != nil {
		return s.ExtraTabs[idx-1], true
	}
	return nil, false
}

// ActiveTab returns the tab index calls without an explicit "tab" argument
// target, as set by the last browser_switch_tab.
func (s *Session) ActiveTab() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeTab
}

// SetActiveTab makes idx the default target for subsequent tool calls.
func (s *Session) SetActiveTab(idx int) {
	s.mu.Lock()
	s.activeTab = idx
	s.mu.Unlock()
}

// CloseTab forgets the extra tab at idx (1-based; the primary page cannot
// be closed this way) and returns the page so the caller can close it.
// The active tab falls back to the primary page when it was the one closed.
func (s *Session) CloseTab(idx int) (*rod.Page, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx <= 0 || idx-1 >= len(s.ExtraTabs) || s.ExtraTabs[idx-1] == nil {
		return nil, false
	}
	page := s.ExtraTabs[idx-1]
	s.ExtraTabs[idx-1] = nil
	if s.activeTab == idx {
		s.activeTab = 0
	}
	return page, true
}

// LockForCall acquires the session's exclusive call lease, serializing tool
// calls on the same session so interleaving cannot corrupt page state while
// calls against different sessions run freely.
func (s *Session) LockForCall() {
	s.callLease.Lock()
}

// UnlockForCall releases the call lease acquired by LockForCall.
func (s *Session) UnlockForCall() {
	s.callLease.Unlock()
}

// Expired reports whether now is at or past ExpiresAt.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// maxLogBufferSize bounds the console, page-error and network log buffers
// so a long-lived session can't grow them without limit.
const maxLogBufferSize = 200

// ConsoleLogEntry is one console.* call observed on a session's page.
type ConsoleLogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Text      string    `json:"text"`
}

// NetworkLogEntry is one request observed while network logging is armed
// for a session via browser_start_network_log.
type NetworkLogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Method    string    `json:"method"`
	URL       string    `json:"url"`
}

func appendCapped[T any](buf []T, item T, max int) []T {
	buf = append(buf, item)
	if len(buf) > max {
		buf = buf[len(buf)-max:]
	}
	return buf
}

// AppendConsoleLog records one console entry, evicting the oldest once the
// buffer is full.
func (s *Session) AppendConsoleLog(e ConsoleLogEntry) {
	s.mu.Lock()
	s.consoleLogs = appendCapped(s.consoleLogs, e, maxLogBufferSize)
	s.mu.Unlock()
}

// ConsoleLogs returns a snapshot of the buffered console entries.
func (s *Session) ConsoleLogs() []ConsoleLogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ConsoleLogEntry, len(s.consoleLogs))
	copy(out, s.consoleLogs)
	return out
}

// AppendPageError records one uncaught page exception's message.
func (s *Session) AppendPageError(msg string) {
	s.mu.Lock()
	s.pageErrors = appendCapped(s.pageErrors, msg, maxLogBufferSize)
	s.mu.Unlock()
}

// PageErrors returns a snapshot of the buffered page errors.
func (s *Session) PageErrors() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.pageErrors))
	copy(out, s.pageErrors)
	return out
}

// SetNetworkLogging arms or disarms network request capture for this
// session; browser_start_network_log is the only caller.
func (s *Session) SetNetworkLogging(v bool) {
	s.mu.Lock()
	s.netLogging = v
	s.mu.Unlock()
}

// NetworkLogging reports whether network capture is currently armed.
func (s *Session) NetworkLogging() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.netLogging
}

// AppendNetworkLog records one request observed while logging is armed.
func (s *Session) AppendNetworkLog(e NetworkLogEntry) {
	s.mu.Lock()
	s.networkLog = appendCapped(s.networkLog, e, maxLogBufferSize)
	s.mu.Unlock()
}

// NetworkLog returns a snapshot of the buffered network requests.
func (s *Session) NetworkLog() []NetworkLogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]NetworkLogEntry, len(s.networkLog))
	copy(out, s.networkLog)
	return out
}
