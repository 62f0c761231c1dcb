package wizard

import "sync"

// State identifies the wizard step a session is in.
type State int

const (
	// StateIdle means no active session exists for the scope.
	StateIdle State = iota
	// StateChoosingAction shows the credit/debit menu.
	StateChoosingAction
	// StateChoosingSubject shows the subject picker.
	StateChoosingSubject
	// StateChoosingAmount shows the amount picker.
	StateChoosingAmount
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateChoosingAction:
		return "choosing_action"
	case StateChoosingSubject:
		return "choosing_subject"
	case StateChoosingAmount:
		return "choosing_amount"
	}
	return "unknown"
}

// Session is the live state of one admin's wizard in one chat.
//
// Invariants: pendingAction is set only in ChoosingSubject and
// ChoosingAmount; pendingSubject/pendingLabel only in ChoosingAmount.
// Transitions hold mu for their full duration, so events for one session
// are processed strictly one after another while distinct sessions run
// concurrently.
type Session struct {
	mu sync.Mutex

	chatID  int64
	adminID int64

	state          State
	pendingAction  Action
	pendingSubject int64
	pendingLabel   string

	// menuID is the bot message currently showing the wizard menu; it is
	// edited in place between steps.
	menuID  int
	scratch tracker
}

// State returns the current step. Exposed for tests and logging.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// PendingSubject returns the resolved subject id and label, if any.
func (s *Session) PendingSubject() (int64, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingSubject, s.pendingLabel
}

func (s *Session) clearPending() {
	s.pendingAction = 0
	s.pendingSubject = 0
	s.pendingLabel = ""
}

type scope struct {
	chat  int64
	admin int64
}

// Sessions holds active sessions keyed by (chat, admin) so two admins in
// one chat, or one admin across chats, never interfere.
type Sessions struct {
	mu   sync.Mutex
	open map[scope]*Session
}

// NewSessions returns an empty session table.
func NewSessions() *Sessions {
	return &Sessions{open: make(map[scope]*Session)}
}

// Get returns the active session for the scope, if any.
func (t *Sessions) Get(chatID, adminID int64) (*Session, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.open[scope{chatID, adminID}]
	return s, ok
}

// Start creates a fresh session for the scope. An existing session is
// replaced outright: its transient state is abandoned, not merged.
func (t *Sessions) Start(chatID, adminID int64) *Session {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := &Session{chatID: chatID, adminID: adminID, state: StateChoosingAction}
	t.open[scope{chatID, adminID}] = s
	return s
}

// Drop removes the session for the scope, returning it to idle.
func (t *Sessions) Drop(chatID, adminID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.open, scope{chatID, adminID})
}

// Len reports the number of open sessions.
func (t *Sessions) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.open)
}
