package wizard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/FeFenix/Pointify/points"
)

type sentMsg struct {
	id   int
	text string
	rows [][]Button
}

// fakeMessenger records the wizard's outbound traffic and hands out
// sequential message ids.
type fakeMessenger struct {
	mu      sync.Mutex
	nextID  int
	sent    []sentMsg
	edits   []sentMsg
	deleted []int

	sendErr   error
	editErr   error
	deleteErr error
}

func (m *fakeMessenger) Send(_ context.Context, _ int64, text string, rows ...[]Button) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return 0, m.sendErr
	}
	m.nextID++
	m.sent = append(m.sent, sentMsg{id: m.nextID, text: text, rows: rows})
	return m.nextID, nil
}

func (m *fakeMessenger) Edit(_ context.Context, _ int64, messageID int, text string, rows ...[]Button) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.editErr != nil {
		return m.editErr
	}
	m.edits = append(m.edits, sentMsg{id: messageID, text: text, rows: rows})
	return nil
}

func (m *fakeMessenger) Delete(_ context.Context, _ int64, messageID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = append(m.deleted, messageID)
	return nil
}

func (m *fakeMessenger) lastText() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return ""
	}
	return m.sent[len(m.sent)-1].text
}

func (m *fakeMessenger) lastMenu() sentMsg {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.edits) > 0 {
		return m.edits[len(m.edits)-1]
	}
	if len(m.sent) > 0 {
		return m.sent[len(m.sent)-1]
	}
	return sentMsg{}
}

// flakyStore wraps the in-memory store with injectable failures and a
// switchable admin answer.
type flakyStore struct {
	*points.MemoryStore
	upsertErr   error
	subjectsErr error

	forceAdmin bool
	adminOK    bool
}

func (f *flakyStore) UpsertDelta(ctx context.Context, chatID, subjectID, delta int64, name string) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	return f.MemoryStore.UpsertDelta(ctx, chatID, subjectID, delta, name)
}

func (f *flakyStore) Subjects(ctx context.Context, chatID int64) ([]string, error) {
	if f.subjectsErr != nil {
		return nil, f.subjectsErr
	}
	return f.MemoryStore.Subjects(ctx, chatID)
}

func (f *flakyStore) IsAdmin(ctx context.Context, chatID, principalID int64) (bool, error) {
	if f.forceAdmin {
		return f.adminOK, nil
	}
	return f.MemoryStore.IsAdmin(ctx, chatID, principalID)
}

const (
	testChat  = int64(-100500)
	testAdmin = int64(777)
)

func newTestEngine(t *testing.T, cfg Config) (*Engine, *flakyStore, *fakeMessenger) {
	t.Helper()
	store := &flakyStore{MemoryStore: points.NewMemoryStore()}
	msgr := &fakeMessenger{}
	return New(store, store, msgr, cfg), store, msgr
}

func seedAdmin(t *testing.T, store *flakyStore) {
	t.Helper()
	if err := store.Grant(context.Background(), testChat, testAdmin); err != nil {
		t.Fatalf("grant: %v", err)
	}
}

func seedSubject(t *testing.T, store *flakyStore, subjectID int64, name string, score int64) {
	t.Helper()
	if err := store.MemoryStore.UpsertDelta(context.Background(), testChat, subjectID, score, name); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func mustTap(t *testing.T, e *Engine, tap Tap) {
	t.Helper()
	if err := e.HandleTap(context.Background(), testChat, testAdmin, tap); err != nil {
		t.Fatalf("tap %+v: %v", tap, err)
	}
}

func TestWizardCreditThenDebitFlow(t *testing.T) {
	ctx := context.Background()
	e, store, msgr := newTestEngine(t, Config{MaxAmount: 10})
	seedAdmin(t, store)
	seedSubject(t, store, 10, "Орися", 0)

	if err := e.Start(ctx, testChat, testAdmin, 1000); err != nil {
		t.Fatalf("start: %v", err)
	}
	if got := e.StateOf(testChat, testAdmin); got != StateChoosingAction {
		t.Fatalf("state after start = %s", got)
	}
	if msgr.lastText() != TextChooseAction {
		t.Fatalf("menu text = %q", msgr.lastText())
	}

	mustTap(t, e, Tap{Kind: TapAction, Action: ActionCredit})
	if got := e.StateOf(testChat, testAdmin); got != StateChoosingSubject {
		t.Fatalf("state after action = %s", got)
	}
	if menu := msgr.lastMenu(); menu.text != TextChooseSubject {
		t.Fatalf("subject menu text = %q", menu.text)
	}

	mustTap(t, e, Tap{Kind: TapSubject, Label: "Орися"})
	if got := e.StateOf(testChat, testAdmin); got != StateChoosingAmount {
		t.Fatalf("state after subject = %s", got)
	}

	mustTap(t, e, Tap{Kind: TapAmount, Amount: 5})
	if got := e.StateOf(testChat, testAdmin); got != StateChoosingAction {
		t.Fatalf("state after amount = %s", got)
	}
	if sess, ok := e.sessions.Get(testChat, testAdmin); ok {
		if id, label := sess.PendingSubject(); id != 0 || label != "" {
			t.Fatalf("pending subject (%d, %q) survived the loop back", id, label)
		}
	}
	if score, _ := store.Score(ctx, testChat, 10); score != 5 {
		t.Fatalf("score after credit = %d, want 5", score)
	}
	if !strings.Contains(msgr.lastText(), "+5") {
		t.Fatalf("confirmation %q lacks the applied delta", msgr.lastText())
	}

	// The session loops back, so a debit can follow immediately.
	mustTap(t, e, Tap{Kind: TapAction, Action: ActionDebit})
	mustTap(t, e, Tap{Kind: TapSubject, Label: "Орися"})
	mustTap(t, e, Tap{Kind: TapAmount, Amount: 2})

	if score, _ := store.Score(ctx, testChat, 10); score != 3 {
		t.Fatalf("score after debit = %d, want 3", score)
	}
}

func TestWizardStartRejectsNonAdmin(t *testing.T) {
	e, _, msgr := newTestEngine(t, Config{})

	if err := e.Start(context.Background(), testChat, testAdmin, 1000); err != nil {
		t.Fatalf("start: %v", err)
	}
	if got := e.StateOf(testChat, testAdmin); got != StateIdle {
		t.Fatalf("state = %s, want idle", got)
	}
	if msgr.lastText() != TextNotAdmin {
		t.Fatalf("reply = %q, want the not-admin text", msgr.lastText())
	}
}

func TestWizardOverrideAdminBypassesRoster(t *testing.T) {
	e, _, _ := newTestEngine(t, Config{OverrideAdminID: testAdmin})

	if err := e.Start(context.Background(), testChat, testAdmin, 1000); err != nil {
		t.Fatalf("start: %v", err)
	}
	if got := e.StateOf(testChat, testAdmin); got != StateChoosingAction {
		t.Fatalf("state = %s, want choosing_action", got)
	}
}

func TestWizardNoSubjectsDropsSession(t *testing.T) {
	ctx := context.Background()
	e, store, msgr := newTestEngine(t, Config{})
	seedAdmin(t, store)

	if err := e.Start(ctx, testChat, testAdmin, 1000); err != nil {
		t.Fatalf("start: %v", err)
	}
	mustTap(t, e, Tap{Kind: TapAction, Action: ActionCredit})

	if got := e.StateOf(testChat, testAdmin); got != StateIdle {
		t.Fatalf("state = %s, want idle", got)
	}
	if msgr.lastText() != TextNoSubjects {
		t.Fatalf("reply = %q, want the empty-list text", msgr.lastText())
	}
}

func TestWizardUnknownLabelGetsPlaceholderRow(t *testing.T) {
	ctx := context.Background()
	e, store, _ := newTestEngine(t, Config{})
	seedAdmin(t, store)
	seedSubject(t, store, 10, "Орися", 1)

	if err := e.Start(ctx, testChat, testAdmin, 1000); err != nil {
		t.Fatalf("start: %v", err)
	}
	mustTap(t, e, Tap{Kind: TapAction, Action: ActionCredit})
	mustTap(t, e, Tap{Kind: TapSubject, Label: "Новачок"})
	mustTap(t, e, Tap{Kind: TapAmount, Amount: 3})

	id := points.PlaceholderID("Новачок")
	score, err := store.Score(ctx, testChat, id)
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if score != 3 {
		t.Fatalf("placeholder score = %d, want 3", score)
	}

	// A second run over the same label lands on the same row.
	mustTap(t, e, Tap{Kind: TapAction, Action: ActionCredit})
	mustTap(t, e, Tap{Kind: TapSubject, Label: "Новачок"})
	mustTap(t, e, Tap{Kind: TapAmount, Amount: 2})
	if score, _ := store.Score(ctx, testChat, id); score != 5 {
		t.Fatalf("placeholder score after rerun = %d, want 5", score)
	}
}

func TestWizardFinishDeletesScratch(t *testing.T) {
	ctx := context.Background()
	e, store, msgr := newTestEngine(t, Config{})
	seedAdmin(t, store)
	seedSubject(t, store, 10, "Орися", 0)

	if err := e.Start(ctx, testChat, testAdmin, 1000); err != nil {
		t.Fatalf("start: %v", err)
	}
	mustTap(t, e, Tap{Kind: TapAction, Action: ActionCredit})
	mustTap(t, e, Tap{Kind: TapSubject, Label: "Орися"})
	mustTap(t, e, Tap{Kind: TapAmount, Amount: 1})
	mustTap(t, e, Tap{Kind: TapFinish})

	if got := e.StateOf(testChat, testAdmin); got != StateIdle {
		t.Fatalf("state after finish = %s", got)
	}
	if e.OpenSessions() != 0 {
		t.Fatalf("open sessions = %d, want 0", e.OpenSessions())
	}

	// Trigger message, menu and confirmation all go.
	want := map[int]bool{1000: true}
	msgr.mu.Lock()
	for _, s := range msgr.sent {
		want[s.id] = true
	}
	for _, id := range msgr.deleted {
		delete(want, id)
	}
	msgr.mu.Unlock()
	if len(want) != 0 {
		t.Fatalf("messages not cleaned up: %v", want)
	}
}

func TestWizardWipeKeepsCurrentMenu(t *testing.T) {
	ctx := context.Background()
	e, store, msgr := newTestEngine(t, Config{})
	seedAdmin(t, store)
	seedSubject(t, store, 10, "Орися", 0)

	if err := e.Start(ctx, testChat, testAdmin, 1000); err != nil {
		t.Fatalf("start: %v", err)
	}
	mustTap(t, e, Tap{Kind: TapAction, Action: ActionCredit})
	mustTap(t, e, Tap{Kind: TapSubject, Label: "Орися"})
	mustTap(t, e, Tap{Kind: TapAmount, Amount: 1})

	// id 1 is the action menu (edited in place), id 2 the confirmation.
	mustTap(t, e, Tap{Kind: TapWipe})

	if got := e.StateOf(testChat, testAdmin); got != StateChoosingAction {
		t.Fatalf("state after wipe = %s, session must survive", got)
	}
	msgr.mu.Lock()
	deleted := append([]int(nil), msgr.deleted...)
	msgr.mu.Unlock()
	for _, id := range deleted {
		if id == 1 {
			t.Fatal("wipe deleted the live menu")
		}
	}
	if len(deleted) != 2 {
		t.Fatalf("deleted = %v, want trigger and confirmation", deleted)
	}
}

func TestWizardStoreUnavailablePreservesSession(t *testing.T) {
	ctx := context.Background()
	e, store, msgr := newTestEngine(t, Config{})
	seedAdmin(t, store)
	seedSubject(t, store, 10, "Орися", 0)

	if err := e.Start(ctx, testChat, testAdmin, 1000); err != nil {
		t.Fatalf("start: %v", err)
	}
	mustTap(t, e, Tap{Kind: TapAction, Action: ActionCredit})
	mustTap(t, e, Tap{Kind: TapSubject, Label: "Орися"})

	store.upsertErr = fmt.Errorf("write: %w: connection refused", points.ErrUnavailable)
	err := e.HandleTap(ctx, testChat, testAdmin, Tap{Kind: TapAmount, Amount: 4})
	if !errors.Is(err, points.ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
	if got := e.StateOf(testChat, testAdmin); got != StateChoosingAmount {
		t.Fatalf("state = %s, session must be preserved", got)
	}
	if msgr.lastText() != TextTryAgain {
		t.Fatalf("reply = %q, want the retry text", msgr.lastText())
	}
	if score, _ := store.MemoryStore.Score(ctx, testChat, 10); score != 0 {
		t.Fatalf("score = %d, failed write must not apply", score)
	}

	// Same tap succeeds once the store recovers.
	store.upsertErr = nil
	mustTap(t, e, Tap{Kind: TapAmount, Amount: 4})
	if score, _ := store.MemoryStore.Score(ctx, testChat, 10); score != 4 {
		t.Fatalf("score after retry = %d, want 4", score)
	}
}

func TestWizardUnexpectedErrorResetsSession(t *testing.T) {
	ctx := context.Background()
	e, store, msgr := newTestEngine(t, Config{})
	seedAdmin(t, store)
	seedSubject(t, store, 10, "Орися", 0)

	if err := e.Start(ctx, testChat, testAdmin, 1000); err != nil {
		t.Fatalf("start: %v", err)
	}
	store.subjectsErr = errors.New("boom")
	if err := e.HandleTap(ctx, testChat, testAdmin, Tap{Kind: TapAction, Action: ActionCredit}); err == nil {
		t.Fatal("expected the unexpected error to surface")
	}
	if got := e.StateOf(testChat, testAdmin); got != StateIdle {
		t.Fatalf("state = %s, want idle after reset", got)
	}
	if msgr.lastText() != TextFailure {
		t.Fatalf("reply = %q, want the failure text", msgr.lastText())
	}
}

func TestWizardAdminRevokedMidSession(t *testing.T) {
	ctx := context.Background()
	e, store, msgr := newTestEngine(t, Config{})
	seedAdmin(t, store)
	seedSubject(t, store, 10, "Орися", 0)

	if err := e.Start(ctx, testChat, testAdmin, 1000); err != nil {
		t.Fatalf("start: %v", err)
	}
	store.forceAdmin = true
	store.adminOK = false

	mustTap(t, e, Tap{Kind: TapAction, Action: ActionCredit})
	if got := e.StateOf(testChat, testAdmin); got != StateIdle {
		t.Fatalf("state = %s, want idle after revocation", got)
	}
	if msgr.lastText() != TextNotAdmin {
		t.Fatalf("reply = %q, want the not-admin text", msgr.lastText())
	}
}

func TestWizardStaleAndInvalidTaps(t *testing.T) {
	ctx := context.Background()
	e, store, msgr := newTestEngine(t, Config{MaxAmount: 10})
	seedAdmin(t, store)
	seedSubject(t, store, 10, "Орися", 0)

	if err := e.Start(ctx, testChat, testAdmin, 1000); err != nil {
		t.Fatalf("start: %v", err)
	}

	// An amount tap in the action step comes from an outdated menu and is
	// silently ignored.
	mustTap(t, e, Tap{Kind: TapAmount, Amount: 3})
	if got := e.StateOf(testChat, testAdmin); got != StateChoosingAction {
		t.Fatalf("state = %s after stale tap", got)
	}
	if score, _ := store.Score(ctx, testChat, 10); score != 0 {
		t.Fatalf("stale tap mutated the ledger: %d", score)
	}

	mustTap(t, e, Tap{Kind: TapAction, Action: ActionCredit})
	mustTap(t, e, Tap{Kind: TapSubject, Label: "Орися"})

	// Out-of-range amounts keep the step retryable.
	mustTap(t, e, Tap{Kind: TapAmount, Amount: 11})
	if got := e.StateOf(testChat, testAdmin); got != StateChoosingAmount {
		t.Fatalf("state = %s after invalid amount", got)
	}
	if msgr.lastText() != TextInvalidInput {
		t.Fatalf("reply = %q, want the invalid-input text", msgr.lastText())
	}
}

func TestWizardOrphanTapIgnored(t *testing.T) {
	e, _, msgr := newTestEngine(t, Config{})
	mustTap(t, e, Tap{Kind: TapAmount, Amount: 3})
	if len(msgr.sent) != 0 {
		t.Fatalf("orphan tap produced output: %+v", msgr.sent)
	}
}

func TestWizardCancelKeepsScratch(t *testing.T) {
	ctx := context.Background()
	e, store, msgr := newTestEngine(t, Config{})
	seedAdmin(t, store)

	if err := e.Start(ctx, testChat, testAdmin, 1000); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := e.Cancel(ctx, testChat, testAdmin); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got := e.StateOf(testChat, testAdmin); got != StateIdle {
		t.Fatalf("state = %s, want idle", got)
	}
	if len(msgr.deleted) != 0 {
		t.Fatalf("cancel deleted messages: %v", msgr.deleted)
	}
	if msgr.lastText() != TextCancelled {
		t.Fatalf("reply = %q", msgr.lastText())
	}

	// Cancelling again is a no-op with no extra reply.
	before := len(msgr.sent)
	if err := e.Cancel(ctx, testChat, testAdmin); err != nil {
		t.Fatalf("second cancel: %v", err)
	}
	if len(msgr.sent) != before {
		t.Fatal("idle cancel produced a reply")
	}
}

func TestWizardSessionsIndependent(t *testing.T) {
	ctx := context.Background()
	e, store, _ := newTestEngine(t, Config{})
	seedAdmin(t, store)
	otherAdmin := int64(888)
	if err := store.Grant(ctx, testChat, otherAdmin); err != nil {
		t.Fatalf("grant: %v", err)
	}
	seedSubject(t, store, 10, "Орися", 0)

	if err := e.Start(ctx, testChat, testAdmin, 1000); err != nil {
		t.Fatalf("start a: %v", err)
	}
	if err := e.Start(ctx, testChat, otherAdmin, 2000); err != nil {
		t.Fatalf("start b: %v", err)
	}

	mustTap(t, e, Tap{Kind: TapAction, Action: ActionCredit})
	if got := e.StateOf(testChat, otherAdmin); got != StateChoosingAction {
		t.Fatalf("other admin's state moved: %s", got)
	}
	if e.OpenSessions() != 2 {
		t.Fatalf("open sessions = %d, want 2", e.OpenSessions())
	}
}

func TestWizardResetAllRequiresAdmin(t *testing.T) {
	ctx := context.Background()
	e, store, _ := newTestEngine(t, Config{})
	seedSubject(t, store, 10, "Орися", 7)

	if err := e.ResetAll(ctx, testChat, testAdmin); !errors.Is(err, ErrNotAdmin) {
		t.Fatalf("err = %v, want ErrNotAdmin", err)
	}
	if score, _ := store.Score(ctx, testChat, 10); score != 7 {
		t.Fatalf("score = %d, reset must not run for non-admins", score)
	}

	seedAdmin(t, store)
	if err := e.ResetAll(ctx, testChat, testAdmin); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if score, _ := store.Score(ctx, testChat, 10); score != 0 {
		t.Fatalf("score after reset = %d, want 0", score)
	}

	top, err := e.Top(ctx, testChat, 10)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(top) != 1 || top[0].Name() != "Орися" {
		t.Fatalf("top after reset = %+v, names must survive", top)
	}
}

func TestWizardSightingCreditsConfiguredAmount(t *testing.T) {
	ctx := context.Background()
	e, store, _ := newTestEngine(t, Config{SightingCredit: 1})

	if err := e.Sighting(ctx, testChat, 10, "Орися"); err != nil {
		t.Fatalf("sighting: %v", err)
	}
	if err := e.Sighting(ctx, testChat, 10, "Орися"); err != nil {
		t.Fatalf("sighting: %v", err)
	}
	if score, _ := store.Score(ctx, testChat, 10); score != 2 {
		t.Fatalf("score = %d, want 2", score)
	}
	names, _ := store.Subjects(ctx, testChat)
	if len(names) != 1 || names[0] != "Орися" {
		t.Fatalf("subjects = %v", names)
	}
}
