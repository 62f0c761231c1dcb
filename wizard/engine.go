package wizard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/FeFenix/Pointify/core/logger"
	"github.com/FeFenix/Pointify/points"
)

const component = "service.wizard"

// Config tunes the engine. Zero values fall back to sane defaults in New.
type Config struct {
	// MaxAmount caps the amount buttons offered per step.
	MaxAmount int
	// SightingCredit is added to a subject's score on every passive
	// sighting. Usually 0, which still materialises the ledger row.
	SightingCredit int64
	// OverrideAdminID, when non-zero, is treated as an admin in every chat.
	OverrideAdminID int64
}

// Engine drives the multi-step points wizard. All session transitions run
// under the session's own lock, so taps for one (chat, admin) scope are
// applied strictly in order while independent sessions proceed in parallel.
type Engine struct {
	ledger   points.Ledger
	roster   points.Roster
	msgr     Messenger
	cfg      Config
	sessions *Sessions
}

// New builds an engine over the given stores and transport.
func New(ledger points.Ledger, roster points.Roster, msgr Messenger, cfg Config) *Engine {
	if cfg.MaxAmount <= 0 {
		cfg.MaxAmount = 10
	}
	return &Engine{
		ledger:   ledger,
		roster:   roster,
		msgr:     msgr,
		cfg:      cfg,
		sessions: NewSessions(),
	}
}

// StateOf reports the session step for a scope, StateIdle when none exists.
func (e *Engine) StateOf(chatID, adminID int64) State {
	s, ok := e.sessions.Get(chatID, adminID)
	if !ok {
		return StateIdle
	}
	return s.State()
}

// OpenSessions reports the number of live sessions.
func (e *Engine) OpenSessions() int {
	return e.sessions.Len()
}

func (e *Engine) isAdmin(ctx context.Context, chatID, userID int64) (bool, error) {
	if e.cfg.OverrideAdminID != 0 && userID == e.cfg.OverrideAdminID {
		return true, nil
	}
	return e.roster.IsAdmin(ctx, chatID, userID)
}

// Start opens a session for (chatID, adminID) and shows the action menu.
// A prior session for the same scope is replaced; its transient state is
// abandoned. triggerMsgID is the admin's command message, tracked so the
// final cleanup removes it with the rest of the scratch UI.
func (e *Engine) Start(ctx context.Context, chatID, adminID int64, triggerMsgID int) error {
	ok, err := e.isAdmin(ctx, chatID, adminID)
	if err != nil {
		_, _ = e.msgr.Send(ctx, chatID, TextTryAgain)
		return fmt.Errorf("admin check: %w", err)
	}
	if !ok {
		_, sendErr := e.msgr.Send(ctx, chatID, TextNotAdmin)
		if sendErr != nil {
			logger.Warn(ctx, component, "reply.failed", slog.String("err", sendErr.Error()))
		}
		return nil
	}

	sess := e.sessions.Start(chatID, adminID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.scratch.Record(triggerMsgID)
	menuID, err := e.msgr.Send(ctx, chatID, TextChooseAction, e.actionMenu()...)
	if err != nil {
		e.sessions.Drop(chatID, adminID)
		return fmt.Errorf("send action menu: %w", err)
	}
	sess.menuID = menuID
	sess.scratch.Record(menuID)

	logger.Info(ctx, component, "session.start",
		slog.Int64("chat_id", chatID),
		slog.String("state", sess.state.String()),
	)
	return nil
}

// HandleTap applies one decoded button press to the scope's session. Taps
// without a live session are ignored: they come from menus that outlived
// their session, for example after a restart.
func (e *Engine) HandleTap(ctx context.Context, chatID, adminID int64, tap Tap) error {
	sess, ok := e.sessions.Get(chatID, adminID)
	if !ok {
		logger.Debug(ctx, component, "tap.orphan", slog.Int64("chat_id", chatID))
		return nil
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	err := e.dispatch(ctx, sess, tap)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotAdmin):
		// Rights were revoked mid-session. Tear it down without cleanup so
		// nothing else mutates on this admin's behalf.
		e.sessions.Drop(chatID, adminID)
		sess.state = StateIdle
		_, _ = e.msgr.Send(ctx, chatID, TextNotAdmin)
		logger.Warn(ctx, component, "session.revoked", slog.Int64("chat_id", chatID))
		return nil
	case errors.Is(err, ErrValidation):
		// Bad input leaves the session where it is so the step can be
		// retried from the same menu.
		_, _ = e.msgr.Send(ctx, chatID, TextInvalidInput)
		logger.Warn(ctx, component, "tap.invalid",
			slog.Int64("chat_id", chatID),
			slog.String("err", err.Error()),
		)
		return nil
	case errors.Is(err, points.ErrUnavailable):
		// Recoverable store failure: the session survives, the admin can
		// tap the same button again.
		_, _ = e.msgr.Send(ctx, chatID, TextTryAgain)
		return err
	default:
		e.sessions.Drop(chatID, adminID)
		sess.state = StateIdle
		_, _ = e.msgr.Send(ctx, chatID, TextFailure)
		return err
	}
}

func (e *Engine) dispatch(ctx context.Context, sess *Session, tap Tap) error {
	switch tap.Kind {
	case TapFinish:
		return e.finish(ctx, sess)
	case TapWipe:
		sess.scratch.Flush(ctx, e.msgr, sess.chatID, sess.menuID)
		return nil
	case TapAction:
		return e.chooseAction(ctx, sess, tap.Action)
	case TapSubject:
		return e.chooseSubject(ctx, sess, tap.Label)
	case TapAmount:
		return e.chooseAmount(ctx, sess, tap.Amount)
	}
	return fmt.Errorf("%w: tap kind %d", ErrValidation, tap.Kind)
}

func (e *Engine) chooseAction(ctx context.Context, sess *Session, act Action) error {
	if sess.state != StateChoosingAction {
		e.ignoreTap(ctx, sess, "action")
		return nil
	}
	// Rights are re-checked on entry into the mutating branch, not only at
	// /a time, so a demoted admin cannot ride an old session.
	ok, err := e.isAdmin(ctx, sess.chatID, sess.adminID)
	if err != nil {
		return fmt.Errorf("admin check: %w", err)
	}
	if !ok {
		return ErrNotAdmin
	}

	names, err := e.ledger.Subjects(ctx, sess.chatID)
	if err != nil {
		return fmt.Errorf("list subjects: %w", err)
	}
	if len(names) == 0 {
		e.sessions.Drop(sess.chatID, sess.adminID)
		sess.state = StateIdle
		if _, err := e.msgr.Send(ctx, sess.chatID, TextNoSubjects); err != nil {
			logger.Warn(ctx, component, "reply.failed", slog.String("err", err.Error()))
		}
		return nil
	}

	if err := e.showMenu(ctx, sess, TextChooseSubject, e.subjectMenu(names)); err != nil {
		return err
	}
	sess.pendingAction = act
	sess.state = StateChoosingSubject
	logger.Info(ctx, component, "session.action",
		slog.Int64("chat_id", sess.chatID),
		slog.String("action", act.String()),
		slog.String("state", sess.state.String()),
	)
	return nil
}

func (e *Engine) chooseSubject(ctx context.Context, sess *Session, label string) error {
	if sess.state != StateChoosingSubject {
		e.ignoreTap(ctx, sess, "subject")
		return nil
	}

	subjectID, found, err := e.ledger.SubjectIDByName(ctx, sess.chatID, label)
	if err != nil {
		return fmt.Errorf("resolve subject: %w", err)
	}
	if !found {
		// Labels without a ledger row get a deterministic synthetic id, so
		// repeated picks of the same label hit the same row.
		subjectID = points.PlaceholderID(label)
	}
	score, err := e.ledger.Score(ctx, sess.chatID, subjectID)
	if err != nil {
		return fmt.Errorf("read score: %w", err)
	}
	rank, ranked, err := e.ledger.RankOf(ctx, sess.chatID, subjectID)
	if err != nil {
		return fmt.Errorf("read rank: %w", err)
	}

	text := subjectStatus(label, score, rank, ranked)
	if err := e.showMenu(ctx, sess, text, e.amountMenu()); err != nil {
		return err
	}
	sess.pendingSubject = subjectID
	sess.pendingLabel = label
	sess.state = StateChoosingAmount
	logger.Info(ctx, component, "session.subject",
		slog.Int64("chat_id", sess.chatID),
		slog.Int64("subject_id", subjectID),
		slog.String("state", sess.state.String()),
	)
	return nil
}

func (e *Engine) chooseAmount(ctx context.Context, sess *Session, amount int64) error {
	if sess.state != StateChoosingAmount {
		e.ignoreTap(ctx, sess, "amount")
		return nil
	}
	if amount < 1 || amount > int64(e.cfg.MaxAmount) {
		return fmt.Errorf("%w: amount %d out of range", ErrValidation, amount)
	}

	delta := amount
	if sess.pendingAction == ActionDebit {
		delta = -amount
	}
	subjectID, label := sess.pendingSubject, sess.pendingLabel

	// The ledger write happens before any state change: the step either
	// does nothing or fully applies its single delta.
	if err := e.ledger.UpsertDelta(ctx, sess.chatID, subjectID, delta, label); err != nil {
		return fmt.Errorf("apply delta: %w", err)
	}

	if id, err := e.msgr.Send(ctx, sess.chatID, appliedText(label, delta)); err != nil {
		// The delta is committed; a lost confirmation must not reset the
		// session.
		logger.Warn(ctx, component, "reply.failed", slog.String("err", err.Error()))
	} else {
		sess.scratch.Record(id)
	}

	if err := e.showMenu(ctx, sess, TextChooseAction, e.actionMenu()); err != nil {
		return err
	}
	sess.clearPending()
	sess.state = StateChoosingAction
	logger.Info(ctx, component, "session.applied",
		slog.Int64("chat_id", sess.chatID),
		slog.Int64("subject_id", subjectID),
		slog.Int64("delta", delta),
		slog.String("state", sess.state.String()),
	)
	return nil
}

func (e *Engine) finish(ctx context.Context, sess *Session) error {
	sess.scratch.Flush(ctx, e.msgr, sess.chatID)
	e.sessions.Drop(sess.chatID, sess.adminID)
	sess.state = StateIdle
	logger.Info(ctx, component, "session.finish", slog.Int64("chat_id", sess.chatID))
	return nil
}

// Cancel drops the scope's session without deleting scratch messages.
// A no-op when no session is open.
func (e *Engine) Cancel(ctx context.Context, chatID, adminID int64) error {
	if _, ok := e.sessions.Get(chatID, adminID); !ok {
		return nil
	}
	e.sessions.Drop(chatID, adminID)
	if _, err := e.msgr.Send(ctx, chatID, TextCancelled); err != nil {
		logger.Warn(ctx, component, "reply.failed", slog.String("err", err.Error()))
	}
	logger.Info(ctx, component, "session.cancel", slog.Int64("chat_id", chatID))
	return nil
}

// Sighting records that a subject was seen in a chat, creating its ledger
// row when missing and crediting the configured sighting amount.
func (e *Engine) Sighting(ctx context.Context, chatID, subjectID int64, displayName string) error {
	return e.ledger.UpsertDelta(ctx, chatID, subjectID, e.cfg.SightingCredit, displayName)
}

// Top returns up to n leaderboard entries for the chat.
func (e *Engine) Top(ctx context.Context, chatID int64, n int) ([]points.Entry, error) {
	return e.ledger.TopN(ctx, chatID, n)
}

// ResetAll zeroes every score in the chat. Rights are checked here because
// the command is reachable through textual aliases that bypass the gated
// command route.
func (e *Engine) ResetAll(ctx context.Context, chatID, adminID int64) error {
	ok, err := e.isAdmin(ctx, chatID, adminID)
	if err != nil {
		return fmt.Errorf("admin check: %w", err)
	}
	if !ok {
		return ErrNotAdmin
	}
	return e.ledger.ResetChat(ctx, chatID)
}

func (e *Engine) ignoreTap(ctx context.Context, sess *Session, kind string) {
	logger.Debug(ctx, component, "tap.stale",
		slog.Int64("chat_id", sess.chatID),
		slog.String("tap", kind),
		slog.String("state", sess.state.String()),
	)
}

// showMenu edits the current menu message in place. When the edit fails,
// for example because the message was deleted out from under the bot, a
// fresh menu message is sent and tracked instead.
func (e *Engine) showMenu(ctx context.Context, sess *Session, text string, rows [][]Button) error {
	if sess.menuID != 0 {
		err := e.msgr.Edit(ctx, sess.chatID, sess.menuID, text, rows...)
		if err == nil {
			return nil
		}
		logger.Debug(ctx, component, "menu.edit_failed",
			slog.Int64("chat_id", sess.chatID),
			slog.String("err", err.Error()),
		)
		sess.scratch.Drop(sess.menuID)
	}
	id, err := e.msgr.Send(ctx, sess.chatID, text, rows...)
	if err != nil {
		return fmt.Errorf("send menu: %w", err)
	}
	sess.menuID = id
	sess.scratch.Record(id)
	return nil
}

func (e *Engine) actionMenu() [][]Button {
	return [][]Button{
		{
			{Text: btnCredit, Key: KeyAction, Payload: "credit"},
			{Text: btnDebit, Key: KeyAction, Payload: "debit"},
		},
		{
			{Text: btnWipe, Key: KeyWipe},
			{Text: btnFinish, Key: KeyFinish},
		},
	}
}

func (e *Engine) subjectMenu(names []string) [][]Button {
	rows := make([][]Button, 0, len(names)/2+2)
	row := make([]Button, 0, 2)
	for _, name := range names {
		row = append(row, Button{Text: name, Key: KeySubject, Payload: name})
		if len(row) == 2 {
			rows = append(rows, row)
			row = make([]Button, 0, 2)
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, []Button{{Text: btnFinish, Key: KeyFinish}})
	return rows
}

func (e *Engine) amountMenu() [][]Button {
	rows := make([][]Button, 0, e.cfg.MaxAmount/5+2)
	row := make([]Button, 0, 5)
	for n := 1; n <= e.cfg.MaxAmount; n++ {
		v := strconv.Itoa(n)
		row = append(row, Button{Text: v, Key: KeyAmount, Payload: v})
		if len(row) == 5 {
			rows = append(rows, row)
			row = make([]Button, 0, 5)
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, []Button{{Text: btnFinish, Key: KeyFinish}})
	return rows
}

func subjectStatus(label string, score int64, rank int, ranked bool) string {
	if !ranked {
		return fmt.Sprintf("%s: %d балів. Оберіть кількість балів:", label, score)
	}
	return fmt.Sprintf("%s: %d балів, місце %d. Оберіть кількість балів:", label, score, rank)
}

func appliedText(label string, delta int64) string {
	return fmt.Sprintf("%s: %+d балів.", label, delta)
}
