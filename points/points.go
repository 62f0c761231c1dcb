// Package points holds the per-chat points ledger and the admin roster.
// Both are defined as interfaces so the wizard can be tested against fakes;
// the production implementation lives in postgres.go.
package points

import (
	"context"
	"errors"
)

// ErrUnavailable marks storage failures that are recoverable per request:
// the caller should reply with a generic error and retry the same step
// later instead of tearing anything down.
var ErrUnavailable = errors.New("points: storage unavailable")

// Entry is one ledger row: the score of a subject within a chat.
// DisplayName is the last label seen for the subject and may be absent for
// rows created from raw ids only.
type Entry struct {
	ChatID      int64   `db:"chat_id"`
	SubjectID   int64   `db:"subject_id"`
	DisplayName *string `db:"display_name"`
	Score       int64   `db:"score"`
}

// Name returns the display name or an empty string.
func (e Entry) Name() string {
	if e.DisplayName != nil {
		return *e.DisplayName
	}
	return ""
}

// Ledger is the chat-scoped score store. Rows are created lazily on the
// first mutation or sighting of a subject and survive until the owning
// chat is torn down.
type Ledger interface {
	// UpsertDelta adds delta to the subject's score, creating the row when
	// absent. A non-empty displayName overwrites the stored label. The
	// operation is atomic per row: concurrent deltas never lose updates.
	UpsertDelta(ctx context.Context, chatID, subjectID, delta int64, displayName string) error
	// Score returns the subject's score, 0 for absent rows.
	Score(ctx context.Context, chatID, subjectID int64) (int64, error)
	// Subjects lists display names known in the chat, name order.
	// Rows without a display name are excluded.
	Subjects(ctx context.Context, chatID int64) ([]string, error)
	// SubjectIDByName resolves a display name to a subject id.
	SubjectIDByName(ctx context.Context, chatID int64, name string) (int64, bool, error)
	// TopN returns up to n entries ordered by score descending,
	// subject id ascending on ties.
	TopN(ctx context.Context, chatID int64, n int) ([]Entry, error)
	// RankOf returns the subject's 1-based position in the TopN ordering
	// over the whole chat; false when the subject has no row.
	RankOf(ctx context.Context, chatID, subjectID int64) (int, bool, error)
	// ResetChat zeroes every score in the chat, keeping display names.
	ResetChat(ctx context.Context, chatID int64) error
	// DeleteChat removes all ledger rows and admin grants for the chat.
	DeleteChat(ctx context.Context, chatID int64) error
}

// Roster is the per-chat set of principals granted admin rights. Grants
// are recorded when admin status is observed and are never revoked
// automatically; stale grants are a known gap.
type Roster interface {
	// Grant records admin rights, idempotently.
	Grant(ctx context.Context, chatID, principalID int64) error
	// IsAdmin reports whether the principal holds a grant for the chat.
	IsAdmin(ctx context.Context, chatID, principalID int64) (bool, error)
}
