package points

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/FeFenix/Pointify/core/logger"
)

// PostgresStore implements Ledger and Roster on top of sqlx/Postgres.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore wraps the given connection pool.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

var (
	_ Ledger = (*PostgresStore)(nil)
	_ Roster = (*PostgresStore)(nil)
)

// unavailable wraps a driver error into the recoverable ErrUnavailable
// condition while keeping the original message for logs.
func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %s", op, ErrUnavailable, err)
}

// UpsertDelta applies the delta in a single statement so concurrent calls
// for the same (chat, subject) serialize at the row level.
func (s *PostgresStore) UpsertDelta(ctx context.Context, chatID, subjectID, delta int64, displayName string) error {
	const q = `
		INSERT INTO ledger_entries (chat_id, subject_id, display_name, score)
		VALUES ($1, $2, NULLIF($3, ''), $4)
		ON CONFLICT (chat_id, subject_id) DO UPDATE
		SET score        = ledger_entries.score + EXCLUDED.score,
		    display_name = COALESCE(NULLIF($3, ''), ledger_entries.display_name)`
	if _, err := s.db.ExecContext(ctx, q, chatID, subjectID, displayName, delta); err != nil {
		return unavailable("ledger upsert", err)
	}
	logger.Debug(ctx, "service.ledger", "ledger.upsert",
		slog.Int64("chat_id", chatID),
		slog.Int64("subject_id", subjectID),
		slog.Int64("delta", delta),
	)
	return nil
}

// Score returns 0 for absent rows, never an error for them.
func (s *PostgresStore) Score(ctx context.Context, chatID, subjectID int64) (int64, error) {
	const q = `SELECT score FROM ledger_entries WHERE chat_id = $1 AND subject_id = $2`
	var score int64
	err := s.db.GetContext(ctx, &score, q, chatID, subjectID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, unavailable("ledger score", err)
	}
	return score, nil
}

// Subjects lists known display names in name order.
func (s *PostgresStore) Subjects(ctx context.Context, chatID int64) ([]string, error) {
	const q = `
		SELECT display_name FROM ledger_entries
		WHERE chat_id = $1 AND display_name IS NOT NULL
		ORDER BY display_name`
	var names []string
	if err := s.db.SelectContext(ctx, &names, q, chatID); err != nil {
		return nil, unavailable("ledger subjects", err)
	}
	return names, nil
}

// SubjectIDByName resolves a display name; the lowest id wins when several
// rows carry the same label.
func (s *PostgresStore) SubjectIDByName(ctx context.Context, chatID int64, name string) (int64, bool, error) {
	const q = `
		SELECT subject_id FROM ledger_entries
		WHERE chat_id = $1 AND display_name = $2
		ORDER BY subject_id LIMIT 1`
	var id int64
	err := s.db.GetContext(ctx, &id, q, chatID, name)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, unavailable("ledger resolve", err)
	}
	return id, true, nil
}

// TopN orders by score descending with subject id as the deterministic
// tie-break.
func (s *PostgresStore) TopN(ctx context.Context, chatID int64, n int) ([]Entry, error) {
	const q = `
		SELECT chat_id, subject_id, display_name, score FROM ledger_entries
		WHERE chat_id = $1
		ORDER BY score DESC, subject_id ASC
		LIMIT $2`
	var entries []Entry
	if err := s.db.SelectContext(ctx, &entries, q, chatID, n); err != nil {
		return nil, unavailable("ledger top", err)
	}
	return entries, nil
}

// RankOf computes the 1-based rank over the entire chat in TopN order.
func (s *PostgresStore) RankOf(ctx context.Context, chatID, subjectID int64) (int, bool, error) {
	const q = `
		SELECT rnk FROM (
			SELECT subject_id,
			       ROW_NUMBER() OVER (ORDER BY score DESC, subject_id ASC) AS rnk
			FROM ledger_entries WHERE chat_id = $1
		) ranked WHERE subject_id = $2`
	var rank int
	err := s.db.GetContext(ctx, &rank, q, chatID, subjectID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, unavailable("ledger rank", err)
	}
	return rank, true, nil
}

// ResetChat zeroes scores, display names stay.
func (s *PostgresStore) ResetChat(ctx context.Context, chatID int64) error {
	const q = `UPDATE ledger_entries SET score = 0 WHERE chat_id = $1`
	res, err := s.db.ExecContext(ctx, q, chatID)
	if err != nil {
		return unavailable("ledger reset", err)
	}
	affected, _ := res.RowsAffected()
	logger.Info(ctx, "service.ledger", "ledger.reset",
		slog.Int64("chat_id", chatID),
		slog.Int64("count", affected),
	)
	return nil
}

// DeleteChat tears down the chat: ledger rows and admin grants go together.
func (s *PostgresStore) DeleteChat(ctx context.Context, chatID int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return unavailable("chat teardown", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM ledger_entries WHERE chat_id = $1`, chatID); err != nil {
		return unavailable("chat teardown", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM admin_grants WHERE chat_id = $1`, chatID); err != nil {
		return unavailable("chat teardown", err)
	}
	if err := tx.Commit(); err != nil {
		return unavailable("chat teardown", err)
	}
	logger.Info(ctx, "service.ledger", "chat.teardown",
		slog.Int64("chat_id", chatID),
	)
	return nil
}

// Grant records admin rights idempotently.
func (s *PostgresStore) Grant(ctx context.Context, chatID, principalID int64) error {
	const q = `
		INSERT INTO admin_grants (chat_id, principal_id)
		VALUES ($1, $2)
		ON CONFLICT (chat_id, principal_id) DO NOTHING`
	if _, err := s.db.ExecContext(ctx, q, chatID, principalID); err != nil {
		return unavailable("roster grant", err)
	}
	logger.Debug(ctx, "service.roster", "roster.grant",
		slog.Int64("chat_id", chatID),
		slog.Int64("user_id", principalID),
	)
	return nil
}

// IsAdmin reports whether a grant exists.
func (s *PostgresStore) IsAdmin(ctx context.Context, chatID, principalID int64) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM admin_grants WHERE chat_id = $1 AND principal_id = $2)`
	var ok bool
	if err := s.db.GetContext(ctx, &ok, q, chatID, principalID); err != nil {
		return false, unavailable("roster check", err)
	}
	return ok, nil
}
