package points

import (
	"context"
	"sort"
	"sync"
)

type rowKey struct {
	chat    int64
	subject int64
}

type grantKey struct {
	chat      int64
	principal int64
}

// MemoryStore is a mutex-guarded in-memory Ledger and Roster. It backs the
// wizard's unit tests and mirrors the bot's earliest storage variant; the
// guarantees match PostgresStore row for row.
type MemoryStore struct {
	mu     sync.Mutex
	rows   map[rowKey]*Entry
	grants map[grantKey]struct{}
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rows:   make(map[rowKey]*Entry),
		grants: make(map[grantKey]struct{}),
	}
}

var (
	_ Ledger = (*MemoryStore)(nil)
	_ Roster = (*MemoryStore)(nil)
)

// UpsertDelta adds delta to the row, creating it when absent.
func (s *MemoryStore) UpsertDelta(_ context.Context, chatID, subjectID, delta int64, displayName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := rowKey{chatID, subjectID}
	row, ok := s.rows[key]
	if !ok {
		row = &Entry{ChatID: chatID, SubjectID: subjectID}
		s.rows[key] = row
	}
	row.Score += delta
	if displayName != "" {
		name := displayName
		row.DisplayName = &name
	}
	return nil
}

// Score returns 0 for absent rows.
func (s *MemoryStore) Score(_ context.Context, chatID, subjectID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if row, ok := s.rows[rowKey{chatID, subjectID}]; ok {
		return row.Score, nil
	}
	return 0, nil
}

// Subjects lists display names in name order.
func (s *MemoryStore) Subjects(_ context.Context, chatID int64) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var names []string
	for key, row := range s.rows {
		if key.chat == chatID && row.DisplayName != nil {
			names = append(names, *row.DisplayName)
		}
	}
	sort.Strings(names)
	return names, nil
}

// SubjectIDByName resolves a display name; lowest id wins on duplicates.
func (s *MemoryStore) SubjectIDByName(_ context.Context, chatID int64, name string) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var (
		best  int64
		found bool
	)
	for key, row := range s.rows {
		if key.chat != chatID || row.DisplayName == nil || *row.DisplayName != name {
			continue
		}
		if !found || key.subject < best {
			best = key.subject
			found = true
		}
	}
	return best, found, nil
}

func (s *MemoryStore) chatEntries(chatID int64) []Entry {
	var entries []Entry
	for key, row := range s.rows {
		if key.chat == chatID {
			entries = append(entries, *row)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].SubjectID < entries[j].SubjectID
	})
	return entries
}

// TopN returns up to n entries, score descending, subject id ascending.
func (s *MemoryStore) TopN(_ context.Context, chatID int64, n int) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.chatEntries(chatID)
	if len(entries) > n {
		entries = entries[:n]
	}
	return entries, nil
}

// RankOf returns the 1-based rank over the whole chat.
func (s *MemoryStore) RankOf(_ context.Context, chatID, subjectID int64) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.chatEntries(chatID) {
		if e.SubjectID == subjectID {
			return i + 1, true, nil
		}
	}
	return 0, false, nil
}

// ResetChat zeroes scores in the chat, names stay.
func (s *MemoryStore) ResetChat(_ context.Context, chatID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, row := range s.rows {
		if key.chat == chatID {
			row.Score = 0
		}
	}
	return nil
}

// DeleteChat drops ledger rows and grants for the chat.
func (s *MemoryStore) DeleteChat(_ context.Context, chatID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.rows {
		if key.chat == chatID {
			delete(s.rows, key)
		}
	}
	for key := range s.grants {
		if key.chat == chatID {
			delete(s.grants, key)
		}
	}
	return nil
}

// Grant records admin rights idempotently.
func (s *MemoryStore) Grant(_ context.Context, chatID, principalID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grants[grantKey{chatID, principalID}] = struct{}{}
	return nil
}

// IsAdmin reports whether a grant exists.
func (s *MemoryStore) IsAdmin(_ context.Context, chatID, principalID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.grants[grantKey{chatID, principalID}]
	return ok, nil
}
