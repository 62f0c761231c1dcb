package wizard

import (
	"context"
	"errors"
	"testing"
)

// deleteOnlyMessenger fails deletion of selected ids, mimicking messages
// that are already gone or too old to remove.
type deleteOnlyMessenger struct {
	fail    map[int]bool
	deleted []int
}

func (m *deleteOnlyMessenger) Send(context.Context, int64, string, ...[]Button) (int, error) {
	return 0, errors.New("not used")
}

func (m *deleteOnlyMessenger) Edit(context.Context, int64, int, string, ...[]Button) error {
	return errors.New("not used")
}

func (m *deleteOnlyMessenger) Delete(_ context.Context, _ int64, messageID int) error {
	if m.fail[messageID] {
		return errors.New("message to delete not found")
	}
	m.deleted = append(m.deleted, messageID)
	return nil
}

func TestTrackerFlushBestEffort(t *testing.T) {
	var tr tracker
	tr.Record(1)
	tr.Record(2)
	tr.Record(3)
	tr.Record(0) // ignored

	m := &deleteOnlyMessenger{fail: map[int]bool{2: true}}
	tr.Flush(context.Background(), m, -1)

	if len(m.deleted) != 2 {
		t.Fatalf("deleted = %v, want ids 1 and 3", m.deleted)
	}
	if len(tr.ids) != 0 {
		t.Fatalf("tracker not cleared: %v", tr.ids)
	}

	// A second flush has nothing left to do.
	m.deleted = nil
	tr.Flush(context.Background(), m, -1)
	if len(m.deleted) != 0 {
		t.Fatalf("flush of empty tracker deleted %v", m.deleted)
	}
}

func TestTrackerFlushKeep(t *testing.T) {
	var tr tracker
	tr.Record(1)
	tr.Record(2)
	tr.Record(3)

	m := &deleteOnlyMessenger{}
	tr.Flush(context.Background(), m, -1, 2)

	if len(m.deleted) != 2 {
		t.Fatalf("deleted = %v, want 1 and 3", m.deleted)
	}
	if len(tr.ids) != 1 || tr.ids[0] != 2 {
		t.Fatalf("kept ids = %v, want [2]", tr.ids)
	}
}

func TestTrackerDrop(t *testing.T) {
	var tr tracker
	tr.Record(1)
	tr.Record(2)
	tr.Drop(1)
	tr.Drop(99) // absent, no-op

	if len(tr.ids) != 1 || tr.ids[0] != 2 {
		t.Fatalf("ids = %v, want [2]", tr.ids)
	}
}
