package wizard

import "testing"

func TestSessionsScoping(t *testing.T) {
	tbl := NewSessions()

	a := tbl.Start(1, 100)
	b := tbl.Start(1, 200)
	c := tbl.Start(2, 100)

	if a == b || a == c {
		t.Fatal("sessions for distinct scopes must be independent")
	}
	if tbl.Len() != 3 {
		t.Fatalf("len = %d, want 3", tbl.Len())
	}

	got, ok := tbl.Get(1, 100)
	if !ok || got != a {
		t.Fatal("lookup returned the wrong session")
	}

	tbl.Drop(1, 100)
	if _, ok := tbl.Get(1, 100); ok {
		t.Fatal("dropped session still present")
	}
	if _, ok := tbl.Get(1, 200); !ok {
		t.Fatal("dropping one scope removed another")
	}
}

func TestSessionsStartReplaces(t *testing.T) {
	tbl := NewSessions()

	old := tbl.Start(1, 100)
	old.pendingAction = ActionCredit
	old.state = StateChoosingAmount

	fresh := tbl.Start(1, 100)
	if fresh == old {
		t.Fatal("restart must produce a fresh session")
	}
	if fresh.State() != StateChoosingAction {
		t.Fatalf("fresh session state = %s, want %s", fresh.State(), StateChoosingAction)
	}
	if fresh.pendingAction != 0 {
		t.Fatal("abandoned transient state leaked into the new session")
	}
	if tbl.Len() != 1 {
		t.Fatalf("len = %d, want 1", tbl.Len())
	}
}
