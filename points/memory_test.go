package points

import (
	"context"
	"sync"
	"testing"
)

func TestUpsertDeltaCreatesAndAccumulates(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if err := s.UpsertDelta(ctx, 1, 10, 5, "Орися"); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.UpsertDelta(ctx, 1, 10, -2, ""); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	score, err := s.Score(ctx, 1, 10)
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if score != 3 {
		t.Fatalf("score = %d, want 3", score)
	}

	// An empty display name must not erase the stored label.
	names, err := s.Subjects(ctx, 1)
	if err != nil {
		t.Fatalf("subjects: %v", err)
	}
	if len(names) != 1 || names[0] != "Орися" {
		t.Fatalf("subjects = %v, want [Орися]", names)
	}
}

func TestUpsertDeltaConcurrent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	const workers = 16
	const perWorker = 100

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				_ = s.UpsertDelta(ctx, 1, 10, 1, "Орися")
			}
		}()
	}
	wg.Wait()

	score, err := s.Score(ctx, 1, 10)
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if score != workers*perWorker {
		t.Fatalf("score = %d, want %d: lost updates", score, workers*perWorker)
	}
}

func TestScoreAbsentRowIsZero(t *testing.T) {
	s := NewMemoryStore()
	score, err := s.Score(context.Background(), 1, 404)
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if score != 0 {
		t.Fatalf("score = %d, want 0", score)
	}
}

func TestTopNOrderingAndTieBreak(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	seed := []struct {
		subject int64
		score   int64
		name    string
	}{
		{30, 5, "Третій"},
		{10, 9, "Перший"},
		{20, 5, "Другий"},
		{40, -3, "Боржник"},
	}
	for _, row := range seed {
		if err := s.UpsertDelta(ctx, 1, row.subject, row.score, row.name); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}

	top, err := s.TopN(ctx, 1, 3)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	want := []int64{10, 20, 30}
	if len(top) != len(want) {
		t.Fatalf("top size = %d, want %d", len(top), len(want))
	}
	for i, e := range top {
		if e.SubjectID != want[i] {
			t.Fatalf("top[%d] = %d, want %d", i, e.SubjectID, want[i])
		}
	}

	rank, ok, err := s.RankOf(ctx, 1, 40)
	if err != nil || !ok {
		t.Fatalf("rank: ok=%v err=%v", ok, err)
	}
	if rank != 4 {
		t.Fatalf("rank = %d, want 4", rank)
	}
	if _, ok, _ := s.RankOf(ctx, 1, 999); ok {
		t.Fatal("absent subject reported as ranked")
	}
}

func TestTopNRankOfConsistency(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	for i := int64(1); i <= 6; i++ {
		if err := s.UpsertDelta(ctx, 1, i, i%4, ""); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}
	top, err := s.TopN(ctx, 1, 6)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	for i, e := range top {
		rank, ok, err := s.RankOf(ctx, 1, e.SubjectID)
		if err != nil || !ok {
			t.Fatalf("rank of %d: ok=%v err=%v", e.SubjectID, ok, err)
		}
		if rank != i+1 {
			t.Fatalf("rank of %d = %d, position in top = %d", e.SubjectID, rank, i+1)
		}
	}
}

func TestSubjectIDByNameLowestWins(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_ = s.UpsertDelta(ctx, 1, 50, 0, "Тезко")
	_ = s.UpsertDelta(ctx, 1, 20, 0, "Тезко")

	id, ok, err := s.SubjectIDByName(ctx, 1, "Тезко")
	if err != nil || !ok {
		t.Fatalf("resolve: ok=%v err=%v", ok, err)
	}
	if id != 20 {
		t.Fatalf("id = %d, want 20", id)
	}

	if _, ok, _ := s.SubjectIDByName(ctx, 1, "Ніхто"); ok {
		t.Fatal("unknown name resolved")
	}
}

func TestResetChatKeepsNames(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_ = s.UpsertDelta(ctx, 1, 10, 7, "Орися")
	_ = s.UpsertDelta(ctx, 2, 10, 7, "Орися")

	if err := s.ResetChat(ctx, 1); err != nil {
		t.Fatalf("reset: %v", err)
	}

	score, _ := s.Score(ctx, 1, 10)
	if score != 0 {
		t.Fatalf("score after reset = %d, want 0", score)
	}
	names, _ := s.Subjects(ctx, 1)
	if len(names) != 1 {
		t.Fatalf("names after reset = %v, want the label kept", names)
	}
	// Other chats stay untouched.
	if score, _ := s.Score(ctx, 2, 10); score != 7 {
		t.Fatalf("other chat score = %d, want 7", score)
	}
}

func TestDeleteChatDropsRowsAndGrants(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_ = s.UpsertDelta(ctx, 1, 10, 7, "Орися")
	_ = s.Grant(ctx, 1, 99)
	_ = s.Grant(ctx, 2, 99)

	if err := s.DeleteChat(ctx, 1); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if names, _ := s.Subjects(ctx, 1); len(names) != 0 {
		t.Fatalf("subjects after delete = %v", names)
	}
	if ok, _ := s.IsAdmin(ctx, 1, 99); ok {
		t.Fatal("grant survived chat deletion")
	}
	if ok, _ := s.IsAdmin(ctx, 2, 99); !ok {
		t.Fatal("grant in another chat was lost")
	}
}

func TestGrantIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	for i := 0; i < 3; i++ {
		if err := s.Grant(ctx, 1, 99); err != nil {
			t.Fatalf("grant: %v", err)
		}
	}
	ok, err := s.IsAdmin(ctx, 1, 99)
	if err != nil || !ok {
		t.Fatalf("is admin: ok=%v err=%v", ok, err)
	}
	if ok, _ := s.IsAdmin(ctx, 1, 100); ok {
		t.Fatal("ungranted principal passes")
	}
}
