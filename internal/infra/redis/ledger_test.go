package redis

import (
	"context"
	"testing"
	"time"

	"arithmetic-practice-service/internal/domain"
	miniredis "github.com/alicebob/miniredis/v2"
)

func TestLedgerUpsertsByText(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	ledger := NewWrongProblemLedger(newClient(mr))
	at := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)

	first, err := ledger.Record(ctx, sampleProblem(t, 7, 8, domain.OpMultiply, 2), 54, at)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	second, err := ledger.Record(ctx, sampleProblem(t, 7, 8, domain.OpMultiply, 2), 58, at.Add(time.Hour))
	if err != nil {
		t.Fatalf("record again: %v", err)
	}
	if second.ID != first.ID || second.WrongCount != 2 || second.WrongAnswer != 54 {
		t.Fatalf("unexpected upserted entry %+v", second)
	}
	if !second.LastWrongDate.Equal(at.Add(time.Hour)) {
		t.Fatalf("expected last wrong date to advance, got %v", second.LastWrongDate)
	}

	entries, err := ledger.List(ctx, domain.WrongProblemFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 1 || entries[0].WrongCount != 2 {
		t.Fatalf("expected one entry with count 2, got %+v", entries)
	}
}

func TestLedgerKeepsInsertionOrderAndRemoves(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	ledger := NewWrongProblemLedger(newClient(mr))
	now := time.Now()

	problems := []domain.Problem{
		sampleProblem(t, 9, 4, domain.OpSubtract, 1),
		sampleProblem(t, 3, 3, domain.OpAdd, 1),
		sampleProblem(t, 6, 7, domain.OpMultiply, 2),
	}
	for _, p := range problems {
		if _, err := ledger.Record(ctx, p, 0, now); err != nil {
			t.Fatalf("record %q: %v", p.Text, err)
		}
	}

	entries, _ := ledger.List(ctx, domain.WrongProblemFilter{Grade: 1})
	if len(entries) != 2 || entries[0].Problem.Text != problems[0].Text || entries[1].Problem.Text != problems[1].Text {
		t.Fatalf("unexpected grade 1 order %+v", entries)
	}

	if err := ledger.Remove(ctx, entries[0].ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := ledger.Remove(ctx, "unknown"); err != nil {
		t.Fatalf("remove unknown should be ignored, got %v", err)
	}

	rest, _ := ledger.List(ctx, domain.WrongProblemFilter{})
	if len(rest) != 2 || rest[0].Problem.Text != problems[1].Text {
		t.Fatalf("unexpected entries after removal %+v", rest)
	}
	muls, _ := ledger.List(ctx, domain.WrongProblemFilter{Operation: domain.OpMultiply})
	if len(muls) != 1 || muls[0].Problem.Operation != domain.OpMultiply {
		t.Fatalf("unexpected multiplication entries %+v", muls)
	}
}
