package interview

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap"
)

func newRecord(t *testing.T, candidate string) *Record {
	t.Helper()

	ctrl, err := NewController(DefaultConfig(), "analysis", &Deps{
		Generator: &fakeGenerator{},
		Grader:    &fakeGrader{},
		Logger:    zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	return &Record{CandidateName: candidate, Controller: ctrl}
}

func TestMemoryRepositoryLifecycle(t *testing.T) {
	t.Parallel()

	repo := NewMemoryRepository()
	ctx := context.Background()

	record := newRecord(t, "Ada")
	if err := repo.Create(ctx, record); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.CreatedAt.IsZero() {
		t.Fatal("expected creation time to be set")
	}

	if err := repo.Create(ctx, record); err == nil {
		t.Fatal("expected duplicate registration to fail")
	}

	got, err := repo.Get(ctx, record.ID())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != record {
		t.Fatal("expected the same record to be returned")
	}

	if err := repo.End(ctx, record.ID()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.EndedAt.IsZero() {
		t.Fatal("expected end time to be set")
	}

	if _, err := repo.Get(ctx, "missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if err := repo.End(ctx, "missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestMemoryRepositoryRejectsEmptyRecord(t *testing.T) {
	t.Parallel()

	if err := NewMemoryRepository().Create(context.Background(), &Record{}); err == nil {
		t.Fatal("expected error for record without controller")
	}
}

func TestMemoryRepositoryIsolatesSessions(t *testing.T) {
	t.Parallel()

	repo := NewMemoryRepository()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		record := newRecord(t, "candidate")
		if err := repo.Create(ctx, record); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = record.Exclusive(func(r *Record) error {
				if _, err := r.Controller.Start(ctx); err != nil {
					return err
				}
				_, err := r.Controller.Advance(ctx, "answer")
				return err
			})
		}()
	}
	wg.Wait()

	records, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 8 {
		t.Fatalf("expected 8 records, got %d", len(records))
	}
	for _, record := range records {
		if got := record.Controller.Snapshot().QuestionNumber; got != 2 {
			t.Fatalf("session %s: expected question 2, got %d", record.ID(), got)
		}
	}
}
