package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/spigell/resume-intake/internal/candidate"
	"github.com/spigell/resume-intake/internal/storage"
)

var _ storage.Repository = (*Store)(nil)

func TestStoreRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := New()

	first := candidate.Candidate{ID: "1", Fields: candidate.Fields{Name: "Ada", Skills: []string{"Go"}}}
	second := candidate.Candidate{ID: "2", Fields: candidate.Fields{Name: "Grace"}}

	for _, c := range []candidate.Candidate{first, second, first} {
		if err := s.Write(ctx, c.ID, c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	list, err := s.List(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected idempotent writes, got %d records", len(list))
	}
	if list[0].ID != "1" || list[1].ID != "2" {
		t.Fatalf("unexpected list %+v", list)
	}

	list[0].Skills[0] = "mutated"
	got, err := s.Get(ctx, "1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Skills[0] != "Go" {
		t.Fatalf("expected stored record to be isolated from callers")
	}
}

func TestStoreSetApproved(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := New()

	if _, err := s.SetApproved(ctx, "missing", true); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	_ = s.Write(ctx, "1", candidate.Candidate{ID: "1", Fields: candidate.Fields{Name: "Ada", Score: 70}})

	updated, err := s.SetApproved(ctx, "1", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !updated.Approved || updated.Score != 70 || updated.Name != "Ada" {
		t.Fatalf("expected only approval to change, got %+v", updated)
	}
}
