package storage

import (
	"context"
	"errors"

	"github.com/spigell/resume-intake/internal/candidate"
)

var (
	// ErrNotFound is returned when no candidate exists for the requested id.
	ErrNotFound = errors.New("candidate not found")
	// ErrUploadSkipped is returned by UploadSource when no blob store is configured.
	ErrUploadSkipped = errors.New("blob upload skipped")
)

// DocumentStore persists candidate records keyed by id. Writes are upserts,
// so repeating a write is harmless.
type DocumentStore interface {
	Write(ctx context.Context, key string, c candidate.Candidate) error
}

// Repository is a DocumentStore that can also read records back and toggle
// reviewer approval.
type Repository interface {
	DocumentStore
	Get(ctx context.Context, id string) (candidate.Candidate, error)
	List(ctx context.Context) ([]candidate.Candidate, error)
	SetApproved(ctx context.Context, id string, approved bool) (candidate.Candidate, error)
	Close() error
}

// BlobStore keeps original documents and returns a retrievable URL.
type BlobStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
}
