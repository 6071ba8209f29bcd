package storage

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/spigell/resume-intake/internal/candidate"
	"github.com/spigell/resume-intake/internal/logger"
	"go.uber.org/zap"
)

const (
	objectPrefix    = "resumes"
	maxFileNameLen  = 100
	defaultFileName = "resume.pdf"
)

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Adapter is the persistence boundary of the pipeline: it stores finalized
// candidates and uploads the original documents.
type Adapter struct {
	docs   DocumentStore
	blobs  BlobStore
	logger *zap.Logger
	now    func() time.Time
}

// NewAdapter creates an Adapter. Either store may be nil: a nil document
// store drops records, a nil blob store makes uploads report ErrUploadSkipped.
func NewAdapter(docs DocumentStore, blobs BlobStore, log *zap.Logger) *Adapter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Adapter{docs: docs, blobs: blobs, logger: log, now: time.Now}
}

// Save writes the candidate keyed by its id. Failures are logged, not
// returned. Records for an unconfigured language model are not stored.
func (a *Adapter) Save(ctx context.Context, c candidate.Candidate) {
	log := logger.WithDocument(a.logger, c.ID, c.FileName)

	if c.IsSentinel(candidate.ReasonAPIKeyMissing) {
		log.Debug("skipping persistence of unconfigured model placeholder")
		return
	}

	if a.docs == nil {
		log.Debug("no document store configured")
		return
	}

	if err := a.docs.Write(ctx, c.ID, c); err != nil {
		log.Error("persisting candidate", zap.Error(err))
		return
	}

	log.Debug("candidate persisted", zap.String("status", c.Status), zap.Int("score", c.Score))
}

// UploadSource stores the original document under a key derived from the
// candidate id, the current time and the sanitized file name.
func (a *Adapter) UploadSource(ctx context.Context, id, fileName, contentType string, data []byte) (string, error) {
	if a.blobs == nil {
		return "", ErrUploadSkipped
	}

	key := ObjectKey(id, fileName, a.now())

	url, err := a.blobs.Upload(ctx, key, data, contentType)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}

	return url, nil
}

// ObjectKey builds the blob key for an uploaded document.
func ObjectKey(id, fileName string, at time.Time) string {
	return path.Join(objectPrefix, fmt.Sprintf("%s_%d_%s", id, at.UnixMilli(), SanitizeFileName(fileName)))
}

// SanitizeFileName reduces a client supplied name to a safe object key
// component.
func SanitizeFileName(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	name = unsafeFileChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")

	if name == "" {
		return defaultFileName
	}

	if runes := []rune(name); len(runes) > maxFileNameLen {
		name = string(runes[len(runes)-maxFileNameLen:])
	}

	return name
}
