package pipeline

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/resume-intake/internal/candidate"
	"github.com/spigell/resume-intake/internal/document"
	"github.com/spigell/resume-intake/internal/extract"
	"github.com/spigell/resume-intake/internal/filtering"
	"github.com/spigell/resume-intake/internal/logger"
	"github.com/spigell/resume-intake/internal/storage"
	"github.com/spigell/resume-intake/internal/utils"
)

const (
	defaultGroupSize     = 5
	defaultGroupDelay    = 2 * time.Second
	defaultMinTextLength = 50
)

// ErrInvalidRequest is returned for batches that cannot be processed at all.
var ErrInvalidRequest = errors.New("invalid batch request")

// Document is one uploaded file.
type Document = document.Document

// Classifier scores the text of one document.
type Classifier interface {
	Classify(ctx context.Context, documentText, jobDescription, recruiterGuidance string) candidate.Outcome
}

// Store persists finalized candidates and their source documents.
type Store interface {
	Save(ctx context.Context, c candidate.Candidate)
	UploadSource(ctx context.Context, id, fileName, contentType string, data []byte) (string, error)
}

type Config struct {
	GroupSize  int
	GroupDelay time.Duration
	// MinTextLength is the number of non-blank runes below which a document
	// is not sent to the model.
	MinTextLength int
	// ExtractTimeout bounds text extraction of a single document. Zero leaves
	// it to the extractor.
	ExtractTimeout time.Duration
}

// Deps are the collaborators of a Pipeline. Filters, NewID, Now and Wait are
// optional.
type Deps struct {
	Extractor  extract.Extractor
	Classifier Classifier
	Store      Store
	Filters    *filtering.Filtering
	Logger     *zap.Logger

	NewID func() string
	Now   func() time.Time
	Wait  func(ctx context.Context, d time.Duration) error
}

// Result is the outcome of a batch.
type Result struct {
	TotalProcessed int                   `json:"totalProcessed"`
	Candidates     []candidate.Candidate `json:"candidates"`
}

// Pipeline turns batches of uploaded resumes into scored candidates.
type Pipeline struct {
	cfg  Config
	deps Deps
	log  *zap.Logger
}

func New(cfg Config, deps Deps) *Pipeline {
	if cfg.GroupSize <= 0 {
		cfg.GroupSize = defaultGroupSize
	}
	if cfg.GroupDelay < 0 {
		cfg.GroupDelay = 0
	}
	if cfg.MinTextLength <= 0 {
		cfg.MinTextLength = defaultMinTextLength
	}
	if deps.NewID == nil {
		deps.NewID = uuid.NewString
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Wait == nil {
		deps.Wait = utils.WaitFor
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	return &Pipeline{cfg: cfg, deps: deps, log: logger.Component(deps.Logger, "pipeline")}
}

// ProcessBatch classifies every admitted document and returns the candidates
// sorted by score, highest first. Per-document failures become sentinel
// candidates. If ctx is cancelled between groups the candidates produced so
// far are returned together with the context error.
func (p *Pipeline) ProcessBatch(ctx context.Context, docs []Document, jobDescription, recruiterGuidance string) (*Result, error) {
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: no documents uploaded", ErrInvalidRequest)
	}
	if strings.TrimSpace(jobDescription) == "" {
		return nil, fmt.Errorf("%w: job description is required", ErrInvalidRequest)
	}

	admitted := docs
	if p.deps.Filters != nil {
		var err error
		admitted, err = p.deps.Filters.Run(ctx, docs)
		if err != nil {
			return nil, fmt.Errorf("filter documents: %w", err)
		}
	}

	p.log.Info("batch started",
		zap.Int("received", len(docs)),
		zap.Int("admitted", len(admitted)),
		zap.Int("group_size", p.cfg.GroupSize),
	)

	work := context.WithoutCancel(ctx)
	groups := utils.Chunk(admitted, p.cfg.GroupSize)
	candidates := make([]candidate.Candidate, 0, len(admitted))

	var stopErr error
	for i, group := range groups {
		if err := ctx.Err(); err != nil {
			stopErr = err
			break
		}

		candidates = append(candidates, p.processGroup(work, i, group, jobDescription, recruiterGuidance)...)

		if i == len(groups)-1 {
			break
		}
		if err := p.deps.Wait(ctx, p.cfg.GroupDelay); err != nil {
			stopErr = err
			break
		}
	}

	slices.SortStableFunc(candidates, func(a, b candidate.Candidate) int { return b.Score - a.Score })

	result := &Result{TotalProcessed: len(candidates), Candidates: candidates}

	if stopErr != nil {
		p.log.Warn("batch interrupted", zap.Int("processed", len(candidates)), zap.Error(stopErr))
		return result, stopErr
	}

	p.log.Info("batch finished", zap.Int("processed", len(candidates)))
	return result, nil
}

func (p *Pipeline) processGroup(ctx context.Context, index int, group []Document, jobDescription, recruiterGuidance string) []candidate.Candidate {
	results := make([]candidate.Candidate, len(group))

	p.log.Debug("processing group", zap.Int(logger.FieldGroup, index+1), zap.Int("documents", len(group)))

	var g errgroup.Group
	g.SetLimit(len(group))
	for i, doc := range group {
		g.Go(func() error {
			results[i] = p.processDocument(ctx, doc, jobDescription, recruiterGuidance)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (p *Pipeline) processDocument(ctx context.Context, doc Document, jobDescription, recruiterGuidance string) (c candidate.Candidate) {
	id := p.deps.NewID()
	log := logger.WithDocument(p.log, id, doc.Name)

	defer func() {
		if r := recover(); r != nil {
			log.Error("document processing panicked", zap.Any("panic", r))
			c = p.finalize(id, doc, candidate.Sentinel(candidate.ReasonProcessingError, fmt.Sprintf("Processing error: %v", r)), "")
			p.save(ctx, log, c)
		}
	}()

	text, err := p.extract(ctx, doc)
	if err != nil {
		log.Warn("text extraction failed", zap.Error(err))
		c = p.finalize(id, doc, candidate.Sentinel(candidate.ReasonProcessingError, fmt.Sprintf("Processing error: %v", err)), "")
		p.save(ctx, log, c)
		return c
	}

	if length := utf8.RuneCountInString(strings.TrimSpace(text)); length < p.cfg.MinTextLength {
		log.Info("insufficient text extracted", zap.Int("length", length))
		c = p.finalize(id, doc, candidate.Sentinel(candidate.ReasonInsufficientText,
			fmt.Sprintf("Could not extract enough text from the document (%d characters).", length)), candidate.ResumeURLNone)
		p.save(ctx, log, c)
		return c
	}

	outcome := p.deps.Classifier.Classify(ctx, text, jobDescription, recruiterGuidance)
	if !outcome.OK() {
		log.Info("document classified as sentinel", zap.String("reason", string(outcome.Reason)))
	}

	url := p.upload(ctx, log, id, doc)

	c = p.finalize(id, doc, outcome, url)
	p.save(ctx, log, c)

	log.Debug("document processed", zap.String("status", c.Status), zap.Int("score", c.Score))
	return c
}

func (p *Pipeline) extract(ctx context.Context, doc Document) (string, error) {
	if p.cfg.ExtractTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.ExtractTimeout)
		defer cancel()
	}
	return p.deps.Extractor.Extract(ctx, doc.Data)
}

func (p *Pipeline) upload(ctx context.Context, log *zap.Logger, id string, doc Document) string {
	url, err := p.deps.Store.UploadSource(ctx, id, doc.Name, doc.DetectedType(), doc.Data)
	switch {
	case errors.Is(err, storage.ErrUploadSkipped):
		return candidate.ResumeURLNone
	case err != nil:
		log.Warn("source upload failed", zap.Error(err))
		return candidate.ResumeURLFailed
	default:
		return url
	}
}

func (p *Pipeline) finalize(id string, doc Document, outcome candidate.Outcome, url string) candidate.Candidate {
	c := candidate.Finalize(id, outcome, url, p.deps.Now())
	c.FileName = doc.Name
	return c
}

// save persists c. A panicking store must not take the batch down with it.
func (p *Pipeline) save(ctx context.Context, log *zap.Logger, c candidate.Candidate) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("persisting candidate panicked", zap.Any("panic", r))
		}
	}()
	p.deps.Store.Save(ctx, c)
}
