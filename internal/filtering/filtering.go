package filtering

import (
	"context"
	"fmt"

	"github.com/spigell/resume-intake/internal/document"
	"go.uber.org/zap"
)

// Filter represents a single admission step applied to uploaded documents.
// Documents dropped by a filter never become candidates.
type Filter interface {
	Name() string
	IsEnabled() bool

	Apply(ctx context.Context, docs []document.Document) ([]document.Document, Step, error)
}

// Step describes the result of executing a filtering step.
type Step struct {
	Initial int
	Dropped int
	Left    int

	DroppedNames []string
}

// Status represents runtime information about a filter.
type Status struct {
	Name    string
	Enabled bool
	Reason  string
	Details map[string]string
}

// statusProvider is implemented by filters that can supply detailed status information.
type statusProvider interface {
	Status() Status
}

// Filtering runs admission filters in order.
type Filtering struct {
	steps  []Filter
	logger *zap.Logger
}

// New creates a filtering pipeline.
func New(steps []Filter, logger *zap.Logger) *Filtering {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Filtering{steps: steps, logger: logger}
}

// Default returns the standard admission filters: non-empty PDFs no larger
// than maxBytes. A non-positive maxBytes disables the size check.
func Default(maxBytes int64, logger *zap.Logger) *Filtering {
	return New([]Filter{
		NewNonEmpty(),
		NewContentType(document.ContentTypePDF),
		NewMaxSize(maxBytes),
	}, logger)
}

// Run executes the enabled filters sequentially and returns the surviving
// documents in their original order.
func (f *Filtering) Run(ctx context.Context, docs []document.Document) ([]document.Document, error) {
	if f == nil {
		return docs, nil
	}

	for _, step := range f.steps {
		if !step.IsEnabled() {
			f.logger.Debug("filter disabled", zap.String("name", step.Name()))
			continue
		}

		next, info, err := step.Apply(ctx, docs)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", step.Name(), err)
		}

		f.logger.Info("filter step",
			zap.String("name", step.Name()),
			zap.Int("initial", info.Initial),
			zap.Int("dropped", info.Dropped),
			zap.Int("left", info.Left),
		)
		if len(info.DroppedNames) > 0 {
			f.logger.Debug("documents dropped",
				zap.String("name", step.Name()),
				zap.Strings("files", info.DroppedNames),
			)
		}

		docs = next
	}

	return docs, nil
}

// Describe returns status entries for the configured filters.
func (f *Filtering) Describe() []Status {
	if f == nil {
		return nil
	}

	statuses := make([]Status, 0, len(f.steps))
	for _, step := range f.steps {
		if reporter, ok := step.(statusProvider); ok {
			statuses = append(statuses, reporter.Status())
			continue
		}

		statuses = append(statuses, Status{
			Name:    step.Name(),
			Enabled: step.IsEnabled(),
		})
	}
	return statuses
}

// keep filters docs with pred, recording the names of dropped documents.
func keep(docs []document.Document, pred func(document.Document) bool) ([]document.Document, Step) {
	kept := make([]document.Document, 0, len(docs))
	var dropped []string
	for _, doc := range docs {
		if pred(doc) {
			kept = append(kept, doc)
			continue
		}
		dropped = append(dropped, doc.Name)
	}
	return kept, Step{Initial: len(docs), Dropped: len(dropped), Left: len(kept), DroppedNames: dropped}
}
