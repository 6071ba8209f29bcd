package filtering

import (
	"context"
	"strconv"
	"strings"

	"github.com/spigell/resume-intake/internal/document"
)

type nonEmptyFilter struct{}

// NewNonEmpty creates a filter that removes documents without content.
func NewNonEmpty() Filter {
	return &nonEmptyFilter{}
}

func (f *nonEmptyFilter) Name() string { return "non_empty" }

func (f *nonEmptyFilter) IsEnabled() bool { return true }

func (f *nonEmptyFilter) Apply(_ context.Context, docs []document.Document) ([]document.Document, Step, error) {
	kept, step := keep(docs, func(d document.Document) bool { return d.Size() > 0 })
	return kept, step, nil
}

type contentTypeFilter struct {
	allowed []string
}

// NewContentType creates a filter that keeps documents of the allowed media
// types, sniffing the content when the declared type is missing or generic.
func NewContentType(allowed ...string) Filter {
	normalized := make([]string, 0, len(allowed))
	for _, t := range allowed {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			normalized = append(normalized, t)
		}
	}
	return &contentTypeFilter{allowed: normalized}
}

func (f *contentTypeFilter) Name() string { return "content_type" }

func (f *contentTypeFilter) IsEnabled() bool { return true }

func (f *contentTypeFilter) Apply(_ context.Context, docs []document.Document) ([]document.Document, Step, error) {
	kept, step := keep(docs, func(d document.Document) bool {
		detected := d.DetectedType()
		for _, t := range f.allowed {
			if detected == t {
				return true
			}
		}
		return false
	})
	return kept, step, nil
}

func (f *contentTypeFilter) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: true,
		Details: map[string]string{"allowed": strings.Join(f.allowed, ",")},
	}
}

type maxSizeFilter struct {
	limit   int64
	enabled bool
	reason  string
}

// NewMaxSize creates a filter that removes documents larger than limit bytes.
func NewMaxSize(limit int64) Filter {
	f := &maxSizeFilter{limit: limit, enabled: true}
	if limit <= 0 {
		f.disable("no size limit configured")
	}
	return f
}

func (f *maxSizeFilter) Name() string { return "max_size" }

func (f *maxSizeFilter) disable(reason string) {
	f.enabled = false
	f.reason = reason
}

func (f *maxSizeFilter) IsEnabled() bool { return f.enabled }

func (f *maxSizeFilter) Apply(_ context.Context, docs []document.Document) ([]document.Document, Step, error) {
	kept, step := keep(docs, func(d document.Document) bool { return int64(d.Size()) <= f.limit })
	return kept, step, nil
}

func (f *maxSizeFilter) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: f.enabled,
		Reason:  f.reason,
		Details: map[string]string{"limit_bytes": strconv.FormatInt(f.limit, 10)},
	}
}
