package classifier

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/spigell/resume-intake/internal/ai"
	"github.com/spigell/resume-intake/internal/candidate"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type stubGenerator struct {
	response   string
	err        error
	calls      int
	lastPrompt string
}

func (s *stubGenerator) GenerateContent(_ context.Context, prompt string) (string, error) {
	s.calls++
	s.lastPrompt = prompt
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func (s *stubGenerator) Model() string {
	return "stub-model"
}

const resumeText = "Jane Doe\nSenior Go Engineer\nContact: Jane.Doe@Example.com\n8 years building distributed systems."

func TestClassifySuccess(t *testing.T) {
	t.Parallel()

	stub := &stubGenerator{response: "```json\n" + `{
		"name": "Jane Doe",
		"email": "jane@model-invented.io",
		"phone": "+1 555 0100",
		"location": "Berlin",
		"score": 87.6,
		"parsedText": "Strong Go background.",
		"skills": ["Go", "Kubernetes", ""],
		"experienceYears": 8,
		"jobTitle": "Senior Go Engineer",
		"education": "MSc Computer Science"
	}` + "\n```"}

	c := New(Config{Provider: "stub"}, stub, zap.NewNop())
	out := c.Classify(context.Background(), resumeText, "Go engineer", "Prefer distributed systems")

	if !out.OK() {
		t.Fatalf("expected ok outcome, got %s: %s", out.Reason, out.Detail)
	}
	if out.Fields.Score != 88 {
		t.Fatalf("expected score 88, got %d", out.Fields.Score)
	}
	if out.Fields.Email != "jane.doe@example.com" {
		t.Fatalf("expected fallback email from document text, got %q", out.Fields.Email)
	}
	if len(out.Fields.Skills) != 2 {
		t.Fatalf("unexpected skills %v", out.Fields.Skills)
	}
	if out.Fields.Experience != 8 || out.Fields.Location != "Berlin" {
		t.Fatalf("unexpected fields %+v", out.Fields)
	}
	if stub.calls != 1 {
		t.Fatalf("expected one model call, got %d", stub.calls)
	}
}

func TestClassifyUsesModelEmailWithoutFallback(t *testing.T) {
	t.Parallel()

	stub := &stubGenerator{response: `{"name": "Sam", "email": "SAM@corp.example", "score": 40}`}
	c := New(Config{}, stub, zap.NewNop())

	out := c.Classify(context.Background(), "Sam, backend developer, no contact information available here.", "jd", "")
	if out.Fields.Email != "sam@corp.example" {
		t.Fatalf("expected model email, got %q", out.Fields.Email)
	}
}

func TestClassifyInlineTaggedFence(t *testing.T) {
	t.Parallel()

	stub := &stubGenerator{response: "```json {\n  \"name\": \"Ann\", \"score\": 70\n}\n```"}
	c := New(Config{}, stub, zap.NewNop())

	out := c.Classify(context.Background(), "Ann, platform engineer with no contact details in this document.", "jd", "")
	if !out.OK() {
		t.Fatalf("expected ok outcome, got %s: %s", out.Reason, out.Detail)
	}
	if out.Fields.Name != "Ann" || out.Fields.Score != 70 {
		t.Fatalf("unexpected fields %+v", out.Fields)
	}
}

func TestClassifyPrompt(t *testing.T) {
	t.Parallel()

	stub := &stubGenerator{response: `{}`}
	c := New(Config{}, stub, zap.NewNop())

	c.Classify(context.Background(), resumeText, "Build payment services in Go", "  ")

	for _, want := range []string{
		"Build payment services in Go",
		"RECRUITER GUIDANCE:\nnone",
		"Senior Go Engineer",
		"finalScore = round(jdScore * 0.5 + rsScore * 0.5)",
		`"experienceYears"`,
		"Weight: 50%",
	} {
		if !strings.Contains(stub.lastPrompt, want) {
			t.Fatalf("expected prompt to contain %q", want)
		}
	}
	if strings.Contains(stub.lastPrompt, "{{") {
		t.Fatalf("expected all placeholders to be replaced")
	}
}

func TestClassifyTruncatesOnlyDocument(t *testing.T) {
	t.Parallel()

	stub := &stubGenerator{response: `{"score": 10}`}
	c := New(Config{ContextBudget: 4000, SafetyMargin: 500}, stub, zap.NewNop())

	jd := strings.Repeat("J", 300)
	guidance := strings.Repeat("G", 200)
	document := strings.Repeat("d", 10000)

	c.Classify(context.Background(), document, jd, guidance)

	if !strings.Contains(stub.lastPrompt, jd) || !strings.Contains(stub.lastPrompt, guidance) {
		t.Fatalf("job description and guidance must not be truncated")
	}
	if !strings.Contains(stub.lastPrompt, strings.TrimSpace(truncationMarker)) {
		t.Fatalf("expected truncation marker")
	}
	if got := utf8.RuneCountInString(stub.lastPrompt); got > 4000-500 {
		t.Fatalf("expected prompt within budget, got %d runes", got)
	}
}

func TestNewSafetyMargin(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		margin int
		expect int
	}{
		{name: "unset uses default", margin: 0, expect: defaultSafetyMargin},
		{name: "explicit", margin: 250, expect: 250},
		{name: "negative disables", margin: -1, expect: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := New(Config{SafetyMargin: tt.margin}, &stubGenerator{}, zap.NewNop())
			if c.cfg.SafetyMargin != tt.expect {
				t.Fatalf("expected margin %d, got %d", tt.expect, c.cfg.SafetyMargin)
			}
		})
	}
}

func TestClassifySentinels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		generator ai.Generator
		expect    candidate.Reason
		detail    string
	}{
		{
			name:      "unconfigured",
			generator: nil,
			expect:    candidate.ReasonAPIKeyMissing,
		},
		{
			name:      "unauthenticated",
			generator: &stubGenerator{err: fmt.Errorf("generate content: %w", ai.ErrUnavailable)},
			expect:    candidate.ReasonAPIKeyMissing,
		},
		{
			name:      "request failed",
			generator: &stubGenerator{err: context.DeadlineExceeded},
			expect:    candidate.ReasonNoResponse,
			detail:    "deadline exceeded",
		},
		{
			name:      "empty result from model",
			generator: &stubGenerator{err: ai.ErrEmptyResponse},
			expect:    candidate.ReasonNoResponse,
		},
		{
			name:      "blank response",
			generator: &stubGenerator{response: "   "},
			expect:    candidate.ReasonNoResponse,
		},
		{
			name:      "empty after cleanup",
			generator: &stubGenerator{response: "```json\n```"},
			expect:    candidate.ReasonEmptyResponse,
		},
		{
			name:      "invalid json",
			generator: &stubGenerator{response: "Sure! Here is the evaluation: score 90"},
			expect:    candidate.ReasonParseFailed,
			detail:    "Response snippet: Sure! Here is the evaluation",
		},
		{
			name:      "json array",
			generator: &stubGenerator{response: `[{"score": 90}]`},
			expect:    candidate.ReasonParseFailed,
		},
		{
			name:      "json null",
			generator: &stubGenerator{response: `null`},
			expect:    candidate.ReasonParseFailed,
		},
		{
			name:      "typed safety block",
			generator: &stubGenerator{err: fmt.Errorf("response blocked: %w", ai.ErrContentBlocked)},
			expect:    candidate.ReasonContentBlocked,
		},
		{
			name:      "safety message",
			generator: &stubGenerator{err: errors.New("candidate was blocked due to SAFETY")},
			expect:    candidate.ReasonContentBlocked,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := New(Config{}, tt.generator, zap.NewNop())
			out := c.Classify(context.Background(), resumeText, "jd", "guidance")

			if out.Reason != tt.expect {
				t.Fatalf("expected %q, got %q (%s)", tt.expect, out.Reason, out.Detail)
			}
			if out.Fields.Name != string(tt.expect) {
				t.Fatalf("expected sentinel name %q, got %q", tt.expect, out.Fields.Name)
			}
			if out.Fields.Score != 0 {
				t.Fatalf("expected score 0, got %d", out.Fields.Score)
			}
			if !candidate.ValidEmail(out.Fields.Email) {
				t.Fatalf("expected normalized email, got %q", out.Fields.Email)
			}
			if tt.detail != "" && !strings.Contains(out.Fields.ParsedText, tt.detail) {
				t.Fatalf("expected parsed text to contain %q, got %q", tt.detail, out.Fields.ParsedText)
			}
		})
	}
}

func TestClassifyParseFailureSnippetIsBounded(t *testing.T) {
	t.Parallel()

	stub := &stubGenerator{response: "not json " + strings.Repeat("x", 5000)}
	c := New(Config{SnippetLength: 50}, stub, zap.NewNop())

	out := c.Classify(context.Background(), resumeText, "jd", "")
	if out.Reason != candidate.ReasonParseFailed {
		t.Fatalf("expected parse failure, got %q", out.Reason)
	}
	if len(out.Fields.ParsedText) > 300 {
		t.Fatalf("expected bounded parsed text, got %d bytes", len(out.Fields.ParsedText))
	}
}

func TestClassifyLogsSchemaDrift(t *testing.T) {
	t.Parallel()

	core, observed := observer.New(zapcore.WarnLevel)
	stub := &stubGenerator{response: `{"name": "Ann", "score": "high"}`}
	c := New(Config{}, stub, zap.New(core))

	out := c.Classify(context.Background(), resumeText, "jd", "")
	if !out.OK() {
		t.Fatalf("schema drift must not turn into a sentinel, got %q", out.Reason)
	}
	if out.Fields.Score != 0 {
		t.Fatalf("expected non-numeric score to normalize to 0, got %d", out.Fields.Score)
	}

	entries := observed.FilterMessage("model response does not match schema").All()
	if len(entries) != 1 {
		t.Fatalf("expected schema drift warning, got %d entries", len(entries))
	}
}
