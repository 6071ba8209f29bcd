package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	_ "embed"

	"github.com/spigell/resume-intake/internal/ai"
	"github.com/spigell/resume-intake/internal/candidate"
	"github.com/spigell/resume-intake/internal/logger"
	"github.com/spigell/resume-intake/internal/utils"
	"go.uber.org/zap"
)

//go:embed prompt.md
var promptTemplate string

const (
	defaultContextBudget = 30000
	defaultSafetyMargin  = 1000
	defaultMaxLogLength  = 200
	defaultSnippetLength = 200

	truncationMarker = "\n...[resume truncated]"
	noGuidance       = "none"
)

// Config is the explicit configuration of a Classifier.
type Config struct {
	// Provider is only used to label log entries.
	Provider string
	// ContextBudget is the number of runes the whole prompt may occupy.
	ContextBudget int
	// SafetyMargin is kept free below ContextBudget. Zero selects the
	// default margin, a negative value disables it.
	SafetyMargin  int
	MaxLogLength  int
	SnippetLength int
}

// Classifier scores a resume against a job description and recruiter
// guidance. It never returns an error: every failure becomes a sentinel
// outcome.
type Classifier struct {
	cfg       Config
	generator ai.Generator
	schema    *responseSchema
	logger    *zap.Logger
}

// New creates a Classifier. A nil generator is treated as an unconfigured
// language model.
func New(cfg Config, generator ai.Generator, log *zap.Logger) *Classifier {
	if cfg.ContextBudget <= 0 {
		cfg.ContextBudget = defaultContextBudget
	}
	switch {
	case cfg.SafetyMargin == 0:
		cfg.SafetyMargin = defaultSafetyMargin
	case cfg.SafetyMargin < 0:
		cfg.SafetyMargin = 0
	}
	if cfg.MaxLogLength <= 0 {
		cfg.MaxLogLength = defaultMaxLogLength
	}
	if cfg.SnippetLength <= 0 {
		cfg.SnippetLength = defaultSnippetLength
	}

	model := ""
	if generator != nil {
		model = generator.Model()
	}

	schema, err := compileResponseSchema()
	if err != nil {
		// The schema is embedded, so this only happens on a broken build.
		panic(err)
	}

	return &Classifier{
		cfg:       cfg,
		generator: generator,
		schema:    schema,
		logger:    logger.WithCommonFields(log, cfg.Provider, model),
	}
}

// Classify builds the scoring prompt, asks the model and turns its answer
// into a normalized candidate outcome.
func (c *Classifier) Classify(ctx context.Context, documentText, jobDescription, recruiterGuidance string) candidate.Outcome {
	if c.generator == nil {
		return candidate.Sentinel(candidate.ReasonAPIKeyMissing, "Language model is not configured. Set an API key and retry.")
	}

	fallbackEmail, hasFallback := candidate.ExtractEmail(documentText)

	prompt := c.buildPrompt(documentText, jobDescription, recruiterGuidance)

	c.logger.Debug("generate content request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.Preview(prompt, c.cfg.MaxLogLength)),
	)

	raw, err := c.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return c.failure(err)
	}

	c.logger.Debug("generate content response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.Preview(raw, c.cfg.MaxLogLength)),
	)

	if strings.TrimSpace(raw) == "" {
		return candidate.Sentinel(candidate.ReasonNoResponse, "Language model returned no response.")
	}

	cleaned := CleanResponse(raw)
	if cleaned == "" {
		return candidate.Sentinel(candidate.ReasonEmptyResponse, "Language model response was empty after cleanup.")
	}

	data, err := parseObject(cleaned)
	if err != nil {
		snippet := utils.Preview(cleaned, c.cfg.SnippetLength)
		c.logger.Warn("parse model response", zap.Error(err), zap.String("response_preview", snippet))
		return candidate.Sentinel(candidate.ReasonParseFailed,
			fmt.Sprintf("Failed to parse AI response: %v. Response snippet: %s", err, snippet))
	}

	if err := c.schema.validate(data); err != nil {
		c.logger.Warn("model response does not match schema", zap.Error(err))
	}

	extraction := candidate.DecodeExtraction(data)
	if hasFallback {
		extraction.Email = fallbackEmail
	}

	return candidate.Ok(candidate.Normalize(extraction))
}

func (c *Classifier) failure(err error) candidate.Outcome {
	switch {
	case errors.Is(err, ai.ErrUnavailable):
		c.logger.Error("language model unavailable", zap.Error(err))
		return candidate.Sentinel(candidate.ReasonAPIKeyMissing, fmt.Sprintf("Language model unavailable: %v", err))
	case isContentBlocked(err):
		c.logger.Warn("language model blocked content", zap.Error(err))
		return candidate.Sentinel(candidate.ReasonContentBlocked, fmt.Sprintf("Content blocked by safety filters: %v", err))
	default:
		c.logger.Warn("language model request failed", zap.Error(err))
		return candidate.Sentinel(candidate.ReasonNoResponse, fmt.Sprintf("Language model request failed: %v", err))
	}
}

func isContentBlocked(err error) bool {
	if errors.Is(err, ai.ErrContentBlocked) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "safety") || strings.Contains(msg, "content blocked")
}

func parseObject(cleaned string) (map[string]any, error) {
	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, err
	}
	if data == nil {
		return nil, errors.New("response is not a JSON object")
	}
	return data, nil
}

// buildPrompt renders the template, shortening the resume so that the whole
// prompt stays within the context budget. The job description and guidance
// are never shortened.
func (c *Classifier) buildPrompt(documentText, jobDescription, recruiterGuidance string) string {
	jobDescription = strings.TrimSpace(jobDescription)
	recruiterGuidance = strings.TrimSpace(recruiterGuidance)
	if recruiterGuidance == "" {
		recruiterGuidance = noGuidance
	}
	documentText = strings.TrimSpace(documentText)

	overhead := utf8.RuneCountInString(renderPrompt(jobDescription, recruiterGuidance, ""))
	available := c.cfg.ContextBudget - c.cfg.SafetyMargin - overhead

	if length := utf8.RuneCountInString(documentText); length > available {
		documentText = truncate(documentText, available)
		c.logger.Warn("resume text truncated to fit context budget",
			zap.Int("original_length", length),
			zap.Int("available", available),
		)
	}

	return renderPrompt(jobDescription, recruiterGuidance, documentText)
}

func truncate(text string, limit int) string {
	keep := limit - utf8.RuneCountInString(truncationMarker)
	if keep <= 0 {
		return strings.TrimSpace(truncationMarker)
	}
	runes := []rune(text)
	return string(runes[:keep]) + truncationMarker
}

func renderPrompt(jobDescription, recruiterGuidance, documentText string) string {
	replacer := strings.NewReplacer(
		"{{JOB_DESCRIPTION}}", jobDescription,
		"{{RECRUITER_GUIDANCE}}", recruiterGuidance,
		"{{RESUME_TEXT}}", documentText,
	)
	return replacer.Replace(promptTemplate)
}
