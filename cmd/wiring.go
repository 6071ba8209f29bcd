package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/resume-intake/internal/ai"
	"github.com/spigell/resume-intake/internal/ai/gemini"
	"github.com/spigell/resume-intake/internal/classifier"
	"github.com/spigell/resume-intake/internal/extract"
	"github.com/spigell/resume-intake/internal/filtering"
	"github.com/spigell/resume-intake/internal/pipeline"
	"github.com/spigell/resume-intake/internal/secrets"
	"github.com/spigell/resume-intake/internal/storage"
	"github.com/spigell/resume-intake/internal/storage/memory"
	"github.com/spigell/resume-intake/internal/storage/postgres"
	"github.com/spigell/resume-intake/internal/storage/s3storage"
	"github.com/spigell/resume-intake/internal/storage/sqlite"
)

const geminiAPIKeyEnv = "GEMINI_API_KEY"

// newGenerator returns nil without an error when no API key is configured,
// so every document is reported as "API Key Missing" instead of failing the
// whole command.
func newGenerator(ctx context.Context, cfg *AIConfig, logger *zap.Logger) (ai.Generator, error) {
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != "gemini" {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	if cfg.Gemini == nil {
		cfg.Gemini = &GeminiConfig{}
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		File:  cfg.Gemini.APIKeyFile,
		Value: cfg.Gemini.APIKey,
		Env:   geminiAPIKeyEnv,
	})
	if errors.Is(err, secrets.ErrNotConfigured) {
		logger.Warn("language model is not configured",
			zap.Error(err),
			zap.String("hint", "set ai.gemini.api-key-file, GEMINI_API_KEY_FILE or GEMINI_API_KEY"),
		)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	genLogger := logger.With(zap.Int("ai_retry_attempts", cfg.Gemini.MaxRetries))

	generator, err := gemini.NewGenerator(ctx, gemini.Options{
		APIKey:     apiKey,
		Model:      cfg.Gemini.Model,
		MaxRetries: cfg.Gemini.MaxRetries,
		Timeout:    cfg.Gemini.Timeout,
	}, genLogger)
	if err != nil {
		return nil, err
	}

	return generator, nil
}

func newClassifier(cfg *AIConfig, generator ai.Generator, logger *zap.Logger) *classifier.Classifier {
	maxLogLength := 0
	if cfg.Gemini != nil {
		maxLogLength = cfg.Gemini.MaxLogLength
	}

	return classifier.New(classifier.Config{
		Provider:      cfg.Provider,
		ContextBudget: cfg.ContextBudget,
		SafetyMargin:  cfg.SafetyMargin,
		MaxLogLength:  maxLogLength,
	}, generator, logger.Named("classifier"))
}

func openRepository(ctx context.Context, cfg *DocumentsConfig, logger *zap.Logger) (storage.Repository, error) {
	driver := strings.TrimSpace(strings.ToLower(cfg.Driver))
	logger.Info("opening candidate store", zap.String("driver", driver))

	switch driver {
	case "", "sqlite":
		store, err := sqlite.Open(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "postgres", "postgresql":
		store, err := postgres.Open(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "memory":
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unsupported document store driver: %s", cfg.Driver)
	}
}

// newBlobStore returns nil when uploads are disabled.
func newBlobStore(ctx context.Context, cfg *BlobsConfig, logger *zap.Logger) (storage.BlobStore, error) {
	if cfg == nil {
		return nil, nil
	}

	switch strings.TrimSpace(strings.ToLower(cfg.Driver)) {
	case "", "none":
		logger.Info("blob uploads disabled")
		return nil, nil
	case "s3", "minio":
		store, err := s3storage.New(s3storage.Config{
			Endpoint:      cfg.Endpoint,
			AccessKey:     cfg.AccessKey,
			SecretKey:     cfg.SecretKey,
			Bucket:        cfg.Bucket,
			Region:        cfg.Region,
			UseSSL:        cfg.UseSSL,
			PublicBaseURL: cfg.PublicBaseURL,
			URLTTL:        cfg.URLTTL,
		})
		if err != nil {
			return nil, err
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		logger.Info("blob uploads enabled", zap.String("endpoint", cfg.Endpoint), zap.String("bucket", cfg.Bucket))
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported blob store driver: %s", cfg.Driver)
	}
}

// components holds everything a batch needs. Close releases the store.
type components struct {
	repo     storage.Repository
	pipeline *pipeline.Pipeline
}

func (c *components) Close() error {
	if c.repo == nil {
		return nil
	}
	return c.repo.Close()
}

func buildComponents(ctx context.Context, config *Config, logger *zap.Logger) (*components, error) {
	if config.Batch == nil || config.AI == nil || config.Storage == nil || config.Storage.Documents == nil {
		return nil, errors.New("incomplete configuration")
	}

	generator, err := newGenerator(ctx, config.AI, logger)
	if err != nil {
		return nil, fmt.Errorf("building language model client: %w", err)
	}

	repo, err := openRepository(ctx, config.Storage.Documents, logger)
	if err != nil {
		return nil, fmt.Errorf("opening candidate store: %w", err)
	}

	blobs, err := newBlobStore(ctx, config.Storage.Blobs, logger)
	if err != nil {
		repo.Close()
		return nil, fmt.Errorf("opening blob store: %w", err)
	}

	filters := filtering.Default(config.Batch.MaxFileBytes, logger.Named("filtering"))
	for _, status := range filters.Describe() {
		logger.Debug("admission filter",
			zap.String("name", status.Name),
			zap.Bool("enabled", status.Enabled),
			zap.String("reason", status.Reason),
			zap.Any("details", status.Details),
		)
	}

	p := pipeline.New(pipeline.Config{
		GroupSize:      config.Batch.GroupSize,
		GroupDelay:     config.Batch.GroupDelay,
		MinTextLength:  config.Batch.MinTextLength,
		ExtractTimeout: config.Batch.ExtractTimeout,
	}, pipeline.Deps{
		Extractor:  extract.NewPDF(config.Batch.ExtractTimeout),
		Classifier: newClassifier(config.AI, generator, logger),
		Store:      storage.NewAdapter(repo, blobs, logger.Named("storage")),
		Filters:    filters,
		Logger:     logger,
	})

	return &components{repo: repo, pipeline: p}, nil
}
