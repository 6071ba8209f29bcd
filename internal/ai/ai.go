package ai

import (
	"context"
	"errors"
)

var (
	// ErrUnavailable is returned when the language model cannot be used at all:
	// it is not configured, unreachable or rejects the credentials.
	ErrUnavailable = errors.New("language model unavailable")
	// ErrEmptyResponse is returned when the model answered without any text.
	ErrEmptyResponse = errors.New("language model returned empty response")
	// ErrContentBlocked is returned when the model refused the prompt or the
	// answer on content-safety grounds.
	ErrContentBlocked = errors.New("language model blocked content")
)

// Generator turns a prompt into raw model text.
type Generator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
	Model() string
}
