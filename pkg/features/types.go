package features

import (
	"context"

	"github.com/google/uuid"
)

// Flag is one evaluated feature flag for a user
type Flag struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

// Evaluator computes the flags that apply to a user
type Evaluator interface {
	Flags(ctx context.Context, userID uuid.UUID) ([]Flag, error)
}

// EvaluatorFunc adapts a function to Evaluator
type EvaluatorFunc func(ctx context.Context, userID uuid.UUID) ([]Flag, error)

// Flags calls f
func (f EvaluatorFunc) Flags(ctx context.Context, userID uuid.UUID) ([]Flag, error) {
	return f(ctx, userID)
}
