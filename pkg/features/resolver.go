package features

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/platinummonkey/gatehouse/pkg/observability"
	"github.com/platinummonkey/gatehouse/pkg/storage"
)

// Resolver answers flag questions for callers that must not fail
type Resolver struct {
	evaluator Evaluator
	timeout   time.Duration
	logger    *observability.Logger
	metrics   *observability.Metrics
}

// ResolverOption configures a Resolver
type ResolverOption func(*Resolver)

// WithResolverTimeout bounds each evaluation
func WithResolverTimeout(timeout time.Duration) ResolverOption {
	return func(r *Resolver) { r.timeout = timeout }
}

// WithResolverLogger sets the logger
func WithResolverLogger(logger *observability.Logger) ResolverOption {
	return func(r *Resolver) { r.logger = logger }
}

// WithResolverMetrics sets the metrics sink
func WithResolverMetrics(metrics *observability.Metrics) ResolverOption {
	return func(r *Resolver) { r.metrics = metrics }
}

// NewResolver creates a Resolver over evaluator
func NewResolver(evaluator Evaluator, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		evaluator: evaluator,
		timeout:   3 * time.Second,
		logger:    observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// FlagsFor returns the user's flags. It never fails: on any evaluator
// error, timeout or panic it returns an empty, non-nil slice.
func (r *Resolver) FlagsFor(ctx context.Context, userID uuid.UUID) (flags []Flag) {
	if userID == uuid.Nil || r.evaluator == nil {
		return []Flag{}
	}

	defer func() {
		if rec := recover(); rec != nil {
			err := observability.PanicError(rec)
			r.logger.WithError(err).WithField("user_id", userID.String()).Error("Feature flag evaluation panicked")
			r.metrics.RecordFlagEvaluation("panic")
			flags = []Flag{}
		}
	}()

	ctx, cancel := storage.WithTimeout(ctx, r.timeout)
	defer cancel()

	result, err := r.evaluator.Flags(ctx, userID)
	if err != nil {
		r.logger.WithError(err).WithField("user_id", userID.String()).Warn("Feature flag evaluation failed")
		r.metrics.RecordFlagEvaluation("error")
		return []Flag{}
	}

	r.metrics.RecordFlagEvaluation("ok")
	if result == nil {
		return []Flag{}
	}
	return result
}

// HasFlag reports whether the named flag is enabled for the user.
// Unknown flags and evaluation failures yield false.
func (r *Resolver) HasFlag(ctx context.Context, userID uuid.UUID, name string) bool {
	for _, f := range r.FlagsFor(ctx, userID) {
		if f.Name == name {
			return f.Enabled
		}
	}
	return false
}
