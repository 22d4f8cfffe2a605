package orgs

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/gatehouse/pkg/observability"
	"github.com/platinummonkey/gatehouse/pkg/storage"
)

// SweepReport summarizes one sweep run
type SweepReport struct {
	Scanned   int           `json:"scanned"`
	Frozen    int           `json:"frozen"`
	Unfrozen  int           `json:"unfrozen"`
	Failed    int           `json:"failed"`
	Resumed   bool          `json:"resumed"`
	Completed bool          `json:"completed"`
	Duration  time.Duration `json:"duration"`
}

// Transitions is the number of organizations whose flag flipped
func (r *SweepReport) Transitions() int {
	return r.Frozen + r.Unfrozen
}

// Sweeper recomputes the frozen flag of every organization. Packages expire
// without any write, so only a periodic pass catches them.
//
// The sweeper pages over organization ids in ascending order and remembers
// the last fully processed page. A run that is cancelled part way resumes
// from there; a completed run resets the cursor. Without a CursorStore the
// cursor lives in this Sweeper only, so resuming works within one process.
type Sweeper struct {
	store       Store
	seats       *SeatManager
	pageSize    int
	concurrency int
	logger      *observability.Logger
	metrics     *observability.Metrics
	cursors     CursorStore

	mu     sync.Mutex
	cursor uuid.UUID
}

// SweeperConfig configures a Sweeper
type SweeperConfig struct {
	PageSize    int
	Concurrency int
	// Cursors persists the resume point across processes; optional
	Cursors CursorStore
}

// DefaultSweeperConfig returns the default sweeper configuration
func DefaultSweeperConfig() SweeperConfig {
	return SweeperConfig{
		PageSize:    200,
		Concurrency: 8,
	}
}

// NewSweeper creates a Sweeper
func NewSweeper(store Store, seats *SeatManager, cfg SweeperConfig, logger *observability.Logger, metrics *observability.Metrics) *Sweeper {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultSweeperConfig().PageSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Sweeper{
		store:       store,
		seats:       seats,
		pageSize:    cfg.PageSize,
		concurrency: cfg.Concurrency,
		logger:      logger,
		metrics:     metrics,
		cursors:     cfg.Cursors,
	}
}

// Cursor returns the id after which the next run starts
func (s *Sweeper) Cursor() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

func (s *Sweeper) setCursor(ctx context.Context, id uuid.UUID) {
	s.mu.Lock()
	s.cursor = id
	s.mu.Unlock()

	if s.cursors == nil {
		return
	}
	// ctx may already be cancelled here
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()
	if err := s.cursors.SaveCursor(saveCtx, id); err != nil {
		s.logger.WithError(err).Warn("Failed to persist sweep cursor")
	}
}

// startCursor prefers the persisted cursor and falls back to the in-memory
// one when the store is unavailable.
func (s *Sweeper) startCursor(ctx context.Context) uuid.UUID {
	if s.cursors != nil {
		cursor, err := s.cursors.LoadCursor(ctx)
		if err == nil {
			s.mu.Lock()
			s.cursor = cursor
			s.mu.Unlock()
			return cursor
		}
		s.logger.WithError(err).Warn("Failed to load sweep cursor, using in-memory cursor")
	}
	return s.Cursor()
}

// Run sweeps all organizations. Per-organization failures are logged and
// counted; Run only returns an error when listing ids fails or ctx ends.
func (s *Sweeper) Run(ctx context.Context) (*SweepReport, error) {
	ctx, span := observability.Tracer("pkg/orgs").Start(ctx, "orgs.sweep")
	defer span.End()

	start := time.Now()
	cursor := s.startCursor(ctx)
	report := &SweepReport{Resumed: cursor != uuid.Nil}

	var frozen, unfrozen, failed, scanned atomic.Int64

	finish := func(result string, err error) (*SweepReport, error) {
		report.Scanned = int(scanned.Load())
		report.Frozen = int(frozen.Load())
		report.Unfrozen = int(unfrozen.Load())
		report.Failed = int(failed.Load())
		report.Duration = time.Since(start)

		span.SetAttributes(
			attribute.Int("sweep.scanned", report.Scanned),
			attribute.Int("sweep.failed", report.Failed),
			attribute.Int("sweep.transitions", report.Transitions()),
			attribute.Bool("sweep.resumed", report.Resumed),
		)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		s.metrics.RecordSweep(result, report.Duration, report.Scanned, report.Failed)

		s.logger.WithFields(map[string]interface{}{
			"scanned":   report.Scanned,
			"frozen":    report.Frozen,
			"unfrozen":  report.Unfrozen,
			"failed":    report.Failed,
			"resumed":   report.Resumed,
			"completed": report.Completed,
			"duration":  report.Duration.String(),
		}).Info("Freeze sweep finished")
		return report, err
	}

	for {
		if err := ctx.Err(); err != nil {
			return finish("interrupted", err)
		}

		ids, err := s.store.ListOrganizationIDs(ctx, cursor, s.pageSize)
		if err != nil {
			err = fmt.Errorf("failed to list organizations: %w", storage.ClassifyContext(ctx, err))
			return finish("error", err)
		}
		if len(ids) == 0 {
			break
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.concurrency)
		for _, id := range ids {
			g.Go(func() error {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				scanned.Add(1)
				before, after, err := s.seats.recompute(gctx, id)
				if err != nil {
					failed.Add(1)
					s.logger.WithError(err).WithField("org_id", id.String()).Warn("Freeze sweep failed for organization")
					return nil
				}
				switch {
				case !before && after:
					frozen.Add(1)
				case before && !after:
					unfrozen.Add(1)
				}
				return nil
			})
		}
		_ = g.Wait()

		if err := ctx.Err(); err != nil {
			// the page may be partial, so the cursor stays before it
			return finish("interrupted", err)
		}

		cursor = ids[len(ids)-1]
		s.setCursor(ctx, cursor)

		if len(ids) < s.pageSize {
			break
		}
	}

	report.Completed = true
	s.setCursor(ctx, uuid.Nil)
	return finish("success", nil)
}
