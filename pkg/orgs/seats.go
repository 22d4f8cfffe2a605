package orgs

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/platinummonkey/gatehouse/pkg/observability"
	"github.com/platinummonkey/gatehouse/pkg/storage"
	"github.com/platinummonkey/gatehouse/pkg/validation"
)

// SeatManager tracks seat allocation against seat packages and keeps each
// organization's frozen flag in line with it.
type SeatManager struct {
	store     Store
	validator *validation.Validator
	timeout   time.Duration
	now       func() time.Time
	logger    *observability.Logger
	metrics   *observability.Metrics
}

// SeatManagerOption configures a SeatManager
type SeatManagerOption func(*SeatManager)

// WithTimeout bounds each SeatManager operation
func WithTimeout(timeout time.Duration) SeatManagerOption {
	return func(m *SeatManager) { m.timeout = timeout }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) SeatManagerOption {
	return func(m *SeatManager) { m.now = now }
}

// WithLogger sets the logger
func WithLogger(logger *observability.Logger) SeatManagerOption {
	return func(m *SeatManager) { m.logger = logger }
}

// WithMetrics sets the metrics sink
func WithMetrics(metrics *observability.Metrics) SeatManagerOption {
	return func(m *SeatManager) { m.metrics = metrics }
}

// WithValidator replaces the default input validator
func WithValidator(v *validation.Validator) SeatManagerOption {
	return func(m *SeatManager) { m.validator = v }
}

// NewSeatManager creates a SeatManager over store
func NewSeatManager(store Store, opts ...SeatManagerOption) *SeatManager {
	m := &SeatManager{
		store:     store,
		validator: validation.NewValidator(nil),
		timeout:   3 * time.Second,
		now:       time.Now,
		logger:    observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// EffectiveLimitAt sums the seat limits of packages active at t.
// Negative limits count as zero.
func EffectiveLimitAt(packages []*SeatPackage, t time.Time) int {
	limit := 0
	for _, p := range packages {
		if p.ActiveAt(t) && p.SeatLimit > 0 {
			limit += p.SeatLimit
		}
	}
	return limit
}

// EffectiveLimit returns the organization's current seat limit
func (m *SeatManager) EffectiveLimit(ctx context.Context, orgID uuid.UUID) (int, error) {
	ctx, cancel := storage.WithTimeout(ctx, m.timeout)
	defer cancel()

	packages, err := m.store.ListSeatPackages(ctx, orgID)
	if err != nil {
		return 0, fmt.Errorf("failed to list seat packages: %w", storage.ClassifyContext(ctx, err))
	}
	return EffectiveLimitAt(packages, m.now()), nil
}

// Organization loads one organization
func (m *SeatManager) Organization(ctx context.Context, orgID uuid.UUID) (*Organization, error) {
	ctx, cancel := storage.WithTimeout(ctx, m.timeout)
	defer cancel()

	org, err := m.store.GetOrganization(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", storage.ClassifyContext(ctx, err))
	}
	return org, nil
}

// IsFrozen returns the stored frozen flag
func (m *SeatManager) IsFrozen(ctx context.Context, orgID uuid.UUID) (bool, error) {
	org, err := m.Organization(ctx, orgID)
	if err != nil {
		return false, err
	}
	return org.IsFrozen, nil
}

// RecomputeFrozen sets frozen = seat count > effective limit, persists it
// and returns the new value. Running it again without a change in seats,
// packages or time yields the same flag.
func (m *SeatManager) RecomputeFrozen(ctx context.Context, orgID uuid.UUID) (bool, error) {
	_, frozen, err := m.recompute(ctx, orgID)
	return frozen, err
}

// PackageChanged recomputes after a package was added, renewed, expired or
// cancelled.
func (m *SeatManager) PackageChanged(ctx context.Context, orgID uuid.UUID) (bool, error) {
	return m.RecomputeFrozen(ctx, orgID)
}

func (m *SeatManager) recompute(ctx context.Context, orgID uuid.UUID) (before, after bool, err error) {
	ctx, cancel := storage.WithTimeout(ctx, m.timeout)
	defer cancel()

	org, err := m.store.GetOrganization(ctx, orgID)
	if err != nil {
		return false, false, fmt.Errorf("failed to get organization: %w", storage.ClassifyContext(ctx, err))
	}

	count, err := m.store.CountSeats(ctx, orgID)
	if err != nil {
		return false, false, fmt.Errorf("failed to count seats: %w", storage.ClassifyContext(ctx, err))
	}

	packages, err := m.store.ListSeatPackages(ctx, orgID)
	if err != nil {
		return false, false, fmt.Errorf("failed to list seat packages: %w", storage.ClassifyContext(ctx, err))
	}

	limit := EffectiveLimitAt(packages, m.now())
	frozen := count > limit

	if err := m.store.SetFrozen(ctx, orgID, frozen); err != nil {
		return false, false, fmt.Errorf("failed to persist frozen flag: %w", storage.ClassifyContext(ctx, err))
	}

	if org.IsFrozen != frozen {
		m.logger.WithFields(map[string]interface{}{
			"org_id":     orgID.String(),
			"seat_count": count,
			"seat_limit": limit,
			"frozen":     frozen,
		}).Info("Organization frozen state changed")
		m.metrics.RecordFreezeTransition(frozen)
	}

	return org.IsFrozen, frozen, nil
}

// Usage reports seat count, limit and both the stored and the currently
// derived frozen state.
func (m *SeatManager) Usage(ctx context.Context, orgID uuid.UUID) (*SeatUsage, error) {
	ctx, cancel := storage.WithTimeout(ctx, m.timeout)
	defer cancel()

	org, err := m.store.GetOrganization(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", storage.ClassifyContext(ctx, err))
	}
	count, err := m.store.CountSeats(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to count seats: %w", storage.ClassifyContext(ctx, err))
	}
	packages, err := m.store.ListSeatPackages(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list seat packages: %w", storage.ClassifyContext(ctx, err))
	}

	limit := EffectiveLimitAt(packages, m.now())
	available := limit - count
	if available < 0 {
		available = 0
	}

	return &SeatUsage{
		OrganizationID: orgID,
		SeatCount:      count,
		EffectiveLimit: limit,
		Available:      available,
		OverCapacity:   count > limit,
		IsFrozen:       org.IsFrozen,
		Packages:       packages,
	}, nil
}

// ListSeats returns the organization's seats
func (m *SeatManager) ListSeats(ctx context.Context, orgID uuid.UUID) ([]*Seat, error) {
	ctx, cancel := storage.WithTimeout(ctx, m.timeout)
	defer cancel()

	seats, err := m.store.ListSeats(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list seats: %w", storage.ClassifyContext(ctx, err))
	}
	return seats, nil
}

// CreateSeat validates req, inserts the seat and recomputes the frozen
// flag. Capacity is not enforced here: an insert past the limit succeeds
// and freezes the organization.
//
// When the recompute after a successful insert fails, the seat is still
// returned; the next mutation or sweep converges the flag.
func (m *SeatManager) CreateSeat(ctx context.Context, orgID uuid.UUID, req CreateSeatRequest) (*Seat, error) {
	result := m.validator.Validate(
		m.validator.UUIDv4("occupant_id", req.OccupantID),
		m.validator.Label("label", req.Label),
	)
	if !result.Valid {
		return nil, result.Err()
	}

	occupantID, _ := validation.ParseUUIDv4("occupant_id", req.OccupantID)
	label, _ := m.validator.NormalizeLabel("label", req.Label)

	seat := &Seat{
		ID:             uuid.New(),
		OrganizationID: orgID,
		OccupantID:     occupantID,
		Label:          label,
		CreatedAt:      m.now().UTC(),
	}

	insertCtx, cancel := storage.WithTimeout(ctx, m.timeout)
	err := m.store.InsertSeat(insertCtx, seat)
	if err != nil {
		err = storage.ClassifyContext(insertCtx, err)
	}
	cancel()
	if err != nil {
		return nil, fmt.Errorf("failed to create seat: %w", err)
	}

	m.recomputeAfterMutation(ctx, orgID, "create")
	return seat, nil
}

// RemoveSeat deletes the seat and recomputes the frozen flag, which may
// unfreeze the organization.
func (m *SeatManager) RemoveSeat(ctx context.Context, orgID, seatID uuid.UUID) error {
	deleteCtx, cancel := storage.WithTimeout(ctx, m.timeout)
	err := m.store.DeleteSeat(deleteCtx, orgID, seatID)
	if err != nil {
		err = storage.ClassifyContext(deleteCtx, err)
	}
	cancel()
	if err != nil {
		return fmt.Errorf("failed to remove seat: %w", err)
	}

	m.recomputeAfterMutation(ctx, orgID, "remove")
	return nil
}

func (m *SeatManager) recomputeAfterMutation(ctx context.Context, orgID uuid.UUID, op string) {
	if _, err := m.RecomputeFrozen(ctx, orgID); err != nil {
		m.logger.WithError(err).WithFields(map[string]interface{}{
			"org_id":    orgID.String(),
			"operation": op,
		}).Warn("Frozen flag recompute failed after seat mutation")
		m.metrics.RecordRecomputeFailure()
	}
}
