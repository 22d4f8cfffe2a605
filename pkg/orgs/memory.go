package orgs

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store for tests and local development
type MemoryStore struct {
	mu       sync.RWMutex
	orgs     map[uuid.UUID]*Organization
	seats    map[uuid.UUID][]*Seat
	packages map[uuid.UUID][]*SeatPackage
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orgs:     make(map[uuid.UUID]*Organization),
		seats:    make(map[uuid.UUID][]*Seat),
		packages: make(map[uuid.UUID][]*SeatPackage),
	}
}

// PutOrganization inserts or replaces an organization
func (m *MemoryStore) PutOrganization(org *Organization) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *org
	if copied.CreatedAt.IsZero() {
		copied.CreatedAt = time.Now()
		copied.UpdatedAt = copied.CreatedAt
	}
	m.orgs[org.ID] = &copied
}

// PutSeatPackage inserts or replaces a package by id
func (m *MemoryStore) PutSeatPackage(pkg *SeatPackage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *pkg
	list := m.packages[pkg.OrganizationID]
	for i, existing := range list {
		if existing.ID == pkg.ID {
			list[i] = &copied
			return
		}
	}
	m.packages[pkg.OrganizationID] = append(list, &copied)
}

func (m *MemoryStore) GetOrganization(ctx context.Context, orgID uuid.UUID) (*Organization, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	org, ok := m.orgs[orgID]
	if !ok {
		return nil, ErrOrganizationNotFound
	}
	copied := *org
	return &copied, nil
}

func (m *MemoryStore) ListOrganizationIDs(ctx context.Context, after uuid.UUID, limit int) ([]uuid.UUID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	ids := make([]uuid.UUID, 0, len(m.orgs))
	for id := range m.orgs {
		if bytes.Compare(id[:], after[:]) > 0 {
			ids = append(ids, id)
		}
	}
	m.mu.RUnlock()

	sort.Slice(ids, func(i, j int) bool { return bytes.Compare(ids[i][:], ids[j][:]) < 0 })
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (m *MemoryStore) CountSeats(ctx context.Context, orgID uuid.UUID) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.seats[orgID]), nil
}

func (m *MemoryStore) ListSeats(ctx context.Context, orgID uuid.UUID) ([]*Seat, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Seat, 0, len(m.seats[orgID]))
	for _, s := range m.seats[orgID] {
		copied := *s
		out = append(out, &copied)
	}
	return out, nil
}

func (m *MemoryStore) InsertSeat(ctx context.Context, seat *Seat) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orgs[seat.OrganizationID]; !ok {
		return ErrOrganizationNotFound
	}
	copied := *seat
	m.seats[seat.OrganizationID] = append(m.seats[seat.OrganizationID], &copied)
	return nil
}

func (m *MemoryStore) DeleteSeat(ctx context.Context, orgID, seatID uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.seats[orgID]
	for i, s := range list {
		if s.ID == seatID {
			m.seats[orgID] = append(list[:i:i], list[i+1:]...)
			return nil
		}
	}
	return ErrSeatNotFound
}

func (m *MemoryStore) ListSeatPackages(ctx context.Context, orgID uuid.UUID) ([]*SeatPackage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*SeatPackage, 0, len(m.packages[orgID]))
	for _, p := range m.packages[orgID] {
		copied := *p
		out = append(out, &copied)
	}
	return out, nil
}

func (m *MemoryStore) SetFrozen(ctx context.Context, orgID uuid.UUID, frozen bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	org, ok := m.orgs[orgID]
	if !ok {
		return ErrOrganizationNotFound
	}
	if org.IsFrozen != frozen {
		org.IsFrozen = frozen
		org.UpdatedAt = time.Now()
	}
	return nil
}
