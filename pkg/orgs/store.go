package orgs

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	// ErrOrganizationNotFound is returned when no organization has the id
	ErrOrganizationNotFound = errors.New("organization not found")
	// ErrSeatNotFound is returned when the seat does not exist in the organization
	ErrSeatNotFound = errors.New("seat not found")
)

// Store is the persistence the seat manager and sweep depend on.
// Implementations wrap transport failures with storage.ErrUpstreamUnavailable.
type Store interface {
	GetOrganization(ctx context.Context, orgID uuid.UUID) (*Organization, error)
	// ListOrganizationIDs returns up to limit ids greater than after, ascending
	ListOrganizationIDs(ctx context.Context, after uuid.UUID, limit int) ([]uuid.UUID, error)

	CountSeats(ctx context.Context, orgID uuid.UUID) (int, error)
	ListSeats(ctx context.Context, orgID uuid.UUID) ([]*Seat, error)
	// InsertSeat returns ErrOrganizationNotFound when the organization is missing
	InsertSeat(ctx context.Context, seat *Seat) error
	DeleteSeat(ctx context.Context, orgID, seatID uuid.UUID) error

	ListSeatPackages(ctx context.Context, orgID uuid.UUID) ([]*SeatPackage, error)

	SetFrozen(ctx context.Context, orgID uuid.UUID, frozen bool) error
}
