package orgs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/platinummonkey/gatehouse/pkg/storage"
)

// foreignKeyViolation is the SQLSTATE for a missing referenced row
const foreignKeyViolation pq.ErrorCode = "23503"

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	db      *sql.DB
	timeout time.Duration
}

// NewPostgresStore creates a new PostgresStore. Each call is bounded by timeout.
func NewPostgresStore(db *sql.DB, timeout time.Duration) *PostgresStore {
	return &PostgresStore{db: db, timeout: timeout}
}

// GetOrganization retrieves an organization by ID
func (s *PostgresStore) GetOrganization(ctx context.Context, orgID uuid.UUID) (*Organization, error) {
	ctx, cancel := storage.WithTimeout(ctx, s.timeout)
	defer cancel()

	query := `
		SELECT id, name, org_type, is_frozen, created_at, updated_at
		FROM organizations
		WHERE id = $1
	`
	org := &Organization{}
	err := s.db.QueryRowContext(ctx, query, orgID).Scan(
		&org.ID, &org.Name, &org.Type, &org.IsFrozen, &org.CreatedAt, &org.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrganizationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", storage.ClassifyContext(ctx, err))
	}
	return org, nil
}

// ListOrganizationIDs pages through organization ids in ascending order
func (s *PostgresStore) ListOrganizationIDs(ctx context.Context, after uuid.UUID, limit int) ([]uuid.UUID, error) {
	ctx, cancel := storage.WithTimeout(ctx, s.timeout)
	defer cancel()

	query := `
		SELECT id
		FROM organizations
		WHERE id > $1
		ORDER BY id
		LIMIT $2
	`
	rows, err := s.db.QueryContext(ctx, query, after, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", storage.ClassifyContext(ctx, err))
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0, limit)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan organization id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", storage.ClassifyContext(ctx, err))
	}
	return ids, nil
}

// CountSeats returns the number of seats in the organization
func (s *PostgresStore) CountSeats(ctx context.Context, orgID uuid.UUID) (int, error) {
	ctx, cancel := storage.WithTimeout(ctx, s.timeout)
	defer cancel()

	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM seats WHERE organization_id = $1`, orgID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count seats: %w", storage.ClassifyContext(ctx, err))
	}
	return count, nil
}

// ListSeats returns the organization's seats, oldest first
func (s *PostgresStore) ListSeats(ctx context.Context, orgID uuid.UUID) ([]*Seat, error) {
	ctx, cancel := storage.WithTimeout(ctx, s.timeout)
	defer cancel()

	query := `
		SELECT id, organization_id, occupant_id, label, created_at
		FROM seats
		WHERE organization_id = $1
		ORDER BY created_at, id
	`
	rows, err := s.db.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list seats: %w", storage.ClassifyContext(ctx, err))
	}
	defer rows.Close()

	seats := make([]*Seat, 0)
	for rows.Next() {
		seat := &Seat{}
		if err := rows.Scan(&seat.ID, &seat.OrganizationID, &seat.OccupantID, &seat.Label, &seat.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan seat: %w", err)
		}
		seats = append(seats, seat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list seats: %w", storage.ClassifyContext(ctx, err))
	}
	return seats, nil
}

// InsertSeat stores a new seat
func (s *PostgresStore) InsertSeat(ctx context.Context, seat *Seat) error {
	ctx, cancel := storage.WithTimeout(ctx, s.timeout)
	defer cancel()

	query := `
		INSERT INTO seats (id, organization_id, occupant_id, label, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.db.ExecContext(ctx, query, seat.ID, seat.OrganizationID, seat.OccupantID, seat.Label, seat.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == foreignKeyViolation {
			return ErrOrganizationNotFound
		}
		return fmt.Errorf("failed to insert seat: %w", storage.ClassifyContext(ctx, err))
	}
	return nil
}

// DeleteSeat removes a seat from the organization
func (s *PostgresStore) DeleteSeat(ctx context.Context, orgID, seatID uuid.UUID) error {
	ctx, cancel := storage.WithTimeout(ctx, s.timeout)
	defer cancel()

	result, err := s.db.ExecContext(ctx, `DELETE FROM seats WHERE id = $1 AND organization_id = $2`, seatID, orgID)
	if err != nil {
		return fmt.Errorf("failed to delete seat: %w", storage.ClassifyContext(ctx, err))
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete seat: %w", err)
	}
	if affected == 0 {
		return ErrSeatNotFound
	}
	return nil
}

// ListSeatPackages returns every package of the organization regardless of status
func (s *PostgresStore) ListSeatPackages(ctx context.Context, orgID uuid.UUID) ([]*SeatPackage, error) {
	ctx, cancel := storage.WithTimeout(ctx, s.timeout)
	defer cancel()

	query := `
		SELECT id, organization_id, seat_limit, valid_from, valid_until, status, created_at
		FROM seat_packages
		WHERE organization_id = $1
		ORDER BY created_at, id
	`
	rows, err := s.db.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list seat packages: %w", storage.ClassifyContext(ctx, err))
	}
	defer rows.Close()

	packages := make([]*SeatPackage, 0)
	for rows.Next() {
		pkg := &SeatPackage{}
		var validFrom, validUntil sql.NullTime
		if err := rows.Scan(&pkg.ID, &pkg.OrganizationID, &pkg.SeatLimit, &validFrom, &validUntil, &pkg.Status, &pkg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan seat package: %w", err)
		}
		if validFrom.Valid {
			pkg.ValidFrom = &validFrom.Time
		}
		if validUntil.Valid {
			pkg.ValidUntil = &validUntil.Time
		}
		packages = append(packages, pkg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list seat packages: %w", storage.ClassifyContext(ctx, err))
	}
	return packages, nil
}

// SetFrozen persists the frozen flag. updated_at only moves on a change.
func (s *PostgresStore) SetFrozen(ctx context.Context, orgID uuid.UUID, frozen bool) error {
	ctx, cancel := storage.WithTimeout(ctx, s.timeout)
	defer cancel()

	query := `
		UPDATE organizations
		SET is_frozen = $2,
		    updated_at = CASE WHEN is_frozen <> $2 THEN NOW() ELSE updated_at END
		WHERE id = $1
	`
	result, err := s.db.ExecContext(ctx, query, orgID, frozen)
	if err != nil {
		return fmt.Errorf("failed to set frozen flag: %w", storage.ClassifyContext(ctx, err))
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to set frozen flag: %w", err)
	}
	if affected == 0 {
		return ErrOrganizationNotFound
	}
	return nil
}
