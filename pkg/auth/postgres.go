package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/platinummonkey/gatehouse/pkg/rbac"
	"github.com/platinummonkey/gatehouse/pkg/storage"
)

// PostgresIdentityStore implements IdentityStore on PostgreSQL
type PostgresIdentityStore struct {
	db      *sql.DB
	timeout time.Duration
}

// NewPostgresIdentityStore creates an identity store. Each call is bounded
// by timeout; zero leaves the caller's deadline in charge.
func NewPostgresIdentityStore(db *sql.DB, timeout time.Duration) *PostgresIdentityStore {
	return &PostgresIdentityStore{db: db, timeout: timeout}
}

// GetUser returns the profile and its app-level role
func (s *PostgresIdentityStore) GetUser(ctx context.Context, userID uuid.UUID) (*User, error) {
	ctx, cancel := storage.WithTimeout(ctx, s.timeout)
	defer cancel()

	query := `
		SELECT p.id, p.email, p.display_name, ur.role, p.created_at
		FROM profiles p
		LEFT JOIN user_roles ur ON ur.user_id = p.id
		WHERE p.id = $1
	`

	user := &User{}
	var role sql.NullString
	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&user.ID, &user.Email, &user.DisplayName, &role, &user.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", storage.ClassifyContext(ctx, err))
	}

	if role.Valid {
		appRole := AppRole(role.String)
		user.AppRole = &appRole
	}

	return user, nil
}

// GetMembership returns the user's membership in the organization. A role
// name the evaluator does not know is kept verbatim; it grants nothing.
func (s *PostgresIdentityStore) GetMembership(ctx context.Context, userID, organizationID uuid.UUID) (*rbac.Membership, error) {
	ctx, cancel := storage.WithTimeout(ctx, s.timeout)
	defer cancel()

	query := `
		SELECT role
		FROM organization_members
		WHERE user_id = $1 AND organization_id = $2
	`

	var role string
	err := s.db.QueryRowContext(ctx, query, userID, organizationID).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMembershipNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get membership: %w", storage.ClassifyContext(ctx, err))
	}

	return rbac.NewMembership(userID, organizationID, rbac.Role(role)), nil
}
