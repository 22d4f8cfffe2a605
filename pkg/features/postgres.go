package features

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/platinummonkey/gatehouse/pkg/storage"
)

// PostgresEvaluator evaluates flags with the get_feature_flags database function
type PostgresEvaluator struct {
	db      *sql.DB
	timeout time.Duration
}

// NewPostgresEvaluator creates a PostgresEvaluator. db may be a read replica.
func NewPostgresEvaluator(db *sql.DB, timeout time.Duration) *PostgresEvaluator {
	return &PostgresEvaluator{db: db, timeout: timeout}
}

// Flags returns the flags the database resolves for the user. An unknown
// user yields an empty list.
func (e *PostgresEvaluator) Flags(ctx context.Context, userID uuid.UUID) ([]Flag, error) {
	ctx, cancel := storage.WithTimeout(ctx, e.timeout)
	defer cancel()

	rows, err := e.db.QueryContext(ctx, `SELECT name, enabled FROM get_feature_flags($1)`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate feature flags: %w", storage.ClassifyContext(ctx, err))
	}
	defer rows.Close()

	flags := make([]Flag, 0)
	for rows.Next() {
		var f Flag
		if err := rows.Scan(&f.Name, &f.Enabled); err != nil {
			return nil, fmt.Errorf("failed to scan feature flag: %w", err)
		}
		flags = append(flags, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to evaluate feature flags: %w", storage.ClassifyContext(ctx, err))
	}
	return flags, nil
}
