package features

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/gatehouse/pkg/storage"
)

func TestPostgresEvaluator_Flags(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	userID := uuid.New()
	mock.ExpectQuery("SELECT name, enabled FROM get_feature_flags\\(\\$1\\)").
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"name", "enabled"}).
			AddRow("visitor_passes", true).
			AddRow("package_lockers", false))

	flags, err := NewPostgresEvaluator(db, time.Second).Flags(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, []Flag{{Name: "visitor_passes", Enabled: true}, {Name: "package_lockers", Enabled: false}}, flags)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresEvaluator_UnknownUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("get_feature_flags").
		WillReturnRows(sqlmock.NewRows([]string{"name", "enabled"}))

	flags, err := NewPostgresEvaluator(db, time.Second).Flags(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.NotNil(t, flags)
	assert.Empty(t, flags)
}

func TestPostgresEvaluator_ConnectionFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("get_feature_flags").
		WillReturnError(&pq.Error{Code: "08006"})

	_, err = NewPostgresEvaluator(db, time.Second).Flags(context.Background(), uuid.New())
	assert.ErrorIs(t, err, storage.ErrUpstreamUnavailable)
}
