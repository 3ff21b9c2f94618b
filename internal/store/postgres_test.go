package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giovannicarmo/ecoleta-ui/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS lookup_cache`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetCachedLookup_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT data FROM lookup_cache WHERE key = \$1`).
		WithArgs("ibge:states").
		WillReturnError(pgx.ErrNoRows)

	data, err := s.GetCachedLookup(context.Background(), "ibge:states")
	require.NoError(t, err)
	assert.Nil(t, data)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetCachedLookup_Hit(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT data FROM lookup_cache`).
		WithArgs("ibge:states").
		WillReturnRows(mock.NewRows([]string{"data"}).AddRow([]byte(`["MG"]`)))

	data, err := s.GetCachedLookup(context.Background(), "ibge:states")
	require.NoError(t, err)
	assert.Equal(t, `["MG"]`, string(data))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetCachedLookup_Error(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT data FROM lookup_cache`).
		WithArgs("k").
		WillReturnError(errors.New("connection lost"))

	_, err := s.GetCachedLookup(context.Background(), "k")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres: get cached lookup")
}

func TestPostgresStore_SetCachedLookup(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO lookup_cache`).
		WithArgs("ibge:states", []byte(`["MG"]`), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.SetCachedLookup(context.Background(), "ibge:states", []byte(`["MG"]`), time.Hour))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteExpiredLookups(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`DELETE FROM lookup_cache WHERE expires_at <= now\(\)`).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	n, err := s.DeleteExpiredLookups(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestPostgresStore_CreateSubmission(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO submissions`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), "pending", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	sub, err := s.CreateSubmission(context.Background(), samplePayload())
	require.NoError(t, err)
	assert.NotEmpty(t, sub.ID)
	assert.Equal(t, model.SubmissionStatusPending, sub.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CompleteSubmission_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE submissions SET status = \$1`).
		WithArgs("created", "", pgxmock.AnyArg(), "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.CompleteSubmission(context.Background(), "missing", model.SubmissionStatusCreated, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "submission not found")
}

func TestPostgresStore_GetSubmission(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()
	payload, _ := json.Marshal(samplePayload())

	mock.ExpectQuery(`SELECT id, payload, status, error, created_at, updated_at FROM submissions WHERE id = \$1`).
		WithArgs("sub-1").
		WillReturnRows(mock.NewRows([]string{"id", "payload", "status", "error", "created_at", "updated_at"}).
			AddRow("sub-1", payload, "created", "", now, now))

	sub, err := s.GetSubmission(context.Background(), "sub-1")
	require.NoError(t, err)
	assert.Equal(t, "sub-1", sub.ID)
	assert.Equal(t, model.SubmissionStatusCreated, sub.Status)
	assert.Equal(t, samplePayload(), sub.Payload)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetSubmission_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, payload, status, error, created_at, updated_at FROM submissions`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetSubmission(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "get submission")
}

func TestPostgresStore_ListSubmissions_WithStatus(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()
	payload, _ := json.Marshal(samplePayload())

	mock.ExpectQuery(`SELECT .* FROM submissions WHERE status = \$1 ORDER BY created_at DESC LIMIT \$2 OFFSET \$3`).
		WithArgs("failed", 10, 0).
		WillReturnRows(mock.NewRows([]string{"id", "payload", "status", "error", "created_at", "updated_at"}).
			AddRow("a", payload, "failed", "boom", now, now).
			AddRow("b", payload, "failed", "boom", now, now))

	subs, err := s.ListSubmissions(context.Background(), SubmissionFilter{Status: model.SubmissionStatusFailed, Limit: 10})
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, "boom", subs[0].Error)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListSubmissions_DefaultLimit(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT .* FROM submissions ORDER BY created_at DESC LIMIT \$1 OFFSET \$2`).
		WithArgs(100, 0).
		WillReturnRows(mock.NewRows([]string{"id", "payload", "status", "error", "created_at", "updated_at"}))

	subs, err := s.ListSubmissions(context.Background(), SubmissionFilter{})
	require.NoError(t, err)
	assert.Empty(t, subs)
	assert.NoError(t, mock.ExpectationsWereMet())
}
