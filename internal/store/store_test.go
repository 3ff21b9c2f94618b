package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giovannicarmo/ecoleta-ui/internal/model"
)

func newTestSQLite(t *testing.T) Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() }) //nolint:errcheck
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func storeTestSuite(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("MigrateIsIdempotent", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Migrate(context.Background()))
	})

	t.Run("LookupRoundTrip", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.SetCachedLookup(ctx, "ibge:states", []byte(`["MG","RJ"]`), time.Hour))

		got, err := s.GetCachedLookup(ctx, "ibge:states")
		require.NoError(t, err)
		assert.JSONEq(t, `["MG","RJ"]`, string(got))
	})

	t.Run("DeleteExpiredLookups", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.SetCachedLookup(ctx, "ibge:cities:MG", []byte(`[]`), -time.Minute))
		require.NoError(t, s.SetCachedLookup(ctx, "ibge:cities:RJ", []byte(`[]`), -time.Minute))
		require.NoError(t, s.SetCachedLookup(ctx, "ibge:states", []byte(`[]`), time.Hour))

		n, err := s.DeleteExpiredLookups(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		got, err := s.GetCachedLookup(ctx, "ibge:states")
		require.NoError(t, err)
		assert.NotNil(t, got)
	})

	t.Run("DeleteExpiredLookups_NoExpired", func(t *testing.T) {
		s := newStore(t)

		n, err := s.DeleteExpiredLookups(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	})

	t.Run("SubmissionKeepsSentinelsAndEmptyItems", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		p := model.PointPayload{UF: "0", City: "0", Latitude: -21.7775479, Longitude: -43.3597565, Items: []int{}}
		sub, err := s.CreateSubmission(ctx, p)
		require.NoError(t, err)

		got, err := s.GetSubmission(ctx, sub.ID)
		require.NoError(t, err)
		assert.Equal(t, p, got.Payload)
		assert.Equal(t, model.SubmissionStatusPending, got.Status)
	})

	t.Run("CompleteSubmission_NotFound", func(t *testing.T) {
		s := newStore(t)

		err := s.CompleteSubmission(context.Background(), "nonexistent", model.SubmissionStatusCreated, "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})

	t.Run("ListSubmissions_Pagination", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		for i := 0; i < 5; i++ {
			p := model.PointPayload{Name: string(rune('A' + i)), Items: []int{i}}
			_, err := s.CreateSubmission(ctx, p)
			require.NoError(t, err)
		}

		page1, err := s.ListSubmissions(ctx, SubmissionFilter{Limit: 2})
		require.NoError(t, err)
		assert.Len(t, page1, 2)

		page3, err := s.ListSubmissions(ctx, SubmissionFilter{Limit: 2, Offset: 4})
		require.NoError(t, err)
		assert.Len(t, page3, 1)

		all, err := s.ListSubmissions(ctx, SubmissionFilter{})
		require.NoError(t, err)
		assert.Len(t, all, 5)
	})
}

func TestSQLiteStore(t *testing.T) {
	storeTestSuite(t, newTestSQLite)
}

func TestListLimit(t *testing.T) {
	assert.Equal(t, 100, listLimit(SubmissionFilter{}))
	assert.Equal(t, 100, listLimit(SubmissionFilter{Limit: -1}))
	assert.Equal(t, 7, listLimit(SubmissionFilter{Limit: 7}))
}
