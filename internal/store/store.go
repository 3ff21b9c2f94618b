package store

import (
	"context"
	"time"

	"github.com/giovannicarmo/ecoleta-ui/internal/model"
)

// SubmissionFilter specifies criteria for listing submissions.
type SubmissionFilter struct {
	Status model.SubmissionStatus `json:"status,omitempty"`
	Limit  int                    `json:"limit,omitempty"`
	Offset int                    `json:"offset,omitempty"`
}

// Store defines the persistence interface for lookup caching and the
// submission journal.
type Store interface {
	// Lookup cache
	GetCachedLookup(ctx context.Context, key string) ([]byte, error)
	SetCachedLookup(ctx context.Context, key string, data []byte, ttl time.Duration) error
	DeleteExpiredLookups(ctx context.Context) (int, error)

	// Submission journal
	CreateSubmission(ctx context.Context, p model.PointPayload) (*model.Submission, error)
	CompleteSubmission(ctx context.Context, id string, status model.SubmissionStatus, errMsg string) error
	GetSubmission(ctx context.Context, id string) (*model.Submission, error)
	ListSubmissions(ctx context.Context, filter SubmissionFilter) ([]model.Submission, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

func listLimit(filter SubmissionFilter) int {
	if filter.Limit <= 0 {
		return 100
	}
	return filter.Limit
}
