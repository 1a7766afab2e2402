package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/ssuji15/rvsim/model"
)

var ErrNotFound = errors.New("submission not found")

// SubmissionRepository persists the durable status record of each submission.
type SubmissionRepository interface {
	Create(ctx context.Context, s *model.Submission) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.SubmissionStatus, at time.Time) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Submission, error)
	// FindByUser lists a user's submissions, newest first. limit <= 0 means no limit.
	FindByUser(ctx context.Context, userID int64, limit int) ([]*model.Submission, error)
}
