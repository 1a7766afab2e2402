package submissionservice

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ssuji15/rvsim/internal/cache"
	"github.com/ssuji15/rvsim/internal/db/repository"
	"github.com/ssuji15/rvsim/internal/events"
	"github.com/ssuji15/rvsim/internal/service/logger"
	"github.com/ssuji15/rvsim/internal/storage"
	"github.com/ssuji15/rvsim/internal/util"
	"github.com/ssuji15/rvsim/model"
)

// SubmissionService is the Result Store: durable status records (cached
// read-through) plus the per-submission result documents.
type SubmissionService struct {
	repo      repository.SubmissionRepository
	cache     cache.Cache
	results   storage.ResultStore
	publisher events.Publisher
	now       func() time.Time
}

func NewSubmissionService(r repository.SubmissionRepository, c cache.Cache, s storage.ResultStore, p events.Publisher) *SubmissionService {
	if p == nil {
		p = events.Noop{}
	}
	return &SubmissionService{
		repo:      r,
		cache:     c,
		results:   s,
		publisher: p,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *SubmissionService) CreateSubmission(ctx context.Context, id uuid.UUID, userID int64) (*model.Submission, error) {
	now := s.now()
	sub := &model.Submission{
		ID:        id,
		UserID:    userID,
		Status:    model.StatusAwaiting,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, sub); err != nil {
		return nil, fmt.Errorf("unable to create submission %s: %w", id, err)
	}

	if err := s.cache.Put(ctx, util.GetSubmissionKey(id.String()), sub, s.cache.GetDefaultTTL()); err != nil {
		logger.Log.Error().Err(err).Msg("Unable to add submission to cache")
	}
	s.evict(ctx, util.GetUserSubmissionsKey(userID))
	return sub, nil
}

func (s *SubmissionService) UpdateStatus(ctx context.Context, id uuid.UUID, status model.SubmissionStatus) error {
	if err := s.repo.UpdateStatus(ctx, id, status, s.now()); err != nil {
		return fmt.Errorf("db update failed: %w", err)
	}

	// a stale cached record still names the owner
	sub, err := s.GetSubmission(ctx, id)
	s.evict(ctx, util.GetSubmissionKey(id.String()))
	if err != nil {
		logger.Log.Error().Err(err).Str("submission_id", id.String()).Msg("Unable to find owner of submission")
		return nil
	}
	s.evict(ctx, util.GetUserSubmissionsKey(sub.UserID))
	return nil
}

func (s *SubmissionService) evict(ctx context.Context, key string) {
	if err := s.cache.Delete(ctx, key); err != nil {
		logger.Log.Error().Err(err).Str("key", key).Msg("Unable to evict from cache")
	}
}

func (s *SubmissionService) GetSubmission(ctx context.Context, id uuid.UUID) (*model.Submission, error) {
	key := util.GetSubmissionKey(id.String())

	sub := &model.Submission{}
	if err := s.cache.Get(ctx, key, sub); err == nil {
		return sub, nil
	}

	sub, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve submission %s: %w", id, err)
	}

	if err := s.cache.Put(ctx, key, sub, s.cache.GetDefaultTTL()); err != nil {
		logger.Log.Error().Err(err).Msg("Unable to add submission to cache")
	}
	return sub, nil
}

// userSubmissions is the cached listing of one user, newest first, as read
// with Limit (0 means unbounded).
type userSubmissions struct {
	Limit int
	Items []*model.Submission
}

// covers reports whether the listing answers a read with limit.
func (l *userSubmissions) covers(limit int) bool {
	if l.Limit <= 0 || len(l.Items) < l.Limit {
		return true
	}
	return limit > 0 && limit <= l.Limit
}

// ListSubmissions returns the user's records newest first, read through the
// cache. Creating or updating any of the user's records evicts the listing.
func (s *SubmissionService) ListSubmissions(ctx context.Context, userID int64, limit int) ([]*model.Submission, error) {
	key := util.GetUserSubmissionsKey(userID)

	cached := &userSubmissions{}
	if err := s.cache.Get(ctx, key, cached); err == nil && cached.covers(limit) {
		items := cached.Items
		if limit > 0 && len(items) > limit {
			items = items[:limit]
		}
		return items, nil
	}

	subs, err := s.repo.FindByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("unable to list submissions: %w", err)
	}

	if err := s.cache.Put(ctx, key, userSubmissions{Limit: limit, Items: subs}, s.cache.GetDefaultTTL()); err != nil {
		logger.Log.Error().Err(err).Msg("Unable to add submission listing to cache")
	}
	return subs, nil
}

// GetResult returns the stored result document, or storage.ErrNotFound when
// the submission is unknown or not finished yet.
func (s *SubmissionService) GetResult(ctx context.Context, id uuid.UUID) ([]byte, error) {
	return s.results.GetResult(ctx, id.String())
}

func (s *SubmissionService) PutResult(ctx context.Context, id uuid.UUID, data []byte) error {
	return s.results.PutResult(ctx, id.String(), data)
}

// PublishCompleted is best effort; failures are logged.
func (s *SubmissionService) PublishCompleted(ctx context.Context, id uuid.UUID) {
	if err := s.publisher.PublishEvent(ctx, events.SubmissionCompleted, id.String()); err != nil {
		logger.Log.Error().Err(err).Str("submission_id", id.String()).Msg("Unable to publish completion event")
	}
}
