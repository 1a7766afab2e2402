// Package memory is a process-local SubmissionRepository for development
// and tests. Records do not survive a restart.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ssuji15/rvsim/internal/db/repository"
	"github.com/ssuji15/rvsim/model"
)

type SubmissionRepository struct {
	mu   sync.RWMutex
	subs map[uuid.UUID]model.Submission
}

func NewSubmissionRepository() *SubmissionRepository {
	return &SubmissionRepository{subs: make(map[uuid.UUID]model.Submission)}
}

func (r *SubmissionRepository) Create(ctx context.Context, s *model.Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.subs[s.ID]; ok {
		return fmt.Errorf("submission %s already exists", s.ID)
	}
	r.subs[s.ID] = *s
	return nil
}

func (r *SubmissionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.SubmissionStatus, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.subs[id]
	if !ok {
		return fmt.Errorf("%s: %w", id, repository.ErrNotFound)
	}
	s.Status = status
	s.UpdatedAt = at
	r.subs[id] = s
	return nil
}

func (r *SubmissionRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Submission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.subs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &s, nil
}

func (r *SubmissionRepository) FindByUser(ctx context.Context, userID int64, limit int) ([]*model.Submission, error) {
	r.mu.RLock()
	out := make([]*model.Submission, 0)
	for _, s := range r.subs {
		if s.UserID == userID {
			s := s
			out = append(out, &s)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() > out[j].ID.String()
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
