//go:build integration
// +build integration

package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/ssuji15/rvsim/internal/config"
	"github.com/ssuji15/rvsim/internal/db"
	"github.com/ssuji15/rvsim/internal/testinfra"
	"github.com/ssuji15/rvsim/model"
)

var testDB *db.DB

func TestMain(m *testing.M) {
	ctx := context.Background()
	container, url, err := testinfra.StartPostgres(ctx)
	if err != nil {
		panic(err)
	}

	testDB, err = db.New(ctx, &config.PostgresConfig{URL: url})
	if err != nil {
		panic(err)
	}
	if err := testDB.ApplySchema(ctx); err != nil {
		panic(err)
	}

	code := m.Run()
	testDB.Close()
	_ = container.Terminate(ctx)
	os.Exit(code)
}

func truncate(t *testing.T) {
	t.Helper()
	_, err := testDB.Pool.Exec(context.Background(), `TRUNCATE submissions`)
	require.NoError(t, err)
}

func newSubmission(userID int64, created time.Time) *model.Submission {
	return &model.Submission{
		ID:        uuid.Must(uuid.NewV7()),
		UserID:    userID,
		Status:    model.StatusAwaiting,
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func TestSubmissionRepository_CreateAndFindByID(t *testing.T) {
	truncate(t)
	ctx := context.Background()
	repo := NewSubmissionRepository(testDB)

	s := newSubmission(11, time.Now().UTC().Truncate(time.Microsecond))
	require.NoError(t, repo.Create(ctx, s))

	got, err := repo.FindByID(ctx, s.ID)
	require.NoError(t, err)
	require.Equal(t, s.ID, got.ID)
	require.Equal(t, s.UserID, got.UserID)
	require.Equal(t, model.StatusAwaiting, got.Status)
	require.True(t, s.CreatedAt.Equal(got.CreatedAt))

	require.Error(t, repo.Create(ctx, s), "duplicate id must be rejected")

	_, err = repo.FindByID(ctx, uuid.New())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSubmissionRepository_UpdateStatus(t *testing.T) {
	truncate(t)
	ctx := context.Background()
	repo := NewSubmissionRepository(testDB)

	s := newSubmission(11, time.Now().UTC().Truncate(time.Microsecond))
	require.NoError(t, repo.Create(ctx, s))

	for _, status := range []model.SubmissionStatus{model.StatusInProgress, model.StatusCompleted} {
		at := time.Now().UTC().Truncate(time.Microsecond)
		require.NoError(t, repo.UpdateStatus(ctx, s.ID, status, at))

		got, err := repo.FindByID(ctx, s.ID)
		require.NoError(t, err)
		require.Equal(t, status, got.Status)
		require.True(t, at.Equal(got.UpdatedAt))
	}

	require.ErrorIs(t, repo.UpdateStatus(ctx, uuid.New(), model.StatusCompleted, time.Now()), ErrNotFound)
}

func TestSubmissionRepository_FindByUser(t *testing.T) {
	truncate(t)
	ctx := context.Background()
	repo := NewSubmissionRepository(testDB)

	base := time.Now().UTC().Truncate(time.Microsecond)
	first := newSubmission(1, base)
	second := newSubmission(1, base.Add(time.Second))
	third := newSubmission(1, base.Add(2*time.Second))
	other := newSubmission(2, base)
	for _, s := range []*model.Submission{first, second, third, other} {
		require.NoError(t, repo.Create(ctx, s))
	}

	tests := []struct {
		name   string
		userID int64
		limit  int
		want   []uuid.UUID
	}{
		{"all newest first", 1, 0, []uuid.UUID{third.ID, second.ID, first.ID}},
		{"limit", 1, 2, []uuid.UUID{third.ID, second.ID}},
		{"other user", 2, 0, []uuid.UUID{other.ID}},
		{"no submissions", 99, 0, []uuid.UUID{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.FindByUser(ctx, tt.userID, tt.limit)
			require.NoError(t, err)

			ids := make([]uuid.UUID, 0, len(got))
			for _, s := range got {
				ids = append(ids, s.ID)
			}
			require.Equal(t, tt.want, ids)
		})
	}
}
