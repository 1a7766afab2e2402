package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/ssuji15/rvsim/internal/db"
	"github.com/ssuji15/rvsim/internal/job_tracer"
	"github.com/ssuji15/rvsim/internal/util"
	"github.com/ssuji15/rvsim/model"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type PostgresSubmissionRepository struct {
	db *db.DB
}

func NewSubmissionRepository(db *db.DB) *PostgresSubmissionRepository {
	return &PostgresSubmissionRepository{db: db}
}

func (r *PostgresSubmissionRepository) Create(ctx context.Context, s *model.Submission) error {
	ctx, span := job_tracer.GetTracer().Start(ctx, "Postgres/CreateSubmission")
	defer span.End()

	span.AddEvent("submission.context",
		trace.WithAttributes(attribute.String("id", s.ID.String())),
	)

	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO submissions (id, user_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`, s.ID, s.UserID, string(s.Status), s.CreatedAt, s.UpdatedAt)
	if err != nil {
		util.RecordSpanError(span, err)
		return err
	}
	return nil
}

func (r *PostgresSubmissionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.SubmissionStatus, at time.Time) error {
	ctx, span := job_tracer.GetTracer().Start(ctx, "Postgres/UpdateSubmissionStatus")
	defer span.End()

	span.AddEvent("submission.context",
		trace.WithAttributes(attribute.String("status", string(status)), attribute.String("id", id.String())),
	)

	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE submissions
		SET status = $2, updated_at = $3
		WHERE id = $1
	`, id, string(status), at)
	if err != nil {
		util.RecordSpanError(span, err)
		return err
	}
	if tag.RowsAffected() == 0 {
		err := fmt.Errorf("%s: %w", id, ErrNotFound)
		util.RecordSpanError(span, err)
		return err
	}
	return nil
}

func (r *PostgresSubmissionRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Submission, error) {
	ctx, span := job_tracer.GetTracer().Start(ctx, "Postgres/GetSubmission")
	defer span.End()

	row := r.db.Pool.QueryRow(ctx, `
		SELECT id, user_id, status, created_at, updated_at
		FROM submissions
		WHERE id = $1
	`, id)

	s, err := scanSubmission(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		util.RecordSpanError(span, err)
		return nil, err
	}
	return s, nil
}

func (r *PostgresSubmissionRepository) FindByUser(ctx context.Context, userID int64, limit int) ([]*model.Submission, error) {
	ctx, span := job_tracer.GetTracer().Start(ctx, "Postgres/ListSubmissions")
	defer span.End()

	query := `
		SELECT id, user_id, status, created_at, updated_at
		FROM submissions
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		util.RecordSpanError(span, err)
		return nil, err
	}
	defer rows.Close()

	subs := make([]*model.Submission, 0)
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			util.RecordSpanError(span, err)
			return nil, err
		}
		subs = append(subs, s)
	}
	if err := rows.Err(); err != nil {
		util.RecordSpanError(span, err)
		return nil, err
	}
	return subs, nil
}

func scanSubmission(row pgx.Row) (*model.Submission, error) {
	var (
		s      model.Submission
		status string
	)
	if err := row.Scan(&s.ID, &s.UserID, &status, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	s.Status = model.SubmissionStatus(status)
	return &s, nil
}
