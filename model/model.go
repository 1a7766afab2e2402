package model

import (
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

type SubmissionStatus string

const (
	StatusAwaiting   SubmissionStatus = "AWAITING"
	StatusInProgress SubmissionStatus = "IN_PROGRESS"
	StatusCompleted  SubmissionStatus = "COMPLETED"
)

// Submission is the durable record kept for every accepted job.
type Submission struct {
	ID        uuid.UUID        `db:"id" json:"id" msgpack:"id"`
	UserID    int64            `db:"user_id" json:"userId" msgpack:"user_id"`
	Status    SubmissionStatus `db:"status" json:"status" msgpack:"status"`
	CreatedAt time.Time        `db:"created_at" json:"createdAt" msgpack:"created_at"`
	UpdatedAt time.Time        `db:"updated_at" json:"updatedAt" msgpack:"updated_at"`
}

// User is the authenticated submitter, decoded from the session token.
type User struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
	Name  string `json:"name,omitempty"`
}

// SubmitRequest is the decoded multipart payload of POST /api/submit.
type SubmitRequest struct {
	Ticks uint32
	Code  []byte
}

type SubmitResponse struct {
	ID uuid.UUID `json:"id"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// SubmissionTask is an accepted job waiting for, or owned by, a pipeline worker.
type SubmissionTask struct {
	ID         uuid.UUID
	User       User
	Ticks      uint32
	Code       []byte
	EnqueuedAt time.Time
	// Origin links the pipeline span back to the request that admitted the job.
	Origin trace.SpanContext
}
