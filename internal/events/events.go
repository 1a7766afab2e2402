package events

import "context"

type Event string

const (
	SubmissionCompleted Event = "events.submission.completed"
)

// Publisher announces lifecycle events of a submission. Payload is the id.
type Publisher interface {
	PublishEvent(ctx context.Context, event Event, id string) error
	ShutDown(ctx context.Context)
}

// Noop drops every event.
type Noop struct{}

func (Noop) PublishEvent(ctx context.Context, event Event, id string) error { return nil }

func (Noop) ShutDown(ctx context.Context) {}
