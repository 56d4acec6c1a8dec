package messaging

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

const (
	AuditQueue      = "triage_audit_queue"
	RetryDelay      = 5 * time.Second
	MaxConnectRetry = 5
)

var ErrQueueFull = errors.New("queue is full")

type Task interface {
	Type() string

	Payload() []byte

	Ack() error

	Nack() error

	Reject() error
}

// AuditTaskPayload is one prediction to be appended to the audit store. The
// compound fields are already JSON encoded.
type AuditTaskPayload struct {
	TaskId uuid.UUID

	PatId     *int64
	Label     string
	Pred      string
	Payload   string
	Proba     string
	InputUsed string

	CreatedAt time.Time
}

type Publisher interface {
	PublishAuditTask(ctx context.Context, payload AuditTaskPayload) error

	Close()
}

// Reciever delivers queued tasks. After Close no new tasks are accepted, and
// the Tasks channel is closed once the tasks already handed over are drained.
type Reciever interface {
	Tasks() <-chan Task

	Close()
}
