package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"time"

	"triage-backend/internal/core"
	"triage-backend/internal/messaging"

	"github.com/google/uuid"
)

const publishTimeout = 5 * time.Second

// Entry is one successful prediction to be kept in the audit trail.
type Entry struct {
	// PatientId is the raw pat_id field of the request payload.
	PatientId any

	Label     string
	Pred      any
	Row       core.FeatureRow
	Proba     map[string]float64
	InputUsed core.FeatureRow
}

// Recorder persists audit entries on a best effort basis. Record never fails
// and never panics; problems are logged and the entry is dropped.
type Recorder interface {
	Record(ctx context.Context, entry Entry)
}

// NormalizePatientId accepts a digit-only string or an integral JSON number.
// Everything else, including "", "null" and "None", yields nil.
func NormalizePatientId(v any) *int64 {
	var id int64
	switch x := v.(type) {
	case string:
		if x == "" {
			return nil
		}
		for _, c := range x {
			if c < '0' || c > '9' {
				return nil
			}
		}
		parsed, err := strconv.ParseInt(x, 10, 64)
		if err != nil {
			return nil
		}
		id = parsed
	case json.Number:
		if parsed, err := x.Int64(); err == nil {
			id = parsed
			break
		}
		f, err := x.Float64()
		if err != nil {
			return nil
		}
		return NormalizePatientId(f)
	case float64:
		if x != math.Trunc(x) || math.IsInf(x, 0) || x > math.MaxInt64 || x < math.MinInt64 {
			return nil
		}
		id = int64(x)
	case int:
		id = int64(x)
	case int32:
		id = int64(x)
	case int64:
		id = x
	default:
		return nil
	}
	return &id
}

// NewAuditTask encodes an entry for the audit queue. A nil probability map
// is stored as an empty object.
func NewAuditTask(entry Entry, createdAt time.Time) (messaging.AuditTaskPayload, error) {
	proba := entry.Proba
	if proba == nil {
		proba = map[string]float64{}
	}

	payload, err := json.Marshal(entry.Row)
	if err != nil {
		return messaging.AuditTaskPayload{}, fmt.Errorf("error encoding feature row: %w", err)
	}
	probaJson, err := json.Marshal(proba)
	if err != nil {
		return messaging.AuditTaskPayload{}, fmt.Errorf("error encoding probabilities: %w", err)
	}
	inputUsed, err := json.Marshal(entry.InputUsed)
	if err != nil {
		return messaging.AuditTaskPayload{}, fmt.Errorf("error encoding input used: %w", err)
	}

	return messaging.AuditTaskPayload{
		TaskId:    uuid.New(),
		PatId:     NormalizePatientId(entry.PatientId),
		Label:     entry.Label,
		Pred:      fmt.Sprint(entry.Pred),
		Payload:   string(payload),
		Proba:     string(probaJson),
		InputUsed: string(inputUsed),
		CreatedAt: createdAt.UTC(),
	}, nil
}

// QueueRecorder hands entries to a publisher, to be written by a Writer.
type QueueRecorder struct {
	publisher messaging.Publisher
}

func NewQueueRecorder(publisher messaging.Publisher) *QueueRecorder {
	return &QueueRecorder{publisher: publisher}
}

func (r *QueueRecorder) Record(ctx context.Context, entry Entry) {
	defer func() {
		if p := recover(); p != nil {
			slog.Error("panic while recording triage analysis", "panic", p)
		}
	}()

	task, err := NewAuditTask(entry, time.Now())
	if err != nil {
		slog.Error("error encoding triage analysis", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := r.publisher.PublishAuditTask(ctx, task); err != nil {
		slog.Error("error publishing triage analysis, dropping it", "task_id", task.TaskId, "pat_id", task.PatId, "error", err)
		return
	}
}
