package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"triage-backend/internal/database"
	"triage-backend/internal/messaging"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Writer drains the audit queue with a fixed number of workers, appending one
// triage_analysis row per task.
type Writer struct {
	db       *gorm.DB
	reciever messaging.Reciever
	workers  int

	wg   sync.WaitGroup
	once sync.Once
}

func NewWriter(db *gorm.DB, reciever messaging.Reciever, workers int) *Writer {
	if workers <= 0 {
		workers = 1
	}
	return &Writer{
		db:       db,
		reciever: reciever,
		workers:  workers,
	}
}

func (w *Writer) Start() {
	slog.Info("starting audit writer", "workers", w.workers)

	w.wg.Add(w.workers)
	for i := 0; i < w.workers; i++ {
		go func() {
			defer w.wg.Done()
			w.run()
		}()
	}
}

func (w *Writer) run() {
	for task := range w.reciever.Tasks() {
		w.ProcessTask(task)
	}
}

// Stop closes the reciever and waits for the workers to write whatever it
// still delivers.
func (w *Writer) Stop() {
	w.once.Do(func() {
		slog.Info("stopping audit writer")
		w.reciever.Close()
		w.wg.Wait()
	})
}

func (w *Writer) ProcessTask(task messaging.Task) {
	if task.Type() != messaging.AuditQueue {
		slog.Error("received unknown task type", "queue", task.Type())
		if err := task.Reject(); err != nil {
			slog.Error("error rejecting message from queue", "error", err)
		}
		return
	}

	var payload messaging.AuditTaskPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		slog.Error("error unmarshalling audit task", "error", err)
		if err := task.Reject(); err != nil {
			slog.Error("error rejecting message from queue", "error", err)
		}
		return
	}

	analysis := &database.TriageAnalysis{
		PatId:         payload.PatId,
		Label:         payload.Label,
		Pred:          payload.Pred,
		PayloadJson:   datatypes.JSON(payload.Payload),
		ProbaJson:     datatypes.JSON(payload.Proba),
		InputUsedJson: datatypes.JSON(payload.InputUsed),
		CreatedAt:     payload.CreatedAt,
	}

	if err := database.InsertTriageAnalysis(context.Background(), w.db, analysis); err != nil {
		slog.Error("error writing triage analysis, dropping it", "task_id", payload.TaskId, "error", err)
		if err := task.Nack(); err != nil {
			slog.Error("error reporting processing failure on message from queue", "error", err)
		}
		return
	}

	if err := task.Ack(); err != nil {
		slog.Error("error acknowledging message from queue", "error", err)
	}
}
