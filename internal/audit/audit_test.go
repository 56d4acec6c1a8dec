package audit

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"triage-backend/internal/core"
	"triage-backend/internal/database"
	"triage-backend/internal/messaging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"gorm.io/gorm"
)

func createDB(t *testing.T) *gorm.DB {
	db, err := database.NewDatabase("file::memory:")
	require.NoError(t, err)
	require.NoError(t, database.GetMigrator(db).Migrate())
	return db
}

type failingPublisher struct {
	calls int
}

func (p *failingPublisher) PublishAuditTask(ctx context.Context, payload messaging.AuditTaskPayload) error {
	p.calls++
	return assert.AnError
}

func (p *failingPublisher) Close() {}

type panickingPublisher struct{}

func (p *panickingPublisher) PublishAuditTask(ctx context.Context, payload messaging.AuditTaskPayload) error {
	panic("publisher exploded")
}

func (p *panickingPublisher) Close() {}

type fakeTask struct {
	queue   string
	payload []byte

	acked, nacked, rejected bool
}

func (t *fakeTask) Type() string    { return t.queue }
func (t *fakeTask) Payload() []byte { return t.payload }
func (t *fakeTask) Ack() error      { t.acked = true; return nil }
func (t *fakeTask) Nack() error     { t.nacked = true; return nil }
func (t *fakeTask) Reject() error   { t.rejected = true; return nil }

// chanReciever hands out pre-loaded tasks and closes its channel on Close.
type chanReciever struct {
	tasks chan messaging.Task
	once  sync.Once
}

func (r *chanReciever) Tasks() <-chan messaging.Task { return r.tasks }
func (r *chanReciever) Close()                       { r.once.Do(func() { close(r.tasks) }) }

func testEntry(patientId any) Entry {
	row := core.NewFeatureRow([]string{"patient_age", "patient_sexe", "heart_rate_signal"})
	row.Set("patient_age", 42.0)
	row.Set("patient_sexe", "F")
	return Entry{
		PatientId: patientId,
		Label:     "Urgent",
		Pred:      int64(2),
		Row:       row,
		Proba:     map[string]float64{"0": 0.1, "1": 0.2, "2": 0.7},
		InputUsed: row.NonEmpty(),
	}
}

func TestNormalizePatientId(t *testing.T) {
	for _, tc := range []struct {
		in       any
		expected *int64
	}{
		{"12", ptr(12)},
		{"007", ptr(7)},
		{12.0, ptr(12)},
		{json.Number("12"), ptr(12)},
		{json.Number("12.0"), ptr(12)},
		{json.Number("12.5"), nil},
		{int64(12), ptr(12)},
		{12, ptr(12)},
		{"", nil},
		{"null", nil},
		{"None", nil},
		{"12a", nil},
		{"-3", nil},
		{" 12", nil},
		{12.5, nil},
		{true, nil},
		{nil, nil},
		{map[string]any{}, nil},
	} {
		assert.Equal(t, tc.expected, NormalizePatientId(tc.in), "%#v", tc.in)
	}
}

func ptr(v int64) *int64 {
	return &v
}

func TestNewAuditTask(t *testing.T) {
	createdAt := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	task, err := NewAuditTask(testEntry("12"), createdAt)
	require.NoError(t, err)
	assert.Equal(t, ptr(12), task.PatId)
	assert.Equal(t, "2", task.Pred)
	assert.Equal(t, `{"patient_age":42,"patient_sexe":"F","heart_rate_signal":null}`, task.Payload)
	assert.Equal(t, `{"patient_age":42,"patient_sexe":"F"}`, task.InputUsed)
	assert.JSONEq(t, `{"0":0.1,"1":0.2,"2":0.7}`, task.Proba)
	assert.Equal(t, createdAt, task.CreatedAt)

	entry := testEntry(nil)
	entry.Proba = nil
	entry.Pred = "Urgent"
	task, err = NewAuditTask(entry, createdAt)
	require.NoError(t, err)
	assert.Nil(t, task.PatId)
	assert.Equal(t, "Urgent", task.Pred)
	assert.Equal(t, "{}", task.Proba)
}

func TestRecordNeverFails(t *testing.T) {
	publisher := &failingPublisher{}
	recorder := NewQueueRecorder(publisher)

	assert.NotPanics(t, func() {
		recorder.Record(context.Background(), testEntry("1"))
	})
	assert.Equal(t, 1, publisher.calls)

	assert.NotPanics(t, func() {
		NewQueueRecorder(&panickingPublisher{}).Record(context.Background(), testEntry("1"))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	queue := messaging.NewInMemoryQueue(1)
	defer queue.Close()
	NewQueueRecorder(queue).Record(ctx, testEntry("1"))
	assert.Len(t, queue.Tasks(), 1)
}

func TestRecordFullQueueDrops(t *testing.T) {
	queue := messaging.NewInMemoryQueue(1)
	defer queue.Close()
	recorder := NewQueueRecorder(queue)

	recorder.Record(context.Background(), testEntry("1"))
	recorder.Record(context.Background(), testEntry("2"))
	assert.Len(t, queue.Tasks(), 1)
}

func TestWriterPersistsEntries(t *testing.T) {
	db := createDB(t)
	queue := messaging.NewInMemoryQueue(10)

	writer := NewWriter(db, queue, 2)
	writer.Start()

	recorder := NewQueueRecorder(queue)
	recorder.Record(context.Background(), testEntry("5"))
	recorder.Record(context.Background(), testEntry(5))
	recorder.Record(context.Background(), testEntry("not-an-id"))

	writer.Stop()

	analyses, err := database.ListTriageAnalyses(context.Background(), db, 5)
	require.NoError(t, err)
	require.Len(t, analyses, 2)
	assert.Equal(t, "Urgent", analyses[0].Label)
	assert.Equal(t, "2", analyses[0].Pred)
	assert.JSONEq(t, `{"patient_age":42,"patient_sexe":"F"}`, string(analyses[0].InputUsedJson))

	var total int64
	require.NoError(t, db.Model(&database.TriageAnalysis{}).Count(&total).Error)
	assert.Equal(t, int64(3), total)
}

func TestWriterDatabaseFailure(t *testing.T) {
	db := createDB(t)
	require.NoError(t, db.Migrator().DropTable(&database.TriageAnalysis{}))

	writer := NewWriter(db, messaging.NewInMemoryQueue(1), 1)

	task, err := NewAuditTask(testEntry("1"), time.Now())
	require.NoError(t, err)
	data, err := json.Marshal(task)
	require.NoError(t, err)

	ft := &fakeTask{queue: messaging.AuditQueue, payload: data}
	assert.NotPanics(t, func() { writer.ProcessTask(ft) })
	assert.True(t, ft.nacked)
	assert.False(t, ft.acked)
}

func TestWriterRejectsBadTasks(t *testing.T) {
	writer := NewWriter(createDB(t), messaging.NewInMemoryQueue(1), 1)

	malformed := &fakeTask{queue: messaging.AuditQueue, payload: []byte("{")}
	writer.ProcessTask(malformed)
	assert.True(t, malformed.rejected)

	unknown := &fakeTask{queue: "other_queue", payload: []byte("{}")}
	writer.ProcessTask(unknown)
	assert.True(t, unknown.rejected)
}

func TestWriterStopReleasesWorkers(t *testing.T) {
	db := createDB(t)
	ignore := goleak.IgnoreCurrent()

	queue := messaging.NewInMemoryQueue(10)
	writer := NewWriter(db, queue, 4)
	writer.Start()

	NewQueueRecorder(queue).Record(context.Background(), testEntry("3"))
	writer.Stop()
	writer.Stop()

	goleak.VerifyNone(t, ignore)

	count, err := database.CountTriageAnalyses(context.Background(), db, []int64{3})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count[3])
}

func TestWriterStopDrainsAnyReciever(t *testing.T) {
	db := createDB(t)
	ignore := goleak.IgnoreCurrent()

	reciever := &chanReciever{tasks: make(chan messaging.Task, 5)}
	var sent []*fakeTask
	for i := 0; i < 5; i++ {
		task, err := NewAuditTask(testEntry(int64(7)), time.Now())
		require.NoError(t, err)
		data, err := json.Marshal(task)
		require.NoError(t, err)

		ft := &fakeTask{queue: messaging.AuditQueue, payload: data}
		sent = append(sent, ft)
		reciever.tasks <- ft
	}

	writer := NewWriter(db, reciever, 2)
	writer.Start()
	writer.Stop()

	goleak.VerifyNone(t, ignore)

	for _, ft := range sent {
		assert.True(t, ft.acked)
	}
	count, err := database.CountTriageAnalyses(context.Background(), db, []int64{7})
	require.NoError(t, err)
	assert.Equal(t, int64(5), count[7])
}
