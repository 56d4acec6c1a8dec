package integrationtests

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"triage-backend/internal/audit"
	"triage-backend/internal/core"
	"triage-backend/internal/database"
	"triage-backend/internal/messaging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEntry(patientId any) audit.Entry {
	row := core.NewFeatureRow([]string{"patient_age", "temperature_signal"})
	row.Set("patient_age", 64.0)
	return audit.Entry{
		PatientId: patientId,
		Label:     "Emergent",
		Pred:      int64(0),
		Row:       row,
		Proba:     map[string]float64{"0": 0.9, "1": 0.05, "2": 0.05},
		InputUsed: row.NonEmpty(),
	}
}

func TestRabbitMQ(t *testing.T) {
	skipShort(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	url := setupRabbitMQContainer(t, ctx)

	publisher, err := messaging.NewRabbitMQPublisher(url)
	require.NoError(t, err)
	defer publisher.Close()

	receiver, err := messaging.NewRabbitMQReceiver(url)
	require.NoError(t, err)
	defer receiver.Close()

	payload, err := audit.NewAuditTask(testEntry("3"), time.Now())
	require.NoError(t, err)
	require.NoError(t, publisher.PublishAuditTask(ctx, payload))

	select {
	case task := <-receiver.Tasks():
		assert.Equal(t, messaging.AuditQueue, task.Type())

		var received messaging.AuditTaskPayload
		require.NoError(t, json.Unmarshal(task.Payload(), &received))
		assert.Equal(t, payload.TaskId, received.TaskId)
		assert.Equal(t, payload.PatId, received.PatId)
		assert.JSONEq(t, payload.Payload, received.Payload)
		assert.True(t, payload.CreatedAt.Equal(received.CreatedAt))

		require.NoError(t, task.Ack())
	case <-time.After(10 * time.Second):
		t.Fatal("Timed out waiting for task")
	}
}

func TestAuditThroughRabbitMQ(t *testing.T) {
	skipShort(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	db := createDB(t)
	url := setupRabbitMQContainer(t, ctx)

	publisher, err := messaging.NewRabbitMQPublisher(url)
	require.NoError(t, err)
	defer publisher.Close()

	receiver, err := messaging.NewRabbitMQReceiver(url)
	require.NoError(t, err)

	writer := audit.NewWriter(db, receiver, 2)
	writer.Start()
	defer writer.Stop()

	recorder := audit.NewQueueRecorder(publisher)
	recorder.Record(ctx, testEntry("7"))
	recorder.Record(ctx, testEntry(7))
	recorder.Record(ctx, testEntry("None"))

	require.Eventually(t, func() bool {
		var count int64
		if err := db.Model(&database.TriageAnalysis{}).Count(&count).Error; err != nil {
			return false
		}
		return count == 3
	}, 20*time.Second, 200*time.Millisecond)

	analyses, err := database.ListTriageAnalyses(ctx, db, 7)
	require.NoError(t, err)
	require.Len(t, analyses, 2)
	assert.Equal(t, "Emergent", analyses[0].Label)
	assert.Equal(t, "0", analyses[0].Pred)
	assert.JSONEq(t, `{"patient_age": 64, "temperature_signal": null}`, string(analyses[0].PayloadJson))
	assert.JSONEq(t, `{"patient_age": 64}`, string(analyses[0].InputUsedJson))

	counts, err := database.CountTriageAnalyses(ctx, db, []int64{7, 8})
	require.NoError(t, err)
	assert.Equal(t, map[int64]int64{7: 2}, counts)
}
