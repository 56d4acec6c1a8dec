package integrationtests

import (
	"context"
	"testing"
	"time"

	"triage-backend/internal/database"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/minio"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/modules/rabbitmq"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"
)

const (
	minioUsername = "admin"
	minioPassword = "password"

	hospitalDB = "hospital_db"
)

func skipShort(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode.")
	}
}

func terminateOnCleanup(t *testing.T, name string, c testcontainers.Container) {
	t.Cleanup(func() {
		require.NoError(t, c.Terminate(context.Background()), "failed to terminate %s container", name)
	})
}

// createDB starts a throwaway postgres and applies every migration to it.
func createDB(t *testing.T) *gorm.DB {
	db, err := database.NewDatabase(setupPostgresContainer(t, context.Background()))
	require.NoError(t, err)
	require.NoError(t, database.GetMigrator(db).Migrate())
	return db
}

func setupRabbitMQContainer(t *testing.T, ctx context.Context) string {
	container, err := rabbitmq.Run(ctx, "rabbitmq:3.12-management-alpine")
	require.NoError(t, err, "failed to start rabbitmq container")
	terminateOnCleanup(t, "rabbitmq", container)

	url, err := container.AmqpURL(ctx)
	require.NoError(t, err)
	return url
}

func setupMinioContainer(t *testing.T, ctx context.Context) string {
	container, err := minio.Run(ctx, "minio/minio:RELEASE.2024-01-16T16-07-38Z",
		minio.WithUsername(minioUsername),
		minio.WithPassword(minioPassword),
	)
	require.NoError(t, err, "failed to start minio container")
	terminateOnCleanup(t, "minio", container)

	hostPort, err := container.ConnectionString(ctx)
	require.NoError(t, err)
	return "http://" + hostPort
}

func setupPostgresContainer(t *testing.T, ctx context.Context) string {
	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase(hospitalDB),
		postgres.WithUsername("triage"),
		postgres.WithPassword("triage"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err, "failed to start postgres container")
	terminateOnCleanup(t, "postgres", container)

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return dsn
}
