package cmd

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"

	"triage-backend/internal/config"
	"triage-backend/internal/core"
	"triage-backend/internal/messaging"
	"triage-backend/internal/storage"

	"github.com/joho/godotenv"
	ort "github.com/yalue/onnxruntime_go"
)

func LoadEnvFile() {
	var configPath string

	flag.StringVar(&configPath, "env", "", "path to load env from")
	flag.Parse()

	if configPath == "" {
		log.Printf("no env file specified, using os.Environ only")
		return
	}

	log.Printf("loading env from file %s", configPath)
	err := godotenv.Load(configPath)
	if err != nil {
		log.Fatalf("error loading .env file '%s': %v", configPath, err)
	}
}

// InitOnnxRuntime loads the onnxruntime shared library. The returned func
// destroys the environment and is safe to call when init failed.
func InitOnnxRuntime(dylib string) (func(), error) {
	if dylib != "" {
		ort.SetSharedLibraryPath(dylib)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return func() {}, fmt.Errorf("could not init ONNX Runtime: %w", err)
	}
	return func() {
		if err := ort.DestroyEnvironment(); err != nil {
			slog.Error("error destroying onnx env", "error", err)
		}
	}, nil
}

func CreateObjectStore(cfg config.Config) (storage.ObjectStore, error) {
	if cfg.ModelStoreDir != "" {
		return storage.NewLocalObjectStore(cfg.ModelStoreDir)
	}
	return storage.NewS3ObjectStore(storage.S3ClientConfig{
		Endpoint:        cfg.S3EndpointURL,
		Region:          cfg.S3Region,
		AccessKeyID:     cfg.S3AccessKeyID,
		SecretAccessKey: cfg.S3SecretAccessKey,
	})
}

// LoadGateway fetches the model artifact if a bucket is configured and loads
// it. Failures never stop the server: they are reported by the gateway.
func LoadGateway(ctx context.Context, cfg config.Config) (*core.Gateway, func()) {
	cleanup := func() {}

	if cfg.ModelS3Bucket != "" {
		store, err := CreateObjectStore(cfg)
		if err != nil {
			slog.Error("could not create object store", "error", err)
			return core.NewGateway(nil, err), cleanup
		}
		if err := storage.FetchModelArtifact(ctx, store, cfg.ModelS3Bucket, cfg.ModelS3Prefix, cfg.ModelDir, core.PipelineManifestFile, core.OnnxModelFile); err != nil {
			slog.Error("could not fetch model artifact", "bucket", cfg.ModelS3Bucket, "prefix", cfg.ModelS3Prefix, "error", err)
			return core.NewGateway(nil, err), cleanup
		}
	}

	if core.ModelType(cfg.ModelType) == core.OnnxPipeline {
		destroy, err := InitOnnxRuntime(cfg.OnnxRuntimeDylib)
		if err != nil {
			slog.Error("could not init onnx runtime", "dylib", cfg.OnnxRuntimeDylib, "error", err)
			return core.NewGateway(nil, err), cleanup
		}
		cleanup = destroy
	}

	gateway := core.LoadGateway(core.ModelType(cfg.ModelType), cfg.ModelDir)
	return gateway, func() {
		gateway.Release()
		cleanup()
	}
}

// CreateAuditQueue returns rabbitmq clients when RABBITMQ_URL is set and an
// in-memory queue otherwise.
func CreateAuditQueue(cfg config.Config) (messaging.Publisher, messaging.Reciever, error) {
	if cfg.RabbitMQURL == "" {
		slog.Info("using in-memory audit queue", "size", cfg.AuditQueueSize)
		queue := messaging.NewInMemoryQueue(cfg.AuditQueueSize)
		return queue, queue, nil
	}

	publisher, err := messaging.NewRabbitMQPublisher(cfg.RabbitMQURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create rabbitmq publisher: %w", err)
	}
	reciever, err := messaging.NewRabbitMQReceiver(cfg.RabbitMQURL)
	if err != nil {
		publisher.Close()
		return nil, nil, fmt.Errorf("failed to create rabbitmq receiver: %w", err)
	}
	return publisher, reciever, nil
}
