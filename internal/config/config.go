package config

import (
	"fmt"
	"log/slog"

	"triage-backend/internal/core"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Host string `env:"HOST" envDefault:"127.0.0.1"`
	Port int    `env:"PORT" envDefault:"5000"`

	DatabaseURL string `env:"DATABASE_URL" envDefault:"./data/triage.db"`

	ModelDir         string `env:"MODEL_DIR" envDefault:"./model"`
	ModelType        string `env:"MODEL_TYPE" envDefault:"onnx_pipeline"`
	OnnxRuntimeDylib string `env:"ONNX_RUNTIME_DYLIB"`

	// When ModelS3Bucket is set the artifact under ModelS3Prefix is fetched
	// into ModelDir at startup, from S3 or from ModelStoreDir if that is set.
	ModelS3Bucket     string `env:"MODEL_S3_BUCKET"`
	ModelS3Prefix     string `env:"MODEL_S3_PREFIX" envDefault:"triage"`
	ModelStoreDir     string `env:"MODEL_STORE_DIR"`
	S3EndpointURL     string `env:"S3_ENDPOINT_URL"`
	S3AccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	S3Region          string `env:"AWS_REGION" envDefault:"us-east-1"`

	// Audit rows go through RabbitMQ when RabbitMQURL is set, otherwise
	// through an in-process queue.
	RabbitMQURL    string `env:"RABBITMQ_URL"`
	AuditWorkers   int    `env:"AUDIT_WORKERS" envDefault:"2"`
	AuditQueueSize int    `env:"AUDIT_QUEUE_SIZE" envDefault:"1000"`

	StaticDir   string   `env:"STATIC_DIR" envDefault:"./static"`
	LogFile     string   `env:"LOG_FILE"`
	CorsOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`
}

func Load() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("error parsing config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	if cfg.S3EndpointURL != "" && (cfg.S3AccessKeyID == "" || cfg.S3SecretAccessKey == "") {
		slog.Warn("S3_ENDPOINT_URL is set, but AWS_ACCESS_KEY_ID or AWS_SECRET_ACCESS_KEY are missing")
	}

	return cfg, nil
}

func (c Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Port)
	}
	if c.AuditWorkers <= 0 {
		return fmt.Errorf("AUDIT_WORKERS must be positive, got %d", c.AuditWorkers)
	}
	if c.AuditQueueSize <= 0 {
		return fmt.Errorf("AUDIT_QUEUE_SIZE must be positive, got %d", c.AuditQueueSize)
	}
	if _, err := core.GetModelLoader(core.ModelType(c.ModelType)); err != nil {
		return fmt.Errorf("invalid MODEL_TYPE: %w", err)
	}
	return nil
}

func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
