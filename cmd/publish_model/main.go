package main

import (
	"context"
	"flag"
	"log"
	"time"

	"triage-backend/cmd"
	"triage-backend/internal/config"
	"triage-backend/internal/core"
	"triage-backend/internal/storage"
)

// publish_model uploads a trained model directory to the bucket the API
// server fetches from at startup.
func main() {
	modelDir := flag.String("model-dir", "", "model directory to publish, defaults to MODEL_DIR")
	cmd.LoadEnvFile()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("error loading config: %v", err)
	}
	if cfg.ModelS3Bucket == "" {
		log.Fatalf("MODEL_S3_BUCKET must be set")
	}

	dir := cfg.ModelDir
	if *modelDir != "" {
		dir = *modelDir
	}

	store, err := cmd.CreateObjectStore(cfg)
	if err != nil {
		log.Fatalf("error creating object store: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if err := storage.PublishModelArtifact(ctx, store, cfg.ModelS3Bucket, cfg.ModelS3Prefix, dir, core.PipelineManifestFile, core.OnnxModelFile); err != nil {
		log.Fatalf("error publishing model: %v", err)
	}
	log.Printf("published %s to %s/%s", dir, cfg.ModelS3Bucket, cfg.ModelS3Prefix)
}
