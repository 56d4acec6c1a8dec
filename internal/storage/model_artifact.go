package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// FetchModelArtifact downloads the model artifact stored under prefix into
// modelDir. It fails without downloading anything if one of the required
// files is missing from the store.
func FetchModelArtifact(ctx context.Context, store ObjectStore, bucket, prefix, modelDir string, required ...string) error {
	prefix = dirPrefix(prefix)

	objects, err := store.ListObjects(ctx, bucket, prefix)
	if err != nil {
		return fmt.Errorf("error listing model artifact: %w", err)
	}

	present := make(map[string]bool, len(objects))
	for _, obj := range objects {
		present[obj.Name] = true
	}
	for _, name := range required {
		if !present[prefix+name] {
			return fmt.Errorf("model artifact s3://%s/%s is missing %s", bucket, prefix, name)
		}
	}

	if err := store.DownloadDir(ctx, bucket, prefix, modelDir); err != nil {
		return fmt.Errorf("error downloading model artifact: %w", err)
	}

	slog.Info("model artifact downloaded", "bucket", bucket, "prefix", prefix, "model_dir", modelDir, "objects", len(objects))
	return nil
}

// PublishModelArtifact uploads a local model directory under prefix, creating
// the bucket if needed. Directories missing a required file are refused before
// anything is uploaded, so every published artifact can be fetched.
func PublishModelArtifact(ctx context.Context, store ObjectStore, bucket, prefix, modelDir string, required ...string) error {
	for _, name := range required {
		info, err := os.Stat(filepath.Join(modelDir, name))
		if err != nil {
			return fmt.Errorf("model directory %s is missing %s: %w", modelDir, name, err)
		}
		if info.IsDir() {
			return fmt.Errorf("model directory %s: %s is a directory", modelDir, name)
		}
	}

	if err := store.CreateBucket(ctx, bucket); err != nil {
		return fmt.Errorf("error creating model bucket: %w", err)
	}

	prefix = dirPrefix(prefix)
	if err := store.UploadDir(ctx, bucket, prefix, modelDir); err != nil {
		return fmt.Errorf("error uploading model artifact: %w", err)
	}

	slog.Info("model artifact published", "bucket", bucket, "prefix", prefix, "model_dir", modelDir)
	return nil
}
