package storage

import (
	"context"
	"io"
)

type Object struct {
	Name string
	Size int64
}

type ObjectStore interface {
	CreateBucket(ctx context.Context, bucket string) error

	PutObject(ctx context.Context, bucket, key string, data io.Reader) error

	ListObjects(ctx context.Context, bucket, prefix string) ([]Object, error)

	// DownloadDir copies every object under prefix into dest, keeping the
	// relative layout. Existing files in dest with the same name are replaced.
	DownloadDir(ctx context.Context, bucket, prefix, dest string) error

	UploadDir(ctx context.Context, bucket, prefix, src string) error
}

func dirPrefix(prefix string) string {
	if prefix != "" && prefix[len(prefix)-1] != '/' {
		prefix += "/"
	}
	return prefix
}
