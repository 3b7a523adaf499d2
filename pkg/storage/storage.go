package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

// UploadInput describes one binary written to the blob store.
type UploadInput struct {
	Key         string
	Reader      io.Reader
	Size        int64
	ContentType string
}

// BlobStorage defines contract for the binary object store.
type BlobStorage interface {
	// Upload writes the binary under in.Key and returns a retrievable URL for it.
	Upload(ctx context.Context, in UploadInput) (string, error)
	// Delete removes the binary stored under key.
	Delete(ctx context.Context, key string) error
	// URL returns a URL the binary under key can be fetched from right now.
	// Drivers handing out expiring URLs sign a fresh one on every call.
	URL(ctx context.Context, key string) (string, error)
}

// VideoKey namespaces an upload by its millisecond timestamp and original
// filename. Two uploads of the same name within one millisecond collide.
func VideoKey(at time.Time, fileName string) string {
	name := path.Base(strings.ReplaceAll(fileName, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "video"
	}
	return fmt.Sprintf("videos/%d_%s", at.UnixMilli(), name)
}
