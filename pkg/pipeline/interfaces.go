package pipeline

import (
	"context"

	"wallgrab/pkg/models"
)

// Store is the persisted download history
type Store interface {
	LoadKnownHashes(ctx context.Context) (models.Set, error)
	LoadCompletedPostURLs(ctx context.Context) (models.Set, error)
	LoadFetchedImageURLs(ctx context.Context) (models.Set, error)
	RecordImage(ctx context.Context, rec models.Record) error
	RecordCompletedPost(ctx context.Context, url string) error
}

// Fetcher downloads a resolved image URL
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*models.Payload, error)
}

// Writer places image bytes in the output directory. Bytes are staged
// first so they can be checked before an existing file is replaced.
type Writer interface {
	Stage(name string, data []byte) (string, error)
	Commit(tmp, name string) (string, error)
	Discard(tmp string) error
	Remove(path string) error
}
