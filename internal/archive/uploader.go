package archive

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"time"

	"github.com/your-org/geostream-archiver/pkg/storage/objectstore"
)

// Uploader transfers staged files to the archive store under deterministic
// keys. With the default key prefix (the staging directory) the remote key
// equals the local staging path.
type Uploader struct {
	store     objectstore.Client
	container string
	keyPrefix string
	timeout   time.Duration
}

// NewUploader wraps an object store client. A zero timeout leaves uploads
// unbounded.
func NewUploader(store objectstore.Client, container, keyPrefix string, timeout time.Duration) *Uploader {
	return &Uploader{
		store:     store,
		container: container,
		keyPrefix: keyPrefix,
		timeout:   timeout,
	}
}

// Key returns the remote key for an event id.
func (u *Uploader) Key(id string) string {
	return path.Join(filepath.ToSlash(u.keyPrefix), id+stagedExt)
}

// Container returns the configured archive container name.
func (u *Uploader) Container() string {
	return u.container
}

// Upload pushes the staged file to the archive store, bounded by the
// configured timeout. The caller deletes the staged file on success.
func (u *Uploader) Upload(ctx context.Context, stagedPath, id string) (string, error) {
	key := u.Key(id)

	if u.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.timeout)
		defer cancel()
	}

	metadata := map[string]string{"event_id": id}
	if err := u.store.PutFile(ctx, key, stagedPath, metadata); err != nil {
		return "", fmt.Errorf("upload %s to container %s: %w", key, u.container, err)
	}
	return key, nil
}
