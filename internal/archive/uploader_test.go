package archive

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploader_Key(t *testing.T) {
	u := NewUploader(&fakeStore{}, "c", "staged_events", 0)
	assert.Equal(t, "staged_events/42.json", u.Key("42"))

	u = NewUploader(&fakeStore{}, "c", "", 0)
	assert.Equal(t, "42.json", u.Key("42"), "empty prefix decouples keys from the staging layout")
}

// deadlineStore captures whether the upload context carries a deadline.
type deadlineStore struct {
	fakeStore
	hadDeadline bool
}

func (s *deadlineStore) PutFile(ctx context.Context, key, path string, metadata map[string]string) error {
	_, s.hadDeadline = ctx.Deadline()
	return s.fakeStore.PutFile(ctx, key, path, metadata)
}

func (s *deadlineStore) Put(ctx context.Context, key string, reader io.Reader, size int64, metadata map[string]string) error {
	_, s.hadDeadline = ctx.Deadline()
	return s.fakeStore.Put(ctx, key, reader, size, metadata)
}

func TestUploader_Upload(t *testing.T) {
	dir := t.TempDir()
	staged := filepath.Join(dir, "42.json")
	require.NoError(t, os.WriteFile(staged, []byte(`{}`), 0644))

	t.Run("bounds upload latency with the configured timeout", func(t *testing.T) {
		store := &deadlineStore{}
		u := NewUploader(store, "c", dir, 30*time.Second)

		_, err := u.Upload(context.Background(), staged, "42")
		require.NoError(t, err)
		assert.True(t, store.hadDeadline)
	})

	t.Run("zero timeout leaves the context unbounded", func(t *testing.T) {
		store := &deadlineStore{}
		u := NewUploader(store, "c", dir, 0)

		_, err := u.Upload(context.Background(), staged, "42")
		require.NoError(t, err)
		assert.False(t, store.hadDeadline)
	})

	t.Run("missing staged file surfaces as an upload error", func(t *testing.T) {
		u := NewUploader(&fakeStore{}, "c", dir, 0)

		_, err := u.Upload(context.Background(), filepath.Join(dir, "absent.json"), "absent")
		assert.Error(t, err)
	})
}
