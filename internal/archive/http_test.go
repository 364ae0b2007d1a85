package archive

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/your-org/geostream-archiver/pkg/metrics"
)

func TestOpsHandler(t *testing.T) {
	m := metrics.New()
	dir := t.TempDir()
	handler := NewHandler(HandlerParams{
		Stage:    NewStageWriter(dir),
		Uploader: NewUploader(&fakeStore{}, "c", dir, 0),
		Metrics:  m,
	})
	ops := NewOpsHandler(handler, zap.NewNop(), m)
	srv := httptest.NewServer(ops.Router())
	defer srv.Close()

	t.Run("healthz", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/healthz")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "ok", body["status"])
	})

	t.Run("stats reflects processed events", func(t *testing.T) {
		handler.OnEvent(context.Background(), &Event{ID: "1", Coordinates: &Coordinates{}, Raw: []byte(`{}`)})
		handler.OnEvent(context.Background(), &Event{ID: "2", Raw: []byte(`{}`)})

		resp, err := http.Get(srv.URL + "/stats")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var stats Stats
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
		assert.Equal(t, int64(2), stats.Received)
		assert.Equal(t, int64(1), stats.Archived)
		assert.Equal(t, int64(1), stats.Filtered)
	})

	t.Run("metrics endpoint serves prometheus text", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/metrics")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}
