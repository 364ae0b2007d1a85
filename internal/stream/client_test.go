package stream

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/geostream-archiver/internal/archive"
)

type recordingHandler struct {
	mu     sync.Mutex
	events []*archive.Event
	errs   []error
}

func (h *recordingHandler) OnEvent(ctx context.Context, e *archive.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, e)
}

func (h *recordingHandler) OnError(ctx context.Context, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errs = append(h.errs, err)
}

var testBox = BoundingBox{West: -125.0, South: 24.94, East: -66.93, North: 49.59}

var testCreds = Credentials{
	ConsumerKey:       "ck",
	ConsumerSecret:    "cs",
	AccessToken:       "at",
	AccessTokenSecret: "ats",
}

func TestClient_Subscribe(t *testing.T) {
	t.Run("delivers decoded events and reports bad lines", func(t *testing.T) {
		var gotReq *http.Request
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotReq = r.Clone(context.Background())
			w.Header().Set("Content-Type", "application/x-ndjson")
			io.WriteString(w, `{"id":"42","place":{"name":"Denver, CO","bounding_box":{"west":-105.1,"south":39.6,"east":-104.6,"north":39.9}}}`+"\n")
			io.WriteString(w, "\n") // keep-alive
			io.WriteString(w, "this is not json\n")
			io.WriteString(w, `{"text":"no id"}`+"\n")
			io.WriteString(w, `{"id":"7"}`+"\n")
		}))
		defer srv.Close()

		client := NewClient(srv.URL, testCreds, nil)
		h := &recordingHandler{}
		err := client.Subscribe(context.Background(), testBox, h)

		require.Error(t, err, "remote close terminates the subscription")
		assert.False(t, errors.Is(err, ErrAuth))

		require.Len(t, h.events, 2)
		first := h.events[0]
		assert.Equal(t, "42", first.ID)
		require.NotNil(t, first.Place)
		assert.Equal(t, "Denver, CO", first.Place.Name)
		assert.NotNil(t, first.Place.BoundingBox)
		assert.JSONEq(t, string(first.Raw), `{"id":"42","place":{"name":"Denver, CO","bounding_box":{"west":-105.1,"south":39.6,"east":-104.6,"north":39.9}}}`)
		assert.False(t, first.CreatedAt.IsZero())

		assert.Equal(t, "7", h.events[1].ID)
		assert.Nil(t, h.events[1].Coordinates)
		assert.Nil(t, h.events[1].Place)

		assert.Len(t, h.errs, 2, "malformed line and id-less line go to OnError")

		// Subscription-wide filter and credentials on the wire.
		q := gotReq.URL.Query()
		assert.Equal(t, "-125", q.Get("west"))
		assert.Equal(t, "24.94", q.Get("south"))
		assert.Equal(t, "-66.93", q.Get("east"))
		assert.Equal(t, "49.59", q.Get("north"))

		user, pass, ok := gotReq.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "ck", user)
		assert.Equal(t, "cs", pass)
		assert.Equal(t, "at", gotReq.Header.Get("X-Access-Token"))
		assert.Equal(t, "ats", gotReq.Header.Get("X-Access-Token-Secret"))
	})

	t.Run("credential rejection is ErrAuth", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer srv.Close()

		client := NewClient(srv.URL, testCreds, nil)
		err := client.Subscribe(context.Background(), testBox, &recordingHandler{})
		assert.ErrorIs(t, err, ErrAuth)
	})

	t.Run("other status codes are recoverable errors", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer srv.Close()

		client := NewClient(srv.URL, testCreds, nil)
		err := client.Subscribe(context.Background(), testBox, &recordingHandler{})
		require.Error(t, err)
		assert.False(t, errors.Is(err, ErrAuth))
	})

	t.Run("unreachable endpoint is a recoverable error", func(t *testing.T) {
		client := NewClient("http://127.0.0.1:1", testCreds, nil)
		err := client.Subscribe(context.Background(), testBox, &recordingHandler{})
		require.Error(t, err)
		assert.False(t, errors.Is(err, ErrAuth))
	})
}
