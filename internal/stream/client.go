package stream

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/your-org/geostream-archiver/internal/archive"
)

// ErrAuth marks credential rejection by the feed. It is fatal: the supervisor
// must not reconnect on it.
var ErrAuth = errors.New("feed rejected credentials")

// maxLineBytes bounds a single event payload on the wire.
const maxLineBytes = 1 << 20

// BoundingBox is the subscription-wide geographic filter, in floating-point
// degrees. It is fixed for the lifetime of the subscription.
type BoundingBox struct {
	West  float64
	South float64
	East  float64
	North float64
}

func (b BoundingBox) String() string {
	return fmt.Sprintf("%g,%g,%g,%g", b.West, b.South, b.East, b.North)
}

// Credentials are the four opaque secrets supplied by the credential
// provider. The client forwards them as-is.
type Credentials struct {
	ConsumerKey       string
	ConsumerSecret    string
	AccessToken       string
	AccessTokenSecret string
}

// Handler receives decoded events and delivery errors from a subscription.
type Handler interface {
	OnEvent(ctx context.Context, e *archive.Event)
	OnError(ctx context.Context, err error)
}

// Source opens a filtered subscription and delivers events until the stream
// terminates.
type Source interface {
	Subscribe(ctx context.Context, box BoundingBox, h Handler) error
}

// Client subscribes to the feed over streaming HTTP and decodes
// newline-delimited JSON events.
type Client struct {
	streamURL string
	creds     Credentials
	http      *http.Client
	logger    *zap.Logger
}

// NewClient constructs a feed client for the given stream endpoint.
func NewClient(streamURL string, creds Credentials, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		streamURL: streamURL,
		creds:     creds,
		// No client timeout: the response body is an unbounded stream.
		// Cancellation comes from the request context.
		http:   &http.Client{},
		logger: logger,
	}
}

// Subscribe opens the filtered subscription and delivers events to h
// synchronously, one at a time. It returns when the stream terminates: a nil
// handler delivery never ends it, only transport errors, remote close,
// credential rejection, or context cancellation.
func (c *Client) Subscribe(ctx context.Context, box BoundingBox, h Handler) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.streamURL, nil)
	if err != nil {
		return fmt.Errorf("build subscribe request: %w", err)
	}

	q := req.URL.Query()
	q.Set("west", formatDegrees(box.West))
	q.Set("south", formatDegrees(box.South))
	q.Set("east", formatDegrees(box.East))
	q.Set("north", formatDegrees(box.North))
	req.URL.RawQuery = q.Encode()

	req.SetBasicAuth(c.creds.ConsumerKey, c.creds.ConsumerSecret)
	req.Header.Set("X-Access-Token", c.creds.AccessToken)
	req.Header.Set("X-Access-Token-Secret", c.creds.AccessTokenSecret)
	req.Header.Set("Accept", "application/x-ndjson")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("open subscription: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: status %d", ErrAuth, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("subscribe: unexpected status %d", resp.StatusCode)
	}

	c.logger.Info("subscription established",
		zap.String("url", c.streamURL),
		zap.String("bounding_box", box.String()),
	)

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue // keep-alive
		}

		event, err := decodeEvent(line)
		if err != nil {
			h.OnError(ctx, fmt.Errorf("decode event: %w", err))
			continue
		}
		h.OnEvent(ctx, event)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read stream: %w", err)
	}
	return fmt.Errorf("stream closed by remote")
}

func decodeEvent(line []byte) (*archive.Event, error) {
	e := &archive.Event{}
	if err := json.Unmarshal(line, e); err != nil {
		return nil, err
	}
	if e.ID == "" {
		return nil, fmt.Errorf("event has no id")
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	// The scanner reuses its buffer between lines.
	e.Raw = append([]byte(nil), line...)
	return e, nil
}

func formatDegrees(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
