package archive

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/your-org/geostream-archiver/pkg/metrics"
)

var tracer = otel.Tracer("github.com/your-org/geostream-archiver/internal/archive")

// Notifier publishes a record about each archived event. *kafka.Producer
// satisfies it; a nil Notifier disables notifications.
type Notifier interface {
	Publish(ctx context.Context, key []byte, value []byte, headers map[string]string) error
}

// Stats is a snapshot of handler counters.
type Stats struct {
	Received int64 `json:"received"`
	Archived int64 `json:"archived"`
	Filtered int64 `json:"filtered"`
	Failed   int64 `json:"failed"`
}

// Handler drives one event at a time through filter, stage, upload, and
// cleanup. A single event's failure is logged and swallowed so the
// subscription is never torn down by one bad event.
type Handler struct {
	stage    *StageWriter
	uploader *Uploader
	notifier Notifier
	logger   *zap.Logger
	metrics  *metrics.ArchiverMetrics
	delay    time.Duration

	received atomic.Int64
	archived atomic.Int64
	filtered atomic.Int64
	failed   atomic.Int64
}

type HandlerParams struct {
	Stage    *StageWriter
	Uploader *Uploader
	Notifier Notifier
	Logger   *zap.Logger
	Metrics  *metrics.ArchiverMetrics
	Delay    time.Duration
}

// NewHandler constructs an event Handler.
func NewHandler(p HandlerParams) *Handler {
	if p.Metrics == nil {
		p.Metrics = metrics.New()
	}
	if p.Logger == nil {
		p.Logger = zap.NewNop()
	}
	return &Handler{
		stage:    p.Stage,
		uploader: p.Uploader,
		notifier: p.Notifier,
		logger:   p.Logger,
		metrics:  p.Metrics,
		delay:    p.Delay,
	}
}

// OnEvent processes one delivered event. It never propagates an error:
// failures are logged and the next event proceeds normally.
func (h *Handler) OnEvent(ctx context.Context, e *Event) {
	h.received.Add(1)
	h.metrics.EventsReceived.Inc()

	// The fixed pre-processing delay applies to every event. It throttles
	// the effective consumption rate and with it the load on the store.
	if h.delay > 0 {
		select {
		case <-time.After(h.delay):
		case <-ctx.Done():
			return
		}
	}

	if !HasGeoSignal(e) {
		h.filtered.Add(1)
		h.metrics.EventsFiltered.Inc()
		return
	}

	logger := h.logger.With(
		zap.String("request_id", uuid.NewString()),
		zap.String("event_id", e.ID),
	)

	ctx, span := tracer.Start(ctx, "archive/handle_event")
	defer span.End()

	if err := h.archiveOne(ctx, logger, e); err != nil {
		h.failed.Add(1)
		h.metrics.EventsFailed.Inc()
		logger.Error("archive event failed", zap.Error(err))
	}
}

func (h *Handler) archiveOne(ctx context.Context, logger *zap.Logger, e *Event) error {
	stagedPath, err := h.stage.Stage(e)
	if err != nil {
		return err
	}

	key, err := h.uploader.Upload(ctx, stagedPath, e.ID)
	if err != nil {
		// The staged file stays behind for the startup sweep.
		return err
	}

	if err := h.stage.Remove(stagedPath); err != nil {
		return err
	}

	h.archived.Add(1)
	h.metrics.EventsArchived.Inc()
	logger.Info("event archived",
		zap.String("object_key", key),
		zap.String("container", h.uploader.Container()),
	)

	h.notify(ctx, logger, e.ID, key, int64(len(e.Raw)))
	return nil
}

func (h *Handler) notify(ctx context.Context, logger *zap.Logger, id, key string, size int64) {
	if h.notifier == nil {
		return
	}

	payload, err := json.Marshal(ArchivedNotification{
		EventID:   id,
		ObjectKey: key,
		Container: h.uploader.Container(),
		SizeBytes: size,
		StoredAt:  time.Now().UTC(),
	})
	if err != nil {
		logger.Error("marshal archive notification", zap.Error(err))
		return
	}

	headers := map[string]string{"event_type": "archive.stored"}
	if err := h.notifier.Publish(ctx, []byte(id), payload, headers); err != nil {
		logger.Warn("publish archive notification failed", zap.Error(err))
	}
}

// OnError absorbs transport-level delivery errors so they never reach the
// supervisor.
func (h *Handler) OnError(ctx context.Context, err error) {
	h.logger.Warn("stream delivery error", zap.Error(err))
}

// Recover re-drives staged files left behind by a previous run, deleting
// each on successful upload. Files that still fail stay staged.
func (h *Handler) Recover(ctx context.Context) error {
	paths, err := h.stage.Sweep()
	if err != nil {
		return err
	}

	for _, p := range paths {
		id := strings.TrimSuffix(filepath.Base(p), stagedExt)
		key, err := h.uploader.Upload(ctx, p, id)
		if err != nil {
			h.logger.Warn("recover staged file failed", zap.String("path", p), zap.Error(err))
			continue
		}
		if err := h.stage.Remove(p); err != nil {
			h.logger.Warn("remove recovered staged file failed", zap.String("path", p), zap.Error(err))
			continue
		}
		h.metrics.StagedRecovered.Inc()
		h.logger.Info("recovered staged file", zap.String("path", p), zap.String("object_key", key))
	}
	return nil
}

// Stats returns a snapshot of processing counters.
func (h *Handler) Stats() Stats {
	return Stats{
		Received: h.received.Load(),
		Archived: h.archived.Load(),
		Filtered: h.filtered.Load(),
		Failed:   h.failed.Load(),
	}
}
