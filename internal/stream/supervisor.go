package stream

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/your-org/geostream-archiver/pkg/metrics"
)

const (
	defaultInitialBackoff = time.Second
	defaultMaxBackoff     = 2 * time.Minute
)

// Supervisor owns the subscription lifecycle. It opens the filtered
// subscription and reconnects with exponential backoff when it terminates.
// Credential rejection and context cancellation end the supervisor; anything
// else is a recoverable disconnect.
type Supervisor struct {
	source  Source
	handler Handler
	box     BoundingBox
	logger  *zap.Logger
	metrics *metrics.ArchiverMetrics

	initialBackoff time.Duration
	maxBackoff     time.Duration
	maxAttempts    int
}

type SupervisorConfig struct {
	Source  Source
	Handler Handler
	Box     BoundingBox
	Logger  *zap.Logger
	Metrics *metrics.ArchiverMetrics

	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// MaxAttempts caps consecutive failed reconnects; 0 retries forever.
	MaxAttempts int
}

// NewSupervisor constructs a Supervisor.
func NewSupervisor(cfg SupervisorConfig) *Supervisor {
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = defaultInitialBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = defaultMaxBackoff
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.New()
	}
	return &Supervisor{
		source:         cfg.Source,
		handler:        cfg.Handler,
		box:            cfg.Box,
		logger:         cfg.Logger,
		metrics:        cfg.Metrics,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		maxAttempts:    cfg.MaxAttempts,
	}
}

// Run blocks until the context is canceled, credentials are rejected, or the
// reconnect budget is exhausted. A canceled context is a clean stop and
// returns nil.
func (s *Supervisor) Run(ctx context.Context) error {
	backoff := s.initialBackoff
	attempts := 0

	for {
		started := time.Now()
		err := s.source.Subscribe(ctx, s.box, s.handler)

		if ctx.Err() != nil {
			s.logger.Info("subscription stopped")
			return nil
		}
		if errors.Is(err, ErrAuth) {
			return err
		}

		// A connection that outlived the backoff ceiling was healthy;
		// reset the reconnect budget.
		if time.Since(started) > s.maxBackoff {
			backoff = s.initialBackoff
			attempts = 0
		}

		attempts++
		if s.maxAttempts > 0 && attempts > s.maxAttempts {
			return fmt.Errorf("subscription failed after %d attempts: %w", s.maxAttempts, err)
		}

		s.metrics.StreamReconnects.Inc()
		s.logger.Warn("subscription terminated, reconnecting",
			zap.Error(err),
			zap.Duration("backoff", backoff),
			zap.Int("attempt", attempts),
		)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > s.maxBackoff {
			backoff = s.maxBackoff
		}
	}
}
