package rewards

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	apperrors "github.com/trungse123/review-backend/pkg/errors"
	"github.com/trungse123/review-backend/pkg/logger"
)

// DispatcherConfig bounds the background delivery of notifications.
type DispatcherConfig struct {
	// MaxAttempts is the total number of tries per notification.
	MaxAttempts uint
	// InitialInterval and MaxInterval shape the exponential backoff.
	InitialInterval time.Duration
	MaxInterval     time.Duration
	// MaxElapsed caps the total time spent on one notification.
	MaxElapsed time.Duration
	// AttemptTimeout bounds a single delivery attempt.
	AttemptTimeout time.Duration
	// MaxInFlight caps concurrent deliveries. Notifications beyond it are
	// dropped rather than queued.
	MaxInFlight int
}

// DefaultDispatcherConfig returns sensible delivery bounds.
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		MaxAttempts:     4,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		MaxElapsed:      30 * time.Second,
		AttemptTimeout:  5 * time.Second,
		MaxInFlight:     64,
	}
}

// Dispatcher delivers notifications on detached goroutines with bounded
// retry. Dispatch never blocks the caller.
type Dispatcher struct {
	notifier Notifier
	cfg      DispatcherConfig
	logger   *slog.Logger

	baseCtx context.Context
	cancel  context.CancelFunc
	sem     chan struct{}
	wg      sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewDispatcher creates a dispatcher around notifier.
func NewDispatcher(notifier Notifier, cfg DispatcherConfig, log *slog.Logger) *Dispatcher {
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.MaxInFlight <= 0 {
		cfg.MaxInFlight = 1
	}
	if log == nil {
		log = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		notifier: notifier,
		cfg:      cfg,
		logger:   log,
		baseCtx:  ctx,
		cancel:   cancel,
		sem:      make(chan struct{}, cfg.MaxInFlight),
	}
}

// Dispatch schedules delivery of n and returns immediately. The request's
// correlation ID and logger carry over, its cancellation does not. It
// reports whether the notification was accepted.
func (d *Dispatcher) Dispatch(ctx context.Context, n Notification) bool {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		notificationsTotal.WithLabelValues(resultDropped).Inc()
		return false
	}

	select {
	case d.sem <- struct{}{}:
	default:
		d.mu.Unlock()
		notificationsTotal.WithLabelValues(resultDropped).Inc()
		d.logger.WarnContext(ctx, "rewards notification dropped, too many in flight",
			logger.Phone(n.Phone),
			slog.String("review_id", n.ReviewID),
		)
		return false
	}

	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()
		defer func() { <-d.sem }()
		d.deliver(logger.Detach(d.baseCtx, ctx), n)
	}()
	return true
}

func (d *Dispatcher) deliver(ctx context.Context, n Notification) {
	log := logger.FromContext(ctx)
	if log == slog.Default() {
		log = logger.WithContext(ctx, d.logger)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = d.cfg.InitialInterval
	b.MaxInterval = d.cfg.MaxInterval

	op := func() (struct{}, error) {
		attemptCtx := ctx
		if d.cfg.AttemptTimeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, d.cfg.AttemptTimeout)
			defer cancel()
		}
		return struct{}{}, d.notifier.NotifyCompleted(attemptCtx, n)
	}

	opts := []backoff.RetryOption{
		backoff.WithBackOff(b),
		backoff.WithMaxTries(d.cfg.MaxAttempts),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.DebugContext(ctx, "retrying rewards notification",
				slog.String("notifier", d.notifier.Name()),
				slog.String("error", err.Error()),
				slog.Duration("next_attempt_in", next),
			)
		}),
	}
	if d.cfg.MaxElapsed > 0 {
		opts = append(opts, backoff.WithMaxElapsedTime(d.cfg.MaxElapsed))
	}

	if _, err := backoff.Retry(ctx, op, opts...); err != nil {
		notificationsTotal.WithLabelValues(resultFailed).Inc()
		log.WarnContext(ctx, "rewards notification failed",
			slog.String("notifier", d.notifier.Name()),
			logger.Phone(n.Phone),
			slog.String("review_id", n.ReviewID),
			slog.String("product_id", n.ProductID),
			slog.String("error", apperrors.Degraded("rewards", err).Error()),
		)
		return
	}

	notificationsTotal.WithLabelValues(resultDelivered).Inc()
	log.DebugContext(ctx, "rewards notification delivered",
		slog.String("notifier", d.notifier.Name()),
		slog.String("review_id", n.ReviewID),
	)
}

// Close stops accepting work and waits for in-flight deliveries. When ctx
// expires first the remaining deliveries are cancelled.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		<-done
		return fmt.Errorf("rewards dispatcher close: %w", ctx.Err())
	}
}
