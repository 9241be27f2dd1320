package engine

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/query-engine/internal/domain"
	apperrors "github.com/spec-kit/query-engine/pkg/util/errorutil"
)

// metricsRunner keeps the derived metrics series current. Recomputation
// is triggered by snapshot deltas and by window changes; a computation
// superseded by a newer trigger is discarded via the generation counter.
// Last-write-wins applies only to this derived series, never to
// persisted query data.
type metricsRunner struct {
	mu     sync.Mutex
	window int
	gen    uint64
	series []MetricsBucket

	snapshotFn func() []domain.Query
	now        func() time.Time
	logger     *zap.Logger
}

func newMetricsRunner(window int, snapshotFn func() []domain.Query, now func() time.Time, logger *zap.Logger) *metricsRunner {
	if _, ok := supportedWindows[window]; !ok {
		window = 30
	}
	return &metricsRunner{
		window:     window,
		snapshotFn: snapshotFn,
		now:        now,
		logger:     logger,
	}
}

// Trigger schedules an asynchronous recompute for the current window.
func (r *metricsRunner) Trigger() {
	r.mu.Lock()
	r.gen++
	gen := r.gen
	window := r.window
	r.mu.Unlock()

	go func() {
		series, err := ComputeMetrics(r.snapshotFn(), window, r.now())
		if err != nil {
			r.logger.Warn("metrics recompute failed", zap.Int("window_days", window), zap.Error(err))
			return
		}
		r.mu.Lock()
		defer r.mu.Unlock()
		if gen != r.gen {
			// A newer trigger superseded this computation.
			return
		}
		r.series = series
	}()
}

// SeriesFor serves the series for the requested window. When the window
// matches the active one and the delta-driven cache still ends on the
// current day, the cached series is returned; otherwise the runner
// switches windows and recomputes synchronously.
func (r *metricsRunner) SeriesFor(windowDays int) ([]MetricsBucket, error) {
	if _, ok := supportedWindows[windowDays]; !ok {
		return nil, apperrors.NewValidation("unsupported trailing window", map[string]any{"window_days": windowDays})
	}
	today := domain.TruncateToDay(r.now())

	r.mu.Lock()
	if windowDays == r.window && len(r.series) > 0 && r.series[len(r.series)-1].Date.Equal(today) {
		cached := make([]MetricsBucket, len(r.series))
		copy(cached, r.series)
		r.mu.Unlock()
		return cached, nil
	}
	if windowDays != r.window {
		r.window = windowDays
		r.gen++
	}
	gen := r.gen
	r.mu.Unlock()

	series, err := ComputeMetrics(r.snapshotFn(), windowDays, r.now())
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if gen == r.gen {
		r.series = series
	}
	r.mu.Unlock()
	return series, nil
}

// Cached returns the last stored series, if any.
func (r *metricsRunner) Cached() []MetricsBucket {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.series
}
