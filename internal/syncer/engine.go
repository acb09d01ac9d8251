// Package syncer implements the fetch-normalize-apply pipeline and its
// single-flight execution guard.
package syncer

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	syncerrors "github.com/magicorntech/gcp-secret-manager/internal/errors"
	"github.com/magicorntech/gcp-secret-manager/internal/health"
)

// Source fetches the raw secret payload from the external store.
type Source interface {
	Fetch(ctx context.Context) ([]byte, error)
	ResourceName() string
}

// Sink applies a key/value map to the cluster secret, replacing its key set.
type Sink interface {
	Apply(ctx context.Context, data map[string]string) error
	Target() string
}

// Engine runs one sync cycle at a time. Concurrent RunOnce calls share the
// in-flight cycle's result instead of being rejected; two applies can never
// interleave.
type Engine struct {
	source      Source
	sink        Sink
	tracker     *health.Tracker
	metrics     *health.SyncMetrics
	logger      *zap.Logger
	stepTimeout time.Duration

	group singleflight.Group
}

// NewEngine builds a sync engine. stepTimeout bounds each fetch and apply
// step individually.
func NewEngine(source Source, sink Sink, tracker *health.Tracker, metrics *health.SyncMetrics, logger *zap.Logger, stepTimeout time.Duration) *Engine {
	return &Engine{
		source:      source,
		sink:        sink,
		tracker:     tracker,
		metrics:     metrics,
		logger:      logger,
		stepTimeout: stepTimeout,
	}
}

// RunOnce executes one sync cycle, or joins the cycle already in flight and
// returns its result. The outcome is always recorded in the health tracker
// before this returns; the engine itself never retries.
func (e *Engine) RunOnce(ctx context.Context) health.SyncResult {
	v, _, shared := e.group.Do("sync", func() (interface{}, error) {
		return e.runCycle(ctx), nil
	})
	result := v.(health.SyncResult)
	if shared {
		e.logger.Debug("joined in-flight sync cycle")
	}
	return result
}

func (e *Engine) runCycle(ctx context.Context) health.SyncResult {
	start := time.Now()
	e.logger.Info("starting secret sync",
		zap.String("source", e.source.ResourceName()),
		zap.String("target", e.sink.Target()))

	data, err := e.fetch(ctx)
	if err != nil {
		return e.fail(start, err)
	}

	payload, err := ParsePayload(data)
	if err != nil {
		return e.fail(start, err)
	}

	normalized, stats := payload.Normalize(e.logger)
	for i := 0; i < stats.Collisions; i++ {
		e.metrics.RecordCollision()
	}

	if err := e.apply(ctx, normalized); err != nil {
		return e.fail(start, err)
	}

	result := health.SyncResult{
		Outcome:   health.OutcomeSuccess,
		Timestamp: time.Now().UTC(),
	}
	e.tracker.RecordSync(result)
	e.metrics.RecordSync(string(result.Outcome), "none", time.Since(start))
	e.metrics.RecordKeysSynced(len(normalized))

	e.logger.Info("secret sync completed",
		zap.Int("keys", len(normalized)),
		zap.Int("renamed", stats.Renamed),
		zap.Int("collisions", stats.Collisions),
		zap.Int("skipped", stats.Skipped),
		zap.Duration("duration", time.Since(start)))
	return result
}

func (e *Engine) fetch(ctx context.Context) ([]byte, error) {
	stepCtx, cancel := context.WithTimeout(ctx, e.stepTimeout)
	defer cancel()
	return e.source.Fetch(stepCtx)
}

func (e *Engine) apply(ctx context.Context, data map[string]string) error {
	stepCtx, cancel := context.WithTimeout(ctx, e.stepTimeout)
	defer cancel()
	return e.sink.Apply(stepCtx, data)
}

func (e *Engine) fail(start time.Time, err error) health.SyncResult {
	result := health.SyncResult{
		Outcome:   health.OutcomeFailure,
		Timestamp: time.Now().UTC(),
		Error:     err.Error(),
	}
	e.tracker.RecordSync(result)
	e.metrics.RecordSync(string(result.Outcome), syncerrors.Classify(err), time.Since(start))

	e.logger.Error("secret sync failed",
		zap.String("error_class", syncerrors.Classify(err)),
		zap.Duration("duration", time.Since(start)),
		zap.Error(err))
	return result
}
