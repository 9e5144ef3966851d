package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/inventaris/inventaris/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// CacheWarmer repopulates the supplier list cache.
type CacheWarmer interface {
	WarmCache(ctx context.Context) error
}

// SuppliersChangedJob refreshes the supplier list cache after a mutation so
// the next list request is served from Redis.
type SuppliersChangedJob struct {
	Warmer  CacheWarmer
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewSuppliersChangedJob builds the job handler.
func NewSuppliersChangedJob(warmer CacheWarmer, logger *slog.Logger, metrics *jobmetrics.Metrics) *SuppliersChangedJob {
	return &SuppliersChangedJob{Warmer: warmer, Logger: logger, Metrics: metrics, clock: time.Now}
}

// Handle processes a suppliers:changed task.
func (j *SuppliersChangedJob) Handle(ctx context.Context, task *asynq.Task) (err error) {
	tracker := j.metrics().Track(TaskSuppliersChanged)
	defer func() { err = tracker.End(err) }()

	var payload SuppliersChangedPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode %s payload: %v: %w", TaskSuppliersChanged, err, asynq.SkipRetry)
	}
	if j.Warmer == nil {
		return nil
	}
	if err := j.Warmer.WarmCache(ctx); err != nil {
		return fmt.Errorf("warm supplier cache: %w", err)
	}

	attrs := []any{
		slog.Int64("supplier_id", payload.SupplierID),
		slog.String("kind", payload.Kind),
	}
	if !payload.OccurredAt.IsZero() {
		attrs = append(attrs, slog.Duration("lag", j.now().Sub(payload.OccurredAt)))
	}
	j.logger().Info("supplier cache warmed", attrs...)
	return nil
}

func (j *SuppliersChangedJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

func (j *SuppliersChangedJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *SuppliersChangedJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now()
}
