package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/inventaris/inventaris/internal/jobs"
	"github.com/inventaris/inventaris/internal/masterdata/suppliers"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type stubWarmer struct {
	calls int
	err   error
}

func (w *stubWarmer) WarmCache(context.Context) error {
	w.calls++
	return w.err
}

type stubCleaner struct {
	retention time.Duration
	removed   int64
	err       error
}

func (c *stubCleaner) Cleanup(_ context.Context, olderThan time.Duration) (int64, error) {
	c.retention = olderThan
	return c.removed, c.err
}

type recordingEnqueuer struct {
	tasks  []*asynq.Task
	closed bool
}

func (e *recordingEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	e.tasks = append(e.tasks, task)
	return &asynq.TaskInfo{ID: "t1", Queue: QueueDefault, Type: task.Type()}, nil
}

func (e *recordingEnqueuer) Close() error {
	e.closed = true
	return nil
}

type stubInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (s stubInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) {
	return s.info, s.err
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	metrics:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
					continue metrics
				}
			}
			return m.GetCounter().GetValue()
		}
	}
	return 0
}

func gaugeValue(t *testing.T, reg *prometheus.Registry, name, job string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "job" && lp.GetValue() == job {
					return m.GetGauge().GetValue()
				}
			}
		}
	}
	return 0
}

func supplierEvent() suppliers.ChangedEvent {
	return suppliers.ChangedEvent{
		SupplierID: 42,
		Kind:       suppliers.ChangeUpdated,
		ActorID:    7,
		OccurredAt: time.Date(2024, 3, 1, 9, 30, 0, 0, time.FixedZone("WIB", 7*3600)),
	}
}

func TestNewSuppliersChangedTaskEncodesEvent(t *testing.T) {
	task, err := NewSuppliersChangedTask(supplierEvent())
	require.NoError(t, err)
	assert.Equal(t, TaskSuppliersChanged, task.Type())

	var payload SuppliersChangedPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, int64(42), payload.SupplierID)
	assert.Equal(t, "updated", payload.Kind)
	assert.Equal(t, int64(7), payload.ActorID)
	assert.Equal(t, time.UTC, payload.OccurredAt.Location())
	assert.True(t, payload.OccurredAt.Equal(supplierEvent().OccurredAt))
}

func TestClientPublishSupplierChanged(t *testing.T) {
	enq := &recordingEnqueuer{}
	client := &Client{client: enq}

	require.NoError(t, client.PublishSupplierChanged(context.Background(), supplierEvent()))
	require.Len(t, enq.tasks, 1)
	assert.Equal(t, TaskSuppliersChanged, enq.tasks[0].Type())

	require.NoError(t, client.Close())
	assert.True(t, enq.closed)
}

func TestUnconfiguredClientRejectsPublish(t *testing.T) {
	var client *Client
	assert.Error(t, client.PublishSupplierChanged(context.Background(), supplierEvent()))
	assert.NoError(t, client.Close())
}

func TestSuppliersChangedJobWarmsCache(t *testing.T) {
	reg := prometheus.NewRegistry()
	warmer := &stubWarmer{}
	job := NewSuppliersChangedJob(warmer, quietLogger, jobmetrics.NewMetrics(reg))
	job.clock = func() time.Time { return supplierEvent().OccurredAt.Add(2 * time.Second) }

	task, err := NewSuppliersChangedTask(supplierEvent())
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	assert.Equal(t, 1, warmer.calls)
	assert.Equal(t, 1.0, counterValue(t, reg, "inventaris_jobs_total", map[string]string{"job": TaskSuppliersChanged, "status": "success"}))
}

func TestSuppliersChangedJobReportsWarmFailure(t *testing.T) {
	reg := prometheus.NewRegistry()
	warmer := &stubWarmer{err: errors.New("redis down")}
	job := NewSuppliersChangedJob(warmer, quietLogger, jobmetrics.NewMetrics(reg))

	task, err := NewSuppliersChangedTask(supplierEvent())
	require.NoError(t, err)
	err = job.Handle(context.Background(), task)
	require.Error(t, err)
	assert.ErrorContains(t, err, "redis down")
	assert.Equal(t, 1.0, counterValue(t, reg, "inventaris_jobs_failures_total", map[string]string{"job": TaskSuppliersChanged}))
}

func TestSuppliersChangedJobSkipsRetryOnBadPayload(t *testing.T) {
	warmer := &stubWarmer{}
	job := NewSuppliersChangedJob(warmer, quietLogger, jobmetrics.NewMetrics(prometheus.NewRegistry()))

	err := job.Handle(context.Background(), asynq.NewTask(TaskSuppliersChanged, []byte("{")))
	require.Error(t, err)
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.Zero(t, warmer.calls)
}

func TestIdempotencyCleanupJobUsesRetention(t *testing.T) {
	reg := prometheus.NewRegistry()
	store := &stubCleaner{removed: 3}
	job := NewIdempotencyCleanupJob(store, 24*time.Hour, quietLogger, jobmetrics.NewMetrics(reg))

	require.NoError(t, job.Handle(context.Background(), NewIdempotencyCleanupTask()))
	assert.Equal(t, 24*time.Hour, store.retention)
	assert.Equal(t, 1.0, counterValue(t, reg, "inventaris_jobs_total", map[string]string{"job": TaskIdempotencyCleanup, "status": "success"}))
	assert.Greater(t, gaugeValue(t, reg, "inventaris_job_last_success_timestamp_seconds", TaskIdempotencyCleanup), 0.0)
}

func TestIdempotencyCleanupJobErrors(t *testing.T) {
	job := NewIdempotencyCleanupJob(&stubCleaner{err: errors.New("boom")}, time.Hour, quietLogger, jobmetrics.NewMetrics(prometheus.NewRegistry()))
	assert.ErrorContains(t, job.Handle(context.Background(), NewIdempotencyCleanupTask()), "boom")

	job = NewIdempotencyCleanupJob(&stubCleaner{}, 0, quietLogger, jobmetrics.NewMetrics(prometheus.NewRegistry()))
	assert.ErrorIs(t, job.Handle(context.Background(), NewIdempotencyCleanupTask()), asynq.SkipRetry)
}

func TestHandlerHealth(t *testing.T) {
	r := chi.NewRouter()
	NewHandler(stubInspector{info: &asynq.QueueInfo{Queue: QueueDefault, Pending: 2, Failed: 1}}, quietLogger).MountRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, QueueDefault, body["queue"])
	assert.EqualValues(t, 2, body["pending"])
	assert.EqualValues(t, 1, body["failed_today"])
}

func TestHandlerHealthInspectorFailure(t *testing.T) {
	r := chi.NewRouter()
	NewHandler(stubInspector{err: errors.New("no redis")}, quietLogger).MountRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
