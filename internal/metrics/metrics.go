// Package metrics exports editor activity as Prometheus metrics.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-terrain/internal/editor"
	"github.com/Faultbox/midgard-terrain/internal/logger"
)

const namespace = "terrain_editor"

// Metrics implements editor.Recorder. A nil *Metrics records nothing.
type Metrics struct {
	operations   *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	strokes      *prometheus.CounterVec
	strokeBytes  prometheus.Histogram
	created      prometheus.Counter
	deleted      prometheus.Counter
	restores     *prometheus.CounterVec
	historySize  prometheus.Gauge
	historyBytes prometheus.Gauge
}

var _ editor.Recorder = (*Metrics)(nil)

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Operate calls by tool, operation and whether spacing skipped them.",
		}, []string{"tool", "operation", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Time spent applying one operation.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"tool"}),
		strokes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "strokes_total",
			Help:      "Committed strokes by whether they were journaled.",
		}, []string{"journaled"}),
		strokeBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stroke_snapshot_bytes",
			Help:      "Snapshot bytes held by one committed stroke.",
			Buckets:   prometheus.ExponentialBuckets(1<<12, 4, 8),
		}),
		created: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "regions_created_total",
			Help:      "Regions created by the region tool or auto regions.",
		}),
		deleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "regions_deleted_total",
			Help:      "Regions deleted by the region tool.",
		}),
		restores: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "journal_restores_total",
			Help:      "Journal entries applied, by direction.",
		}, []string{"direction"}),
		historySize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "journal_entries",
			Help:      "Entries held for undo and redo.",
		}),
		historyBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "journal_bytes",
			Help:      "Snapshot bytes held for undo and redo.",
		}),
	}
	for _, c := range []prometheus.Collector{
		m.operations, m.duration, m.strokes, m.strokeBytes,
		m.created, m.deleted, m.restores, m.historySize, m.historyBytes,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) Operation(tool editor.Tool, op editor.Operation, applied bool, d time.Duration) {
	if m == nil {
		return
	}
	result := "applied"
	if !applied {
		result = "skipped"
	}
	m.operations.WithLabelValues(tool.String(), op.String(), result).Inc()
	if applied {
		m.duration.WithLabelValues(tool.String()).Observe(d.Seconds())
	}
}

func (m *Metrics) StrokeCommitted(journaled bool, bytes int64) {
	if m == nil {
		return
	}
	label := "true"
	if !journaled {
		label = "false"
	}
	m.strokes.WithLabelValues(label).Inc()
	m.strokeBytes.Observe(float64(bytes))
}

func (m *Metrics) RegionsCreated(n int) {
	if m == nil {
		return
	}
	m.created.Add(float64(n))
}

func (m *Metrics) RegionsDeleted(n int) {
	if m == nil {
		return
	}
	m.deleted.Add(float64(n))
}

func (m *Metrics) History(entries int, bytes int64) {
	if m == nil {
		return
	}
	m.historySize.Set(float64(entries))
	m.historyBytes.Set(float64(bytes))
}

func (m *Metrics) Restored(redo bool) {
	if m == nil {
		return
	}
	direction := "undo"
	if redo {
		direction = "redo"
	}
	m.restores.WithLabelValues(direction).Inc()
}

// Handler serves g in the Prometheus exposition format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// Serve exposes g on addr at /metrics until ctx is done.
func Serve(ctx context.Context, addr string, g prometheus.Gatherer) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(g))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
