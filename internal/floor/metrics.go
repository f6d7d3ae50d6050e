package floor

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-vox/internal/logger"
)

// Metrics holds the Prometheus instruments updated by a Floor.
type Metrics struct {
	writesSubmitted  prometheus.Counter
	writeRetries     prometheus.Counter
	droppedMutations prometheus.Counter
	writerPanics     prometheus.Counter
	remeshes         prometheus.Counter
	remeshSeconds    prometheus.Histogram
	persist          *prometheus.CounterVec

	writesPending prometheus.Gauge
	vertexBytes   prometheus.Gauge
	voxelBytes    prometheus.Gauge
}

// NewMetrics creates the floor instruments and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		writesSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "floor",
			Name:      "writes_submitted_total",
			Help:      "Per-section write jobs submitted.",
		}),
		writeRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "floor",
			Name:      "write_retries_total",
			Help:      "Write jobs resubmitted because the section gate was held.",
		}),
		droppedMutations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "floor",
			Name:      "mutations_dropped_total",
			Help:      "Mutations ignored while a save or load was in progress.",
		}),
		writerPanics: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "floor",
			Name:      "writer_panics_total",
			Help:      "Writer callbacks that panicked.",
		}),
		remeshes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "floor",
			Name:      "remeshes_total",
			Help:      "Section geometry rebuilds.",
		}),
		remeshSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "floor",
			Name:      "remesh_duration_seconds",
			Help:      "Time spent extracting and building one section mesh.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
		persist: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "floor",
			Name:      "persist_total",
			Help:      "Save and load jobs by outcome.",
		}, []string{"op", "result"}),
		writesPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "floor",
			Name:      "writes_pending",
			Help:      "Write jobs submitted and not yet finished.",
		}),
		vertexBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "floor",
			Name:      "vertex_buffer_bytes",
			Help:      "Bytes of uploaded section geometry.",
		}),
		voxelBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "floor",
			Name:      "voxel_data_bytes",
			Help:      "Bytes of allocated voxel blocks.",
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.writesSubmitted, m.writeRetries, m.droppedMutations, m.writerPanics,
			m.remeshes, m.remeshSeconds, m.persist,
			m.writesPending, m.vertexBytes, m.voxelBytes,
		)
	}
	return m
}

func (m *Metrics) observeStats(s Stats) {
	m.writesPending.Set(float64(s.WritesPending))
	m.vertexBytes.Set(float64(s.VertexBytes))
	m.voxelBytes.Set(float64(s.VoxelBytes))
}

func (m *Metrics) observePersist(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.persist.WithLabelValues(op, result).Inc()
}

// Serve exposes the registry gatherer on addr under /metrics. It returns once
// the listener fails or the server is shut down.
func Serve(addr string, g prometheus.Gatherer) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	logger.Named("floor").Info("metrics endpoint listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
