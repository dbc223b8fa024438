package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusCollector holds the hub's Prometheus instrumentation. All metrics
// are process-wide since a hub coordinates exactly one session at a time.
type PrometheusCollector struct {
	agentsConnected  prometheus.Gauge
	pipelinesActive  prometheus.Gauge
	bytesIngested    prometheus.Counter
	connectionsTotal prometheus.Counter
	countdownsTotal  prometheus.Counter

	protocolDispatchDuration prometheus.Histogram
	pipelineDuration         prometheus.Histogram

	archiveUploadTotal *prometheus.CounterVec
}

func NewPrometheusCollector() *PrometheusCollector {
	return &PrometheusCollector{
		agentsConnected: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "syncrun_agents_connected",
			Help: "Number of agents currently holding a slot",
		}),

		pipelinesActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "syncrun_pipelines_active",
			Help: "Number of transcoding pipelines currently running",
		}),

		bytesIngested: promauto.NewCounter(prometheus.CounterOpts{
			Name: "syncrun_bytes_ingested_total",
			Help: "Total bytes of binary video frames ingested from agents",
		}),

		connectionsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "syncrun_connections_total",
			Help: "Total number of WebSocket connections accepted",
		}),

		countdownsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "syncrun_countdowns_total",
			Help: "Total number of countdowns started after unanimous readiness",
		}),

		protocolDispatchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "syncrun_protocol_dispatch_duration_seconds",
			Help:    "Time to handle one inbound protocol message",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}),

		pipelineDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "syncrun_pipeline_duration_seconds",
			Help:    "Duration of a per-agent transcoding pipeline from start to stop",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),

		archiveUploadTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "syncrun_archive_upload_total",
			Help: "Archive uploads to the external object store by outcome",
		}, []string{"outcome"}),
	}
}

func (p *PrometheusCollector) RecordAgentConnected() {
	p.agentsConnected.Inc()
	p.connectionsTotal.Inc()
}

func (p *PrometheusCollector) RecordAgentDisconnected() {
	p.agentsConnected.Dec()
}

func (p *PrometheusCollector) RecordPipelineStarted() {
	p.pipelinesActive.Inc()
}

func (p *PrometheusCollector) RecordPipelineStopped(duration time.Duration) {
	p.pipelinesActive.Dec()
	p.pipelineDuration.Observe(duration.Seconds())
}

func (p *PrometheusCollector) RecordBytesIngested(n int) {
	p.bytesIngested.Add(float64(n))
}

func (p *PrometheusCollector) RecordCountdownStarted() {
	p.countdownsTotal.Inc()
}

func (p *PrometheusCollector) RecordProtocolDispatch(duration time.Duration) {
	p.protocolDispatchDuration.Observe(duration.Seconds())
}

func (p *PrometheusCollector) RecordArchiveUpload(success bool) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	p.archiveUploadTotal.WithLabelValues(outcome).Inc()
}
