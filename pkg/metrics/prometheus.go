package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements repository.Metrics using Prometheus.
type Recorder struct {
	messagesSent    *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	latency         *prometheus.HistogramVec
	consensus       *prometheus.CounterVec
	backtestSeconds *prometheus.HistogramVec
	gateRatio       *prometheus.GaugeVec
	gateTripped     *prometheus.GaugeVec
	gateTransitions *prometheus.CounterVec
	upstreamSeconds *prometheus.HistogramVec
	upstreamErrors  *prometheus.CounterVec
}

var (
	recorderOnce sync.Once
	recorder     *Recorder
)

// New returns the process-wide recorder. Collectors register once with the
// default registry.
func New() *Recorder {
	recorderOnce.Do(func() {
		recorder = &Recorder{
			messagesSent: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "jarvis_messages_sent_total",
				Help: "Messages published to a backend",
			}, []string{"backend", "topic"}),
			errorsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "jarvis_errors_total",
				Help: "Errors by kind",
			}, []string{"type"}),
			latency: promauto.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "jarvis_operation_duration_seconds",
				Help:    "Duration of internal operations",
				Buckets: prometheus.DefBuckets,
			}, []string{"operation"}),
			consensus: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "jarvis_strategy_consensus_total",
				Help: "Consensus signals produced per pool",
			}, []string{"pool", "signal"}),
			backtestSeconds: promauto.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "jarvis_backtest_duration_seconds",
				Help:    "Time spent backtesting one strategy",
				Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
			}, []string{"strategy"}),
			gateRatio: promauto.NewGaugeVec(prometheus.GaugeOpts{
				Name: "jarvis_confidence_ratio",
				Help: "Latest confidence ratio per mint",
			}, []string{"mint"}),
			gateTripped: promauto.NewGaugeVec(prometheus.GaugeOpts{
				Name: "jarvis_confidence_tripped",
				Help: "1 when the trading gate is tripped for a mint",
			}, []string{"mint"}),
			gateTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "jarvis_confidence_transitions_total",
				Help: "Gate trips and recoveries",
			}, []string{"mint", "direction"}),
			upstreamSeconds: promauto.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "jarvis_upstream_request_duration_seconds",
				Help:    "Latency of market data upstream calls",
				Buckets: prometheus.DefBuckets,
			}, []string{"source"}),
			upstreamErrors: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "jarvis_upstream_errors_total",
				Help: "Failed upstream calls",
			}, []string{"source"}),
		}
	})
	return recorder
}

func (r *Recorder) RecordMessageSent(backend, topic string) {
	r.messagesSent.WithLabelValues(backend, topic).Inc()
}

func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

func (r *Recorder) RecordConsensus(pool, signal string) {
	r.consensus.WithLabelValues(pool, signal).Inc()
}

func (r *Recorder) RecordBacktest(strategy string, seconds float64) {
	r.backtestSeconds.WithLabelValues(strategy).Observe(seconds)
}

// RecordGate stores the latest ratio and tripped flag. A negative ratio means
// no data and leaves the ratio gauge untouched.
func (r *Recorder) RecordGate(mint string, ratio float64, tripped bool) {
	if ratio >= 0 {
		r.gateRatio.WithLabelValues(mint).Set(ratio)
	}
	v := 0.0
	if tripped {
		v = 1
	}
	r.gateTripped.WithLabelValues(mint).Set(v)
}

func (r *Recorder) RecordGateTransition(mint string, tripped bool) {
	dir := "recovered"
	if tripped {
		dir = "tripped"
	}
	r.gateTransitions.WithLabelValues(mint, dir).Inc()
}

func (r *Recorder) RecordUpstream(source string, seconds float64, err error) {
	r.upstreamSeconds.WithLabelValues(source).Observe(seconds)
	if err != nil {
		r.upstreamErrors.WithLabelValues(source).Inc()
	}
}

// Nop discards everything. Used by tests and one-shot CLI runs.
type Nop struct{}

func (Nop) RecordMessageSent(string, string) {}
func (Nop) RecordError(string) {}
func (Nop) RecordLatency(string, float64) {}
func (Nop) RecordConsensus(string, string) {}
func (Nop) RecordBacktest(string, float64) {}
func (Nop) RecordGate(string, float64, bool) {}
func (Nop) RecordGateTransition(string, bool) {}
func (Nop) RecordUpstream(string, float64, error) {}
