package kafka

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type clientMetrics struct {
	published *prometheus.CounterVec
	pubBytes  *prometheus.CounterVec
	pubTime   *prometheus.HistogramVec
	handled   *prometheus.CounterVec
	handle    *prometheus.HistogramVec
	backlog   *prometheus.GaugeVec
	dlq       *prometheus.CounterVec
}

var (
	metricsOnce sync.Once
	metrics     *clientMetrics
)

func kafkaMetrics() *clientMetrics {
	metricsOnce.Do(func() {
		metrics = &clientMetrics{
			published: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "jarvis_kafka_published_total",
				Help: "Messages written to Kafka by topic and result.",
			}, []string{"topic", "result"}),
			pubBytes: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "jarvis_kafka_published_bytes_total",
				Help: "Payload bytes written to Kafka.",
			}, []string{"topic"}),
			pubTime: promauto.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "jarvis_kafka_publish_seconds",
				Help:    "Time spent in WriteMessages.",
				Buckets: prometheus.DefBuckets,
			}, []string{"topic"}),
			handled: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "jarvis_kafka_consumed_total",
				Help: "Messages handled by topic and result.",
			}, []string{"topic", "result"}),
			handle: promauto.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "jarvis_kafka_handle_seconds",
				Help:    "Handling time per message including retries.",
				Buckets: prometheus.DefBuckets,
			}, []string{"topic"}),
			backlog: promauto.NewGaugeVec(prometheus.GaugeOpts{
				Name: "jarvis_kafka_worker_backlog",
				Help: "Messages queued for a consumer worker.",
			}, []string{"worker"}),
			dlq: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "jarvis_kafka_dlq_total",
				Help: "Messages routed to the dead-letter topic.",
			}, []string{"topic"}),
		}
	})
	return metrics
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
