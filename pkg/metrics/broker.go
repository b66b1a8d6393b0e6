package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	AckRequestsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "broker_ack_requests_total",
		Help: "Total number of ack requests received, valid or not",
	})

	ConsumerAckRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broker_consumer_ack_requests_total",
			Help: "Ack and heartbeat requests per partition and consumer group",
		},
		[]string{"partition", "group"},
	)

	ConsumerAckMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broker_consumer_ack_messages_total",
			Help: "Messages acknowledged per partition and consumer group",
		},
		[]string{"partition", "group"},
	)

	AckSizeHist = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "broker_ack_size_messages",
		Help:    "Histogram of the number of messages covered by one ack request",
		Buckets: []float64{1, 2, 5, 10, 20, 50, 100, 200, 500, 1000},
	})

	AckProcessLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "broker_ack_process_latency_seconds",
		Help:    "Time from ack entry creation until its response is written",
		Buckets: prometheus.DefBuckets,
	})

	AckResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broker_ack_results_total",
			Help: "Ack entries completed by the worker, by result",
		},
		[]string{"result"},
	)

	AckMailboxRejected = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "broker_ack_mailbox_rejected_total",
		Help: "Ack entries the worker refused because a mailbox was full or stopped",
	})

	HeartbeatsDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "broker_subscriber_heartbeats_dropped_total",
		Help: "Subscriber heartbeats dropped because the liveness queue was full",
	})

	SubscribersOnline = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "broker_subscribers_online",
		Help: "Current number of subscribers considered online",
	})

	ActiveConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "broker_active_connections",
		Help: "Current number of client connections",
	})
)

// AckMonitor reports processor counters to Prometheus.
type AckMonitor struct{}

func NewAckMonitor() *AckMonitor {
	return &AckMonitor{}
}

func (AckMonitor) IncAckRequestCount() {
	AckRequestsTotal.Inc()
}

func (AckMonitor) IncConsumerAckRequestCount(partition, group string) {
	ConsumerAckRequests.WithLabelValues(partition, group).Inc()
}

// RecordAckSize observes size as reported. Only positive sizes move the
// message counter, since a counter cannot go down.
func (AckMonitor) RecordAckSize(partition, group string, size int64) {
	AckSizeHist.Observe(float64(size))
	if size > 0 {
		ConsumerAckMessages.WithLabelValues(partition, group).Add(float64(size))
	}
}

// ObserveAckCompleted records how an ack entry ended and how long it took.
func ObserveAckCompleted(result string, started time.Time) {
	AckResults.WithLabelValues(result).Inc()
	AckProcessLatency.Observe(time.Since(started).Seconds())
}
