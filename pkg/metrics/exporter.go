package metrics

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/downfa11-org/cursus-ack/util"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func init() {
	prometheus.MustRegister(AckRequestsTotal, ConsumerAckRequests, ConsumerAckMessages, AckSizeHist)
	prometheus.MustRegister(AckProcessLatency, AckResults, AckMailboxRejected)
	prometheus.MustRegister(HeartbeatsDropped, SubscribersOnline, ActiveConnections)
}

// StartMetricsServer serves /metrics on port in the background.
func StartMetricsServer(port int) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}

	go func() {
		util.Info("Prometheus exporter listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			util.Error("failed to start metrics server: %v", err)
		}
	}()
	return srv
}
