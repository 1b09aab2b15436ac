package bridge

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

var (
	messagesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bridge_messages_received_total",
		Help: "Inbound MQTT messages seen on the wildcard subscription.",
	})
	pointsWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bridge_points_written_total",
		Help: "Points written to the series store.",
	})
	unrecognizedTopics = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bridge_unrecognized_topics_total",
		Help: "Messages skipped because no decoder matched the topic.",
	})
)

// ServeMetrics exposes the prometheus metrics and a health endpoint.
// Blocks; run in a goroutine.
func ServeMetrics(port int, logger *logrus.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	logger.WithField("port", port).Info("Metrics server listening")
	if err := http.ListenAndServe(fmt.Sprintf(":%d", port), mux); err != nil {
		logger.Errorf("Metrics server stopped: %v", err)
	}
}
