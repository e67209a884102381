// Package observability exposes prometheus instrumentation for the send
// pipeline.
package observability

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce sync.Once

	packetsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "packetlink",
			Subsystem: "transport",
			Name:      "packets_sent_total",
			Help:      "Packets successfully written to the medium.",
		},
		[]string{"transport"},
	)
	sendErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "packetlink",
			Subsystem: "transport",
			Name:      "send_errors_total",
			Help:      "Failed send attempts, including ones later retried.",
		},
		[]string{"transport"},
	)
	sendRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "packetlink",
			Subsystem: "transport",
			Name:      "send_retries_total",
			Help:      "Packets re-enqueued after a temporary send failure.",
		},
		[]string{"transport"},
	)
	packetsDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "packetlink",
			Subsystem: "transport",
			Name:      "packets_dropped_total",
			Help:      "Packets dropped after a fatal failure or a lost retry.",
		},
		[]string{"transport"},
	)
	queueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "packetlink",
			Subsystem: "transport",
			Name:      "queue_depth",
			Help:      "Current outbound queue occupancy.",
		},
		[]string{"transport"},
	)
)

// Register installs the transport collectors on the default registry.
// Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(packetsSent, sendErrors, sendRetries, packetsDropped, queueDepth)
	})
}

func PacketSent(transport string)    { packetsSent.WithLabelValues(transport).Inc() }
func SendError(transport string)     { sendErrors.WithLabelValues(transport).Inc() }
func SendRetried(transport string)   { sendRetries.WithLabelValues(transport).Inc() }
func PacketDropped(transport string) { packetsDropped.WithLabelValues(transport).Inc() }

func SetQueueDepth(transport string, depth int) {
	queueDepth.WithLabelValues(transport).Set(float64(depth))
}

// Handler serves the metrics endpoint.
func Handler() http.Handler {
	Register()
	return promhttp.Handler()
}
