package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// -----------------------------------------------------------------------------

var (
	PacketsReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "plant_packets_received_total",
		Help: "Datagrams received from the exchange feed.",
	})

	PacketsTruncated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "plant_packets_truncated_total",
		Help: "Datagrams dropped because they were shorter than the framing requires.",
	})

	GapsDetected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "plant_sequence_gaps_total",
		Help: "Sequence gaps detected by the receiver.",
	})

	RetransmitRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "plant_retransmit_requests_total",
		Help: "Retransmit request packets sent upstream.",
	})

	DuplicatesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "plant_duplicates_dropped_total",
		Help: "Packets behind the expected sequence, dropped without delivery.",
	})

	MessagesDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "plant_messages_delivered_total",
		Help: "In-order message payloads delivered to the event handler.",
	})

	EventsApplied = promauto.NewCounter(prometheus.CounterOpts{
		Name: "plant_events_applied_total",
		Help: "Market events applied to a book.",
	})

	ActiveSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "plant_active_subscribers",
		Help: "Subscribers currently registered with the plant server.",
	})
)

// -----------------------------------------------------------------------------

// Handler exposes the default registry in Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
