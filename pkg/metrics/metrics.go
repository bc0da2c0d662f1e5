package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ActiveConnections tracks live websocket connections across all rooms
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chatroom_ws_connections",
		Help: "Number of live websocket connections.",
	})

	// ActiveRooms tracks rooms with at least one live connection
	ActiveRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chatroom_ws_rooms",
		Help: "Number of rooms with at least one live connection.",
	})

	// MessagesRelayed counts chat messages persisted and fanned out
	MessagesRelayed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatroom_messages_relayed_total",
		Help: "Chat messages persisted and broadcast to their room.",
	})

	// BroadcastDrops counts frames dropped because a peer's buffer was full
	BroadcastDrops = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatroom_broadcast_drops_total",
		Help: "Outbound frames dropped on slow or dead peers.",
	})

	// PersistFailures counts message store writes that failed
	PersistFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatroom_persist_failures_total",
		Help: "Message store writes that failed.",
	})
)

// Handler exposes Prometheus metrics at /metrics
func Handler() http.Handler {
	return promhttp.Handler()
}
