package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type PrometheusCollector struct {
	// Gauges
	roomsActive      prometheus.Gauge
	clientsConnected prometheus.Gauge

	// Counters
	roomsCreatedTotal  prometheus.Counter
	messagesRelayed    *prometheus.CounterVec
	joinFailures       *prometheus.CounterVec
	staleRelaysDropped prometheus.Counter
}

func NewPrometheusCollector() *PrometheusCollector {
	return &PrometheusCollector{
		roomsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "parley_rooms_active",
			Help: "Number of live rooms in the registry",
		}),

		clientsConnected: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "parley_clients_connected",
			Help: "Number of websocket clients currently connected",
		}),

		roomsCreatedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "parley_rooms_created_total",
			Help: "Total number of rooms created",
		}),

		messagesRelayed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "parley_messages_relayed_total",
			Help: "Total negotiation messages forwarded between room members",
		}, []string{"kind"}),

		joinFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "parley_join_failures_total",
			Help: "Total refused create/join attempts",
		}, []string{"reason"}),

		staleRelaysDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "parley_stale_relays_dropped_total",
			Help: "Total relay messages dropped because the room no longer exists",
		}),
	}
}

func (pc *PrometheusCollector) RoomDeleted() {
	pc.roomsActive.Dec()
}

func (pc *PrometheusCollector) ClientConnected() {
	pc.clientsConnected.Inc()
}

func (pc *PrometheusCollector) ClientDisconnected() {
	pc.clientsConnected.Dec()
}

func (pc *PrometheusCollector) RoomCreated() {
	pc.roomsCreatedTotal.Inc()
	pc.roomsActive.Inc()
}

func (pc *PrometheusCollector) MessageRelayed(kind string) {
	pc.messagesRelayed.WithLabelValues(kind).Inc()
}

func (pc *PrometheusCollector) JoinRefused(reason string) {
	pc.joinFailures.WithLabelValues(reason).Inc()
}

func (pc *PrometheusCollector) StaleRelayDropped() {
	pc.staleRelaysDropped.Inc()
}
