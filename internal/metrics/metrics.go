package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	OrdersCreated    prometheus.Counter
	OrdersCancelled  prometheus.Counter
	StatusUpdates    *prometheus.CounterVec
	StockConflicts   prometheus.Counter
	CreateDurationMS prometheus.Histogram
	EventsPublished  *prometheus.CounterVec
	WSConnections    prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		OrdersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "restaurant",
			Subsystem: "orders",
			Name:      "created_total",
			Help:      "Orders successfully created.",
		}),
		OrdersCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "restaurant",
			Subsystem: "orders",
			Name:      "cancelled_total",
			Help:      "Orders cancelled with stock restored.",
		}),
		StatusUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "restaurant",
			Subsystem: "orders",
			Name:      "status_updates_total",
			Help:      "Status transitions applied, by target status.",
		}, []string{"status"}),
		StockConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "restaurant",
			Subsystem: "orders",
			Name:      "stock_conflicts_total",
			Help:      "Create transactions aborted by a concurrent stock change.",
		}),
		CreateDurationMS: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "restaurant",
			Subsystem: "orders",
			Name:      "create_duration_ms",
			Help:      "Order creation latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		}),
		EventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "restaurant",
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Lifecycle events published to the broker, by kind.",
		}, []string{"event"}),
		WSConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "restaurant",
			Subsystem: "notifier",
			Name:      "ws_connections",
			Help:      "Live websocket subscriber connections.",
		}),
	}
	prometheus.MustRegister(
		m.OrdersCreated, m.OrdersCancelled, m.StatusUpdates, m.StockConflicts,
		m.CreateDurationMS, m.EventsPublished, m.WSConnections,
	)
	return m
}

func Handler() http.Handler { return promhttp.Handler() }
