package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Engagement = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cragline",
		Name:      "engagement_total",
		Help:      "Likes, unlikes and comments committed to the store.",
	}, []string{"op"})

	MessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "cragline",
		Name:      "messages_sent_total",
		Help:      "Direct messages written.",
	})

	Searches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cragline",
		Name:      "searches_total",
		Help:      "Searches that reached the backend, by filter.",
	}, []string{"filter"})

	NotificationsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cragline",
		Name:      "notifications_created_total",
		Help:      "Notifications written, by type.",
	}, []string{"type"})

	WSSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "cragline",
		Name:      "ws_sessions",
		Help:      "Open websocket sessions.",
	})
)

func Handler() http.Handler {
	return promhttp.Handler()
}
