package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "notification_gateway"

var (
	// PushesReceived counts push deliveries by notification category.
	PushesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pushes_received_total",
		Help:      "Push deliveries handled, by notification category.",
	}, []string{"category"})

	// RemindersEmitted counts chat reminders delivered to listeners, by channel.
	RemindersEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "chat_reminders_emitted_total",
		Help:      "Chat reminders emitted, by delivery channel.",
	}, []string{"channel"})

	// RemindersSuppressed counts chat reminders that were not emitted, by reason.
	RemindersSuppressed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "chat_reminders_suppressed_total",
		Help:      "Chat reminders suppressed, by reason.",
	}, []string{"reason"})

	// BackendFailures counts failed backend calls, by operation.
	BackendFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "backend_failures_total",
		Help:      "Backend calls that failed, by operation.",
	}, []string{"operation"})

	// AlertsPresented counts foreground alert banners.
	AlertsPresented = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "alerts_presented_total",
		Help:      "Foreground alert banners presented.",
	})
)

// Handler returns the HTTP handler that exposes the metrics.
func Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}
