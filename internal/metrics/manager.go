// Package metrics defines the Prometheus collectors exported by the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Manager struct {
	// requests
	CounterRequests     *prometheus.CounterVec
	HistRequestDuration prometheus.Histogram

	// generation
	CounterGenerations *prometheus.CounterVec
	HistGeneration     *prometheus.HistogramVec

	// workouts
	CounterWorkoutsCompleted prometheus.Counter
	CounterWorkoutsDeleted   prometheus.Counter
	CounterSetsToggled       *prometheus.CounterVec

	// rest timer
	CounterTimers        *prometheus.CounterVec
	CounterNotifications *prometheus.CounterVec

	// events
	CounterEventsPublished *prometheus.CounterVec
}

// NewTestManagerAndRegistry returns a manager bound to a fresh registry.
func NewTestManagerAndRegistry() (*Manager, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return NewManager("gymcoach", "test", reg), reg
}

func NewManager(namespace, subsystem string, reg prometheus.Registerer) *Manager {
	factory := promauto.With(reg)

	return &Manager{
		CounterRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "requests_total",
			Help:      "The total number of incoming requests",
		}, []string{"method", "status"}),
		HistRequestDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "request_duration_seconds",
			Help:      "Total duration of requests in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
		}),
		CounterGenerations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "generations_total",
			Help:      "Calls to the generative model by kind and outcome",
		}, []string{"kind", "status"}),
		HistGeneration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "generation_duration_seconds",
			Help:      "Duration of calls to the generative model",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 60},
		}, []string{"kind"}),
		CounterWorkoutsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "workouts_completed_total",
			Help:      "Drafts saved to history",
		}),
		CounterWorkoutsDeleted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "workouts_deleted_total",
			Help:      "History entries deleted",
		}),
		CounterSetsToggled: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "sets_toggled_total",
			Help:      "Set completion toggles by transition",
		}, []string{"transition"}),
		CounterTimers: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "rest_timers_total",
			Help:      "Rest timer lifecycle events",
		}, []string{"event"}),
		CounterNotifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "notifications_total",
			Help:      "Rest-over signals by delivery outcome",
		}, []string{"outcome"}),
		CounterEventsPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "events_published_total",
			Help:      "Domain events by type and outcome",
		}, []string{"type", "status"}),
	}
}
