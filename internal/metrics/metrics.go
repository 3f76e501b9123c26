package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WeatherJobsSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "agrisa",
		Subsystem: "weather_jobs",
		Name:      "submitted_total",
		Help:      "Weather download jobs accepted, by dataset.",
	}, []string{"dataset"})

	WeatherJobNotifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "agrisa",
		Subsystem: "weather_jobs",
		Name:      "status_notifications_total",
		Help:      "Job status snapshots delivered to observers, by status.",
	}, []string{"status"})

	WeatherJobTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "agrisa",
		Subsystem: "weather_jobs",
		Name:      "transitions_total",
		Help:      "Status transitions applied by the executor, by target status.",
	}, []string{"status"})

	WeatherJobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "agrisa",
		Subsystem: "weather_jobs",
		Name:      "execution_seconds",
		Help:      "Executor wall time per job, by outcome.",
		Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
	}, []string{"outcome"})

	EnrollmentsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "agrisa",
		Subsystem: "assignment",
		Name:      "enrollments_created_total",
		Help:      "Enrollment rows persisted through wizard confirmation.",
	})

	WizardConfirmations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "agrisa",
		Subsystem: "assignment",
		Name:      "wizard_confirmations_total",
		Help:      "Wizard confirmation attempts, by result.",
	}, []string{"result"})

	GatewayBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "agrisa",
		Subsystem: "gateway",
		Name:      "breaker_state",
		Help:      "Circuit breaker state (0 closed, 1 half-open, 2 open).",
	}, []string{"name"})
)
