package metrics

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TurnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lewas_chat_turns_total",
			Help: "Chat turns processed, by outcome",
		},
		[]string{"status"},
	)

	ClassificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lewas_chat_classifications_total",
			Help: "Classification tags returned by the classify endpoint",
		},
		[]string{"tag", "degraded"},
	)

	AnswerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lewas_chat_answer_duration_seconds",
			Help:    "Answer call duration in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30},
		},
		[]string{"route"},
	)

	FeedbackTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lewas_chat_feedback_total",
			Help: "Feedback votes, by verdict and remote write outcome",
		},
		[]string{"verdict", "remote"},
	)

	AuthOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lewas_chat_auth_operations_total",
			Help: "Identity provider operations, by result kind",
		},
		[]string{"operation", "result"},
	)

	BreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "lewas_chat_circuit_breaker_state",
			Help: "Circuit breaker state (0 closed, 1 half-open, 2 open)",
		},
		[]string{"name"},
	)

	SessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "lewas_chat_sessions_active",
			Help: "Sessions held by the in-memory session store",
		},
	)
)

var registerOnce sync.Once

func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(TurnsTotal)
		prometheus.MustRegister(ClassificationsTotal)
		prometheus.MustRegister(AnswerDuration)
		prometheus.MustRegister(FeedbackTotal)
		prometheus.MustRegister(AuthOperations)
		prometheus.MustRegister(BreakerState)
		prometheus.MustRegister(SessionsActive)
	})
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
