package metrics

import (
	"strconv"
	"time"

	"memory_promo/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "memory_promo"

// Статусы заявки на приз
const (
	SubmitStored  = "stored"
	SubmitFailed  = "failed"
	SubmitInvalid = "invalid"
)

type Metrics struct {
	SessionsStarted prometheus.Counter
	ActiveSessions  prometheus.Gauge
	GamesStarted    prometheus.Counter
	CardFlips       *prometheus.CounterVec
	Outcomes        *prometheus.CounterVec
	Claims          prometheus.Counter
	Submissions     *prometheus.CounterVec
	StoreDuration   prometheus.Histogram
	RateLimited     prometheus.Counter
}

// New регистрирует метрики в reg; nil - глобальный реестр
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		SessionsStarted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_started_total",
			Help:      "Game sessions created over websocket.",
		}),
		ActiveSessions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Sessions currently connected.",
		}),
		GamesStarted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_started_total",
			Help:      "Fresh boards dealt, including play-again resets.",
		}),
		CardFlips: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "card_flips_total",
			Help:      "Card activations by whether the engine accepted them.",
		}, []string{"accepted"}),
		Outcomes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outcomes_total",
			Help:      "Finished games by result and reason.",
		}, []string{"result", "reason"}),
		Claims: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prize_claims_total",
			Help:      "Winners who opened the claim form.",
		}),
		Submissions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Claim form submissions by status.",
		}, []string{"status"}),
		StoreDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "winner_store_duration_seconds",
			Help:      "Latency of winner persistence.",
			Buckets:   prometheus.DefBuckets,
		}),
		RateLimited: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter.",
		}),
	}
}

func (m *Metrics) ObserveFlip(accepted bool) {
	m.CardFlips.WithLabelValues(strconv.FormatBool(accepted)).Inc()
}

func (m *Metrics) ObserveOutcome(o domain.Outcome) {
	result := "lost"
	if o.Won {
		result = "won"
	}
	m.Outcomes.WithLabelValues(result, string(o.Reason)).Inc()
}

func (m *Metrics) ObserveSubmission(status string) {
	m.Submissions.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveStore(started time.Time) {
	m.StoreDuration.Observe(time.Since(started).Seconds())
}
