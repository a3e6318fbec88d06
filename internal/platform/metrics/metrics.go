package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	ClaimsCommitted   prometheus.Counter
	ClaimsRejected    *prometheus.CounterVec
	ClaimTxRetries    prometheus.Counter
	ClaimTxExhausted  prometheus.Counter
	DiscoveryBonuses  prometheus.Counter
	PointsAwarded     prometheus.Counter
	RequestLatency    *prometheus.HistogramVec
	LeaderboardCache  *prometheus.CounterVec
	HomesSet          prometheus.Counter
	ProfilesCreated   prometheus.Counter
	OutboxPublished   prometheus.Counter
	OutboxPublishErrs prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		ClaimsCommitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "wayfarer_claims_committed_total",
			Help: "Total number of successfully committed city claims",
		}),
		ClaimsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "wayfarer_claims_rejected_total",
			Help: "Total number of rejected city claims by reason",
		}, []string{"reason"}),
		ClaimTxRetries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "wayfarer_claim_tx_retries_total",
			Help: "Total number of claim transaction re-runs after write conflicts",
		}),
		ClaimTxExhausted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "wayfarer_claim_tx_exhausted_total",
			Help: "Total number of claims that gave up after the conflict retry budget",
		}),
		DiscoveryBonuses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "wayfarer_discovery_bonuses_total",
			Help: "Total number of first-ever city discoveries awarded the bonus",
		}),
		PointsAwarded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "wayfarer_points_awarded_total",
			Help: "Total points awarded across all committed claims",
		}),
		RequestLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "wayfarer_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
		LeaderboardCache: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "wayfarer_leaderboard_cache_total",
			Help: "Leaderboard cache lookups by outcome (hit, miss, bypass)",
		}, []string{"outcome"}),
		HomesSet: promauto.NewCounter(prometheus.CounterOpts{
			Name: "wayfarer_homes_set_total",
			Help: "Total number of home coordinates established",
		}),
		ProfilesCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "wayfarer_profiles_created_total",
			Help: "Total number of profiles created",
		}),
		OutboxPublished: promauto.NewCounter(prometheus.CounterOpts{
			Name: "wayfarer_outbox_published_total",
			Help: "Total claim events relayed from the outbox to Kafka",
		}),
		OutboxPublishErrs: promauto.NewCounter(prometheus.CounterOpts{
			Name: "wayfarer_outbox_publish_errors_total",
			Help: "Total failed outbox publish attempts",
		}),
	}
}

// ObserveRequest records one HTTP request observation.
func (m *Metrics) ObserveRequest(route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.RequestLatency.WithLabelValues(route, status).Observe(d.Seconds())
}

// ClaimRejected increments the rejection counter for a reason label.
func (m *Metrics) ClaimRejected(reason string) {
	if m == nil {
		return
	}
	m.ClaimsRejected.WithLabelValues(reason).Inc()
}
