package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	ClientsProcessed *prometheus.CounterVec
	APIErrors        prometheus.Counter
	RequestSeconds   *prometheus.HistogramVec
	PrecisionTiers   *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		ClientsProcessed: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "geocoder_clients_processed_total",
			Help: "Total number of clients processed, by outcome.",
		}, []string{"outcome"}),
		APIErrors: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "geocoder_provider_api_errors_total",
			Help: "Total number of errors received from the lookup provider APIs.",
		}),
		RequestSeconds: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "geocoder_provider_request_duration_seconds",
			Help:    "Duration of requests to the lookup provider APIs.",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"}),
		PrecisionTiers: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "geocoder_resolutions_by_tier_total",
			Help: "Total number of resolved clients, by confidence tier.",
		}, []string{"tier"}),
	}
}
