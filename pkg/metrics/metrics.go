package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	Generations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "readme", Name: "generations_total", Help: "README generations by mode and result."},
		[]string{"mode", "result"},
	)
	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "readme", Name: "cache_hits_total", Help: "Requests served from a stored README, by mode."},
		[]string{"mode"},
	)
	EmbedRenders = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "readme", Name: "embed_renders_total", Help: "SVG card renders by result."},
		[]string{"result"},
	)
	UpstreamRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "readme", Name: "upstream_requests_total", Help: "Calls to GitHub and the completion API by status."},
		[]string{"service", "status"},
	)
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Namespace: "readme", Name: "http_request_duration_seconds", Help: "HTTP request latency.", Buckets: prometheus.DefBuckets},
		[]string{"method", "route", "status"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(Generations)
	reg.MustRegister(CacheHits)
	reg.MustRegister(EmbedRenders)
	reg.MustRegister(UpstreamRequests)
	reg.MustRegister(RequestDuration)
}
