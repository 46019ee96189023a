package rest

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "photorest",
			Name:      "requests_total",
			Help:      "Requests sent by the REST transport, by method and status code.",
		},
		[]string{"method", "code"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "photorest",
			Name:      "request_duration_seconds",
			Help:      "Round-trip time of REST transport requests.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)

// codeLabel is "error" for requests that never produced a status
func codeLabel(code int) string {
	if code == 0 {
		return "error"
	}
	return strconv.Itoa(code)
}
