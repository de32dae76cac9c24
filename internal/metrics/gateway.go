package metrics

import (
	"context"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Togather-Foundation/campus/internal/gateway"
)

// API client metrics
var (
	// APIRequestsTotal counts outgoing API calls by operation and status class
	APIRequestsTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "Total number of requests sent to the events API",
		},
		[]string{"op", "method", "status"}, // status: 2xx|4xx|5xx|401|error
	)

	// APIRequestDuration records API round-trip latency
	APIRequestDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "api_request_duration_seconds",
			Help:      "Events API round-trip latency in seconds",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"op"},
	)

	// CredentialRejectionsTotal counts 401 responses to authenticated requests
	CredentialRejectionsTotal = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "credential_rejections_total",
			Help:      "Total number of authenticated requests rejected with 401",
		},
	)
)

// GatewayObserver records gateway traffic into the registry.
type GatewayObserver struct{}

var _ gateway.Observer = GatewayObserver{}

func (GatewayObserver) RequestSent(context.Context, gateway.RequestInfo) {}

func (GatewayObserver) ResponseReceived(_ context.Context, req gateway.RequestInfo, res gateway.ResponseInfo) {
	APIRequestsTotal.WithLabelValues(req.Op, req.Method, statusClass(res)).Inc()
	APIRequestDuration.WithLabelValues(req.Op).Observe(res.Duration.Seconds())
	if res.Status == 401 && req.TokenAttached {
		CredentialRejectionsTotal.Inc()
	}
}

func statusClass(res gateway.ResponseInfo) string {
	switch {
	case res.Err != nil || res.Status == 0:
		return "error"
	case res.Status == 401:
		return "401"
	default:
		return strconv.Itoa(res.Status/100) + "xx"
	}
}
