// Package metrics exposes the gateway's Prometheus collectors. Everything
// here is registered on the default registry and served on /metrics.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Logins = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_logins_total",
		Help: "Login attempts by outcome (ok, denied, fixture, rate_limited, error).",
	}, []string{"outcome"})

	Refreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_refresh_total",
		Help: "Token refresh attempts by outcome (ok, failed).",
	}, []string{"outcome"})

	ProxyRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "proxy_requests_total",
		Help: "Proxied backend responses by status code.",
	}, []string{"code"})

	BackendUnreachable = promauto.NewCounter(prometheus.CounterOpts{
		Name: "proxy_backend_unreachable_total",
		Help: "Proxied requests that ended in 502 because the backend could not be reached.",
	})
)

func ObserveProxyResponse(statusCode int) {
	ProxyRequests.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}
