// Package metrics exposes sign-in activity as Prometheus metrics.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	auth "github.com/goliatone/go-signin"
)

// Collector records sign-in activity. It implements auth.ActivitySink so
// it can be handed straight to the authenticator.
type Collector struct {
	signIns        *prometheus.CounterVec
	failures       *prometheus.CounterVec
	usersCreated   *prometheus.CounterVec
	signOuts       prometheus.Counter
	gateRejections *prometheus.CounterVec
	rateLimited    *prometheus.CounterVec
}

var _ auth.ActivitySink = (*Collector)(nil)

// NewCollector builds a Collector and registers it with reg
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		signIns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signin_attempts_total",
			Help: "Sign-in attempts by provider and result",
		}, []string{"provider", "result"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signin_failures_total",
			Help: "Rejected sign-ins by provider and reason",
		}, []string{"provider", "reason"}),
		usersCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signin_users_created_total",
			Help: "Users provisioned during sign-in",
		}, []string{"provider"}),
		signOuts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signin_signouts_total",
			Help: "Sign-outs",
		}),
		gateRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signin_gate_rejections_total",
			Help: "Requests rejected by the token gate",
		}, []string{"path"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signin_rate_limited_total",
			Help: "Sign-in requests rejected by the rate limiter",
		}, []string{"path"}),
	}

	reg.MustRegister(
		c.signIns,
		c.failures,
		c.usersCreated,
		c.signOuts,
		c.gateRejections,
		c.rateLimited,
	)

	return c
}

// Record implements auth.ActivitySink
func (c *Collector) Record(_ context.Context, event auth.ActivityEvent) error {
	provider := event.Provider
	if provider == "" {
		provider = "unknown"
	}

	switch event.EventType {
	case auth.ActivityEventSignInSuccess:
		c.signIns.WithLabelValues(provider, "success").Inc()
	case auth.ActivityEventSignInFailure:
		c.signIns.WithLabelValues(provider, "failure").Inc()
		c.failures.WithLabelValues(provider, reasonLabel(event.Reason)).Inc()
	case auth.ActivityEventSignInDenied:
		c.signIns.WithLabelValues(provider, "denied").Inc()
		c.failures.WithLabelValues(provider, reasonLabel(event.Reason)).Inc()
	case auth.ActivityEventUserCreated:
		c.usersCreated.WithLabelValues(provider).Inc()
	case auth.ActivityEventSignOut:
		c.signOuts.Inc()
	}
	return nil
}

// RecordGateRejection counts a 401 from the token gate
func (c *Collector) RecordGateRejection(path string) {
	c.gateRejections.WithLabelValues(path).Inc()
}

// RecordRateLimited counts a 429 from the sign-in limiter
func (c *Collector) RecordRateLimited(path string) {
	c.rateLimited.WithLabelValues(path).Inc()
}

// Handler serves the gathered metrics
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func reasonLabel(reason string) string {
	if reason == "" {
		return "unknown"
	}
	return reason
}
