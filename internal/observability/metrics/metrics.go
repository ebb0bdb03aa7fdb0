package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes the portal's prometheus instruments.
type Metrics struct {
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	loginAttempts   *prometheus.CounterVec
	sessionsPruned  prometheus.Counter
	sessionsKicked  prometheus.Counter
	sessionRenewals prometheus.Counter
}

// New registers the portal instruments on the given registry.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_http_requests_total",
			Help: "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "portal_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		loginAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_login_attempts_total",
			Help: "Login attempts by principal kind and result.",
		}, []string{"kind", "result"}),
		sessionsPruned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "portal_sessions_pruned_total",
			Help: "Sessions removed by age-based pruning.",
		}),
		sessionsKicked: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "portal_sessions_kicked_total",
			Help: "Sessions terminated by an administrator.",
		}),
		sessionRenewals: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "portal_session_renewals_total",
			Help: "Per-request session heartbeat upserts.",
		}),
	}

	reg.MustRegister(
		m.httpRequests,
		m.httpDuration,
		m.loginAttempts,
		m.sessionsPruned,
		m.sessionsKicked,
		m.sessionRenewals,
	)
	return m
}

func (m *Metrics) RecordLogin(kind, result string) {
	if m == nil {
		return
	}
	m.loginAttempts.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) RecordPruned(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.sessionsPruned.Add(float64(count))
}

func (m *Metrics) RecordKick() {
	if m == nil {
		return
	}
	m.sessionsKicked.Inc()
}

func (m *Metrics) RecordRenewal() {
	if m == nil {
		return
	}
	m.sessionRenewals.Inc()
}

// GinMiddleware records per-request counters and latency.
func GinMiddleware(m *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if strings.TrimSpace(route) == "" {
			route = "unknown"
		}
		m.httpRequests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}
