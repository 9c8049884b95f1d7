package http

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	metricsOnce sync.Once

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// loginsTotal cuenta resultados terminales de flujo por método y
	// código (ok, invalid_credentials, provider_error, ...).
	loginsTotal *prometheus.CounterVec
)

func initMetrics(reg prometheus.Registerer) {
	metricsOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Requests processed",
		}, []string{"method", "path", "status"})

		httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"})

		loginsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_logins_total",
			Help: "Login attempts by method and outcome",
		}, []string{"method", "outcome"})

		reg.MustRegister(httpRequestsTotal, httpRequestDuration, loginsTotal)
	})
}

// MetricsHandler registra los collectors y devuelve el handler del
// endpoint /metrics.
func MetricsHandler(reg *prometheus.Registry) http.Handler {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	initMetrics(reg)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// CountLogin registra un resultado terminal de flujo. No-op antes de
// registrar métricas (tests unitarios).
func CountLogin(method, outcome string) {
	if loginsTotal != nil {
		loginsTotal.WithLabelValues(method, outcome).Inc()
	}
}

// WithMetrics instrumenta conteo de requests y latencia. El label de
// path es el patrón de ruteo, pasado por el router en cada mount para
// acotar la cardinalidad.
func WithMetrics(pattern string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if httpRequestsTotal == nil {
				next.ServeHTTP(w, r)
				return
			}
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			httpRequestsTotal.WithLabelValues(r.Method, pattern, strconv.Itoa(rec.status)).Inc()
			httpRequestDuration.WithLabelValues(r.Method, pattern).Observe(time.Since(start).Seconds())
		})
	}
}
