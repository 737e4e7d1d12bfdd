package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	apiRequestsTotal   *prometheus.CounterVec
	apiRequestDuration *prometheus.HistogramVec
	purchasesTotal     *prometheus.CounterVec
	resolverAttempts   *prometheus.CounterVec
)

// Register inicializa las métricas del cliente y devuelve el handler para
// /metrics. Idempotente.
func Register(reg prometheus.Registerer) http.Handler {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	once.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "axel_api_requests_total",
			Help: "Llamadas salientes al API por endpoint y resultado",
		}, []string{"path", "outcome"}) // outcome: ok|transport|malformed|decode

		apiRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "axel_api_request_duration_seconds",
			Help:    "Latencia de las llamadas salientes",
			Buckets: prometheus.DefBuckets,
		}, []string{"path"})

		purchasesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "axel_purchase_transactions_total",
			Help: "Transacciones de compra por flujo y resultado",
		}, []string{"flow", "result"}) // flow: single|bundle

		resolverAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "axel_family_resolver_attempts_total",
			Help: "Intentos de la búsqueda combinatoria de familias",
		}, []string{"result"}) // result: hit|miss

		reg.MustRegister(apiRequestsTotal, apiRequestDuration, purchasesTotal, resolverAttempts)
	})

	return promhttp.Handler()
}

// ObserveAPIRequest registra una llamada saliente. No-op si Register no corrió.
func ObserveAPIRequest(path, outcome string, d time.Duration) {
	if apiRequestsTotal == nil {
		return
	}
	apiRequestsTotal.WithLabelValues(path, outcome).Inc()
	apiRequestDuration.WithLabelValues(path).Observe(d.Seconds())
}

// ObservePurchase registra el resultado de una transacción de compra.
func ObservePurchase(flow, result string) {
	if purchasesTotal == nil {
		return
	}
	purchasesTotal.WithLabelValues(flow, result).Inc()
}

// ObserveResolverAttempt registra un intento del resolver de familias.
func ObserveResolverAttempt(hit bool) {
	if resolverAttempts == nil {
		return
	}
	if hit {
		resolverAttempts.WithLabelValues("hit").Inc()
		return
	}
	resolverAttempts.WithLabelValues("miss").Inc()
}
