// Package ops builds the control plane's operational HTTP surface: health
// and liveness probes plus a Prometheus scrape endpoint, served on a port
// separate from the gRPC listener. It reuses the teacher's
// infrastructure/middleware stack (recovery, security headers, body limit,
// request timeout, request logging) rather than the bare stdlib mux, since
// the gRPC surface itself has no HTTP middleware chain to carry that stack.
package ops

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/R3E-Network/service_layer/infrastructure/logging"
	"github.com/R3E-Network/service_layer/infrastructure/metrics"
	"github.com/R3E-Network/service_layer/infrastructure/middleware"
)

// NewServer builds the *http.Server for the operational surface. db is
// pinged by the health check registered under the "database" name.
func NewServer(addr, serviceName, version string, db *sql.DB, m *metrics.Metrics, log *logging.Logger) *http.Server {
	health := middleware.NewHealthChecker(version)
	health.RegisterCheck("database", func() error {
		return db.Ping()
	})

	router := mux.NewRouter()
	router.Use(middleware.MetricsMiddleware(serviceName, m))
	router.Handle("/healthz", health.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/livez", middleware.LivenessHandler()).Methods(http.MethodGet)
	promHandler := promhttpHandlerFor(m)
	router.Handle("/metrics", promHandler).Methods(http.MethodGet)

	recovery := middleware.NewRecoveryMiddleware(log)
	security := middleware.NewSecurityHeadersMiddleware(nil)
	bodyLimit := middleware.NewBodyLimitMiddleware(1 << 20)
	timeoutMW := middleware.NewTimeoutMiddleware(10 * time.Second)

	var handler http.Handler = router
	handler = timeoutMW.Handler(handler)
	handler = bodyLimit.Handler(handler)
	handler = security.Handler(handler)
	handler = recovery.Handler(handler)
	handler = middleware.LoggingMiddleware(log)(handler)

	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
