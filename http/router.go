package http

import (
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type RouterConfig struct {
	AllowedOrigins    []string
	// TrustProxyHeaders takes the client address from X-Forwarded-For or
	// X-Real-IP. Without it the limiter keys on the connection address.
	TrustProxyHeaders bool
}

// NewRouter wires the calculator routes. Requests that reach the loan
// service's calculation endpoint go through limiter.
func NewRouter(h *CalculatorHandler, limiter *RateLimiter, cfg RouterConfig, log *zap.Logger) http.Handler {
	r := mux.NewRouter()
	r.Use(
		RecoveryMiddleware(log),
		RequestIDMiddleware,
		AccessLogMiddleware(log),
	)

	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	r.Handle("/", RateLimitMiddleware(limiter, http.HandlerFunc(h.Page), isSubmission)).Methods(http.MethodGet)
	r.Handle("/schedule.csv", RateLimitMiddleware(limiter, http.HandlerFunc(h.ScheduleCSV))).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/products", h.Products).Methods(http.MethodGet)
	api.Handle("/calculate", RateLimitMiddleware(limiter, http.HandlerFunc(h.Calculate))).Methods(http.MethodPost)

	handler := CORSMiddleware(cfg.AllowedOrigins)(r)
	if cfg.TrustProxyHeaders {
		handler = handlers.ProxyHeaders(handler)
	}
	return handler
}

// NewServer returns an http.Server with the service's timeouts.
func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}
