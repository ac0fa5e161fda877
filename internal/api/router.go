package api

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"hashstake/dashboard/internal/metrics"
)

// SetupRouter creates and configures the HTTP router. hub and m may be nil.
func SetupRouter(handler *Handler, hub *Hub, m *metrics.Metrics, allowedOrigins []string, logger *zap.Logger) http.Handler {
	router := mux.NewRouter()

	// Apply middleware
	router.Use(loggingMiddleware(logger))
	router.Use(metricsMiddleware(m))
	router.Use(recoveryMiddleware(logger))

	// Health check endpoint
	router.HandleFunc("/health", handler.HandleHealth).Methods(http.MethodGet)

	if hub != nil {
		router.HandleFunc("/ws", hub.ServeWS).Methods(http.MethodGet)
	}
	if m != nil {
		router.Handle("/metrics", m.Handler()).Methods(http.MethodGet)
	}

	// API v1 routes
	api := router.PathPrefix("/api/v1").Subrouter()

	// Dashboard
	api.HandleFunc("/dashboard", handler.HandleGetDashboard).Methods(http.MethodGet)
	api.HandleFunc("/inputs", handler.HandleUpdateInputs).Methods(http.MethodPost)
	api.HandleFunc("/refresh", handler.HandleRefresh).Methods(http.MethodPost)
	api.HandleFunc("/refresh/board", handler.HandleRefreshBoard).Methods(http.MethodPost)

	// Tier and fund actions
	api.HandleFunc("/tiers/{tierId}/{action:stake|claim|unstake}", handler.HandleTierAction).Methods(http.MethodPost)
	api.HandleFunc("/fund/approve", handler.HandleApproveFund).Methods(http.MethodPost)
	api.HandleFunc("/fund", handler.HandleFund).Methods(http.MethodPost)
	api.HandleFunc("/operations/{id}", handler.HandleGetOperation).Methods(http.MethodGet)

	// History
	api.HandleFunc("/transactions", handler.HandleGetTransactions).Methods(http.MethodGet)
	api.HandleFunc("/snapshots/{address}", handler.HandleGetSnapshot).Methods(http.MethodGet)
	api.HandleFunc("/pool/history", handler.HandleGetPoolHistory).Methods(http.MethodGet)

	// CORS wraps the router so preflight requests never reach route matching
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})
	return c.Handler(router)
}

// ==================== Middleware ====================

// loggingMiddleware logs HTTP requests
func loggingMiddleware(logger *zap.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Wrap response writer to capture status code
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			logger.Info("HTTP request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", wrapped.statusCode),
				zap.Duration("duration", time.Since(start)),
				zap.String("remote_addr", r.RemoteAddr),
			)
		})
	}
}

// metricsMiddleware counts requests per route template and status code
func metricsMiddleware(m *metrics.Metrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			route := r.URL.Path
			if current := mux.CurrentRoute(r); current != nil {
				if tmpl, err := current.GetPathTemplate(); err == nil {
					route = tmpl
				}
			}
			m.ObserveHTTP(route, wrapped.statusCode)
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack lets websocket upgrades pass through the wrapper
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	rw.statusCode = http.StatusSwitchingProtocols
	return hijacker.Hijack()
}

// recoveryMiddleware recovers from panics and logs them
func recoveryMiddleware(logger *zap.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("Panic recovered",
						zap.Any("error", err),
						zap.String("method", r.Method),
						zap.String("path", r.URL.Path),
					)

					// Send error response
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					w.Write([]byte(`{"error":"Internal server error","message":"An unexpected error occurred"}`))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
