package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const RequestIdHeader = "X-Request-Id"

// RouterOptions tunes the request layer; zero values fall back to defaults.
type RouterOptions struct {
	MaxInflight    int
	RequestTimeout time.Duration

	// Redis enables Idempotency-Key handling on transfer routes when set.
	Redis          *redis.Client
	IdempotencyTTL time.Duration
}

func Router(h *Handlers, opts RouterOptions) http.Handler {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 5 * time.Second
	}

	r := chi.NewRouter()
	r.Use(requestId)
	r.Use(accessLog)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(opts.RequestTimeout))

	transfers := func(r chi.Router) {
		if opts.Redis != nil {
			r.Use(Idempotency(opts.Redis, opts.IdempotencyTTL))
		}
		r.Post("/", h.PostTransfer)
	}

	r.Get("/healthz", h.Healthz)

	// Legacy routes
	r.Post("/createAccount", h.CreateAccount)
	r.Get("/getAllAccounts", h.ListAccounts)
	r.Get("/getAccount/{id}", h.GetAccount)
	r.Route("/performExchange", transfers)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/accounts", h.CreateAccount)
		r.Get("/accounts", h.ListAccounts)
		r.Get("/accounts/{id}", h.GetAccount)
		r.Route("/transfers", transfers)
		r.Get("/audit", h.Audit)
	})

	// Backpressure at the edge: the pool bounds resources, not correctness.
	return withConcurrencyLimit(r, opts.MaxInflight)
}

func withConcurrencyLimit(next http.Handler, max int) http.Handler {
	if max <= 0 {
		max = 64
	}
	sem := make(chan struct{}, max)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case sem <- struct{}{}:
			defer func() { <-sem }()
			next.ServeHTTP(w, r)
		default:
			zap.L().Warn("Rejecting request, server busy", zap.String("path", r.URL.Path))
			writeJSON(w, http.StatusServiceUnavailable, failureBody("Server busy - please try again"))
		}
	})
}

func requestId(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIdHeader)
		if id == "" {
			id = uuid.New().String()
			r.Header.Set(RequestIdHeader, id)
		}
		w.Header().Set(RequestIdHeader, id)
		next.ServeHTTP(w, r)
	})
}

func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		zap.L().Debug("Handled request",
			zap.String("request_id", r.Header.Get(RequestIdHeader)),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)))
	})
}
