// internal/router/router.go
package router

import (
	"net/http"
	"strconv"
	"time"

	"wallet-service/internal/auth"
	"wallet-service/internal/handler"
	"wallet-service/internal/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

const requestTimeout = 60 * time.Second

type Handlers struct {
	Wallet  *handler.WalletHandler
	Payment *handler.PaymentHandler
	Webhook *handler.WebhookHandler
	WS      *handler.WSHandler
}

// Options holds the optional parts of the middleware chain.
type Options struct {
	AllowedOrigins []string
	// RateLimit wraps authenticated routes when set.
	RateLimit func(http.Handler) http.Handler
}

func SetupRoutes(h Handlers, authMW *auth.Middleware, opts Options, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// Middleware
	// RealIP is applied to user routes only: the fiat webhook allow-list
	// must see the socket address, not a rewritten one.
	r.Use(middleware.RequestID)
	r.Use(LoggerMiddleware(logger))
	r.Use(middleware.Recoverer)

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Handle("/metrics", metrics.Handler())

	r.Route("/wallet", func(r chi.Router) {
		// ============================================
		// WEBHOOKS (gateway-authenticated)
		// ============================================
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(requestTimeout))
			r.Post("/payment/fiat/webhook", h.Webhook.Fiat)
			r.Post("/payment/crypto/webhook", h.Webhook.Crypto)
		})

		// ============================================
		// USER ROUTES (JWT)
		// ============================================
		r.Group(func(r chi.Router) {
			r.Use(middleware.RealIP)
			r.Use(authMW.Require)
			if opts.RateLimit != nil {
				r.Use(opts.RateLimit)
			}

			// long-lived, so outside the request timeout
			r.Get("/ws", h.WS.Serve)

			r.Group(func(r chi.Router) {
				r.Use(middleware.Timeout(requestTimeout))

				r.Get("/balance", h.Wallet.Balance)

				r.Get("/transactions", h.Wallet.Transactions)
				r.Get("/transactions/{reference}", h.Wallet.Transaction)

				r.Get("/cards", h.Wallet.Cards)
				r.Get("/cards/{id}", h.Wallet.Card)
				r.Patch("/cards/{id}", h.Wallet.UpdateCard)
				r.Delete("/cards/{id}", h.Wallet.DeleteCard)

				r.Post("/payment/fiat/charge", h.Payment.Charge)
				r.Post("/payment/{rail}/initialize", h.Payment.Initialize)
				r.Get("/payment/{rail}/verify/{reference}", h.Payment.Verify)
				r.Post("/payment/{rail}/withdraw", h.Payment.Withdraw)
			})
		})
	})

	return r
}

// LoggerMiddleware logs HTTP requests
func LoggerMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := chi.RouteContext(r.Context()).RoutePattern()
			if route == "" {
				route = "unmatched"
			}
			metrics.HTTPDuration.
				WithLabelValues(r.Method, route, strconv.Itoa(ww.Status())).
				Observe(time.Since(start).Seconds())

			logger.Info("http request",
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("remote_addr", r.RemoteAddr),
				zap.String("user_agent", r.UserAgent()))
		})
	}
}
