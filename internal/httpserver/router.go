package httpserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/instabrain/core/internal/adapter/observability"
	"github.com/instabrain/core/internal/config"
)

// ParseOrigins splits a comma-separated origin list into a slice, trimming
// spaces. An empty or "*" input means allow everything.
func ParseOrigins(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" || s == "*" {
		return []string{"*"}
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

// BuildRouter assembles the full external HTTP surface from §6's route
// table: webhooks (HMAC), approvals/oversight/log-outcome/scheduler
// control/queue-dlq/DLQ-retry (api-key), and health/metrics/queue-status
// (public, read-only).
func BuildRouter(cfg config.Config, srv *Server) http.Handler {
	r := chi.NewRouter()

	r.Use(Recoverer())
	r.Use(RequestID())
	r.Use(TimeoutMiddleware(30 * time.Second))
	r.Use(AccessLog())
	r.Use(observability.HTTPMetricsMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: ParseOrigins(cfg.CORSAllowOrigins),
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	auth := apiKeyAuth(cfg.APIKey)

	// Public, unauthenticated, read-only.
	r.Group(func(pub chi.Router) {
		pub.Use(httprate.LimitByIP(cfg.RateLimitGlobalPerMin, time.Minute))
		pub.Get("/health", srv.handleHealth())
		pub.Get("/metrics", promhttp.Handler().ServeHTTP)
		pub.Get("/queue/status", srv.handleQueueStatus())
	})

	// Webhooks: HMAC-verified inside the handler itself, not via middleware,
	// since the GET handshake half carries no signature at all.
	r.Group(func(wh chi.Router) {
		wh.Use(httprate.LimitByIP(cfg.RateLimitWebhookPerMin, time.Minute))
		wh.Get("/webhook/comment", srv.commentWebhook)
		wh.Post("/webhook/comment", srv.commentWebhook)
		wh.Get("/webhook/dm", srv.dmWebhook)
		wh.Post("/webhook/dm", srv.dmWebhook)
		wh.Post("/webhook/order-created", srv.orderWebhook)
	})

	// Synchronous approvals: api-key, tighter rate limit.
	r.Group(func(ap chi.Router) {
		ap.Use(auth)
		ap.Use(httprate.LimitByIP(cfg.RateLimitApprovalPerMin, time.Minute))
		ap.Post("/approve/comment-reply", srv.commentApproval)
		ap.Post("/approve/dm-reply", srv.dmApproval)
		ap.Post("/approve/post", srv.postApproval)
	})

	// Oversight chat: api-key, rate-limited per X-User-ID rather than IP.
	r.Group(func(ov chi.Router) {
		ov.Use(auth)
		ov.Use(httprate.Limit(cfg.RateLimitOversightPerMin, time.Minute,
			httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
				return r.Header.Get("X-User-ID"), nil
			})))
		ov.Post("/oversight/chat", srv.oversightChat)
	})

	// Feedback, scheduler control, DLQ inspection/retry: api-key.
	r.Group(func(ad chi.Router) {
		ad.Use(auth)
		ad.Use(httprate.LimitByIP(cfg.RateLimitGlobalPerMin, time.Minute))
		ad.Post("/log-outcome", srv.logOutcome)
		ad.Get("/{job}/{action}", srv.handleSchedulerControl())
		ad.Post("/{job}/{action}", srv.handleSchedulerControl())
		ad.Get("/queue/dlq", srv.handleQueueDLQ())
		ad.Post("/queue/retry-dlq", srv.handleQueueRetryDLQ())
	})

	return SecurityHeaders(r)
}
