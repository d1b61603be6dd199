package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"safetrail/internal/bootstrap/logging"
	"safetrail/internal/errs"
	"safetrail/internal/infrastructure/metrics"
)

// NewRouter wires the event API, health and metrics endpoints.
func NewRouter(h *Handler, m *metrics.Metrics) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(m))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", m.Handler())

	h.Register(r)
	return r
}

// requestLogger logs one line per request with the request id attached to
// the context logger, and records latency by route pattern.
func requestLogger(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx := logging.WithAttrs(r.Context(),
				slog.String("component", "transport.http"),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			elapsed := time.Since(start)
			m.ObserveRequest(route, r.Method, strconv.Itoa(status), elapsed)

			logging.Info(ctx, "http request",
				slog.String("method", r.Method),
				slog.String("route", route),
				slog.Int("status", status),
				slog.Int64("duration_ms", elapsed.Milliseconds()),
			)
		})
	}
}

func logRequestError(ctx context.Context, op string, err error) {
	logging.Error(ctx, "request failed",
		slog.String("operation", op),
		slog.Any("error", errs.Loggable(err)),
	)
}
