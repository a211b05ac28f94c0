package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/biblioteca/services/library/internal/auth"
	"github.com/biblioteca/services/library/internal/metrics"
	"github.com/biblioteca/services/library/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type contextKey int

const claimsKey contextKey = iota

// claimsFrom returns the claims stored by authenticate
func claimsFrom(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsKey).(*auth.Claims)
	return claims
}

// authenticate rejects requests without a valid access token
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := auth.TokenFromRequest(r)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "authentication required")
			return
		}

		claims, err := s.tokens.ValidateToken(token)
		if err != nil {
			s.log.Debug("Rejected access token", zap.Error(err))
			respondError(w, http.StatusUnauthorized, "invalid or expired session")
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey, claims)))
	})
}

// requestLogger logs one line per request with its request id
func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			reqLog := logger.WithRequest(log, middleware.GetReqID(r.Context()))
			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status(ww)),
				zap.Duration("duration", time.Since(start)),
			}
			if status(ww) >= http.StatusInternalServerError {
				reqLog.Error("HTTP request failed", fields...)
				return
			}
			reqLog.Info("HTTP request completed", fields...)
		})
	}
}

// prometheusMetrics records request counts and latency by route pattern
func prometheusMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		metrics.RecordAPIRequest(r.Method, route, status(ww), time.Since(start))
	})
}

// status treats a handler that never wrote a header as 200
func status(ww middleware.WrapResponseWriter) int {
	if ww.Status() == 0 {
		return http.StatusOK
	}
	return ww.Status()
}
