package middleware

import (
	"net/http"

	"github.com/thebackstage/backstage/internal/config"
	"github.com/thebackstage/backstage/internal/ctxkeys"
)

// Config puts the sanitized configuration on the request context so handlers
// can read app URLs and feature flags without seeing secrets.
func Config(cfg *config.Config) func(http.Handler) http.Handler {
	sanitized := cfg.Sanitized()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := ctxkeys.WithConfig(r.Context(), sanitized)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
