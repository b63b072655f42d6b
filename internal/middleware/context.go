package middleware

import (
	"net/http"

	"github.com/templui/codekeeper/internal/config"
	"github.com/templui/codekeeper/internal/ctxkeys"
)

// Config adds the sanitized configuration and the request path to the context.
func Config(cfg *config.Config) func(http.Handler) http.Handler {
	sanitized := cfg.Sanitized()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := ctxkeys.WithConfig(r.Context(), sanitized)
			ctx = ctxkeys.WithURLPath(ctx, r.URL.Path)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
