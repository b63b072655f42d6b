package middleware

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/templui/codekeeper/internal/config"
)

// SecurityHeaders sets CSP and the usual hardening headers. Images may be data
// or blob URIs because lock and proof photos are previewed in the browser
// before upload; a custom S3 endpoint is allowed for presigned proof links.
func SecurityHeaders(cfg *config.Config) func(http.Handler) http.Handler {
	imgSrc := []string{"'self'", "data:", "blob:"}
	if cfg.S3Endpoint != "" {
		u, err := url.Parse(cfg.S3Endpoint)
		if err == nil && u.Host != "" {
			imgSrc = append(imgSrc, u.Scheme+"://"+u.Host)
		}
	} else if cfg.S3Bucket != "" {
		imgSrc = append(imgSrc, "https://*.amazonaws.com")
	}
	isProduction := cfg.IsProduction()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			nonce := GetNonce(r.Context())

			scriptSrc := "'self'"
			if nonce != "" {
				scriptSrc = fmt.Sprintf("'self' 'nonce-%s'", nonce)
			}

			csp := strings.Join([]string{
				"default-src 'self'",
				"script-src " + scriptSrc,
				"style-src 'self' 'unsafe-inline'",
				"img-src " + strings.Join(imgSrc, " "),
				"connect-src 'self'",
				"form-action 'self' https://accounts.google.com",
				"frame-ancestors 'none'",
				"base-uri 'self'",
			}, "; ")

			h := w.Header()
			h.Set("Content-Security-Policy", csp)
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			h.Set("Permissions-Policy", "camera=(self), microphone=(), geolocation=()")
			if isProduction {
				h.Set("Strict-Transport-Security", "max-age=63072000; includeSubDomains")
			}

			next.ServeHTTP(w, r)
		})
	}
}
