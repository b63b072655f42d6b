package middleware

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/templui/codekeeper/internal/ctxkeys"
	"github.com/templui/codekeeper/internal/validation"
)

const (
	csrfCookieName = "csrf_token"
	csrfFormField  = "csrf_token"
	csrfHeader     = "X-CSRF-Token"
	csrfTokenLen   = 32

	// multipartMemory is the in-memory share of a parsed multipart form. The
	// body itself is already capped at validation.MaxUploadRequest.
	multipartMemory = 32 << 20
)

// CSRFProtection validates a double-submit cookie token on every state-changing request.
func CSRFProtection(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := csrfToken(w, r)
		ctx := ctxkeys.WithCSRFToken(r.Context(), token)

		// Skip CSRF check for safe methods (GET, HEAD, OPTIONS)
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		// Bound the body before anything parses it. A form submission
		// without the header would otherwise be read in full here.
		r.Body = http.MaxBytesReader(w, r.Body, validation.MaxUploadRequest)

		// Get submitted token - try multiple sources in priority order
		// 1. Header (htmx sends it on every request via hx-headers)
		// 2. Form field (both application/x-www-form-urlencoded and multipart/form-data)
		submitted := r.Header.Get(csrfHeader)
		if submitted == "" {
			err := r.ParseMultipartForm(multipartMemory)
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				slog.Warn("request body too large",
					"path", r.URL.Path,
					"limit", tooLarge.Limit,
					"request_id", chimw.GetReqID(r.Context()),
				)
				http.Error(w, "Request too large", http.StatusRequestEntityTooLarge)
				return
			}
			submitted = r.PostFormValue(csrfFormField)
		}

		// Validate token using constant-time comparison
		if !validCSRFToken(token, submitted) {
			slog.Warn("csrf validation failed",
				"path", r.URL.Path,
				"method", r.Method,
				"ip", clientIP(r),
				"request_id", chimw.GetReqID(r.Context()),
			)
			http.Error(w, "Invalid CSRF token", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// csrfToken returns the cookie token, issuing a new cookie when missing or malformed.
func csrfToken(w http.ResponseWriter, r *http.Request) string {
	cookie, err := r.Cookie(csrfCookieName)
	if err == nil && len(cookie.Value) == base64.RawURLEncoding.EncodedLen(csrfTokenLen) {
		return cookie.Value
	}

	token := generateCSRFToken()

	cfg := ctxkeys.Config(r.Context())

	// Set cookie with SameSite=Lax for CSRF protection
	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   cfg != nil && cfg.IsProduction(), // APP_ENV, not r.TLS, which is unset behind a load balancer
		SameSite: http.SameSiteLaxMode,
		MaxAge:   86400 * 7, // 7 days
	})

	return token
}

// generateCSRFToken creates a cryptographically secure random token
func generateCSRFToken() string {
	bytes := make([]byte, csrfTokenLen)
	_, err := rand.Read(bytes)
	if err != nil {
		panic("failed to generate csrf token: " + err.Error())
	}
	return base64.RawURLEncoding.EncodeToString(bytes)
}

// validCSRFToken performs a constant-time comparison of tokens
func validCSRFToken(expected, actual string) bool {
	if expected == "" || actual == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(actual)) == 1
}
