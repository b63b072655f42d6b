package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/templui/codekeeper/internal/ctxkeys"
	"github.com/templui/codekeeper/internal/model"
	"github.com/templui/codekeeper/internal/service"
)

// SessionResolver turns a session token into a user.
type SessionResolver interface {
	UserFromToken(ctx context.Context, token string) (*model.User, error)
	ClearJWTCookie(w http.ResponseWriter)
}

// AuthMiddleware resolves the session cookie on every request and puts the
// user in the context. A bad or stale cookie is cleared.
func AuthMiddleware(sessions SessionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := service.SessionToken(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			user, err := sessions.UserFromToken(r.Context(), token)
			if err != nil {
				slog.Debug("session rejected", "error", err)
				sessions.ClearJWTCookie(w)
				next.ServeHTTP(w, r)
				return
			}

			ctx := ctxkeys.WithUser(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth sends guests to the sign-in screen.
func RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ctxkeys.User(r.Context()) == nil {
			redirect(w, r, "/auth")
			return
		}
		next.ServeHTTP(w, r)
	}
}

// RequireGuest sends signed-in users to the app.
func RequireGuest(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ctxkeys.User(r.Context()) != nil {
			redirect(w, r, "/app")
			return
		}
		next.ServeHTTP(w, r)
	}
}

// KeyPolicy reports whether users must bring their own vision key.
type KeyPolicy interface {
	RequiresUserKey() bool
}

// KeyLookup reports whether a user saved their own vision key.
type KeyLookup interface {
	HasKey(ctx context.Context, userID string) (bool, error)
}

// RequireVisionKey sends users without a saved key to the key setup screen
// when the app runs with per-user credentials. Use after RequireAuth.
func RequireVisionKey(mode KeyPolicy, keys KeyLookup) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if !mode.RequiresUserKey() {
				next.ServeHTTP(w, r)
				return
			}

			user := ctxkeys.User(r.Context())
			has, err := keys.HasKey(r.Context(), user.ID)
			if err != nil {
				slog.Error("failed to check vision key", "error", err, "user_id", user.ID)
				http.Error(w, "Something went wrong. Please try again.", http.StatusInternalServerError)
				return
			}
			if !has {
				redirect(w, r, "/app/vision-key")
				return
			}

			next.ServeHTTP(w, r)
		}
	}
}

// redirect uses HX-Redirect for htmx requests so the whole page navigates.
func redirect(w http.ResponseWriter, r *http.Request, to string) {
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", to)
		w.WriteHeader(http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, to, http.StatusSeeOther)
}
