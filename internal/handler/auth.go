package handler

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/templui/codekeeper/internal/config"
	"github.com/templui/codekeeper/internal/ctxkeys"
	"github.com/templui/codekeeper/internal/lifecycle"
	"github.com/templui/codekeeper/internal/service"
	"github.com/templui/codekeeper/internal/ui"
	"github.com/templui/codekeeper/internal/ui/pages"
	"github.com/templui/codekeeper/internal/validation"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

type AuthHandler struct {
	authService       *service.AuthService
	goals             *lifecycle.Manager
	googleOAuthConfig *oauth2.Config
}

func NewAuthHandler(authService *service.AuthService, goals *lifecycle.Manager, cfg *config.Config) *AuthHandler {
	h := &AuthHandler{
		authService: authService,
		goals:       goals,
	}
	if cfg.GoogleOAuthEnabled() {
		h.googleOAuthConfig = &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.AppURL + "/auth/google/callback",
			Scopes:       []string{"https://www.googleapis.com/auth/userinfo.email"},
			Endpoint:     google.Endpoint,
		}
	}
	return h
}

func (h *AuthHandler) SignInPage(w http.ResponseWriter, r *http.Request) {
	ui.Render(w, r, pages.Auth(h.props(false, "", "")))
}

func (h *AuthHandler) SignUpPage(w http.ResponseWriter, r *http.Request) {
	ui.Render(w, r, pages.Auth(h.props(true, "", "")))
}

func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	form := validation.CredentialsForm{
		Email:    strings.TrimSpace(r.FormValue("email")),
		Password: r.FormValue("password"),
	}

	err := validation.Form(form)
	if err != nil {
		ui.RenderStatus(w, r, http.StatusUnprocessableEntity, pages.Auth(h.props(false, form.Email, "Email and password cannot be empty.")))
		return
	}

	user, err := h.authService.SignIn(r.Context(), form.Email, form.Password)
	if err != nil {
		slog.Warn("sign in failed", "error", err, "email", form.Email)
		ui.RenderStatus(w, r, http.StatusUnauthorized, pages.Auth(h.props(false, form.Email, signInMessage(err))))
		return
	}

	h.startSession(w, r, user.ID, func() error { return h.authService.StartSession(w, user) })
}

func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	form := validation.CredentialsForm{
		Email:    strings.TrimSpace(r.FormValue("email")),
		Password: r.FormValue("password"),
	}

	err := validation.Form(form)
	if err != nil {
		ui.RenderStatus(w, r, http.StatusUnprocessableEntity, pages.Auth(h.props(true, form.Email, "Email and password cannot be empty.")))
		return
	}

	user, err := h.authService.SignUp(r.Context(), form.Email, form.Password)
	if err != nil {
		slog.Warn("sign up failed", "error", err, "email", form.Email)
		ui.RenderStatus(w, r, http.StatusUnprocessableEntity, pages.Auth(h.props(true, form.Email, signUpMessage(err))))
		return
	}

	h.startSession(w, r, user.ID, func() error { return h.authService.StartSession(w, user) })
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	if user != nil {
		h.goals.SignOut(user.ID)
		slog.Info("user signed out", "user_id", user.ID)
	}
	h.authService.ClearJWTCookie(w)
	redirect(w, r, "/")
}

// GoogleAuth redirects to the Google consent screen.
func (h *AuthHandler) GoogleAuth(w http.ResponseWriter, r *http.Request) {
	if h.googleOAuthConfig == nil {
		http.NotFound(w, r)
		return
	}

	state := generateOAuthState()

	cfg := ctxkeys.Config(r.Context())
	http.SetCookie(w, &http.Cookie{
		Name:     "oauth_state",
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		Secure:   cfg != nil && cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   600,
	})

	http.Redirect(w, r, h.googleOAuthConfig.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	if h.googleOAuthConfig == nil {
		http.NotFound(w, r)
		return
	}

	failed := func() {
		ui.RenderStatus(w, r, http.StatusUnauthorized, pages.Auth(h.props(false, "", "Google sign-in failed. Please try again.")))
	}

	state := r.URL.Query().Get("state")
	cookie, err := r.Cookie("oauth_state")
	if err != nil || state == "" || cookie.Value != state {
		slog.Warn("google oauth state validation failed", "error", err)
		failed()
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:   "oauth_state",
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	code := r.URL.Query().Get("code")
	if code == "" {
		slog.Warn("google oauth callback missing code")
		failed()
		return
	}

	email, err := h.googleEmail(r.Context(), code)
	if err != nil {
		slog.Error("failed to get google account email", "error", err)
		failed()
		return
	}

	user, err := h.authService.AuthenticateOAuth(r.Context(), email, "google")
	if err != nil {
		slog.Error("oauth authentication failed", "error", err, "email", email)
		failed()
		return
	}

	h.startSession(w, r, user.ID, func() error { return h.authService.StartSession(w, user) })
}

func (h *AuthHandler) googleEmail(ctx context.Context, code string) (string, error) {
	token, err := h.googleOAuthConfig.Exchange(ctx, code)
	if err != nil {
		return "", err
	}

	resp, err := h.googleOAuthConfig.Client(ctx, token).Get(googleUserInfoURL)
	if err != nil {
		return "", err
	}
	defer func() {
		closeErr := resp.Body.Close()
		if closeErr != nil {
			slog.Error("failed to close response body", "error", closeErr)
		}
	}()

	var info struct {
		Email         string `json:"email"`
		VerifiedEmail bool   `json:"verified_email"`
	}
	err = json.NewDecoder(resp.Body).Decode(&info)
	if err != nil {
		return "", err
	}
	if info.Email == "" || !info.VerifiedEmail {
		return "", errors.New("google account has no verified email")
	}
	return info.Email, nil
}

// startSession sets the cookie and makes the one active-goal fetch for the
// new session. A failed fetch is retried by the next /app request.
func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, userID string, setCookie func() error) {
	err := setCookie()
	if err != nil {
		slog.Error("failed to start session", "error", err, "user_id", userID)
		ui.RenderStatus(w, r, http.StatusInternalServerError, pages.Auth(h.props(false, "", "Something went wrong. Please try again.")))
		return
	}

	_, err = h.goals.Controller(r.Context(), userID)
	if err != nil {
		slog.Warn("failed to load goal at sign in", "error", err, "user_id", userID)
	}

	slog.Info("user signed in", "user_id", userID)
	redirect(w, r, "/app")
}

func (h *AuthHandler) props(signUp bool, email, message string) pages.AuthProps {
	return pages.AuthProps{
		SignUp:        signUp,
		Email:         email,
		Error:         message,
		GoogleEnabled: h.googleOAuthConfig != nil,
	}
}

func signInMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrPasswordlessAccount):
		return "This account signs in with Google."
	case errors.Is(err, service.ErrInvalidCredentials):
		return "Invalid email or password."
	default:
		return "Something went wrong. Please try again."
	}
}

func signUpMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrEmailAlreadyExists):
		return "An account with this email already exists."
	case errors.Is(err, service.ErrInvalidEmail):
		return "Please provide a valid email address."
	case errors.Is(err, service.ErrWeakPassword):
		// The wrapped reason is already user-facing.
		reason := strings.TrimPrefix(err.Error(), service.ErrWeakPassword.Error()+": ")
		return strings.ToUpper(reason[:1]) + reason[1:] + "."
	default:
		return "Something went wrong. Please try again."
	}
}

func generateOAuthState() string {
	bytes := make([]byte, 32)
	_, err := rand.Read(bytes)
	if err != nil {
		panic("failed to generate oauth state: " + err.Error())
	}
	return base64.RawURLEncoding.EncodeToString(bytes)
}
