package routes

import (
	"io/fs"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/templui/codekeeper/assets"
	"github.com/templui/codekeeper/internal/app"
	"github.com/templui/codekeeper/internal/handler"
	"github.com/templui/codekeeper/internal/middleware"
)

func SetupRoutes(app *app.App) http.Handler {
	// Handlers
	home := handler.NewHomeHandler()
	health := handler.NewHealthHandler(app.DB)
	help := handler.NewHelpHandler(app.HelpService)
	seo := handler.NewSEOHandler(app.HelpService, app.Cfg.AppURL)
	auth := handler.NewAuthHandler(app.AuthService, app.Lifecycle, app.Cfg)
	goal := handler.NewGoalHandler(app.Lifecycle, app.Cfg)
	history := handler.NewHistoryHandler(app.GoalService)
	files := handler.NewFileHandler(app.FileService)
	visionKey := handler.NewVisionKeyHandler(app.VisionKeyService)

	// Per-route guards
	authLimit := app.AuthRateLimiter.Limit
	proofLimit := app.ProofRateLimiter.Limit
	requireKey := middleware.RequireVisionKey(app.VerificationService, app.VisionKeyService)
	signedIn := func(h http.HandlerFunc) http.HandlerFunc {
		return middleware.ChainFunc(h, middleware.RequireAuth)
	}
	tracked := func(h http.HandlerFunc) http.HandlerFunc {
		return middleware.ChainFunc(h, middleware.RequireAuth, requireKey)
	}

	mux := http.NewServeMux()

	// ============================================================================
	// PUBLIC ROUTES
	// ============================================================================

	// Static files
	sub, _ := fs.Sub(assets.AssetsFS, ".")
	mux.Handle("GET /assets/", http.StripPrefix("/assets/", http.FileServer(http.FS(sub))))

	mux.HandleFunc("GET /healthz", health.Healthz)
	mux.HandleFunc("GET /{$}", home.HomePage)
	mux.HandleFunc("GET /help/{page}", help.ShowPage)
	mux.HandleFunc("GET /robots.txt", seo.Robots)
	mux.HandleFunc("GET /sitemap.xml", seo.Sitemap)

	// Auth
	mux.HandleFunc("GET /auth", middleware.RequireGuest(auth.SignInPage))
	mux.HandleFunc("GET /auth/signup", middleware.RequireGuest(auth.SignUpPage))
	mux.HandleFunc("POST /auth/signin", middleware.ChainFunc(auth.SignIn, authLimit, middleware.RequireGuest))
	mux.HandleFunc("POST /auth/signup", middleware.ChainFunc(auth.SignUp, authLimit, middleware.RequireGuest))
	mux.HandleFunc("GET /auth/google", middleware.ChainFunc(auth.GoogleAuth, authLimit, middleware.RequireGuest))
	mux.HandleFunc("GET /auth/google/callback", middleware.ChainFunc(auth.GoogleCallback, authLimit))
	mux.HandleFunc("POST /auth/logout", auth.Logout)

	// ============================================================================
	// PROTECTED ROUTES (/app/*)
	// ============================================================================

	// Goal lifecycle
	mux.HandleFunc("GET /app", tracked(goal.AppPage))
	mux.HandleFunc("POST /app/goal", tracked(goal.SetGoal))
	mux.HandleFunc("POST /app/goal/lock", tracked(goal.AttachLock))
	mux.HandleFunc("POST /app/goal/proof", middleware.ChainFunc(goal.SubmitProof, middleware.RequireAuth, requireKey, proofLimit))
	mux.HandleFunc("GET /app/goal/countdown", tracked(goal.Countdown))
	mux.HandleFunc("POST /app/goal/reset", tracked(goal.Reset))

	// History and archived proofs
	mux.HandleFunc("GET /app/history", signedIn(history.HistoryPage))
	mux.HandleFunc("GET /app/files/{id}", signedIn(files.Show))
	mux.HandleFunc("DELETE /app/files/{id}", signedIn(files.Delete))

	// Per-user vision key, only when users bring their own
	if app.VerificationService.RequiresUserKey() {
		mux.HandleFunc("GET /app/vision-key", signedIn(visionKey.Page))
		mux.HandleFunc("POST /app/vision-key", signedIn(visionKey.Save))
		mux.HandleFunc("DELETE /app/vision-key", signedIn(visionKey.Remove))
	}

	// ============================================================================
	// FALLBACK
	// ============================================================================

	mux.HandleFunc("/{path...}", home.NotFoundPage)

	// Global middleware - executed in order (top to bottom)
	handler := middleware.Chain(
		mux,
		chimw.RequestID,
		chimw.RealIP,
		middleware.RequestLogging,
		chimw.Recoverer,
		middleware.Config(app.Cfg), // Config must be first of ours (CSRF reads it for cookie flags)
		middleware.NonceMiddleware, // Must be before SecurityHeaders
		middleware.SecurityHeaders(app.Cfg),
		middleware.CSRFProtection,
		middleware.AuthMiddleware(app.AuthService),
	)

	return handler
}
