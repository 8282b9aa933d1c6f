package routes

import (
	"net/http"

	"github.com/thebackstage/backstage/internal/app"
	"github.com/thebackstage/backstage/internal/handler"
	"github.com/thebackstage/backstage/internal/middleware"
)

func SetupRoutes(app *app.App) http.Handler {
	// Handlers
	gate := handler.NewGateHandler(app.GateService, app.SubmissionService, app.AnalyticsService)
	connect := handler.NewConnectHandler(app.Cfg, app.GateService, app.SubmissionService, app.OAuthStateService, app.VerificationService)
	download := handler.NewDownloadHandler(app.Cfg, app.GateService, app.SubmissionService, app.DownloadTokenService, app.EmailService)
	analytics := handler.NewAnalyticsHandler(app.AnalyticsService, app.GateService, app.SubmissionService)
	auth := handler.NewAuthHandler(app.AuthService)
	gates := handler.NewGatesHandler(app.GateService, app.SubmissionService, app.FileStorage)
	contacts := handler.NewContactsHandler(app.ContactService)
	connections := handler.NewConnectionsHandler(app.VerificationService)
	billing := handler.NewBillingHandler(app.SubscriptionService, app.PaymentProvider)

	authLimiter := middleware.RateLimitAuth()
	funnelLimiter := middleware.RateLimitFunnel()

	mux := http.NewServeMux()

	// ============================================================================
	// PUBLIC FUNNEL
	// ============================================================================

	mux.HandleFunc("GET /api/gates/{slug}", gate.Show)
	mux.HandleFunc("POST /api/gates/{slug}/submissions", funnelLimiter(gate.Submit))
	mux.HandleFunc("GET /api/gates/{slug}/submissions/{id}", gate.Status)
	mux.HandleFunc("POST /api/gates/{slug}/submissions/{id}/download-token", funnelLimiter(download.Create))
	mux.HandleFunc("GET /download/{token}", download.Redeem)

	// OAuth round-trips. Fan flows start from the gate page, artist flows
	// from the dashboard; both providers come back to the same callback.
	mux.HandleFunc("GET /connect/{provider}/start", connect.Start)
	mux.HandleFunc("GET /connect/{provider}/callback", connect.Callback)

	// Fire-and-forget analytics beacon
	mux.HandleFunc("POST /api/events", analytics.Record)

	// ============================================================================
	// AUTH
	// ============================================================================

	mux.HandleFunc("POST /api/auth/register", authLimiter(auth.Register))
	mux.HandleFunc("POST /api/auth/login", authLimiter(auth.Login))
	mux.HandleFunc("POST /api/auth/magic-link", authLimiter(auth.MagicLink))
	mux.HandleFunc("GET /api/auth/magic-link/verify", auth.MagicLinkVerify)
	mux.HandleFunc("POST /api/auth/logout", auth.Logout)
	mux.HandleFunc("GET /api/auth/me", middleware.RequireAuth(auth.Me))
	mux.HandleFunc("PATCH /api/auth/me", middleware.RequireAuth(auth.UpdateProfile))

	// ============================================================================
	// DASHBOARD (artist-facing, authenticated)
	// ============================================================================

	mux.HandleFunc("GET /api/dashboard/gates", middleware.RequireAuth(gates.List))
	mux.HandleFunc("POST /api/dashboard/gates", middleware.RequireAuth(gates.Create))
	mux.HandleFunc("POST /api/dashboard/gates/files", middleware.RequireAuth(gates.Upload))
	mux.HandleFunc("GET /api/dashboard/gates/{id}", middleware.RequireAuth(gates.Get))
	mux.HandleFunc("PATCH /api/dashboard/gates/{id}", middleware.RequireAuth(gates.Update))
	mux.HandleFunc("PATCH /api/dashboard/gates/{id}/active", middleware.RequireAuth(gates.SetActive))
	mux.HandleFunc("GET /api/dashboard/gates/{id}/submissions", middleware.RequireAuth(gates.Submissions))
	mux.HandleFunc("GET /api/dashboard/gates/{id}/stats", middleware.RequireAuth(analytics.Stats))

	mux.HandleFunc("GET /api/dashboard/contacts", middleware.RequireAuth(contacts.List))
	mux.HandleFunc("POST /api/dashboard/contacts/import", middleware.RequireAuth(contacts.Import))

	mux.HandleFunc("GET /api/dashboard/connections", middleware.RequireAuth(connections.List))
	mux.HandleFunc("GET /api/dashboard/connect/{provider}/start", middleware.RequireAuth(connect.StartArtist))

	mux.HandleFunc("GET /api/dashboard/billing", middleware.RequireAuth(billing.Show))
	mux.HandleFunc("POST /api/dashboard/billing/checkout", middleware.RequireAuth(billing.Checkout))
	mux.HandleFunc("GET /api/dashboard/billing/portal", middleware.RequireAuth(billing.Portal))

	// ============================================================================
	// WEBHOOKS
	// ============================================================================

	mux.HandleFunc("POST /webhooks/stripe", billing.Webhook)

	// ============================================================================
	// HEALTH
	// ============================================================================

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Global middleware - executed in order (top to bottom)
	return middleware.Chain(
		mux,
		middleware.Config(app.Cfg),
		middleware.RequestLogging,
		middleware.AuthMiddleware(app.AuthService),
	)
}
