package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/danielmv21/fitpulse/internal/auth"
	"github.com/danielmv21/fitpulse/internal/handlers"
	"github.com/danielmv21/fitpulse/internal/middleware"
	"github.com/danielmv21/fitpulse/internal/models"
	pkghttp "github.com/danielmv21/fitpulse/pkg/http"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	tokenManager *auth.TokenManager,
	limiter middleware.AttemptChecker,
	ipConfig *pkghttp.IPConfig,
) {
	// Coarse per-IP limit in front of everything under /auth
	ipLimit := middleware.RateLimitByIP(middleware.DefaultAuthIPRateLimit())

	// Failed-attempt guards; the handlers record outcomes under the same key
	loginGuard := middleware.FailedAttemptGuard(limiter, middleware.EmailOrIPKey(ipConfig))
	passwordGuard := middleware.FailedAttemptGuard(limiter, middleware.AccountOrIPKey(ipConfig))

	// Public routes - no authentication required
	router.Group(func(r chi.Router) {
		r.Use(ipLimit)

		r.Post("/auth/register-account", authHandler.Register)
		r.Post("/auth/complete-profile-setup", authHandler.CompleteProfileSetup)
		r.With(loginGuard).Post("/auth/login", authHandler.Login)
		r.Post("/auth/refresh-token", authHandler.RefreshToken)
		r.Post("/auth/google", authHandler.GoogleSignIn)
	})

	// Protected routes - access token required
	router.Group(func(r chi.Router) {
		r.Use(auth.Middleware(tokenManager))

		r.Post("/auth/logout", authHandler.Logout)
		r.With(passwordGuard).Post("/auth/change-password", authHandler.ChangePassword)

		// Admin-only routes
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(models.RoleAdmin))
			r.Get("/auth/rate-limit-status", authHandler.RateLimitStatus)
		})
	})
}
