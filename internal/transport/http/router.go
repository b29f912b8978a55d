package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/otp-auth-api/internal/application/session"
	"github.com/otp-auth-api/internal/application/social"
	"github.com/otp-auth-api/internal/application/user"
	"github.com/otp-auth-api/internal/application/verification"
	"github.com/otp-auth-api/internal/config"
	"github.com/otp-auth-api/internal/transport/http/handler"
	appmiddleware "github.com/otp-auth-api/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// 5 requests/second, burst of 10 — applied to the code endpoints, which
	// trigger outbound email/SMS.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	userSvc := user.NewService(deps.UserRepo, deps.S3Store)
	sessionSvc := session.NewService(deps.SessionRepo, deps.UserRepo, deps.Codec, cfg.SessionDuration)
	verificationSvc := verification.NewService(verification.ServiceDeps{
		VerificationRepo: deps.VerificationRepo,
		UserRepo:         deps.UserRepo,
		Registrar:        userSvc,
		Sessions:         sessionSvc,
		Mailer:           deps.Mailer,
		SMSSender:        deps.SMSSender,
	})

	authH := handler.NewAuthHandler(userSvc, verificationSvc, sessionSvc, deps.Codec)
	sessionH := handler.NewSessionHandler()
	userH := handler.NewUserHandler(userSvc)
	capH := handler.NewCapabilityHandler()

	r.Use(appmiddleware.Sessions(sessionSvc))
	r.Use(appmiddleware.Gate(cfg.ProtectedPrefixes))

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes ────────────────────────────────────────────────────
		r.Get("/health-check/{action}", handler.NewHealthHandler().Ping)

		r.Post("/auth/check", authH.Check)
		r.With(sensitiveRL.Limit).Post("/auth/code/send", authH.SendCode)
		r.With(sensitiveRL.Limit).Post("/auth/code/verify", authH.VerifyCode)
		r.Post("/auth/logout", authH.Logout)

		if deps.GoogleVerifier != nil {
			socialSvc := social.NewService(deps.GoogleVerifier, deps.UserRepo, sessionSvc)
			socialH := handler.NewSocialHandler(socialSvc, deps.Codec)
			r.Post("/auth/social/google", socialH.Google)
		}
		r.Post("/auth/social/{provider}", capH.SocialProvider)
		r.Post("/auth/passkey", capH.Passkey)
		r.Post("/auth/wallet", capH.Wallet)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(appmiddleware.RequireAuth)

			r.Get("/sessions/current", sessionH.Current)
			r.Put("/users/me", userH.UpdateProfile)
			r.Post("/users/me/avatar", userH.UploadAvatar)
		})
	})

	return r
}
