package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-prayer-verify/internal/application/setting"
	"github.com/go-prayer-verify/internal/application/verification"
	"github.com/go-prayer-verify/internal/config"
	"github.com/go-prayer-verify/internal/domain"
	"github.com/go-prayer-verify/internal/transport/http/handler"
	appmiddleware "github.com/go-prayer-verify/internal/transport/http/middleware"
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
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	publicRL := appmiddleware.NewRateLimiter(rate.Limit(cfg.PublicRateRPS), cfg.PublicRateBurst)

	verifySvc := verification.NewService(verification.ServiceDeps{
		Codes:     deps.CodeRepo,
		Mailer:    deps.Mailer,
		Publisher: deps.Publisher,
		Options: verification.Options{
			CodeTTL:      cfg.CodeTTL,
			SessionTTL:   cfg.SessionTTL,
			MaxAttempts:  cfg.MaxAttempts,
			SendInterval: cfg.SendInterval,
			SendBurst:    cfg.SendBurst,
		},
	})
	settingSvc := setting.NewService(deps.SettingRepo)

	healthH := handler.NewHealthHandler()
	verifyH := handler.NewVerificationHandler(verifySvc)
	settingH := handler.NewSettingHandler(settingSvc)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)
		r.Get("/settings/{key}", settingH.Get)
		r.Group(func(r chi.Router) {
			r.Use(publicRL.Limit)
			r.Post("/verification/send-code", verifyH.SendCode)
			r.Post("/verification/verify-code", verifyH.VerifyCode)
		})

		// ── Admin routes ─────────────────────────────────────────────────────
		if deps.TokenVerifier != nil {
			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.Auth(deps.TokenVerifier))
				r.Use(appmiddleware.RequireRole(domain.RoleAdmin))

				r.Put("/settings/{key}", settingH.Update)
			})
		}
	})

	return r
}
