package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/tastyfund/backend/internal/api/handlers"
	"github.com/tastyfund/backend/internal/auth"
	"github.com/tastyfund/backend/internal/config"
	"github.com/tastyfund/backend/internal/metrics"
	"github.com/tastyfund/backend/internal/middleware"
	"github.com/tastyfund/backend/internal/models"
	"github.com/tastyfund/backend/internal/services"
)

type RouterDeps struct {
	Cfg           config.Config
	Tokens        *auth.TokenManager
	UserSvc       *services.UserService
	RestaurantSvc *services.RestaurantService
	CampaignSvc   *services.CampaignService
	InvestmentSvc *services.InvestmentService
}

func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recover, middleware.HTTPMetrics,
		middleware.RateLimit(d.Cfg.RateRPS, d.Cfg.RateBurst))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.Cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
	}))

	// health & metrics
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("ok")) })
	r.Handle("/metrics", metrics.Handler())

	authMW := middleware.NewAuthMiddleware(d.Tokens)
	authH := handlers.NewAuthHandler(d.Tokens, d.UserSvc)
	restH := handlers.NewRestaurantHandler(d.RestaurantSvc)
	campH := handlers.NewCampaignHandler(d.CampaignSvc, d.InvestmentSvc)
	invH := handlers.NewInvestmentHandler(d.InvestmentSvc)

	owners := middleware.RequireRole(models.RoleRestaurantOwner, models.RoleAdmin)
	admins := middleware.RequireRole(models.RoleAdmin)

	r.Route("/api/v1", func(r chi.Router) {
		// ---------- auth ----------
		r.Post("/auth/register", authH.Register)
		r.Post("/auth/login", authH.Login)
		r.Post("/auth/refresh", authH.Refresh)
		r.With(authMW.Auth).Get("/auth/me", authH.Me)

		// ---------- restaurants ----------
		r.Route("/restaurants", func(r chi.Router) {
			r.Get("/", restH.List)
			r.Get("/{id}", restH.Get)
			r.Get("/{id}/campaigns", restH.Campaigns)
			r.With(authMW.Auth, owners).Post("/", restH.Create)
			r.With(authMW.Auth, owners).Put("/{id}", restH.Update)
			r.With(authMW.Auth, owners).Delete("/{id}", restH.Delete)
		})

		// ---------- campaigns ----------
		r.Route("/campaigns", func(r chi.Router) {
			r.Get("/", campH.List)
			r.Get("/{id}", campH.Get)
			r.Get("/{id}/summary", campH.Summary)
			r.Group(func(r chi.Router) {
				r.Use(authMW.Auth, owners)
				r.Post("/", campH.Create)
				r.Put("/{id}", campH.Update)
				r.Delete("/{id}", campH.Delete)
				r.Post("/{id}/publish", campH.Publish)
				r.Post("/{id}/cancel", campH.Cancel)
				r.Get("/{id}/investments", campH.ListInvestments)
			})
			r.With(authMW.Auth, admins).Post("/{id}/close", campH.Close)
		})

		// ---------- investments ----------
		r.Route("/investments", func(r chi.Router) {
			r.Use(authMW.Auth)
			r.Post("/", invH.Submit)
			r.Get("/me", invH.Mine)
			r.Get("/{id}", invH.Get)
			r.Post("/{id}/cancel", invH.Cancel)
			// soft cancel; the row is kept for audit
			r.Delete("/{id}", invH.Cancel)
			r.With(admins).Post("/{id}/confirm", invH.Confirm)
			r.With(admins).Post("/{id}/fail", invH.Fail)
		})
	})

	return r
}
