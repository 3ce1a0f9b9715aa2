package api

import (
	"net/http"
	"time"

	"github.com/harmonherring/CTF-API/internal/api/handler"
	"github.com/harmonherring/CTF-API/internal/app/service"
	"github.com/harmonherring/CTF-API/internal/common/security"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"
)

func NewRouter(
	challengeService *service.ChallengeService,
	ledgerService *service.LedgerService,
	scoreService *service.ScoreService,
	taxonomyService *service.TaxonomyService,
) http.Handler {
	r := chi.NewRouter()

	// Base Middlewares
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger) // Chi's logger
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	// Verifies the SSO-issued bearer token and puts claims in context.
	r.Use(jwtauth.Verifier(security.TokenAuth))

	// Public health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	// API v1 Routes
	r.Route("/api/v1", func(v1 chi.Router) {
		taxonomyHandler := handler.NewTaxonomyHandler(taxonomyService)
		v1.Route("/categories", taxonomyHandler.RegisterCategoryRoutes)
		v1.Route("/difficulties", taxonomyHandler.RegisterDifficultyRoutes)

		challengeHandler := handler.NewChallengeHandler(challengeService, ledgerService)
		v1.Route("/challenges", challengeHandler.RegisterRoutes)

		hintHandler := handler.NewHintHandler(ledgerService)
		v1.Route("/flags", hintHandler.RegisterFlagRoutes)
		v1.Route("/hints", hintHandler.RegisterHintRoutes)

		scoreHandler := handler.NewScoreHandler(scoreService)
		v1.Route("/scores", scoreHandler.RegisterRoutes)

		userHandler := handler.NewUserHandler()
		v1.Route("/user", userHandler.RegisterRoutes)
	})

	return r
}
