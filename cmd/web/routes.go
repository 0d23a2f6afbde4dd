package main

import (
	"log/slog"
	"net/http"

	"github.com/AdamBeresnev/tourney-engine/internal/middleware"
	"github.com/AdamBeresnev/tourney-engine/internal/service"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func newRouter(engine *service.Engine, log *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(middleware.RequestLogger(log))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	h := &handlers{engine: engine}

	r.Route("/divisions/{divisionID}", func(r chi.Router) {
		r.Get("/pools", h.listPools)
		r.Post("/pools", h.createPool)
		r.Get("/brackets", h.listBrackets)
		r.Post("/brackets", h.createBracket)
		r.Get("/games", h.listGames)
		r.Get("/standings", h.divisionStandings)
		r.Get("/teams/{team}/stats", h.teamStats)
		r.Get("/validation", h.validateDivision)
	})

	r.Route("/pools/{poolID}", func(r chi.Router) {
		r.Get("/", h.getPool)
		r.Delete("/", h.deletePool)
		r.Put("/teams", h.updatePoolTeams)
		r.Post("/games", h.generatePoolGames)
		r.Get("/standings", h.poolStandings)
	})

	r.Route("/brackets/{bracketID}", func(r chi.Router) {
		r.Get("/", h.getBracket)
		r.Delete("/", h.deleteBracket)
		r.Put("/seeds", h.updateSeeds)
		r.Post("/seeds/from-pools", h.seedFromPools)
		r.Post("/games", h.generateBracketGames)
		r.Get("/byes", h.bracketByes)
	})

	r.Route("/games/{gameID}", func(r chi.Router) {
		r.Get("/", h.getGame)
		r.Delete("/", h.deleteGame)
		r.Get("/deletion-impact", h.deletionImpact)
		r.Put("/score", h.recordScore)
		r.Post("/advance", h.advance)
		r.Put("/dependencies", h.setDependencies)
		r.Delete("/dependencies", h.removeDependencies)
	})

	return r
}
