package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ToguyC/seisha/handlers"
)

type Handlers struct {
	Archer     *handlers.ArcherHandler
	Tournament *handlers.TournamentHandler
	Team       *handlers.TeamHandler
	Match      *handlers.MatchHandler
	Websocket  *handlers.WebsocketHandler
}

func New(h Handlers, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/archers", func(r chi.Router) {
		r.Post("/", h.Archer.Create)
		r.Get("/", h.Archer.List)
		r.Get("/paginated", h.Archer.ListPaginated)
		r.Get("/{id}", h.Archer.GetByID)
		r.Put("/{id}", h.Archer.Update)
		r.Delete("/{id}", h.Archer.Delete)
	})

	r.Route("/tournaments", func(r chi.Router) {
		r.Post("/", h.Tournament.Create)
		r.Get("/paginate", h.Tournament.ListPaginated)
		r.Get("/live", h.Tournament.ListLive)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Tournament.GetByID)
			r.Put("/", h.Tournament.Update)
			r.Delete("/", h.Tournament.Delete)
			r.Post("/cancel", h.Tournament.Cancel)
			r.Post("/next-stage", h.Tournament.NextStage)
			r.Get("/tie-break", h.Tournament.TieBreakParticipants)

			r.Post("/archers/{archerID}", h.Tournament.AddArcher)
			r.Delete("/archers/{archerID}", h.Tournament.RemoveArcher)

			r.Post("/teams", h.Tournament.CreateTeam)
			r.Get("/teams", h.Tournament.ListTeams)

			r.Post("/matches", h.Match.Create)
		})
	})

	r.Route("/teams/{id}", func(r chi.Router) {
		r.Get("/", h.Team.GetByID)
		r.Delete("/", h.Team.Delete)
		r.Post("/archers/{archerID}", h.Team.AddArcher)
		r.Delete("/archers/{archerID}", h.Team.RemoveArcher)
	})

	r.Route("/matches/{id}", func(r chi.Router) {
		r.Get("/", h.Match.GetByID)
		r.Delete("/", h.Match.Delete)
		r.Post("/finish", h.Match.Finish)

		r.Route("/archers/{archerID}/arrows", func(r chi.Router) {
			r.Post("/", h.Match.SubmitArrow)
			r.Get("/{index}", h.Match.GetArrow)
			r.Put("/{index}", h.Match.ReplaceArrow)
		})
	})

	r.Get("/ws/tournaments/{id}", h.Websocket.ServeTournament)

	return r
}
