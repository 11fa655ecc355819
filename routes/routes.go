package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware" // Alias to avoid conflict
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/scrimline/tournament-engine/handlers"
	"github.com/scrimline/tournament-engine/middleware"
)

func InitRoutes(
	authHandler *handlers.AuthHandler,
	tournamentHandler *handlers.TournamentHandler,
	matchHandler *handlers.MatchHandler,
	serverHandler *handlers.ServerHandler,
	dashboardHandler *handlers.DashboardHandler,
	playerHandler *handlers.PlayerHandler,
	wsHandler *handlers.WebSocketHandler,
	jwtSecret []byte,
) *chi.Mux {
	router := chi.NewRouter()

	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authenticate := middleware.Authenticate(jwtSecret)

	router.Post("/auth/login", authHandler.Login)
	router.Get("/swagger/*", httpSwagger.Handler())

	router.Route("/tournaments", func(r chi.Router) {
		// Публичные маршруты для просмотра турнира
		r.Get("/active", tournamentHandler.GetActive)
		r.Get("/{tournamentID}", tournamentHandler.GetByID)
		r.Get("/{tournamentID}/matches", matchHandler.List)
		r.Get("/{tournamentID}/standings", dashboardHandler.Standings)
		r.Get("/{tournamentID}/round", dashboardHandler.RoundStatus)
		r.Get("/{tournamentID}/bracket", dashboardHandler.Bracket)

		// Защищённые маршруты только для оператора
		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			r.Post("/", tournamentHandler.Create)
			r.Post("/{tournamentID}/teams", tournamentHandler.RegisterTeam)
			r.Post("/{tournamentID}/start", tournamentHandler.Start)
			r.Delete("/{tournamentID}", tournamentHandler.Delete)
		})
	})

	router.Route("/matches/{matchSlug}", func(r chi.Router) {
		r.Get("/", matchHandler.Get)
		r.Get("/maps", matchHandler.ListMapResults)
		r.Get("/events", matchHandler.ListEvents)

		// Игровые серверы шлют события и demo без операторского токена
		r.Post("/events", matchHandler.Webhook)
		r.Post("/demos", matchHandler.UploadDemo)

		// Ходы veto делают капитаны команд через дашборд
		r.Post("/veto", matchHandler.VetoAction)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			r.Post("/start", matchHandler.Start)
			r.Post("/abort", matchHandler.Abort)
			r.Post("/reassign", matchHandler.ReassignServer)
		})
	})

	// Публичная история рейтинга для страниц игроков
	router.Get("/players/{playerID}/ratings", playerHandler.RatingHistory)

	router.Route("/servers", func(r chi.Router) {
		r.Use(authenticate)

		r.Post("/", serverHandler.Create)
		r.Get("/", serverHandler.List)
		r.Get("/{serverID}", serverHandler.Get)
		r.Post("/{serverID}/check", serverHandler.Check)
	})

	router.Get("/ws/tournaments/{tournamentID}", wsHandler.Subscribe)

	return router
}
