package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"quizmaster-backend/internal/handlers"
	"quizmaster-backend/internal/middleware"
	"quizmaster-backend/internal/websocket"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Auth      *handlers.AuthHandler
	Quiz      *handlers.QuizHandler
	Dashboard *handlers.DashboardHandler
	Questions *handlers.QuestionHandler
	WS        *websocket.Hub
}

// Limiters throttle public auth traffic and quiz starts.
type Limiters struct {
	Auth      *middleware.RateLimiter
	QuizStart *middleware.RateLimiter
}

func New(jwtAuth *middleware.JWTAuth, h Handlers, limits Limiters, allowedOrigins string) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(allowedOrigins))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Auth Routes (public) ────
		r.Route("/auth", func(r chi.Router) {
			r.Use(limits.Auth.Middleware)
			r.Post("/register", h.Auth.Register)
			r.Post("/login", h.Auth.Login)
			r.Post("/refresh", h.Auth.Refresh)

			r.Group(func(r chi.Router) {
				r.Use(jwtAuth.Middleware)
				r.Post("/logout", h.Auth.Logout)
				r.Get("/me", h.Auth.Me)
			})
		})

		// ──── Authenticated API ────
		r.Group(func(r chi.Router) {
			r.Use(jwtAuth.Middleware)

			r.With(limits.QuizStart.Middleware).Post("/quizzes/start", h.Quiz.Start)

			r.Route("/sessions", func(r chi.Router) {
				r.Get("/", h.Quiz.History)
				r.Get("/{id}", h.Quiz.Get)
				r.Post("/{id}/answers", h.Quiz.Answer)
				r.Post("/{id}/finish", h.Quiz.Finish)
			})

			r.Get("/profile/summary", h.Quiz.Summary)
			r.Get("/dashboard", h.Dashboard.Stats)
			r.Get("/achievements", h.Dashboard.Achievements)
			r.Get("/categories", h.Questions.Categories)

			r.Route("/questions", func(r chi.Router) {
				r.Post("/", h.Questions.Create)
				r.Post("/generate", h.Questions.Generate)
			})
			r.Get("/jobs/{id}", h.Questions.Job)
		})

		// ──── WebSocket (token in query) ────
		r.Get("/ws", h.WS.HandleWebSocket)
	})

	return r
}
