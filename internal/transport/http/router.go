package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"quizmap-service/internal/app"
	"quizmap-service/internal/domain"
)

// PlayerHeader names the acting player on admin and leaderboard requests.
const PlayerHeader = "X-Player"

// NewRouter wires the REST API and the websocket endpoint.
func NewRouter(service *app.Service, allowedOrigins []string) http.Handler {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	api := &API{service: service}
	ws := NewWSHandler(service)

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", PlayerHeader},
		ExposedHeaders: []string{"Content-Length", "Content-Disposition"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Get("/ws", ws.ServeWS)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))

		r.Post("/players", api.registerPlayer)
		r.Get("/identity/{token}", api.identify)
		r.Get("/players/{name}", api.profile)
		r.Get("/players/{name}/map", api.subjectMap)
		r.Post("/players/{name}/badges", api.awardBadge)
		r.Get("/achievements", api.achievements)
		r.Get("/catalog", api.catalog)
		r.Get("/leaderboard", api.leaderboard)
		r.Delete("/leaderboard", api.resetLeaderboard)

		r.Route("/admin", func(r chi.Router) {
			r.Use(requireAdmin)
			r.Post("/subjects", api.addSubject)
			r.Put("/subjects/{key}", api.updateSubject)
			r.Delete("/subjects/{key}", api.deleteSubject)
			r.Post("/subjects/{key}/questions", api.appendQuestions)
			r.Post("/generate", api.generate)
			r.Get("/dashboard", api.dashboard)
			r.Get("/dashboard.xlsx", api.exportDashboard)
			r.Post("/reset", api.resetAll)
		})
	})
	return r
}

// requireAdmin rejects admin routes early; the service checks the actor again.
func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !domain.IsAdmin(r.Header.Get(PlayerHeader)) {
			writeErr(w, r, domain.ErrForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
