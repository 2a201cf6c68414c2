package httpserver

import (
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/iago/telegram-voice-bot/internal/http/handlers"
	"github.com/iago/telegram-voice-bot/internal/http/middleware"
)

type RouterDependencies struct {
	API         *handlers.API
	Logger      *log.Logger
	AuthToken   string
	RateLimiter *middleware.IPRateLimiter
}

func NewRouter(deps RouterDependencies) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Trace(deps.Logger))
	router.Use(chimw.Recoverer)
	if deps.RateLimiter != nil {
		router.Use(deps.RateLimiter.Middleware)
	}
	router.Use(middleware.Auth("/v1/", deps.AuthToken))

	router.Get("/healthz", deps.API.Health)
	router.Post("/telegram/webhook", deps.API.TelegramWebhook)
	router.Route("/v1", func(r chi.Router) {
		r.Get("/jobs/{jobID}", deps.API.JobStatus)
		r.Get("/chats/{chatID}/jobs", deps.API.ChatJobs)
		r.Post("/preprocess", deps.API.Preprocess)
	})
	return router
}
