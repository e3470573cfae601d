package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/chad-syntax/agentsmith-sub001/internal/api/handlers"
	"github.com/chad-syntax/agentsmith-sub001/internal/api/middleware"
	"github.com/chad-syntax/agentsmith-sub001/internal/auth"
	"github.com/chad-syntax/agentsmith-sub001/internal/config"
	"github.com/chad-syntax/agentsmith-sub001/internal/execlog"
	"github.com/chad-syntax/agentsmith-sub001/internal/execute"
	"github.com/chad-syntax/agentsmith-sub001/internal/source"
)

type Deps struct {
	Config   *config.Config
	DB       *pgxpool.Pool
	Redis    *redis.Client
	Remote   *source.RemoteSource
	Fetcher  execute.Fetcher
	Executor *execute.Executor
	Logs     *execlog.Store
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS([]string{"*"}, d.Config.Auth.APIKeyHeader))

	rateLimiter := middleware.NewRateLimiter(20, 40, d.Config.Auth.APIKeyHeader)

	health := handlers.NewHealthHandler(d.DB, d.Redis)
	prompts := handlers.NewPromptsHandler(d.Remote, d.Fetcher, d.Executor)
	exec := handlers.NewExecuteHandler(d.Remote, d.Executor)
	logs := handlers.NewLogsHandler(d.Logs)

	apiKey := auth.NewAPIKeyMiddleware(d.DB, d.Config.Auth.APIKeyHeader)
	jwtAuth := auth.NewJWTMiddleware(d.Config.Auth.JWTSecret, d.DB)

	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(rateLimiter.Limit)
		r.Use(apiKey.Authenticate)
		r.Use(jwtAuth.Authenticate)

		r.Get("/prompts", prompts.List)
		r.Get("/prompts/{identifier}", prompts.Get)
		r.Post("/prompts/{identifier}/compile", prompts.Compile)
		r.Post("/promptVersion/{uuid}/execute", exec.Execute)
		r.Get("/logs/{uuid}", logs.Get)
	})

	return r
}
