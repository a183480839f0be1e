package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/keikapi/AIApp/internal/access"
	"github.com/keikapi/AIApp/internal/api/handlers"
	"github.com/keikapi/AIApp/internal/api/middleware"
	"github.com/keikapi/AIApp/internal/auth"
	"github.com/keikapi/AIApp/internal/chat"
	"github.com/keikapi/AIApp/internal/config"
	"github.com/keikapi/AIApp/internal/document"
	"github.com/keikapi/AIApp/internal/embedding"
	"github.com/keikapi/AIApp/internal/ingest"
	"github.com/keikapi/AIApp/internal/llm"
	"github.com/keikapi/AIApp/internal/queue"
	"github.com/keikapi/AIApp/internal/searchindex"
	"github.com/keikapi/AIApp/internal/storage"
)

type Router struct {
	mux     *chi.Mux
	db      *pgxpool.Pool
	redis   *redis.Client
	cfg     *config.Config
	store   storage.Storage
	authSvc *auth.Service
	llmGW   llm.Gateway
}

func NewRouter(db *pgxpool.Pool, rdb *redis.Client, store storage.Storage, cfg *config.Config) *Router {
	return &Router{
		mux:     chi.NewRouter(),
		db:      db,
		redis:   rdb,
		cfg:     cfg,
		store:   store,
		authSvc: auth.NewService(db, rdb, cfg.Auth),
		llmGW:   llm.NewGateway(cfg.LLM),
	}
}

func (rt *Router) Setup() http.Handler {
	r := rt.mux

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging)
	r.Use(middleware.Recover(rt.cfg.IsProduction()))
	r.Use(middleware.CORS([]string{"*"}))

	rl := middleware.NewRateLimiter(100, 200)
	r.Use(rl.Limit)

	// Health endpoints (no auth)
	health := handlers.NewHealthHandler(rt.db, rt.redis)
	r.Get("/", health.Healthz)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)

	// Shared service clients, constructed once and injected everywhere.
	docSvc := document.NewService(rt.db)
	analysis := document.NewAnalysisClient(rt.cfg.Analysis.BaseURL, rt.cfg.Analysis.PollTimeout, rt.cfg.Analysis.PollInterval)
	extractor := document.NewTextExtractor(analysis)
	index := searchindex.NewPostgresIndex(rt.db, rt.cfg.Index.Collection, rt.cfg.Index.EmbeddingDim)
	embedSvc := embedding.NewService(rt.llmGW, rt.cfg.LLM.EmbeddingModel)
	pipeline := ingest.NewPipeline(rt.store, docSvc, extractor, embedSvc, index, rt.cfg.Storage.Bucket)
	gate := access.NewGate(docSvc, rt.store, rt.cfg.Storage.Bucket, rt.cfg.Storage.SignedURLTTL)
	chatStore := chat.NewStore(rt.redis, rt.cfg.Chat.SessionTTL)
	respSvc := chat.NewResponder(index, rt.llmGW, rt.cfg.LLM, rt.cfg.Chat)
	queueClient := queue.NewClient(rt.cfg.Redis)

	production := rt.cfg.IsProduction()
	authMW := auth.NewMiddleware(rt.authSvc)

	r.Route("/api/v1", func(r chi.Router) {
		authH := handlers.NewAuthHandler(rt.authSvc, production)
		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", authH.SignUp)
			r.Post("/confirm", authH.Confirm)
			r.Post("/signin", authH.SignIn)
			r.With(authMW.Authenticate).Get("/me", authH.Me)
		})

		r.Group(func(r chi.Router) {
			r.Use(authMW.Authenticate)

			docH := handlers.NewDocumentHandler(pipeline, docSvc, gate, queueClient, production)
			r.Route("/documents", func(r chi.Router) {
				r.Post("/", docH.Upload)
				r.Get("/", docH.List)
				r.Get("/{id}", docH.Get)
				r.Get("/{id}/url", docH.GrantURL)
				r.Post("/{id}/reindex", docH.Reindex)
			})

			chatH := handlers.NewChatHandler(chatStore, respSvc, production)
			r.Route("/chat/sessions", func(r chi.Router) {
				r.Post("/", chatH.CreateSession)
				r.Get("/{id}", chatH.GetSession)
				r.Post("/{id}/messages", chatH.PostMessage)
			})
		})
	})

	return r
}
