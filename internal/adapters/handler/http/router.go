package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	"github.com/vncsmyrnk/near-poll/internal/core/ports"
	"github.com/vncsmyrnk/near-poll/internal/metrics"
)

type Handlers struct {
	Polls   *PollHandler
	Votes   *VoteHandler
	Results *ResultsHandler
	Auth    *AuthHandler
	API     *APIHandler
}

type RouterConfig struct {
	Sessions    ports.SessionService
	Limiter     *RateLimiter
	Metrics     *metrics.Metrics
	Log         *logrus.Logger
	LocalWallet bool
}

func NewHandler(h Handlers, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: cfg.Log, NoColor: true}))
	r.Use(middleware.Recoverer)
	r.Use(cfg.Metrics.InstrumentHandler)

	r.Get("/healthz", h.API.Health)
	r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(Session(cfg.Sessions, cfg.Log))

		r.Get("/", h.Polls.Index)
		r.Get("/poll", h.Polls.ShowPoll)
		r.Get("/results", h.Results.ShowResults)

		r.Route("/polls", func(r chi.Router) {
			r.Get("/new", h.Polls.NewPoll)
			r.Get("/cancel", h.Polls.CancelPoll)
			r.With(cfg.Limiter.Handler).Post("/", h.Polls.CreatePoll)
		})
		r.With(cfg.Limiter.Handler).Post("/vote", h.Votes.Vote)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/signin", h.Auth.SignIn)
			r.Get("/callback", h.Auth.Callback)
			r.Post("/signout", h.Auth.SignOut)
		})

		if cfg.LocalWallet {
			r.Get("/wallet/login", h.Auth.WalletLogin)
		}

		r.Route("/api", func(r chi.Router) {
			r.Get("/poll", h.API.GetPoll)
			r.Get("/results", h.API.GetResults)
		})
	})

	return r
}
