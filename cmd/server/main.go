package main

import (
	"context"
	"errors"
	stdhttp "net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vncsmyrnk/near-poll/internal/adapters/contract"
	"github.com/vncsmyrnk/near-poll/internal/adapters/handler/http"
	"github.com/vncsmyrnk/near-poll/internal/adapters/handler/http/view"
	"github.com/vncsmyrnk/near-poll/internal/adapters/wallet"
	"github.com/vncsmyrnk/near-poll/internal/config"
	"github.com/vncsmyrnk/near-poll/internal/core/ports"
	"github.com/vncsmyrnk/near-poll/internal/core/services"
	"github.com/vncsmyrnk/near-poll/internal/logging"
	"github.com/vncsmyrnk/near-poll/internal/metrics"
)

func main() {
	cfg, err := config.Load(logrus.StandardLogger())
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	log := logging.New(cfg.Env, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend, err := contract.Open(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("failed to open contract")
	}
	defer backend.Close()

	m := metrics.New()
	client := metrics.InstrumentContract(backend.Client, m)

	polls := services.NewPollService(client, cfg.ContractGas, cfg.PublicURL, log)
	votes := services.NewVoteService(client, cfg.ContractGas, log)
	results := services.NewResultsService(client, log)
	sessions := services.NewSessionService([]byte(cfg.SessionSecret), cfg.SessionTTL)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.RPCTimeout)
	reply, err := polls.Ping(pingCtx)
	cancel()
	if err != nil {
		log.WithError(err).WithField("contract", cfg.Network.ContractName).Fatal("contract is not reachable")
	}
	log.WithFields(logrus.Fields{
		"env":      cfg.Network.Env,
		"network":  cfg.Network.NetworkID,
		"contract": cfg.Network.ContractName,
		"backend":  cfg.Network.Backend,
		"ping":     reply,
	}).Info("contract ready")

	var w ports.Wallet
	if cfg.Network.Emulated() {
		w = wallet.NewLocalWallet(strings.TrimRight(cfg.PublicURL, "/") + "/wallet/login")
	} else {
		w = wallet.NewNEARWallet(cfg.Network.WalletURL, cfg.Network.ContractName, backend.Node)
	}

	renderer, err := view.NewRenderer()
	if err != nil {
		log.WithError(err).Fatal("failed to load templates")
	}
	pages := http.NewPages(renderer, polls, log)

	limiter := http.NewRateLimiter(cfg.ChangeRateLimit, cfg.ChangeRateBurst, log)
	limiter.StartCleanup(ctx, time.Minute, 10*time.Minute)

	handler := http.NewHandler(http.Handlers{
		Polls:   http.NewPollHandler(polls, pages),
		Votes:   http.NewVoteHandler(votes, pages),
		Results: http.NewResultsHandler(results, pages),
		Auth:    http.NewAuthHandler(w, sessions, renderer, cfg.PublicURL, log),
		API:     http.NewAPIHandler(polls, results, cfg.RPCTimeout, log),
	}, http.RouterConfig{
		Sessions:    sessions,
		Limiter:     limiter,
		Metrics:     m,
		Log:         log,
		LocalWallet: cfg.Network.Emulated(),
	})

	server := &stdhttp.Server{Addr: cfg.ListenAddr, Handler: handler}

	go func() {
		log.WithField("addr", cfg.ListenAddr).Info("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			log.WithError(err).Fatal("server stopped")
		}
	}()

	<-ctx.Done()
	log.Info("Gracefully shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Fatal("shutdown failed")
	}
}
