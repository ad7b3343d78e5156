package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/explanner/planner-client/internal/api"
	"github.com/explanner/planner-client/internal/auth/credfile"
	"github.com/explanner/planner-client/internal/auth/session"
	"github.com/explanner/planner-client/internal/auth/store"
	"github.com/explanner/planner-client/internal/config"
	lg "github.com/explanner/planner-client/internal/infra/log"
	"github.com/explanner/planner-client/internal/metrics"
	transport "github.com/explanner/planner-client/internal/transport/http"
)

const appName = "explanner"

// bearerSource exposes the stored access token to the API client without
// coupling the client package to the store.
type bearerSource struct {
	store *store.Store
}

func (b bearerSource) AccessToken() (string, bool) {
	pair, ok := b.store.Pair()
	return pair.AccessToken, ok
}

func main() {
	figure.NewFigure(appName, "cybermedium", true).Print()

	zapLog := lg.Must(os.Getenv("LOG_LEVEL"))
	defer zapLog.Sync()

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("failed to load config", zap.Error(err))
	}

	file := credfile.New(cfg.CredentialsFile)
	sessions := store.New(file, zapLog)

	client := api.New(cfg.APIBaseURL,
		api.WithTimeout(cfg.HTTPTimeout),
		api.WithTokenSource(bearerSource{store: sessions}),
	)

	planMetrics := metrics.New(prometheus.DefaultRegisterer)

	auth := session.New(sessions, client, zapLog, cfg.RefreshInterval, cfg.RefreshSkew,
		session.WithMetrics(planMetrics),
		session.WithOnChange(func(authenticated bool) {
			zapLog.Info("session state changed", zap.Bool("authenticated", authenticated))
		}),
	)
	defer auth.Close()

	handler := transport.NewHandler(client, auth, sessions, zapLog)
	router := transport.NewRouter(handler, cfg, zapLog, prometheus.DefaultGatherer)

	srv := &http.Server{Addr: cfg.ListenAddress, Handler: router}

	rootCtx, cancel := context.WithCancel(context.Background())
	g, _ := errgroup.WithContext(rootCtx)

	g.Go(func() error {
		zapLog.Info("listening", zap.String("address", cfg.ListenAddress))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zapLog.Info("shutdown signal received")
	cancel()

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		zapLog.Error("shutdown error", zap.Error(err))
	}
	if err := g.Wait(); err != nil {
		zapLog.Error("server terminated", zap.Error(err))
	}
}
