package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/solmarket/wallet-core/internal/api"
	"github.com/solmarket/wallet-core/internal/client"
	"github.com/solmarket/wallet-core/internal/config"
	"github.com/solmarket/wallet-core/internal/store"
	"github.com/solmarket/wallet-core/internal/vault"
	"github.com/solmarket/wallet-core/wallet"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if err := config.Init(); err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}

	st, err := store.Open(config.GetDataDir())
	if err != nil {
		log.WithError(err).Fatal("failed to open wallet store")
	}
	defer st.Close()

	opts := wallet.Options{}
	if config.UseLightKDF() {
		opts.Vault = vault.LightParams()
		log.Warn("light KDF parameters enabled, do not use outside development")
	}

	registry := client.NewMarketplaceClient(config.GetMarketplaceAPIURL())
	service := wallet.NewService(st, registry, opts, logrus.NewEntry(log))

	// Finish any registration interrupted by a previous shutdown.
	reconcileCtx, cancelReconcile := context.WithTimeout(context.Background(), 30*time.Second)
	if err := service.Reconcile(reconcileCtx); err != nil {
		log.WithError(err).Warn("pending wallet reconciliation failed")
	}
	cancelReconcile()

	srv := &http.Server{
		Addr:    ":" + config.GetPort(),
		Handler: api.SetupRouter(service),
	}

	go func() {
		log.WithField("port", config.GetPort()).Info("wallet service listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server stopped unexpectedly")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("forced shutdown")
	}
}
