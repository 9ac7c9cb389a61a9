package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"cytometry/internal/analysis"
	"cytometry/internal/api"
	"cytometry/internal/archive"
	"cytometry/internal/config"
	"cytometry/internal/store"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	log := cfg.Logger()
	gin.SetMode(gin.ReleaseMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, cfg.Store(), log)
	if err != nil {
		log.WithError(err).Fatal("Failed to open sample store")
	}
	defer st.Close()

	arch, err := archive.New(ctx, cfg.Archive())
	if err != nil {
		log.WithError(err).Fatal("Failed to configure upload archive")
	}

	handler := api.NewHandler(st, analysis.NewService(st, log), arch, log).WithMaxUpload(cfg.MaxUploadBytes)
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.NewRouter(handler, cfg.Origins()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.Addr).WithField("driver", cfg.DBDriver).Info("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.WithError(err).Fatal("Failed to run server")
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Graceful shutdown failed")
	}
	log.Info("Server stopped")
}
