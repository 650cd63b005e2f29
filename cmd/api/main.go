package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	httpadapter "github.com/AdamCJJ/jiffy-volume-app/internal/adapters/http"
	"github.com/AdamCJJ/jiffy-volume-app/internal/bootstrap"
	"github.com/AdamCJJ/jiffy-volume-app/internal/config"
	"github.com/AdamCJJ/jiffy-volume-app/internal/observability/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logging.Setup("api", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	router := httpadapter.NewRouter(
		app.Auth,
		app.Estimates,
		app.History,
		httpadapter.UploadLimits{
			MaxPhotoCount: cfg.MaxPhotoCount,
			MaxFileBytes:  cfg.MaxFileBytes,
		},
		httpadapter.CookieSettings{
			Name:   cfg.SessionCookie,
			Secure: cfg.SecureCookies,
		},
		app.Metrics,
	)

	server := &http.Server{
		Addr:    ":" + cfg.APIPort,
		Handler: router.Handler(),
		// WriteTimeout must cover a full inference round trip; uploads are
		// buffered in memory so reads are bounded by body size, not model
		// latency.
		ReadTimeout:  60 * time.Second,
		WriteTimeout: cfg.InferenceTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("api_listening", "port", cfg.APIPort, "model", cfg.ModelName)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("api_server_failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("api_shutdown_failed", "error", err)
	}
}
