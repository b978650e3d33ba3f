package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"english-quiz-service/internal/app"
	"english-quiz-service/internal/auth"
	"english-quiz-service/internal/config"
	"english-quiz-service/internal/metrics"
	"english-quiz-service/internal/scheduler"
	transport "english-quiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	b, err := openBackends(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer b.close()

	var rec *metrics.Recorder
	if cfg.Metrics.Enabled {
		rec = metrics.New()
	}

	service := app.NewSessionService(b.sessions, b.data,
		app.WithLogger(log),
		app.WithMetrics(rec),
		app.WithAtomicPoints(cfg.Session.AtomicPoints),
		app.WithPersistTimeout(config.TTLDuration(cfg.Session.PersistTimeout, 10*time.Second)),
		app.WithIdleTTL(config.TTLDuration(cfg.Session.IdleTTL, 30*time.Minute)),
	)

	reaper := scheduler.New(service, config.TTLDuration(cfg.Session.ReapInterval, time.Minute), log)
	if err := reaper.Start(); err != nil {
		return err
	}
	defer reaper.Stop()

	authn := auth.NewService(cfg.Auth.Secret, cfg.Auth.Issuer, config.TTLDuration(cfg.Auth.TokenTTL, 8*time.Hour))
	if !authn.Enabled() {
		log.Warn("auth.secret is empty, trusting X-Student-ID headers")
	}

	router := transport.NewRouter(transport.NewHandler(service, log), transport.RouterConfig{
		Auth:           authn.Middleware,
		Metrics:        rec,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Logger:         log,
	})

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      router,
		ReadTimeout:  config.TTLDuration(cfg.Server.ReadTimeout, 15*time.Second),
		WriteTimeout: config.TTLDuration(cfg.Server.WriteTimeout, 15*time.Second),
	}

	go func() {
		log.Info("starting quiz service", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("failed to start server", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server...")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
