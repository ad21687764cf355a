package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/S4nzh4r/ya-note/internal/api"
	"github.com/S4nzh4r/ya-note/internal/auth"
	"github.com/S4nzh4r/ya-note/internal/mcp"
	"github.com/S4nzh4r/ya-note/internal/middleware"
	"github.com/S4nzh4r/ya-note/internal/notes"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context) error {
	logger := slog.Default()
	if cfg.UsesDevSecret() {
		logger.Warn("JWT_SECRET not set, using the development secret")
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	svc := notes.NewService(st, logger)
	renderer, err := api.NewRenderer()
	if err != nil {
		return err
	}

	handlers := api.NewHandlers(api.Options{
		Notes:        svc,
		Accounts:     auth.NewAccounts(st),
		Tokens:       auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL),
		Renderer:     renderer,
		Logger:       logger,
		SecureCookie: cfg.SecureCookie,
	})
	router := api.NewRouter(handlers, api.RouterOptions{
		MCP:          mcp.NewMCPServer(svc).Handler(),
		LoginLimiter: middleware.NewIPRateLimiter(cfg.LoginRate, cfg.LoginBurst),
		Logger:       logger,
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server started", "addr", cfg.ListenAddr, "backend", cfg.StoreBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
