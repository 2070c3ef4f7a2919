package main

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

	httpLayer "loan-calculator/http"
	"loan-calculator/sandbox"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the calculator web page and JSON API",
	RunE: func(cmd *cobra.Command, args []string) error {
		gateway, cleanup := newGateway(cmd.Context())
		defer cleanup()

		rateLimiter := httpLayer.NewRateLimiter(cfg.Server.RateLimit, cfg.Server.RateWindow)
		defer rateLimiter.Stop()

		handler := httpLayer.NewCalculatorHandler(gateway, log)
		router := httpLayer.NewRouter(handler, rateLimiter, httpLayer.RouterConfig{
			AllowedOrigins:    cfg.Server.AllowedOrigins,
			TrustProxyHeaders: cfg.Server.BehindProxy,
		}, log)

		return runServer(httpLayer.NewServer(cfg.Server.Addr, router), "calculator")
	},
}

var sandboxCmd = &cobra.Command{
	Use:   "sandbox",
	Short: "Run a local stand-in for the SACCO loan API",
	Long: `Run a local stand-in for the SACCO loan API with a fixed product
catalog. Point the other commands at it with --api-base http://localhost:5050.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sb := sandbox.NewServer(nil, log)
		return runServer(httpLayer.NewServer(cfg.Sandbox.Addr, sb.Handler()), "sandbox")
	},
}

// runServer serves until SIGINT or SIGTERM, then drains connections.
func runServer(server *http.Server, name string) error {
	serverErr := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("server", name), zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-serverErr:
		log.Error("error starting server", zap.Error(err))
		return err
	case <-quit:
		log.Info("shutting down server", zap.String("server", name))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("error during server shutdown", zap.Error(err))
		return err
	}

	log.Info("server exited", zap.String("server", name))
	return nil
}
