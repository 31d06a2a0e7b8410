package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	// Hard ceiling on a single request; a shortlist run that searches,
	// scrapes, and analyzes fits well inside it.
	requestTimeout  = 60 * time.Second
	shutdownTimeout = 10 * time.Second
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the shortlist HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		api := newAPIServer(env.Store, env.Orchestrator, env.Checker)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := newHTTPServer(port, api.router())

		// Graceful shutdown. The signal context is already canceled by
		// the time Shutdown runs, so drain on a fresh one.
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			drainCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(drainCtx); err != nil {
				zap.L().Warn("server shutdown", zap.Error(err))
			}
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// newHTTPServer wraps the router in a per-request deadline so a hung
// scrape or model call cannot hold a connection open indefinitely.
func newHTTPServer(port int, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           http.TimeoutHandler(h, requestTimeout, `{"success":false,"error":"request timed out"}`),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
