// CLAUDE:SUMMARY serve subcommand: runs the HTTP API with server timeouts and graceful shutdown.
package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/xptrail/api"
)

func newServeCmd(g *globalFlags) *cobra.Command {
	var (
		addr        string
		maxBrowsers int
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve extractions over HTTP.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tr, cfg, logger, err := g.setup()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			srv := &http.Server{
				Addr:              addr,
				Handler:           api.New(tr, maxBrowsers, logger).Routes(),
				ReadHeaderTimeout: 10 * time.Second,
				WriteTimeout:      cfg.CallTimeout() + 30*time.Second,
				IdleTimeout:       60 * time.Second,
			}

			errc := make(chan error, 1)
			go func() {
				logger.Info("xptrail: server starting", "addr", addr, "max_browsers", maxBrowsers)
				errc <- srv.ListenAndServe()
			}()

			select {
			case err := <-errc:
				return err
			case <-ctx.Done():
			}

			logger.Info("xptrail: shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			logger.Info("xptrail: server stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8087", "listen address")
	cmd.Flags().IntVar(&maxBrowsers, "max-browsers", 2, "maximum concurrent browser sessions")
	return cmd
}
