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

	"github.com/Oxyrus/virtualtourist/internal/router"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web interface",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		addr, _ := cmd.Flags().GetString("addr")
		if addr == "" {
			addr = a.cfg.Addr
		}

		client, err := a.flickrClient()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := client.Healthcheck(checkCtx); err != nil {
			a.logger.Warn("flickr is not reachable, albums will fail to load", "error", err)
		}
		cancel()

		ctrl := a.controller(client)
		defer ctrl.Close()

		srv := &http.Server{
			Addr: addr,
			Handler: router.New(a.logger, router.Deps{
				Store:     a.store,
				Albums:    ctrl,
				Locations: a.locations,
			}),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			a.logger.Info("starting server", "addr", addr)
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("server stopped", "error", err)
				return err
			}
			return nil
		case <-ctx.Done():
		}

		a.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	serveCmd.Flags().StringP("addr", "a", "", "Address to bind the web server (defaults to VT_ADDR)")
	rootCmd.AddCommand(serveCmd)
}
