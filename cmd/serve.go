package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/VaIkyranna/SheSpeaksMainSite/internal/api"
	"github.com/VaIkyranna/SheSpeaksMainSite/internal/news"
)

var flagAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the JSON API server",
	Long: `Serve the news, history, location and image extraction endpoints.

The default news selection is refreshed in the background and expired cache
entries are swept on the configured interval.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if flagAddr != "" {
			a.cfg.Server.Addr = flagAddr
		}
		return serve(cmd.Context(), a)
	},
}

func init() {
	serveCmd.Flags().StringVar(&flagAddr, "addr", "", "listen address (overrides server.addr)")
}

func serve(parent context.Context, a *app) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	h := api.NewHandler(api.Deps{
		News:    a.news,
		History: a.history,
		Images:  a.images,
		Locator: a.locator,
		Metrics: a.metrics.Handler(),
		Logger:  a.logger,
	})
	srv := &http.Server{
		Addr:         a.cfg.Server.Addr,
		Handler:      api.RegisterRoutes(http.NewServeMux(), h, a.metrics),
		ReadTimeout:  a.cfg.ReadTimeout(),
		WriteTimeout: a.cfg.WriteTimeout(),
	}

	var wg sync.WaitGroup
	wg.Go(func() { a.newsCache.Start(ctx, a.cfg.SweepInterval()) })
	wg.Go(func() { a.historyCache.Start(ctx, a.cfg.SweepInterval()) })
	wg.Go(func() { a.locationCache.Start(ctx, a.cfg.SweepInterval()) })
	wg.Go(func() {
		if _, err := a.news.Aggregate(ctx, nil); err != nil {
			a.logger.Warn("initial news aggregation failed", "err", err)
		}
		news.NewRefresher(a.news, a.cfg.RefreshDuration(), a.metrics, a.logger).Start(ctx)
	})

	errc := make(chan error, 1)
	go func() {
		a.logger.Info("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	var serveErr error
	select {
	case serveErr = <-errc:
		stop()
	case <-ctx.Done():
		a.logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		serveErr = errors.Join(serveErr, fmt.Errorf("shutting down: %w", err))
	}
	wg.Wait()
	return serveErr
}
