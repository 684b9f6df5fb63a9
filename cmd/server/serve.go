package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mhdash/internal/api"
	"mhdash/internal/cache"
	"mhdash/internal/config"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Load the survey and serve the dashboard API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		src, err := openSource(cfg)
		if err != nil {
			return err
		}
		// Load before listening so a bad source never serves.
		if _, err := src.Load(); err != nil {
			return err
		}

		responses, closeCache := newResponseCache(ctx, cfg.Cache)
		defer closeCache()

		e := api.NewServer(api.NewHandler(src), responses, cfg.Cache.TTL())

		errCh := make(chan error, 1)
		go func() {
			log.Info().Str("addr", cfg.ListenAddr).Str("cache", cfg.Cache.Backend).Msg("server listening")
			errCh <- e.Start(cfg.ListenAddr)
		}()

		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server: %w", err)
		case <-ctx.Done():
		}

		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	},
}

// newResponseCache builds the configured backend. An unreachable Redis
// falls back to the in-process cache.
func newResponseCache(ctx context.Context, c config.CacheConfig) (cache.Provider, func()) {
	switch c.Backend {
	case "none":
		return nil, func() {}
	case "redis":
		r, err := cache.NewRedis(ctx, c.RedisAddr, c.RedisPassword, c.RedisDB)
		if err == nil {
			return r, func() { _ = r.Close() }
		}
		log.Warn().Err(err).Str("addr", c.RedisAddr).Msg("redis unavailable, using memory cache")
	}
	return cache.NewMemory(c.Size, c.TTL()), func() {}
}
