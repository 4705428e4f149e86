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

	"github.com/csmather/better-recs/internal/adapters/lastfm"
	"github.com/csmather/better-recs/internal/adapters/redis"
	"github.com/csmather/better-recs/internal/adapters/rest"
	"github.com/csmather/better-recs/internal/adapters/spotify"
	"github.com/csmather/better-recs/internal/adapters/sqlite"
	"github.com/csmather/better-recs/internal/config"
	"github.com/csmather/better-recs/internal/core/ports"
	"github.com/csmather/better-recs/internal/core/services"
	"github.com/csmather/better-recs/internal/logging"
	"github.com/csmather/better-recs/internal/worker"
)

func main() {
	// 1. Configuration: crash early if required settings are missing
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Driven adapters
	cache, closeCache, err := openCache(ctx, cfg.Cache)
	if err != nil {
		logging.Fatal().Err(err).Str("driver", cfg.Cache.Driver).Msg("failed to initialize similarity cache")
	}
	defer closeCache()

	spotifyClient := spotify.NewClient(spotify.Config{
		ClientID:     cfg.Spotify.ClientID,
		ClientSecret: cfg.Spotify.ClientSecret,
		APIURL:       cfg.Spotify.APIURL,
		TokenURL:     cfg.Spotify.TokenURL,
		MaxRetries:   cfg.Spotify.MaxRetries,
		RetryBackoff: cfg.Spotify.RetryBackoff,
		Timeout:      cfg.Spotify.Timeout,
	})

	lastfmClient := lastfm.NewClient(lastfm.Config{
		APIKey:            cfg.LastFM.APIKey,
		APIURL:            cfg.LastFM.APIURL,
		SimilarLimit:      cfg.LastFM.SimilarLimit,
		RequestsPerSecond: cfg.LastFM.RequestsPerSecond,
		BreakerFailures:   cfg.LastFM.BreakerFailures,
		BreakerTimeout:    cfg.LastFM.BreakerTimeout,
		Timeout:           cfg.LastFM.Timeout,
	})

	// 3. Core service
	opts := []services.Option{
		services.WithConcurrency(cfg.Recommend.Concurrency),
		services.WithLookupTimeout(cfg.Recommend.LookupTimeout),
	}
	if cache != nil {
		pool := worker.NewPool(cache, cfg.Cache.QueueSize)
		pool.Start(cfg.Cache.Workers)
		defer pool.Stop()
		opts = append(opts, services.WithCache(cache, pool))
	}
	svc := services.NewRecommender(spotifyClient, lastfmClient, opts...)

	// 4. Driving adapter
	handler := rest.NewHandler(svc, rest.Config{
		RateLimitPerMinute: cfg.Server.RateLimitPerMinute,
		CORSOrigins:        cfg.Server.CORSOrigins,
	})

	// 5. Serve until signalled
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           handler,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	logging.Info().
		Int("port", cfg.Server.Port).
		Str("cache", cfg.Cache.Driver).
		Int("concurrency", cfg.Recommend.Concurrency).
		Msg("better-recs API listening")

	select {
	case err := <-serverErr:
		if err != nil {
			logging.Error().Err(err).Msg("server failed")
		}
	case <-ctx.Done():
		logging.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logging.Error().Err(err).Msg("shutdown error")
		}
	}
}

// openCache builds the configured similarity cache. The "none" driver yields a nil
// cache and a no-op closer.
func openCache(ctx context.Context, cfg config.CacheConfig) (ports.SimilarityCache, func(), error) {
	switch cfg.Driver {
	case config.CacheDriverNone, "":
		return nil, func() {}, nil
	case config.CacheDriverSQLite:
		dbAdapter, err := sqlite.NewAdapter(cfg.SQLitePath, cfg.TTL)
		if err != nil {
			return nil, nil, err
		}
		if n, err := dbAdapter.PurgeExpired(ctx); err != nil {
			logging.Warn().Err(err).Msg("failed to purge expired cache entries")
		} else if n > 0 {
			logging.Info().Int64("purged", n).Msg("expired cache entries removed")
		}
		return dbAdapter, func() {
			if err := dbAdapter.Close(); err != nil {
				logging.Warn().Err(err).Msg("failed to close sqlite cache")
			}
		}, nil
	case config.CacheDriverRedis:
		redisCache, err := redis.NewCache(redis.Config{
			Addrs:    []string{cfg.RedisAddr},
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.TTL,
		})
		if err != nil {
			return nil, nil, err
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := redisCache.Ping(pingCtx); err != nil {
			redisCache.Close()
			return nil, nil, err
		}
		return redisCache, redisCache.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown cache driver: %s", cfg.Driver)
	}
}
