package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mamiland-backend-go/internal/config"
	"mamiland-backend-go/internal/db"
	httpapi "mamiland-backend-go/internal/http"
	"mamiland-backend-go/internal/logging"
	"mamiland-backend-go/internal/migrations"
	"mamiland-backend-go/internal/services"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	closeLogs, err := logging.Setup(logging.Options{
		Env:           cfg.Env,
		Level:         cfg.LogLevel,
		Dir:           cfg.LogDir,
		RetentionDays: cfg.LogRetentionDays,
	})
	if err != nil {
		log.Warn().Err(err).Msg("log file setup failed, logging to stdout only")
	}
	defer closeLogs()

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("config")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	database, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("db")
	}
	defer database.Close()
	if err := migrations.Apply(ctx, database, migrations.Files, migrations.Dir); err != nil {
		log.Fatal().Err(err).Msg("migrations")
	}

	rdb := openRedis(ctx, cfg)
	if rdb != nil {
		defer rdb.Close()
	}

	hub := services.NewMetricsHub()
	go hub.Run(ctx)

	server := httpapi.NewServer(database, cfg, hub, rdb)
	created, err := services.EnsureAdmin(ctx, database, server.Tokens, cfg.AdminUsername, cfg.AdminPassword)
	if err != nil {
		log.Fatal().Err(err).Msg("bootstrap admin")
	}
	if created {
		log.Info().Str("username", cfg.AdminUsername).Msg("bootstrap admin created")
	}
	go samplingLoop(ctx, server)

	addr := ":" + cfg.Port
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server.Router(ctx),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Str("env", cfg.Env).Msg("listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT)
	<-stop
	cancel()
	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := httpServer.Shutdown(ctxShutdown); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
	log.Info().Msg("shutdown complete")
}

// openRedis connects to the attempt-guard store. Without REDIS_ADDR, or when
// Redis does not answer, the guard is disabled and nil is returned.
func openRedis(ctx context.Context, cfg config.Config) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unavailable, access code attempt limits disabled")
		_ = rdb.Close()
		return nil
	}
	log.Info().Str("addr", cfg.RedisAddr).Msg("redis connected")
	return rdb
}

// samplingLoop records a system sample every interval, pushes it to the admin
// dashboards and drops samples past the retention window.
func samplingLoop(ctx context.Context, server *httpapi.Server) {
	ticker := time.NewTicker(time.Duration(server.Config.MetricsSampleSeconds) * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			sample, err := services.CaptureSystemSample(ctx, server.DB, server.Config.MetricsDiskPath)
			if err != nil {
				log.Warn().Err(err).Msg("metrics capture")
				continue
			}
			server.MetricsHub.Broadcast(sample)
			if n, err := services.PruneSystemSamples(ctx, server.DB, server.Config.MetricsRetention); err != nil {
				log.Warn().Err(err).Msg("metrics prune")
			} else if n > 0 {
				log.Debug().Int64("rows", n).Msg("metrics pruned")
			}
		case <-ctx.Done():
			return
		}
	}
}
