package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/freeeve/paxhistoria/internal/config"
	"github.com/freeeve/paxhistoria/internal/handler"
	"github.com/freeeve/paxhistoria/internal/logger"
	"github.com/freeeve/paxhistoria/internal/middleware"
	"github.com/freeeve/paxhistoria/internal/oracle"
	"github.com/freeeve/paxhistoria/internal/repository/postgres"
	redisrepo "github.com/freeeve/paxhistoria/internal/repository/redis"
	"github.com/freeeve/paxhistoria/internal/service"
	"github.com/freeeve/paxhistoria/pkg/turn"
)

func main() {
	logger.Init()
	cfg := config.Load()
	log.Info().Str("databaseURL", cfg.DatabaseURL).Str("oracleURL", cfg.OracleURL).Msg("Config loaded")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Database
	db, err := postgres.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Database connection failed")
	}
	defer db.Close()

	// Redis
	redisClient, err := redisrepo.NewClient(ctx, cfg.RedisURL, cfg.StateTTL)
	if err != nil {
		log.Fatal().Err(err).Msg("Redis connection failed")
	}
	defer redisClient.Close()

	// Repos
	gameRepo := postgres.NewGameRepo(db)
	turnRepo := postgres.NewTurnRepo(db)

	// Oracle
	var orc oracle.Oracle
	client := oracle.NewClient(oracle.ClientConfig{
		BaseURL:       cfg.OracleURL,
		APIKey:        cfg.OracleAPIKey,
		Model:         cfg.OracleModel,
		RatePerMinute: cfg.OracleRatePerMin,
		HTTPTimeout:   cfg.OracleTimeout + 5*time.Second,
	})
	if client.Enabled() {
		orc = oracle.NewLLM(client)
		log.Info().Str("model", client.Model()).Msg("Oracle enabled")
	} else {
		log.Warn().Msg("No oracle API key, every turn runs the local simulation")
	}

	scenarios := turn.BuiltinScenarios()
	if cfg.ScenarioFile != "" {
		scenarios, err = turn.LoadScenarios(cfg.ScenarioFile)
		if err != nil {
			log.Fatal().Err(err).Str("file", cfg.ScenarioFile).Msg("Failed to load scenarios")
		}
	}

	resolver := service.NewResolver(orc, service.ResolverConfig{
		OracleTimeout: cfg.OracleTimeout,
		ThreadHistory: cfg.ThreadHistory,
		Sim:           turn.SimParams{Step: cfg.SimStep, CaptureRadius: cfg.SimCaptureRadius},
		Scenarios:     scenarios,
	})

	// WebSocket hub
	wsHub := handler.NewHub()

	// Services
	gameSvc := service.NewGameService(gameRepo, turnRepo, redisClient, resolver, wsHub)

	// Router
	root := middleware.Chain(handler.NewRouter(gameSvc, wsHub),
		middleware.Logger,
		middleware.Recover,
		middleware.CORS(cfg.CORSOrigin),
		middleware.JSON,
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      root,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.OracleTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("port", cfg.Port).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Server error")
		os.Exit(1)
	}
	log.Info().Msg("Server stopped")
}
