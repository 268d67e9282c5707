package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"savings-gateway/internal/aggregator"
	"savings-gateway/internal/api"
	"savings-gateway/internal/chain"
	"savings-gateway/internal/config"
	"savings-gateway/internal/contracts"
	"savings-gateway/internal/emitters"
	"savings-gateway/internal/events"
	"savings-gateway/internal/health"
	"savings-gateway/internal/interfaces"
	"savings-gateway/internal/logger"
	"savings-gateway/internal/orchestrator"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			logger.GetLogger().Error().Interface("panic", r).Msg("Application panicked, recovering")
		}
	}()

	cfg, err := config.Load()
	if err != nil {
		logger.GetLogger().Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Init(cfg.LogLevel)

	client, err := chain.Dial(cfg.Chain, logger.Component("chain"))
	if err != nil {
		logger.GetLogger().Fatal().Err(err).Msg("Failed to connect to RPC endpoint")
	}
	defer client.Close()

	registry, err := contracts.NewRegistry(cfg.Contracts)
	if err != nil {
		logger.GetLogger().Fatal().Err(err).Msg("Failed to build contract registry")
	}

	agg := aggregator.New(client, registry, cfg.MaxRetries, cfg.RetryDelay, logger.Component("aggregator"))

	var emitter interfaces.ActionEmitter = &events.LogEmitter{}
	if cfg.Kafka.BrokerAddress != "" {
		kafka := emitters.NewKafkaEmitter(cfg.Kafka.BrokerAddress, cfg.Kafka.Topic)
		defer kafka.Close()
		emitter = &events.LogEmitter{WrappedEmitter: kafka}
	}

	orch := orchestrator.New(client, agg, emitter, cfg.Chain.ConfirmationTimeout, logger.Component("orchestrator"))
	actions := orchestrator.NewActions(registry, client)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go health.WatchChain(ctx, client)

	server := api.NewServer(orch, actions, agg, cfg.HTTP.Timeout, logger.Component("api"))
	httpServer := &http.Server{
		Addr:    cfg.HTTP.ListenAddr,
		Handler: server.Router(),
	}

	go func() {
		logger.GetLogger().Info().
			Str("addr", cfg.HTTP.ListenAddr).
			Int64("chainId", cfg.Chain.ChainID).
			Msg("Savings gateway listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.GetLogger().Fatal().Err(err).Msg("HTTP server failed")
		}
	}()
	health.SetReady(true)

	<-ctx.Done()
	logger.GetLogger().Info().Msg("Shutting down")
	health.SetReady(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.GetLogger().Error().Err(err).Msg("HTTP server shutdown failed")
		os.Exit(1)
	}
}
