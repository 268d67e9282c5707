// Command fundpool tops up the savings ledger's profit pool from the
// operator's reward token balance. It runs one orchestrated action and exits.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"savings-gateway/internal/aggregator"
	"savings-gateway/internal/chain"
	"savings-gateway/internal/config"
	"savings-gateway/internal/contracts"
	"savings-gateway/internal/events"
	"savings-gateway/internal/logger"
	"savings-gateway/internal/models"
	"savings-gateway/internal/orchestrator"
)

func main() {
	amountFlag := flag.String("amount", "", "reward token amount to fund, in whole units (e.g. 250.5)")
	decimalsFlag := flag.Uint("decimals", 18, "reward token decimals")
	flag.Parse()

	if *amountFlag == "" {
		fmt.Fprintln(os.Stderr, "usage: fundpool -amount <value> [-decimals <n>]")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load configuration: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.LogLevel)
	log := logger.Component("fundpool")

	amount, err := models.ParseTokenAmount(*amountFlag, uint8(*decimalsFlag))
	if err != nil {
		log.Fatal().Err(err).Str("amount", *amountFlag).Msg("Invalid amount")
	}

	client, err := chain.Dial(cfg.Chain, logger.Component("chain"))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to RPC endpoint")
	}
	defer client.Close()

	registry, err := contracts.NewRegistry(cfg.Contracts)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build contract registry")
	}

	agg := aggregator.New(client, registry, cfg.MaxRetries, cfg.RetryDelay, logger.Component("aggregator"))
	orch := orchestrator.New(client, agg, &events.LogEmitter{}, cfg.Chain.ConfirmationTimeout, log)
	actions := orchestrator.NewActions(registry, client)

	result, err := orch.Execute(context.Background(), actions.FundProfitPool(amount.Value, uint8(*decimalsFlag)))
	if err != nil {
		log.Fatal().Err(err).Msg("Funding failed")
	}

	for _, hash := range result.TxHashes {
		log.Info().Str("txHash", hash.Hex()).Str("explorer", client.ExplorerURL(hash)).Msg("Transaction confirmed")
	}
	log.Info().Str("amount", *amountFlag).Msg("Profit pool funded")
}
