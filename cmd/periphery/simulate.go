package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/RevelationOfTuring/v3-periphery/internal/config"
	"github.com/RevelationOfTuring/v3-periphery/internal/simulate"
	"github.com/RevelationOfTuring/v3-periphery/internal/storage"
	"github.com/RevelationOfTuring/v3-periphery/internal/storage/postgres"
)

func runSimulate(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadSimulate(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Scenario == "" {
		return fmt.Errorf("scenario path is required")
	}
	scenario, err := config.LoadScenario(cfg.Scenario)
	if err != nil {
		return err
	}

	runCfg := simulate.RunConfig{ChainID: cfg.ChainID}
	if runCfg.Factory, err = config.ParseAddress(cfg.Factory); err != nil {
		return fmt.Errorf("factory: %w", err)
	}
	if runCfg.WETH9, err = config.ParseAddress(cfg.WETH9); err != nil {
		return fmt.Errorf("weth9: %w", err)
	}
	if runCfg.Manager, err = config.ParseAddress(cfg.Manager); err != nil {
		return fmt.Errorf("manager: %w", err)
	}
	if scenario.ChainID != 0 {
		runCfg.ChainID = scenario.ChainID
	}
	owner, err := config.ParseAddress(scenario.Owner)
	if err != nil {
		return fmt.Errorf("owner: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var recorder simulate.Recorder
	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		if err := store.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
		recorder = store
	}

	storageSink := storage.NewJsonlStorage(cfg.LogsOut, cfg.ReceiptsOut)

	runner, err := simulate.NewRunner(runCfg, owner, storageSink, recorder, logger)
	if err != nil {
		return err
	}

	logger.Info("simulate start",
		zap.String("scenario", cfg.Scenario),
		zap.Uint64("chain_id", runCfg.ChainID),
		zap.String("logs_out", cfg.LogsOut),
		zap.String("receipts_out", cfg.ReceiptsOut),
		zap.Bool("postgres", recorder != nil),
	)

	summary, err := runner.Run(ctx, scenario)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "steps=%d receipts=%d reverted=%d logs=%d pools=%d\n",
		summary.Steps, summary.Receipts, summary.Reverted, summary.Logs, summary.Pools)
	return nil
}
