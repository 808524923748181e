package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	root := &cobra.Command{
		Use:          "periphery",
		Short:        "Concentrated-liquidity position manager tools",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	quoteCmd := &cobra.Command{
		Use:   "quote",
		Short: "Quote a liquidity addition against live pools",
		RunE:  runQuote,
	}

	quoteCmd.Flags().String("rpc", "", "RPC URL")
	quoteCmd.Flags().String("factory", "", "pool factory address")
	quoteCmd.Flags().String("manager", "", "position manager address")
	quoteCmd.Flags().String("owner", "", "optional payer whose balances and allowances are checked")
	quoteCmd.Flags().String("token0", "", "first token address")
	quoteCmd.Flags().String("token1", "", "second token address")
	quoteCmd.Flags().StringSlice("fee", []string{"3000"}, "fee tiers to quote (comma-separated)")
	quoteCmd.Flags().Int32("tick-lower", 0, "lower tick of the position")
	quoteCmd.Flags().Int32("tick-upper", 0, "upper tick of the position")
	quoteCmd.Flags().String("amount0", "", "desired amount of token0")
	quoteCmd.Flags().String("amount1", "", "desired amount of token1")
	quoteCmd.Flags().String("amount0-min", "", "minimum amount of token0")
	quoteCmd.Flags().String("amount1-min", "", "minimum amount of token1")
	quoteCmd.Flags().Bool("raw", false, "amounts are in base units instead of whole tokens")
	quoteCmd.Flags().Uint64("block", 0, "block to read at, 0 means latest")
	quoteCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	quoteCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	addLogFlags(quoteCmd)

	root.AddCommand(quoteCmd)

	simulateCmd := &cobra.Command{
		Use:   "simulate",
		Short: "Replay a scenario against an in-memory deployment",
		RunE:  runSimulate,
	}

	simulateCmd.Flags().String("scenario", "", "scenario file (yaml, json or toml)")
	simulateCmd.Flags().String("factory", "", "pool factory address")
	simulateCmd.Flags().String("weth9", "", "WETH9 address")
	simulateCmd.Flags().String("manager", "", "position manager address")
	simulateCmd.Flags().Uint64("chain-id", 1, "chain id stamped on records")
	simulateCmd.Flags().String("logs-out", "./data/sim_logs.jsonl", "output logs JSONL")
	simulateCmd.Flags().String("receipts-out", "./data/sim_receipts.jsonl", "output receipts JSONL")
	simulateCmd.Flags().String("pg-dsn", "", "optional Postgres DSN for pools and receipts")
	addLogFlags(simulateCmd)

	root.AddCommand(simulateCmd)

	poolAddressCmd := &cobra.Command{
		Use:   "pool-address <tokenA> <tokenB> <fee>",
		Short: "Print the deterministic pool address for a token pair and fee",
		Args:  cobra.ExactArgs(3),
		RunE:  runPoolAddress,
	}

	poolAddressCmd.Flags().String("factory", "", "pool factory address (default mainnet)")

	root.AddCommand(poolAddressCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addLogFlags(cmd *cobra.Command) {
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	cmd.Flags().String("log-file", "", "also write logs to this file, rotated")
}

func newLogger(level, file string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	if file == "" {
		return logger, nil
	}

	rotating := zapcore.NewCore(
		zapcore.NewJSONEncoder(cfg.EncoderConfig),
		zapcore.AddSync(&lumberjack.Logger{
			Filename:   file,
			MaxSize:    100,
			MaxBackups: 5,
			MaxAge:     30,
			Compress:   true,
		}),
		cfg.Level,
	)
	return logger.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, rotating)
	})), nil
}
