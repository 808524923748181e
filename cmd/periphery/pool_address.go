package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/RevelationOfTuring/v3-periphery/internal/config"
	"github.com/RevelationOfTuring/v3-periphery/internal/pooladdress"
)

func runPoolAddress(cmd *cobra.Command, args []string) error {
	factoryFlag, _ := cmd.Flags().GetString("factory")
	factory, err := config.ParseAddress(config.DefaultFactory)
	if err != nil {
		return err
	}
	if factoryFlag != "" {
		if factory, err = config.ParseAddress(factoryFlag); err != nil {
			return fmt.Errorf("factory: %w", err)
		}
	}

	tokenA, err := config.ParseAddress(args[0])
	if err != nil {
		return err
	}
	tokenB, err := config.ParseAddress(args[1])
	if err != nil {
		return err
	}
	if tokenA == tokenB {
		return fmt.Errorf("tokens must differ")
	}
	fees, err := config.ParseFees([]string{args[2]})
	if err != nil {
		return err
	}

	key := pooladdress.GetPoolKey(tokenA, tokenB, fees[0])
	fmt.Fprintf(cmd.OutOrStdout(), "pool=%s token0=%s token1=%s fee=%d\n",
		pooladdress.ComputeAddress(factory, key).Hex(), key.Token0.Hex(), key.Token1.Hex(), key.Fee)
	return nil
}
