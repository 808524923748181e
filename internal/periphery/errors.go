package periphery

import (
	"errors"

	"github.com/RevelationOfTuring/v3-periphery/internal/clmath"
	"github.com/RevelationOfTuring/v3-periphery/internal/token"
)

var (
	ErrTokenOrder           = errors.New("tokens must be distinct and sorted token0 < token1")
	ErrUnauthorizedCallback = errors.New("mint callback caller is not the pool for its key")
	ErrSlippage             = errors.New("price slippage check")
	ErrTransactionTooOld    = errors.New("transaction too old")
	ErrPoolNotInitialized   = errors.New("pool not initialized")
	ErrInsufficientWETH9    = errors.New("insufficient WETH9")
	ErrInsufficientToken    = errors.New("insufficient token")
	ErrNotWETH9             = errors.New("not WETH9")
)

// Re-exported so callers can match every failure from this package.
var (
	ErrInsufficientFunds = token.ErrInsufficientFunds
	ErrNumericOverflow   = clmath.ErrNumericOverflow
)
