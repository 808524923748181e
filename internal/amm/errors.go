package amm

import "errors"

// Factory errors.
var (
	ErrIdenticalTokens    = errors.New("identical tokens")
	ErrZeroAddress        = errors.New("zero address token")
	ErrFeeNotEnabled      = errors.New("fee amount not enabled")
	ErrPoolExists         = errors.New("pool already exists")
	ErrNotOwner           = errors.New("caller is not the factory owner")
	ErrInvalidFee         = errors.New("fee must be below 1000000")
	ErrInvalidTickSpacing = errors.New("tick spacing must be in (0, 16384)")
	ErrFeeAlreadyEnabled  = errors.New("fee amount already enabled")
)

// Pool errors. Comments carry the revert string of the equivalent contract.
var (
	ErrPoolNotFound       = errors.New("pool not deployed")
	ErrAlreadyInitialized = errors.New("pool already initialized") // AI
	ErrNotInitialized     = errors.New("pool not initialized")
	ErrLocked             = errors.New("pool locked") // LOK
	ErrZeroLiquidity      = errors.New("liquidity must be positive")
	ErrTickOrder          = errors.New("tick lower must be below tick upper") // TLU
	ErrTickLowerTooLow    = errors.New("tick lower below minimum")            // TLM
	ErrTickUpperTooHigh   = errors.New("tick upper above maximum")            // TUM
	ErrM0                 = errors.New("token0 not received")                 // M0
	ErrM1                 = errors.New("token1 not received")                 // M1
	ErrLiquidityOverflow  = errors.New("liquidity overflow")                  // LA
)
