package model

// MintReceipt is the outcome of one periphery operation in a simulated run.
type MintReceipt struct {
	ChainID      uint64 `json:"chain_id"`
	BlockNumber  uint64 `json:"block_number"`
	Timestamp    uint64 `json:"timestamp"`
	Step         int    `json:"step"`
	Action       string `json:"action"`
	Caller       string `json:"caller"`
	Pool         string `json:"pool,omitempty"`
	Token0       string `json:"token0,omitempty"`
	Token1       string `json:"token1,omitempty"`
	Fee          uint32 `json:"fee,omitempty"`
	TickLower    int32  `json:"tick_lower,omitempty"`
	TickUpper    int32  `json:"tick_upper,omitempty"`
	SqrtPriceX96 string `json:"sqrt_price_x96,omitempty"`
	Liquidity    string `json:"liquidity,omitempty"`
	Amount0      string `json:"amount0,omitempty"`
	Amount1      string `json:"amount1,omitempty"`
	Status       string `json:"status"`
	Error        string `json:"error,omitempty"`
}

// Receipt statuses.
const (
	ReceiptSuccess  = "success"
	ReceiptReverted = "reverted"
)
