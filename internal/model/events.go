package model

// MintEventData is the decoded Mint event payload.
type MintEventData struct {
	Sender    string `json:"sender"`
	Owner     string `json:"owner"`
	TickLower int32  `json:"tick_lower"`
	TickUpper int32  `json:"tick_upper"`
	Amount    string `json:"amount"`
	Amount0   string `json:"amount0"`
	Amount1   string `json:"amount1"`
}

// InitializeEventData is the decoded Initialize event payload.
type InitializeEventData struct {
	SqrtPriceX96 string `json:"sqrt_price_x96"`
	Tick         int32  `json:"tick"`
}
