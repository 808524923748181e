package model

// PoolMeta captures immutable pool metadata.
type PoolMeta struct {
	Token0      string `json:"token0"`
	Token1      string `json:"token1"`
	Fee         uint32 `json:"fee"`
	TickSpacing int32  `json:"tick_spacing"`
}
