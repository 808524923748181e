package config

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"
)

// Scenario actions.
const (
	ActionCreatePool     = "create_pool"
	ActionAddLiquidity   = "add_liquidity"
	ActionRefundETH      = "refund_eth"
	ActionUnwrapWETH9    = "unwrap_weth9"
	ActionSweepToken     = "sweep_token"
	ActionMulticall      = "multicall"
	ActionApprove        = "approve"
	ActionTransferNative = "transfer_native"
	ActionEnableFee      = "enable_fee"
)

// DefaultBlockTime is the spacing in seconds between simulated blocks.
const DefaultBlockTime = 12

// DefaultOwner owns the simulated factory when a scenario names none.
const DefaultOwner = "0x1a9C8182C09F50C8318d769245beA52c32BE35BC"

var ErrInvalidScenario = errors.New("invalid scenario")

// managerActions run through the liquidity manager and may be batched.
var managerActions = map[string]bool{
	ActionCreatePool:   true,
	ActionAddLiquidity: true,
	ActionRefundETH:    true,
	ActionUnwrapWETH9:  true,
	ActionSweepToken:   true,
}

var directActions = map[string]bool{
	ActionMulticall:      true,
	ActionApprove:        true,
	ActionTransferNative: true,
	ActionEnableFee:      true,
}

// Scenario is a scripted sequence of calls replayed against the in-memory
// ledger. Amounts are base-10 integers in base units. In YAML, quote
// addresses and any amount above 2^53 so they are read as strings.
type Scenario struct {
	ChainID   uint64 `mapstructure:"chain_id"`
	StartTime string `mapstructure:"start_time"`
	BlockTime uint64 `mapstructure:"block_time"`
	// Owner may enable fee tiers on the factory.
	Owner    string    `mapstructure:"owner"`
	Accounts []Account `mapstructure:"accounts"`
	Steps    []Step    `mapstructure:"steps"`
}

// Account seeds one holder before the first step.
type Account struct {
	Address string `mapstructure:"address"`
	Native  string `mapstructure:"native"`
	// Tokens maps token address to balance.
	Tokens map[string]string `mapstructure:"tokens"`
	// Approve lists tokens approved to the manager for the maximum amount.
	Approve []string `mapstructure:"approve"`
}

// Step is one transaction. Fields not used by Action are ignored.
type Step struct {
	Action         string `mapstructure:"action"`
	Caller         string `mapstructure:"caller"`
	Value          string `mapstructure:"value"`
	Deadline       string `mapstructure:"deadline"`
	Token0         string `mapstructure:"token0"`
	Token1         string `mapstructure:"token1"`
	Token          string `mapstructure:"token"`
	Fee            uint32 `mapstructure:"fee"`
	TickSpacing    int32  `mapstructure:"tick_spacing"`
	SqrtPriceX96   string `mapstructure:"sqrt_price_x96"`
	TickLower      int32  `mapstructure:"tick_lower"`
	TickUpper      int32  `mapstructure:"tick_upper"`
	Amount0Desired string `mapstructure:"amount0_desired"`
	Amount1Desired string `mapstructure:"amount1_desired"`
	Amount0Min     string `mapstructure:"amount0_min"`
	Amount1Min     string `mapstructure:"amount1_min"`
	Amount         string `mapstructure:"amount"`
	Recipient      string `mapstructure:"recipient"`
	Spender        string `mapstructure:"spender"`
	// Calls are the batched operations of a multicall step.
	Calls []Step `mapstructure:"calls"`
}

// LoadScenario reads a scenario file. The format follows the extension.
func LoadScenario(path string) (Scenario, error) {
	if path == "" {
		return Scenario{}, fmt.Errorf("scenario path is required")
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return Scenario{}, fmt.Errorf("read scenario: %w", err)
	}
	return decodeScenario(v)
}

// ReadScenario reads a scenario in the given format (yaml, json, toml).
func ReadScenario(r io.Reader, format string) (Scenario, error) {
	v := viper.New()
	v.SetConfigType(format)
	if err := v.ReadConfig(r); err != nil {
		return Scenario{}, fmt.Errorf("read scenario: %w", err)
	}
	return decodeScenario(v)
}

func decodeScenario(v *viper.Viper) (Scenario, error) {
	var s Scenario
	if err := v.Unmarshal(&s); err != nil {
		return Scenario{}, fmt.Errorf("decode scenario: %w", err)
	}
	if s.BlockTime == 0 {
		s.BlockTime = DefaultBlockTime
	}
	if s.Owner == "" {
		s.Owner = DefaultOwner
	}
	if err := s.Validate(); err != nil {
		return Scenario{}, err
	}
	return s, nil
}

// Validate checks that every step names a known action and a caller.
func (s Scenario) Validate() error {
	if _, err := ParseTimestamp(s.StartTime); err != nil {
		return fmt.Errorf("%w: start_time: %v", ErrInvalidScenario, err)
	}
	if _, err := ParseOptionalAddress(s.Owner, common.Address{}); err != nil {
		return fmt.Errorf("%w: owner: %v", ErrInvalidScenario, err)
	}
	for i, account := range s.Accounts {
		if _, err := ParseAddress(account.Address); err != nil {
			return fmt.Errorf("%w: account %d: %v", ErrInvalidScenario, i, err)
		}
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("%w: no steps", ErrInvalidScenario)
	}
	for i, step := range s.Steps {
		if err := step.validate(false); err != nil {
			return fmt.Errorf("%w: step %d: %v", ErrInvalidScenario, i, err)
		}
	}
	return nil
}

func (s Step) validate(nested bool) error {
	action := s.Kind()
	switch {
	case nested && !managerActions[action]:
		return fmt.Errorf("action %q cannot be batched", s.Action)
	case !managerActions[action] && !directActions[action]:
		return fmt.Errorf("unknown action %q", s.Action)
	}
	if _, err := ParseAddress(s.Caller); err != nil && !nested {
		return fmt.Errorf("caller: %v", err)
	}
	if _, err := ParseTimestamp(s.Deadline); err != nil {
		return fmt.Errorf("deadline: %v", err)
	}
	if action == ActionMulticall {
		if len(s.Calls) == 0 {
			return fmt.Errorf("multicall without calls")
		}
		for i, call := range s.Calls {
			if err := call.validate(true); err != nil {
				return fmt.Errorf("call %d: %v", i, err)
			}
		}
	}
	return nil
}

// Kind returns the normalized action name.
func (s Step) Kind() string {
	return strings.ToLower(strings.TrimSpace(s.Action))
}
