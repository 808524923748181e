package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleScenario = `
chain_id: 31337
start_time: "2023-11-14T22:13:20Z"
accounts:
  - address: "0x000000000000000000000000000000000000a11c"
    native: "5000000000000000000"
    tokens:
      "0x0000000000000000000000000000000000000001": "10000"
      "0x0000000000000000000000000000000000000002": "10000"
    approve:
      - "0x0000000000000000000000000000000000000001"
      - "0x0000000000000000000000000000000000000002"
steps:
  - action: create_pool
    caller: "0x000000000000000000000000000000000000a11c"
    token0: "0x0000000000000000000000000000000000000001"
    token1: "0x0000000000000000000000000000000000000002"
    fee: 3000
    sqrt_price_x96: "79228162514264337593543950336"
  - action: multicall
    caller: "0x000000000000000000000000000000000000a11c"
    value: "1000"
    calls:
      - action: add_liquidity
        token0: "0x0000000000000000000000000000000000000001"
        token1: "0x0000000000000000000000000000000000000002"
        fee: 3000
        tick_lower: -100
        tick_upper: 100
        amount0_desired: "1000"
        amount1_desired: "2000"
      - action: refund_eth
`

func TestReadScenario(t *testing.T) {
	s, err := ReadScenario(strings.NewReader(sampleScenario), "yaml")
	if err != nil {
		t.Fatalf("read scenario: %v", err)
	}
	if s.ChainID != 31337 || s.BlockTime != DefaultBlockTime || s.Owner != DefaultOwner {
		t.Fatalf("unexpected header: %+v", s)
	}
	if len(s.Accounts) != 1 || len(s.Accounts[0].Tokens) != 2 || len(s.Accounts[0].Approve) != 2 {
		t.Fatalf("unexpected accounts: %+v", s.Accounts)
	}
	if got := s.Accounts[0].Tokens["0x0000000000000000000000000000000000000001"]; got != "10000" {
		t.Fatalf("unexpected token balance: %q", got)
	}
	if len(s.Steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(s.Steps))
	}
	create := s.Steps[0]
	if create.Kind() != ActionCreatePool || create.Fee != 3000 || create.SqrtPriceX96 != "79228162514264337593543950336" {
		t.Fatalf("unexpected create step: %+v", create)
	}
	batch := s.Steps[1]
	if batch.Kind() != ActionMulticall || len(batch.Calls) != 2 {
		t.Fatalf("unexpected multicall: %+v", batch)
	}
	add := batch.Calls[0]
	if add.TickLower != -100 || add.TickUpper != 100 || add.Amount1Desired != "2000" {
		t.Fatalf("unexpected add step: %+v", add)
	}
	if batch.Calls[1].Kind() != ActionRefundETH {
		t.Fatalf("unexpected second call: %+v", batch.Calls[1])
	}
}

func TestLoadScenarioJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenario.json")
	content := `{"steps":[{"action":"enable_fee","caller":"0x000000000000000000000000000000000000a11c","fee":100,"tick_spacing":1}]}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write scenario: %v", err)
	}
	s, err := LoadScenario(path)
	if err != nil {
		t.Fatalf("load scenario: %v", err)
	}
	if s.Steps[0].Kind() != ActionEnableFee || s.Steps[0].TickSpacing != 1 || s.Steps[0].Fee != 100 {
		t.Fatalf("unexpected step: %+v", s.Steps[0])
	}
}

func TestScenarioValidation(t *testing.T) {
	caller := `"0x000000000000000000000000000000000000a11c"`
	tests := []struct {
		name string
		body string
	}{
		{"no steps", "chain_id: 1\n"},
		{"unknown action", "steps:\n  - action: swap\n    caller: " + caller + "\n"},
		{"bad caller", "steps:\n  - action: refund_eth\n    caller: \"0x12\"\n"},
		{"bad deadline", "steps:\n  - action: refund_eth\n    caller: " + caller + "\n    deadline: soon\n"},
		{"empty multicall", "steps:\n  - action: multicall\n    caller: " + caller + "\n"},
		{"nested direct action", "steps:\n  - action: multicall\n    caller: " + caller + "\n    calls:\n      - action: approve\n"},
		{"bad account", "accounts:\n  - address: nobody\nsteps:\n  - action: refund_eth\n    caller: " + caller + "\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadScenario(strings.NewReader(tt.body), "yaml")
			if !errors.Is(err, ErrInvalidScenario) {
				t.Fatalf("expected ErrInvalidScenario, got %v", err)
			}
		})
	}
}
