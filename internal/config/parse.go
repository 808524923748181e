package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/RevelationOfTuring/v3-periphery/internal/clmath"
)

// ParseAddress converts a hex string into common.Address.
func ParseAddress(input string) (common.Address, error) {
	input = strings.TrimSpace(input)
	if !common.IsHexAddress(input) {
		return common.Address{}, fmt.Errorf("invalid address: %q", input)
	}
	return common.HexToAddress(input), nil
}

// ParseOptionalAddress is ParseAddress, except that an empty input yields fallback.
func ParseOptionalAddress(input string, fallback common.Address) (common.Address, error) {
	if strings.TrimSpace(input) == "" {
		return fallback, nil
	}
	return ParseAddress(input)
}

// ParseFees converts fee tiers in hundredths of a bip into uint32 values.
func ParseFees(inputs []string) ([]uint32, error) {
	fees := make([]uint32, 0, len(inputs))
	for _, input := range inputs {
		val, err := strconv.ParseUint(strings.TrimSpace(input), 10, 24)
		if err != nil {
			return nil, fmt.Errorf("invalid fee %q: %w", input, err)
		}
		fees = append(fees, uint32(val))
	}
	return fees, nil
}

// ParseRawAmount parses a base-10 integer amount. Empty means nil.
func ParseRawAmount(input string) (*uint256.Int, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, nil
	}
	return clmath.ParseAmount(input)
}

// ParseTimestamp parses a timestamp value (unix seconds or RFC3339).
func ParseTimestamp(input string) (uint64, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return 0, nil
	}

	if isNumeric(input) {
		val, err := strconv.ParseUint(input, 10, 64)
		if err != nil {
			return 0, err
		}
		return val, nil
	}

	tm, err := time.Parse(time.RFC3339, input)
	if err != nil {
		return 0, err
	}
	if tm.Unix() < 0 {
		return 0, fmt.Errorf("timestamp before unix epoch: %s", input)
	}
	return uint64(tm.Unix()), nil
}

func isNumeric(input string) bool {
	for _, r := range input {
		if r < '0' || r > '9' {
			return false
		}
	}
	return input != ""
}
