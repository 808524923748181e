package dex

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/RevelationOfTuring/v3-periphery/internal/pooladdress"
)

var errFeeOverflow = errors.New("fee does not fit uint24")

// MintCallbackData is passed through the pool's mint call and handed back
// to the mint callback.
type MintCallbackData struct {
	PoolKey pooladdress.PoolKey
	Payer   common.Address
}

var (
	mintCallbackArgs     abi.Arguments
	mintCallbackArgsOnce sync.Once
	mintCallbackArgsErr  error
)

func mintCallbackArguments() (abi.Arguments, error) {
	mintCallbackArgsOnce.Do(func() {
		addressTy, err := abi.NewType("address", "", nil)
		if err != nil {
			mintCallbackArgsErr = err
			return
		}
		uint24Ty, err := abi.NewType("uint24", "", nil)
		if err != nil {
			mintCallbackArgsErr = err
			return
		}
		mintCallbackArgs = abi.Arguments{
			{Name: "token0", Type: addressTy},
			{Name: "token1", Type: addressTy},
			{Name: "fee", Type: uint24Ty},
			{Name: "payer", Type: addressTy},
		}
	})
	return mintCallbackArgs, mintCallbackArgsErr
}

// EncodeMintCallbackData ABI-encodes d as abi.encode(((token0, token1, fee), payer)).
func EncodeMintCallbackData(d MintCallbackData) ([]byte, error) {
	args, err := mintCallbackArguments()
	if err != nil {
		return nil, err
	}
	if d.PoolKey.Fee >= 1<<24 {
		return nil, errFeeOverflow
	}
	return args.Pack(d.PoolKey.Token0, d.PoolKey.Token1, new(big.Int).SetUint64(uint64(d.PoolKey.Fee)), d.Payer)
}

// DecodeMintCallbackData reverses EncodeMintCallbackData.
func DecodeMintCallbackData(data []byte) (MintCallbackData, error) {
	args, err := mintCallbackArguments()
	if err != nil {
		return MintCallbackData{}, err
	}
	values, err := args.Unpack(data)
	if err != nil {
		return MintCallbackData{}, fmt.Errorf("unpack mint callback data: %w", err)
	}
	if len(values) != 4 {
		return MintCallbackData{}, fmt.Errorf("unexpected mint callback values: %d", len(values))
	}

	token0, err := asAddress(values[0])
	if err != nil {
		return MintCallbackData{}, err
	}
	token1, err := asAddress(values[1])
	if err != nil {
		return MintCallbackData{}, err
	}
	fee, err := asBigInt(values[2])
	if err != nil {
		return MintCallbackData{}, err
	}
	if !fee.IsUint64() || fee.Uint64() >= 1<<24 {
		return MintCallbackData{}, errFeeOverflow
	}
	payer, err := asAddress(values[3])
	if err != nil {
		return MintCallbackData{}, err
	}

	return MintCallbackData{
		PoolKey: pooladdress.PoolKey{Token0: token0, Token1: token1, Fee: uint32(fee.Uint64())},
		Payer:   payer,
	}, nil
}
