// Package pooladdress derives the deterministic CREATE2 address of a pool
// from its factory and key.
package pooladdress

import (
	"bytes"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// PoolInitCodeHash is the keccak256 of the pool creation code.
var PoolInitCodeHash = common.HexToHash("0xe34f199b19b2b4f47f68442619d555527d244f78a3297ea89325f843f87b8b54")

// PoolKey identifies a pool. Token0 sorts before Token1.
type PoolKey struct {
	Token0 common.Address
	Token1 common.Address
	Fee    uint32
}

// GetPoolKey returns the key for a pair and fee with the tokens sorted.
func GetPoolKey(tokenA, tokenB common.Address, fee uint32) PoolKey {
	if Less(tokenB, tokenA) {
		tokenA, tokenB = tokenB, tokenA
	}
	return PoolKey{Token0: tokenA, Token1: tokenB, Fee: fee}
}

// Less reports whether a sorts strictly before b as an unsigned 160-bit integer.
func Less(a, b common.Address) bool {
	return bytes.Compare(a.Bytes(), b.Bytes()) < 0
}

// Sorted reports whether Token0 is strictly below Token1.
func (k PoolKey) Sorted() bool {
	return Less(k.Token0, k.Token1)
}

// Salt is keccak256(abi.encode(token0, token1, fee)).
func (k PoolKey) Salt() common.Hash {
	buf := make([]byte, 0, 96)
	buf = append(buf, common.LeftPadBytes(k.Token0.Bytes(), 32)...)
	buf = append(buf, common.LeftPadBytes(k.Token1.Bytes(), 32)...)
	buf = append(buf, common.LeftPadBytes(new(big.Int).SetUint64(uint64(k.Fee)).Bytes(), 32)...)
	return crypto.Keccak256Hash(buf)
}

// ComputeAddress returns the pool address the factory deploys for key.
// The key is used as given; callers must pass a sorted key.
func ComputeAddress(factory common.Address, key PoolKey) common.Address {
	salt := key.Salt()
	return crypto.CreateAddress2(factory, salt, PoolInitCodeHash.Bytes())
}
