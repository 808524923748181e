package amm

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"
	"github.com/zeebo/blake3"
)

// StateDB is the journaled contract storage the factory and pools live in.
type StateDB interface {
	GetState(addr common.Address, key common.Hash) common.Hash
	SetState(addr common.Address, key common.Hash, value common.Hash)
	Exist(addr common.Address) bool
	CreateAccount(addr common.Address)
	AddLog(log *types.Log)
}

// Balances reads token balances for the mint payment checks.
type Balances interface {
	BalanceOf(token, holder common.Address) *uint256.Int
}

// Storage key prefixes
var (
	feeTickSpacingPrefix = []byte("fee")
	poolPrefix           = []byte("pool")
	token0Key            = makeStorageKey([]byte("token0"), nil)
	token1Key            = makeStorageKey([]byte("token1"), nil)
	feeKey               = makeStorageKey([]byte("fee"), nil)
	tickSpacingKey       = makeStorageKey([]byte("spacing"), nil)
	sqrtPriceKey         = makeStorageKey([]byte("sqrtPrice"), nil)
	tickKey              = makeStorageKey([]byte("tick"), nil)
	unlockedKey          = makeStorageKey([]byte("unlocked"), nil)
	liquidityKey         = makeStorageKey([]byte("liquidity"), nil)
	positionPrefix       = []byte("position")
)

func makeStorageKey(prefix []byte, id []byte) common.Hash {
	h := blake3.New()
	h.Write(prefix)
	h.Write(id)
	var key common.Hash
	h.Digest().Read(key[:])
	return key
}

func feeBytes(fee uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], fee)
	return b[:]
}

func addressToHash(addr common.Address) common.Hash {
	return common.BytesToHash(addr.Bytes())
}

func hashToAddress(h common.Hash) common.Address {
	return common.BytesToAddress(h.Bytes())
}

func uintToHash(v *uint256.Int) common.Hash {
	return common.Hash(v.Bytes32())
}

func hashToUint(h common.Hash) *uint256.Int {
	return new(uint256.Int).SetBytes32(h[:])
}

func int32ToHash(v int32) common.Hash {
	var h common.Hash
	binary.BigEndian.PutUint32(h[28:], uint32(v))
	return h
}

func hashToInt32(h common.Hash) int32 {
	return int32(binary.BigEndian.Uint32(h[28:]))
}

func boolToHash(v bool) common.Hash {
	var h common.Hash
	if v {
		h[31] = 1
	}
	return h
}
