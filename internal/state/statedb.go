// Package state is an in-memory, journaled ledger modelled on the go-ethereum
// StateDB: native balances, token balances and allowances, contract storage,
// account existence and logs, with snapshot and revert.
package state

import (
	"encoding/binary"
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"
)

type allowanceKey struct {
	token   common.Address
	owner   common.Address
	spender common.Address
}

type holdingKey struct {
	token  common.Address
	holder common.Address
}

type revision struct {
	id           int
	journalIndex int
}

// StateDB holds every piece of mutable state touched by a unit of work so
// that a single RevertToSnapshot discards all of it.
type StateDB struct {
	mu sync.Mutex

	native     map[common.Address]*uint256.Int
	holdings   map[holdingKey]*uint256.Int
	allowances map[allowanceKey]*uint256.Int
	storage    map[common.Address]map[common.Hash]common.Hash
	accounts   map[common.Address]struct{}
	logs       []*types.Log

	journal        []func()
	validRevisions []revision
	nextRevisionID int

	blockNumber uint64
	blockTime   uint64
	blockHash   common.Hash
	txHash      common.Hash
	txIndex     uint
}

// New returns an empty StateDB at block 0.
func New() *StateDB {
	return &StateDB{
		native:     make(map[common.Address]*uint256.Int),
		holdings:   make(map[holdingKey]*uint256.Int),
		allowances: make(map[allowanceKey]*uint256.Int),
		storage:    make(map[common.Address]map[common.Hash]common.Hash),
		accounts:   make(map[common.Address]struct{}),
	}
}

// SetBlock moves the ledger clock. It is not journaled.
func (s *StateDB) SetBlock(number, timestamp uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blockNumber = number
	s.blockTime = timestamp
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], number)
	binary.BigEndian.PutUint64(buf[8:], timestamp)
	s.blockHash = common.BytesToHash(buf[:])
}

// SetTxContext sets the hash and index stamped on subsequently added logs.
func (s *StateDB) SetTxContext(hash common.Hash, index uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txHash = hash
	s.txIndex = index
}

// BlockNumber returns the current block number.
func (s *StateDB) BlockNumber() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.blockNumber
}

// BlockTime returns the current block timestamp in unix seconds.
func (s *StateDB) BlockTime() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.blockTime
}

// GetBalance returns the native balance of addr.
func (s *StateDB) GetBalance(addr common.Address) *uint256.Int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyOrZero(s.native[addr])
}

// SetBalance overwrites the native balance of addr.
func (s *StateDB) SetBalance(addr common.Address, amount *uint256.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setNative(addr, amount.Clone())
}

// AddBalance credits native value to addr.
func (s *StateDB) AddBalance(addr common.Address, amount *uint256.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setNative(addr, new(uint256.Int).Add(copyOrZero(s.native[addr]), amount))
}

// SubBalance debits native value from addr. Callers check the balance first.
func (s *StateDB) SubBalance(addr common.Address, amount *uint256.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setNative(addr, new(uint256.Int).Sub(copyOrZero(s.native[addr]), amount))
}

func (s *StateDB) setNative(addr common.Address, amount *uint256.Int) {
	prev, had := s.native[addr]
	s.journal = append(s.journal, func() {
		if had {
			s.native[addr] = prev
		} else {
			delete(s.native, addr)
		}
	})
	s.native[addr] = amount
}

// TokenBalance returns holder's balance of token.
func (s *StateDB) TokenBalance(token, holder common.Address) *uint256.Int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyOrZero(s.holdings[holdingKey{token, holder}])
}

// SetTokenBalance overwrites holder's balance of token.
func (s *StateDB) SetTokenBalance(token, holder common.Address, amount *uint256.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := holdingKey{token, holder}
	prev, had := s.holdings[key]
	s.journal = append(s.journal, func() {
		if had {
			s.holdings[key] = prev
		} else {
			delete(s.holdings, key)
		}
	})
	s.holdings[key] = amount.Clone()
}

// Allowance returns how much spender may move of owner's token.
func (s *StateDB) Allowance(token, owner, spender common.Address) *uint256.Int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyOrZero(s.allowances[allowanceKey{token, owner, spender}])
}

// SetAllowance overwrites an allowance.
func (s *StateDB) SetAllowance(token, owner, spender common.Address, amount *uint256.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := allowanceKey{token, owner, spender}
	prev, had := s.allowances[key]
	s.journal = append(s.journal, func() {
		if had {
			s.allowances[key] = prev
		} else {
			delete(s.allowances, key)
		}
	})
	s.allowances[key] = amount.Clone()
}

// GetState reads a contract storage slot.
func (s *StateDB) GetState(addr common.Address, key common.Hash) common.Hash {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.storage[addr][key]
}

// SetState writes a contract storage slot.
func (s *StateDB) SetState(addr common.Address, key common.Hash, value common.Hash) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slots, ok := s.storage[addr]
	if !ok {
		slots = make(map[common.Hash]common.Hash)
		s.storage[addr] = slots
	}
	prev, had := slots[key]
	s.journal = append(s.journal, func() {
		if had {
			slots[key] = prev
		} else {
			delete(slots, key)
		}
	})
	slots[key] = value
}

// Exist reports whether addr was created.
func (s *StateDB) Exist(addr common.Address) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.accounts[addr]
	return ok
}

// CreateAccount marks addr as existing.
func (s *StateDB) CreateAccount(addr common.Address) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[addr]; ok {
		return
	}
	s.journal = append(s.journal, func() { delete(s.accounts, addr) })
	s.accounts[addr] = struct{}{}
}

// AddLog appends a log stamped with the current block and tx context.
func (s *StateDB) AddLog(log *types.Log) {
	s.mu.Lock()
	defer s.mu.Unlock()
	log.BlockNumber = s.blockNumber
	log.BlockHash = s.blockHash
	log.TxHash = s.txHash
	log.TxIndex = s.txIndex
	log.Index = uint(len(s.logs))
	s.logs = append(s.logs, log)
	s.journal = append(s.journal, func() { s.logs = s.logs[:len(s.logs)-1] })
}

// Logs returns the logs recorded since the last Finalise.
func (s *StateDB) Logs() []*types.Log {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*types.Log, len(s.logs))
	copy(out, s.logs)
	return out
}

// Snapshot returns an identifier for the current revision of the state.
func (s *StateDB) Snapshot() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextRevisionID
	s.nextRevisionID++
	s.validRevisions = append(s.validRevisions, revision{id, len(s.journal)})
	return id
}

// RevertToSnapshot undoes every change made since the snapshot was taken.
func (s *StateDB) RevertToSnapshot(revid int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := sort.Search(len(s.validRevisions), func(i int) bool {
		return s.validRevisions[i].id >= revid
	})
	if idx == len(s.validRevisions) || s.validRevisions[idx].id != revid {
		panic(fmt.Errorf("revision id %v cannot be reverted", revid))
	}
	snapshot := s.validRevisions[idx].journalIndex

	for i := len(s.journal) - 1; i >= snapshot; i-- {
		s.journal[i]()
	}
	s.journal = s.journal[:snapshot]
	s.validRevisions = s.validRevisions[:idx]
}

// Finalise ends the block: it drops the journal and the block's logs.
// Earlier snapshots become invalid.
func (s *StateDB) Finalise() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.journal = s.journal[:0]
	s.validRevisions = s.validRevisions[:0]
	s.logs = nil
}

func copyOrZero(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return v.Clone()
}
