// Package token implements ERC20-style balances, allowances and native value
// transfers on top of a journaled ledger, plus a wrapped-native token.
package token

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

var (
	TransferTopic = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))
	ApprovalTopic = crypto.Keccak256Hash([]byte("Approval(address,address,uint256)"))
)

// NativeAsset is the zero address, used to label native-value failures.
var NativeAsset = common.Address{}

// Ledger is the state a Bank reads and writes.
type Ledger interface {
	TokenBalance(token, holder common.Address) *uint256.Int
	SetTokenBalance(token, holder common.Address, amount *uint256.Int)
	Allowance(token, owner, spender common.Address) *uint256.Int
	SetAllowance(token, owner, spender common.Address, amount *uint256.Int)
	GetBalance(addr common.Address) *uint256.Int
	AddBalance(addr common.Address, amount *uint256.Int)
	SubBalance(addr common.Address, amount *uint256.Int)
	AddLog(log *types.Log)
	Snapshot() int
	RevertToSnapshot(revid int)
}

// ReceiveFunc is run when native value is sent to a registered contract.
type ReceiveFunc func(from common.Address, value *uint256.Int) error

// Bank moves tokens and native value between accounts.
type Bank struct {
	db Ledger

	mu        sync.RWMutex
	receivers map[common.Address]ReceiveFunc
}

// NewBank creates a Bank over db.
func NewBank(db Ledger) *Bank {
	return &Bank{db: db, receivers: make(map[common.Address]ReceiveFunc)}
}

// SetReceiver registers the receive hook of a contract account.
func (b *Bank) SetReceiver(addr common.Address, fn ReceiveFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if fn == nil {
		delete(b.receivers, addr)
		return
	}
	b.receivers[addr] = fn
}

// BalanceOf returns holder's balance of token.
func (b *Bank) BalanceOf(token, holder common.Address) *uint256.Int {
	return b.db.TokenBalance(token, holder)
}

// NativeBalance returns holder's native balance.
func (b *Bank) NativeBalance(holder common.Address) *uint256.Int {
	return b.db.GetBalance(holder)
}

// Allowance returns the amount spender may pull from owner.
func (b *Bank) Allowance(token, owner, spender common.Address) *uint256.Int {
	return b.db.Allowance(token, owner, spender)
}

// Mint credits new token supply to holder.
func (b *Bank) Mint(token, to common.Address, amount *uint256.Int) {
	b.db.SetTokenBalance(token, to, new(uint256.Int).Add(b.db.TokenBalance(token, to), amount))
	b.emitTransfer(token, common.Address{}, to, amount)
}

// SetNative overwrites holder's native balance.
func (b *Bank) SetNative(holder common.Address, amount *uint256.Int) {
	current := b.db.GetBalance(holder)
	if current.Lt(amount) {
		b.db.AddBalance(holder, new(uint256.Int).Sub(amount, current))
		return
	}
	b.db.SubBalance(holder, new(uint256.Int).Sub(current, amount))
}

// Approve sets spender's allowance over owner's token.
func (b *Bank) Approve(token, owner, spender common.Address, amount *uint256.Int) {
	b.db.SetAllowance(token, owner, spender, amount)
	b.db.AddLog(&types.Log{
		Address: token,
		Topics:  []common.Hash{ApprovalTopic, addressTopic(owner), addressTopic(spender)},
		Data:    amountData(amount),
	})
}

// Transfer moves amount of token from one holder to another.
func (b *Bank) Transfer(token, from, to common.Address, amount *uint256.Int) error {
	if err := b.move(token, from, to, amount); err != nil {
		return &TransferError{Op: OpSafeTransfer, Token: token, Err: err}
	}
	return nil
}

// TransferFrom moves amount of token from owner to recipient on behalf of
// spender. An allowance of MaxUint256 is never decreased.
func (b *Bank) TransferFrom(token, spender, from, to common.Address, amount *uint256.Int) error {
	allowance := b.db.Allowance(token, from, spender)
	if allowance.Lt(amount) {
		return &TransferError{Op: OpSafeTransferFrom, Token: token, Err: ErrInsufficientAllowance}
	}
	if err := b.move(token, from, to, amount); err != nil {
		return &TransferError{Op: OpSafeTransferFrom, Token: token, Err: err}
	}
	if !allowance.Eq(maxUint256) {
		b.db.SetAllowance(token, from, spender, new(uint256.Int).Sub(allowance, amount))
	}
	return nil
}

// CallValue moves native value attached to a call. Receive hooks are not run.
func (b *Bank) CallValue(from, to common.Address, amount *uint256.Int) error {
	if err := b.moveNative(from, to, amount); err != nil {
		return &TransferError{Op: OpSafeTransferETH, Token: NativeAsset, Err: err}
	}
	return nil
}

// TransferNative sends plain native value, running the recipient's receive
// hook. A rejected transfer leaves no change behind.
func (b *Bank) TransferNative(from, to common.Address, amount *uint256.Int) error {
	b.mu.RLock()
	receive := b.receivers[to]
	b.mu.RUnlock()

	snapshot := b.db.Snapshot()
	if err := b.moveNative(from, to, amount); err != nil {
		b.db.RevertToSnapshot(snapshot)
		return &TransferError{Op: OpSafeTransferETH, Token: NativeAsset, Err: err}
	}
	if receive != nil {
		if err := receive(from, amount); err != nil {
			b.db.RevertToSnapshot(snapshot)
			return &TransferError{Op: OpSafeTransferETH, Token: NativeAsset, Err: err}
		}
	}
	return nil
}

func (b *Bank) move(token, from, to common.Address, amount *uint256.Int) error {
	balance := b.db.TokenBalance(token, from)
	if balance.Lt(amount) {
		return ErrInsufficientFunds
	}
	b.db.SetTokenBalance(token, from, new(uint256.Int).Sub(balance, amount))
	b.db.SetTokenBalance(token, to, new(uint256.Int).Add(b.db.TokenBalance(token, to), amount))
	b.emitTransfer(token, from, to, amount)
	return nil
}

func (b *Bank) moveNative(from, to common.Address, amount *uint256.Int) error {
	if b.db.GetBalance(from).Lt(amount) {
		return ErrInsufficientFunds
	}
	b.db.SubBalance(from, amount)
	b.db.AddBalance(to, amount)
	return nil
}

func (b *Bank) emitTransfer(token, from, to common.Address, amount *uint256.Int) {
	b.db.AddLog(&types.Log{
		Address: token,
		Topics:  []common.Hash{TransferTopic, addressTopic(from), addressTopic(to)},
		Data:    amountData(amount),
	})
}

var maxUint256 = new(uint256.Int).Not(new(uint256.Int))

func addressTopic(addr common.Address) common.Hash {
	return common.BytesToHash(addr.Bytes())
}

func amountData(amount *uint256.Int) []byte {
	word := amount.Bytes32()
	return word[:]
}
