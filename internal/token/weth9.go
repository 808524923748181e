package token

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

var (
	DepositTopic    = crypto.Keccak256Hash([]byte("Deposit(address,uint256)"))
	WithdrawalTopic = crypto.Keccak256Hash([]byte("Withdrawal(address,uint256)"))
)

// WETH9 is the wrapped-native token. Its native reserve is the native
// balance of its own address.
type WETH9 struct {
	bank    *Bank
	address common.Address
}

// NewWETH9 returns the wrapped-native token deployed at address.
func NewWETH9(bank *Bank, address common.Address) *WETH9 {
	return &WETH9{bank: bank, address: address}
}

// Deposit wraps amount of account's native value.
func (w *WETH9) Deposit(account common.Address, amount *uint256.Int) error {
	if err := w.bank.CallValue(account, w.address, amount); err != nil {
		return err
	}
	w.bank.db.SetTokenBalance(w.address, account, new(uint256.Int).Add(w.bank.db.TokenBalance(w.address, account), amount))
	w.bank.db.AddLog(&types.Log{
		Address: w.address,
		Topics:  []common.Hash{DepositTopic, addressTopic(account)},
		Data:    amountData(amount),
	})
	return nil
}

// Withdraw unwraps amount of account's balance and sends the native value
// back. If the native transfer fails the wrapped balance is restored.
func (w *WETH9) Withdraw(account common.Address, amount *uint256.Int) error {
	balance := w.bank.db.TokenBalance(w.address, account)
	if balance.Lt(amount) {
		return ErrInsufficientFunds
	}
	snapshot := w.bank.db.Snapshot()
	w.bank.db.SetTokenBalance(w.address, account, new(uint256.Int).Sub(balance, amount))
	w.bank.db.AddLog(&types.Log{
		Address: w.address,
		Topics:  []common.Hash{WithdrawalTopic, addressTopic(account)},
		Data:    amountData(amount),
	})
	if err := w.bank.TransferNative(w.address, account, amount); err != nil {
		w.bank.db.RevertToSnapshot(snapshot)
		return err
	}
	return nil
}
