package periphery

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"
)

// PaymentStrategy is how one obligation is settled.
type PaymentStrategy int

const (
	// PayWrapNative wraps the manager's native balance into WETH9 and forwards it.
	PayWrapNative PaymentStrategy = iota + 1
	// PaySelf transfers from the manager's own token balance.
	PaySelf
	// PayPull pulls from the payer using its allowance to the manager.
	PayPull
)

func (s PaymentStrategy) String() string {
	switch s {
	case PayWrapNative:
		return "wrap-native"
	case PaySelf:
		return "self"
	case PayPull:
		return "pull"
	default:
		return fmt.Sprintf("PaymentStrategy(%d)", int(s))
	}
}

// Payment is one obligation to settle.
type Payment struct {
	Token     common.Address
	Payer     common.Address
	Recipient common.Address
	Value     *uint256.Int
}

// SelectPaymentStrategy picks exactly one strategy for p given the
// manager's configuration and current native balance.
func SelectPaymentStrategy(p Payment, imm Immutables, selfNative *uint256.Int) PaymentStrategy {
	switch {
	case p.Token == imm.WETH9 && !selfNative.Lt(p.Value):
		return PayWrapNative
	case p.Payer == imm.Self:
		return PaySelf
	default:
		return PayPull
	}
}

func (m *Manager) pay(_ context.Context, p Payment) error {
	strategy := SelectPaymentStrategy(p, m.imm, m.ledger.NativeBalance(m.imm.Self))
	m.logger.Debug("settling payment",
		zap.Stringer("strategy", strategy),
		zap.String("token", p.Token.Hex()),
		zap.String("payer", p.Payer.Hex()),
		zap.String("recipient", p.Recipient.Hex()),
		zap.String("value", p.Value.ToBig().String()),
	)

	switch strategy {
	case PayWrapNative:
		if err := m.weth.Deposit(m.imm.Self, p.Value); err != nil {
			return fmt.Errorf("wrap native: %w", err)
		}
		return m.ledger.Transfer(m.imm.WETH9, m.imm.Self, p.Recipient, p.Value)
	case PaySelf:
		return m.ledger.Transfer(p.Token, m.imm.Self, p.Recipient, p.Value)
	case PayPull:
		return m.ledger.TransferFrom(p.Token, m.imm.Self, p.Payer, p.Recipient, p.Value)
	default:
		return fmt.Errorf("unknown payment strategy %v", strategy)
	}
}

// UnwrapWETH9 unwraps the manager's whole WETH9 balance and sends the native
// value to recipient. It fails if the balance is below amountMinimum.
func (tx *Tx) UnwrapWETH9(_ context.Context, amountMinimum *uint256.Int, recipient common.Address) error {
	m := tx.m
	balance := m.ledger.BalanceOf(m.imm.WETH9, m.imm.Self)
	if amountMinimum != nil && balance.Lt(amountMinimum) {
		return ErrInsufficientWETH9
	}
	if balance.IsZero() {
		return nil
	}
	if err := m.weth.Withdraw(m.imm.Self, balance); err != nil {
		return fmt.Errorf("unwrap WETH9: %w", err)
	}
	return m.ledger.TransferNative(m.imm.Self, recipient, balance)
}

// SweepToken sends the manager's whole balance of token to recipient. It
// fails if the balance is below amountMinimum.
func (tx *Tx) SweepToken(_ context.Context, token common.Address, amountMinimum *uint256.Int, recipient common.Address) error {
	m := tx.m
	balance := m.ledger.BalanceOf(token, m.imm.Self)
	if amountMinimum != nil && balance.Lt(amountMinimum) {
		return ErrInsufficientToken
	}
	if balance.IsZero() {
		return nil
	}
	return m.ledger.Transfer(token, m.imm.Self, recipient, balance)
}

// RefundETH returns the manager's native balance to the caller.
func (tx *Tx) RefundETH(_ context.Context) error {
	m := tx.m
	balance := m.ledger.NativeBalance(m.imm.Self)
	if balance.IsZero() {
		return nil
	}
	return m.ledger.TransferNative(m.imm.Self, tx.caller, balance)
}
