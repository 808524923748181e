package token

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrInsufficientAllowance is also an ErrInsufficientFunds.
	ErrInsufficientAllowance = fmt.Errorf("%w: allowance exceeded", ErrInsufficientFunds)
	ErrReceiverRejected      = errors.New("receiver rejected native transfer")
)

// Transfer helper failure codes.
const (
	OpSafeTransfer     = "ST"
	OpSafeTransferFrom = "STF"
	OpSafeTransferETH  = "STE"
)

// TransferError records which primitive failed and on which asset.
type TransferError struct {
	Op    string
	Token common.Address
	Err   error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Token.Hex(), e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}
