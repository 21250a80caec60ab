// Package ledger moves escrowed funds between party accounts.
//
// The escrow engine treats the ledger as an external collaborator: deposits
// and payouts run as the final step of a storage transaction, and a ledger
// failure rolls the whole mutation back.
package ledger

import (
	"context"
	"strconv"

	"github.com/WuodOdhis/trackflow/internal/platform/errors"
)

// ErrInsufficientFunds indicates the source account cannot cover a transfer.
var ErrInsufficientFunds = errors.New(errors.CodePaymentInsufficientFunds, "insufficient funds")

// Ledger moves funds between named accounts.
//
// Implementations must apply a transfer completely or leave both balances
// untouched; the engine relies on that to keep escrow accounting exact.
type Ledger interface {
	// Transfer moves amount from one account to another.
	Transfer(ctx context.Context, from, to string, amount int64) error
	// Balance reports the current balance of an account.
	Balance(ctx context.Context, account string) (int64, error)
}

// EscrowAccount names the ledger account holding a contract's escrowed funds.
func EscrowAccount(contractID int64) string {
	return "escrow:" + strconv.FormatInt(contractID, 10)
}
