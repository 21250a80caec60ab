package ledger

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/WuodOdhis/trackflow/internal/platform/errors"
)

// Memory is a mutex-guarded in-memory ledger.
//
// It backs local deployments and tests. A banking or settlement adapter
// would implement Ledger against the same contract.
type Memory struct {
	mu       sync.Mutex
	balances map[string]int64
}

// NewMemory returns an empty in-memory ledger. Accounts begin at zero.
func NewMemory() *Memory {
	return &Memory{balances: make(map[string]int64)}
}

// Credit adds funds to an account, creating the account when missing.
func (m *Memory) Credit(account string, amount int64) error {
	account = strings.TrimSpace(account)
	if account == "" {
		return fmt.Errorf("account is required")
	}
	if amount <= 0 {
		return fmt.Errorf("credit amount must be positive")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[account] += amount
	return nil
}

// Transfer moves amount between accounts, rejecting overdrafts.
func (m *Memory) Transfer(ctx context.Context, from, to string, amount int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	from = strings.TrimSpace(from)
	to = strings.TrimSpace(to)
	if from == "" || to == "" {
		return fmt.Errorf("transfer accounts are required")
	}
	if from == to {
		return fmt.Errorf("transfer accounts must differ")
	}
	if amount <= 0 {
		return fmt.Errorf("transfer amount must be positive")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	available := m.balances[from]
	if available < amount {
		return errors.WithMetadata(errors.CodePaymentInsufficientFunds, "insufficient funds", map[string]string{
			"Account":   from,
			"Available": strconv.FormatInt(available, 10),
			"Requested": strconv.FormatInt(amount, 10),
		})
	}

	m.balances[from] = available - amount
	m.balances[to] += amount
	return nil
}

// Balance reports the current balance of an account. Unknown accounts
// report zero.
func (m *Memory) Balance(ctx context.Context, account string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	account = strings.TrimSpace(account)
	if account == "" {
		return 0, fmt.Errorf("account is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[account], nil
}

var _ Ledger = (*Memory)(nil)
