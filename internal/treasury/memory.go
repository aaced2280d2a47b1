package treasury

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// MemoryBook is an in-memory Treasury used by tests and the simulator.
// A failure can be injected to exercise abort paths.
type MemoryBook struct {
	mu       sync.Mutex
	balances map[common.Address]*big.Int
	failWith error
}

// NewMemoryBook creates an empty in-memory book
func NewMemoryBook() *MemoryBook {
	return &MemoryBook{
		balances: make(map[common.Address]*big.Int),
	}
}

// Fail makes every subsequent movement return err until called with nil
func (b *MemoryBook) Fail(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failWith = err
}

// Credit moves amount to a single wallet
func (b *MemoryBook) Credit(ctx context.Context, to common.Address, amount *big.Int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.failWith != nil {
		return b.failWith
	}
	b.credit(to, amount)
	return nil
}

// Distribute credits every payout or none of them
func (b *MemoryBook) Distribute(ctx context.Context, payouts []Payout) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.failWith != nil {
		return b.failWith
	}
	for _, p := range payouts {
		b.credit(p.Wallet, p.Amount)
	}
	return nil
}

// Balance returns a copy of the wallet's balance, zero when unknown
func (b *MemoryBook) Balance(wallet common.Address) *big.Int {
	b.mu.Lock()
	defer b.mu.Unlock()

	bal, ok := b.balances[wallet]
	if !ok {
		return new(big.Int)
	}
	return new(big.Int).Set(bal)
}

func (b *MemoryBook) credit(to common.Address, amount *big.Int) {
	bal, ok := b.balances[to]
	if !ok {
		bal = new(big.Int)
		b.balances[to] = bal
	}
	bal.Add(bal, amount)
}
