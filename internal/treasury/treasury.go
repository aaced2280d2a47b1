package treasury

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ErrTransferRejected is returned when the settlement layer refuses a movement
var ErrTransferRejected = errors.New("transfer rejected")

// Payout is one credit within a distribution
type Payout struct {
	Wallet common.Address
	Amount *big.Int
}

// Treasury settles value movements out of will vaults. Distribute is atomic:
// either every payout is credited or none are.
type Treasury interface {
	// Credit moves amount to a single wallet
	Credit(ctx context.Context, to common.Address, amount *big.Int) error

	// Distribute credits every payout in one all-or-nothing settlement
	Distribute(ctx context.Context, payouts []Payout) error
}
