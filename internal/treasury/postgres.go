package treasury

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"willvault/internal/identity"
)

// PostgresBook is a Treasury backed by the treasury_accounts table.
// Distribute runs in a single transaction, so a failed payout rolls back
// every credit in the batch.
type PostgresBook struct {
	pool *pgxpool.Pool
}

// NewPostgresBook creates a book on an existing connection pool
func NewPostgresBook(pool *pgxpool.Pool) *PostgresBook {
	return &PostgresBook{pool: pool}
}

const creditQuery = `
	INSERT INTO treasury_accounts (address, balance)
	VALUES ($1, $2::numeric)
	ON CONFLICT (address) DO UPDATE
	SET balance = treasury_accounts.balance + EXCLUDED.balance
`

// Credit moves amount to a single wallet
func (b *PostgresBook) Credit(ctx context.Context, to common.Address, amount *big.Int) error {
	if _, err := b.pool.Exec(ctx, creditQuery, identity.Hex(to), amount.String()); err != nil {
		return fmt.Errorf("failed to credit account: %w", err)
	}
	return nil
}

// Distribute credits every payout in one transaction
func (b *PostgresBook) Distribute(ctx context.Context, payouts []Payout) error {
	tx, err := b.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin distribution: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, p := range payouts {
		if _, err := tx.Exec(ctx, creditQuery, identity.Hex(p.Wallet), p.Amount.String()); err != nil {
			return fmt.Errorf("failed to credit %s: %w", identity.Hex(p.Wallet), err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit distribution: %w", err)
	}
	return nil
}

// Balance returns the wallet's settled balance, zero when unknown
func (b *PostgresBook) Balance(ctx context.Context, wallet common.Address) (*big.Int, error) {
	var raw string
	err := b.pool.QueryRow(ctx,
		`SELECT balance::text FROM treasury_accounts WHERE address = $1`,
		identity.Hex(wallet),
	).Scan(&raw)
	if err == pgx.ErrNoRows {
		return new(big.Int), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read account balance: %w", err)
	}

	bal, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, fmt.Errorf("malformed balance %q for %s", raw, identity.Hex(wallet))
	}
	return bal, nil
}
