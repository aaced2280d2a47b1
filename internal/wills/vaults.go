package wills

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"willvault/internal/event"
	"willvault/internal/identity"
)

// DepositLocked adds funds to the locked vault. Locked funds can only ever
// leave through execution.
func (e *Engine) DepositLocked(ctx context.Context, testator common.Address, amount *big.Int) error {
	return e.deposit(ctx, testator, amount, event.KindDepositLocked)
}

// DepositFlexible adds funds to the flexible vault
func (e *Engine) DepositFlexible(ctx context.Context, testator common.Address, amount *big.Int) error {
	return e.deposit(ctx, testator, amount, event.KindDepositFlexible)
}

func (e *Engine) deposit(ctx context.Context, testator common.Address, amount *big.Int, kind event.Kind) error {
	if err := validAmount(amount); err != nil {
		return err
	}

	st, err := e.lock(testator)
	if err != nil {
		return err
	}
	defer st.mu.Unlock()
	if st.will.Executed {
		return ErrWillExecuted
	}

	var balance *big.Int
	if kind == event.KindDepositLocked {
		balance = new(big.Int).Add(st.will.LockedBalance, amount)
	} else {
		balance = new(big.Int).Add(st.will.FlexibleBalance, amount)
	}

	hex := identity.Hex(testator)
	ev, err := event.New(kind, hex, e.newID(), e.now().UTC(), event.VaultMovementPayload{
		Testator: hex,
		Amount:   amount.String(),
		Balance:  balance.String(),
	})
	if err != nil {
		return err
	}
	return e.commit(ctx, st, ev)
}

// WithdrawFlexible returns funds from the flexible vault to the testator.
// The credit settles before the journal write, so an aborted transfer
// leaves the vault untouched.
func (e *Engine) WithdrawFlexible(ctx context.Context, testator common.Address, amount *big.Int) error {
	if err := validAmount(amount); err != nil {
		return err
	}

	st, err := e.lock(testator)
	if err != nil {
		return err
	}
	defer st.mu.Unlock()
	if st.will.Executed {
		return ErrWillExecuted
	}
	if amount.Cmp(st.will.FlexibleBalance) > 0 {
		return fmt.Errorf("%w: have %s, want %s", ErrInsufficientBalance, st.will.FlexibleBalance, amount)
	}

	if err := e.bank.Credit(ctx, testator, amount); err != nil {
		return fmt.Errorf("%w: %w", ErrTransferFailure, err)
	}

	hex := identity.Hex(testator)
	ev, err := event.New(event.KindWithdrawFlexible, hex, e.newID(), e.now().UTC(), event.VaultMovementPayload{
		Testator: hex,
		Amount:   amount.String(),
		Balance:  new(big.Int).Sub(st.will.FlexibleBalance, amount).String(),
	})
	if err != nil {
		return err
	}
	return e.commit(ctx, st, ev)
}

func validAmount(amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidAmount)
	}
	return nil
}
