package wills

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"willvault/internal/event"
	"willvault/internal/identity"
)

// AddBeneficiary appends a new entry to the will's share ledger.
// At most one beneficiary may hold the guardian designation.
func (e *Engine) AddBeneficiary(ctx context.Context, testator, wallet common.Address, share int, guardian bool) error {
	if identity.IsZero(wallet) {
		return fmt.Errorf("%w: zero beneficiary wallet", ErrInvalidInput)
	}
	if wallet == testator {
		return fmt.Errorf("%w: testator cannot be a beneficiary", ErrInvalidInput)
	}
	if share < 1 || share > MaxShares {
		return fmt.Errorf("%w: share %d out of range 1-%d", ErrInvalidInput, share, MaxShares)
	}

	st, err := e.lock(testator)
	if err != nil {
		return err
	}
	defer st.mu.Unlock()
	if st.will.Executed {
		return ErrWillExecuted
	}
	if _, ok := st.members[wallet]; ok {
		return ErrDuplicateBeneficiary
	}
	if guardian && st.hasGuardian {
		return ErrGuardianConflict
	}
	total := st.will.TotalShares()
	if total+share > MaxShares {
		return fmt.Errorf("%w: %d allocated, %d requested", ErrShareOverflow, total, share)
	}

	hex := identity.Hex(testator)
	ev, err := event.New(event.KindBeneficiaryAdded, hex, e.newID(), e.now().UTC(), event.BeneficiaryAddedPayload{
		Testator:    hex,
		Wallet:      identity.Hex(wallet),
		Share:       share,
		Guardian:    guardian,
		TotalShares: total + share,
	})
	if err != nil {
		return err
	}
	return e.commit(ctx, st, ev)
}

// UpdateBeneficiary replaces an entry's share and guardian flag atomically.
// Demoting the current guardian leaves the will without one.
func (e *Engine) UpdateBeneficiary(ctx context.Context, testator, wallet common.Address, share int, guardian bool) error {
	if share < 1 || share > MaxShares {
		return fmt.Errorf("%w: share %d out of range 1-%d", ErrInvalidInput, share, MaxShares)
	}

	st, err := e.lock(testator)
	if err != nil {
		return err
	}
	defer st.mu.Unlock()
	if st.will.Executed {
		return ErrWillExecuted
	}
	pos, ok := st.members[wallet]
	if !ok {
		return ErrBeneficiaryNotFound
	}
	current := st.will.Beneficiaries[pos]
	total := st.will.TotalShares() - current.Share + share
	if total > MaxShares {
		return fmt.Errorf("%w: update would allocate %d", ErrShareOverflow, total)
	}
	if guardian && st.hasGuardian && st.guardian != wallet {
		return ErrGuardianConflict
	}

	hex := identity.Hex(testator)
	ev, err := event.New(event.KindBeneficiaryUpdated, hex, e.newID(), e.now().UTC(), event.BeneficiaryUpdatedPayload{
		Testator:    hex,
		Wallet:      identity.Hex(wallet),
		Share:       share,
		Guardian:    guardian,
		TotalShares: total,
	})
	if err != nil {
		return err
	}
	return e.commit(ctx, st, ev)
}

// RemoveBeneficiary deletes an entry, releasing its shares and, if it held
// the guardian designation, leaving the will without a guardian.
func (e *Engine) RemoveBeneficiary(ctx context.Context, testator, wallet common.Address) error {
	st, err := e.lock(testator)
	if err != nil {
		return err
	}
	defer st.mu.Unlock()
	if st.will.Executed {
		return ErrWillExecuted
	}
	pos, ok := st.members[wallet]
	if !ok {
		return ErrBeneficiaryNotFound
	}

	hex := identity.Hex(testator)
	ev, err := event.New(event.KindBeneficiaryRemoved, hex, e.newID(), e.now().UTC(), event.BeneficiaryRemovedPayload{
		Testator:    hex,
		Wallet:      identity.Hex(wallet),
		TotalShares: st.will.TotalShares() - st.will.Beneficiaries[pos].Share,
	})
	if err != nil {
		return err
	}
	return e.commit(ctx, st, ev)
}
