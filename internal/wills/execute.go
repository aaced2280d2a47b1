package wills

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"willvault/internal/event"
	"willvault/internal/identity"
	"willvault/internal/treasury"
)

// ExecuteWill runs the time-gated final distribution.
//
// Before the check-in deadline nobody may execute. Between the deadline and
// the dispute end only the guardian may. After the dispute end any listed
// beneficiary may. Each beneficiary receives floor(total * share / 100);
// the integer remainder is accepted dust and stays undistributed.
func (e *Engine) ExecuteWill(ctx context.Context, caller, testator common.Address) error {
	if identity.IsZero(caller) {
		return fmt.Errorf("%w: zero caller", ErrInvalidInput)
	}

	st, err := e.lock(testator)
	if err != nil {
		return err
	}
	defer st.mu.Unlock()
	w := &st.will
	if w.Executed {
		return ErrWillExecuted
	}

	now := e.now().UTC()
	phase := w.PhaseAt(now)
	switch phase {
	case PhaseLocked:
		return ErrPhaseNotElapsed
	case PhaseDispute:
		if !st.hasGuardian || st.guardian != caller {
			return fmt.Errorf("%w: dispute window is guardian-only", ErrUnauthorized)
		}
	case PhaseOpen:
		if _, ok := st.members[caller]; !ok {
			return fmt.Errorf("%w: caller is not a beneficiary", ErrUnauthorized)
		}
	}

	total := w.TotalFunds()
	if total.Sign() == 0 {
		return ErrNoFunds
	}
	if allocated := w.TotalShares(); allocated != MaxShares {
		return fmt.Errorf("%w: allocated %d", ErrSharesIncomplete, allocated)
	}

	payouts := make([]treasury.Payout, 0, len(w.Beneficiaries))
	shares := make([]event.PayoutShare, 0, len(w.Beneficiaries))
	hundred := big.NewInt(MaxShares)
	for _, b := range w.Beneficiaries {
		amount := new(big.Int).Mul(total, big.NewInt(int64(b.Share)))
		amount.Quo(amount, hundred)
		payouts = append(payouts, treasury.Payout{Wallet: b.Wallet, Amount: amount})
		shares = append(shares, event.PayoutShare{
			Wallet: identity.Hex(b.Wallet),
			Share:  b.Share,
			Amount: amount.String(),
		})
	}

	// Settlement commits before the journal write; a rejected settlement
	// aborts the execution with every vault untouched.
	if err := e.bank.Distribute(ctx, payouts); err != nil {
		return fmt.Errorf("%w: %w", ErrTransferFailure, err)
	}

	hex := identity.Hex(testator)
	events := make([]event.Event, 0, 2)
	if phase == PhaseDispute {
		ev, err := event.New(event.KindDisputeStarted, hex, e.newID(), now, event.DisputeStartedPayload{
			Testator:   hex,
			Guardian:   identity.Hex(caller),
			Deadline:   w.Deadline(),
			DisputeEnd: w.DisputeEnd(),
			StartedAt:  now,
		})
		if err != nil {
			return err
		}
		events = append(events, ev)
	}

	executed, err := event.New(event.KindWillExecuted, hex, e.newID(), now, event.WillExecutedPayload{
		Testator:   hex,
		Caller:     identity.Hex(caller),
		Phase:      string(phase),
		Total:      total.String(),
		Payouts:    shares,
		ExecutedAt: now,
	})
	if err != nil {
		return err
	}
	events = append(events, executed)

	if err := e.commit(ctx, st, events...); err != nil {
		return err
	}

	slog.Info("will executed",
		"testator", hex,
		"caller", identity.Hex(caller),
		"phase", phase,
		"total", total.String(),
		"payouts", len(payouts),
	)
	return nil
}
