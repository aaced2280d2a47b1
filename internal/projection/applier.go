// Package projection folds the will journal into the query replica. The
// applier translates one event into idempotent replica writes; the runner
// drives it through backfill and live tailing with checkpoint resume.
package projection

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"willvault/internal/event"
	"willvault/internal/metrics"
	"willvault/internal/models"
	"willvault/internal/storage"
)

// Skip reasons surfaced in logs and metrics
const (
	skipMalformed          = "malformed"
	skipUnknownKind        = "unknown_kind"
	skipMissingWill        = "missing_will"
	skipMissingBeneficiary = "missing_beneficiary"
	skipStale              = "stale"
)

// Applier translates journal events into replica writes. Every write is
// an absolute upsert or overwrite, so applying the same event twice
// leaves the replica unchanged. Malformed events are logged, counted and
// skipped; storage errors are returned so the caller can retry.
type Applier struct {
	repo storage.Repository
}

// NewApplier creates an applier writing to the given repository
func NewApplier(repo storage.Repository) *Applier {
	return &Applier{repo: repo}
}

// Apply folds a single event into the replica
func (a *Applier) Apply(ctx context.Context, ev event.Event) error {
	start := time.Now()

	var err error
	switch ev.Kind {
	case event.KindWillCreated:
		err = a.applyWillCreated(ctx, ev)
	case event.KindCheckIn:
		err = a.applyCheckIn(ctx, ev)
	case event.KindWillExecuted:
		err = a.applyWillExecuted(ctx, ev)
	case event.KindDisputeStarted:
		err = a.applyDisputeStarted(ctx, ev)
	case event.KindBeneficiaryAdded:
		err = a.applyBeneficiaryAdded(ctx, ev)
	case event.KindBeneficiaryUpdated:
		err = a.applyBeneficiaryUpdated(ctx, ev)
	case event.KindBeneficiaryRemoved:
		err = a.applyBeneficiaryRemoved(ctx, ev)
	case event.KindDepositLocked:
		err = a.applyLockedMovement(ctx, ev)
	case event.KindDepositFlexible, event.KindWithdrawFlexible:
		err = a.applyFlexibleMovement(ctx, ev)
	case event.KindDocumentAdded:
		err = a.applyDocumentAdded(ctx, ev)
	case event.KindDocumentRemoved:
		err = a.applyDocumentRemoved(ctx, ev)
	default:
		a.skip(ev, skipUnknownKind, nil)
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to apply %s at %s: %w", ev.Kind, ev.Cursor(), err)
	}

	metrics.EventsApplied.WithLabelValues(string(ev.Kind)).Inc()
	metrics.EventApplyDuration.Observe(time.Since(start).Seconds())
	return nil
}

func (a *Applier) applyWillCreated(ctx context.Context, ev event.Event) error {
	var p event.WillCreatedPayload
	if err := json.Unmarshal(ev.Payload, &p); err != nil || p.Testator == "" {
		a.skip(ev, skipMalformed, err)
		return nil
	}

	return a.repo.UpsertWill(ctx, &models.WillRecord{
		Testator:        p.Testator,
		CheckInPeriod:   p.CheckInPeriod,
		DisputePeriod:   p.DisputePeriod,
		LastCheckIn:     p.LastCheckIn,
		LockedBalance:   "0",
		FlexibleBalance: "0",
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       ev.Emitted,
	})
}

func (a *Applier) applyCheckIn(ctx context.Context, ev event.Event) error {
	var p event.CheckInPayload
	if err := json.Unmarshal(ev.Payload, &p); err != nil || p.Testator == "" {
		a.skip(ev, skipMalformed, err)
		return nil
	}

	affected, err := a.repo.UpdateCheckIn(ctx, p.Testator, p.At)
	if err != nil {
		return err
	}
	if !affected {
		a.skip(ev, skipMissingWill, nil)
	}
	return nil
}

func (a *Applier) applyWillExecuted(ctx context.Context, ev event.Event) error {
	var p event.WillExecutedPayload
	if err := json.Unmarshal(ev.Payload, &p); err != nil || p.Testator == "" {
		a.skip(ev, skipMalformed, err)
		return nil
	}

	affected, err := a.repo.MarkExecuted(ctx, p.Testator, p.ExecutedAt)
	if err != nil {
		return err
	}
	if !affected {
		a.skip(ev, skipMissingWill, nil)
		return nil
	}

	for _, payout := range p.Payouts {
		err := a.repo.UpsertPayout(ctx, &models.PayoutRecord{
			WillTestator: p.Testator,
			Wallet:       payout.Wallet,
			Share:        payout.Share,
			Amount:       payout.Amount,
			Block:        ev.Block,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (a *Applier) applyDisputeStarted(ctx context.Context, ev event.Event) error {
	var p event.DisputeStartedPayload
	if err := json.Unmarshal(ev.Payload, &p); err != nil || p.Testator == "" {
		a.skip(ev, skipMalformed, err)
		return nil
	}

	affected, err := a.repo.MarkDisputeStarted(ctx, p.Testator, p.StartedAt)
	if err != nil {
		return err
	}
	if !affected {
		a.skip(ev, skipMissingWill, nil)
	}
	return nil
}

func (a *Applier) applyBeneficiaryAdded(ctx context.Context, ev event.Event) error {
	var p event.BeneficiaryAddedPayload
	if err := json.Unmarshal(ev.Payload, &p); err != nil || p.Testator == "" || p.Wallet == "" {
		a.skip(ev, skipMalformed, err)
		return nil
	}

	return a.repo.UpsertBeneficiary(ctx, &models.BeneficiaryRecord{
		WillTestator: p.Testator,
		Wallet:       p.Wallet,
		Share:        p.Share,
		Guardian:     p.Guardian,
		AddedAt:      ev.Emitted,
		UpdatedAt:    ev.Emitted,
	})
}

// applyBeneficiaryUpdated never inserts: an update event for an entry the
// replica does not have means an earlier added event went missing, and
// inventing the row here would hide that.
func (a *Applier) applyBeneficiaryUpdated(ctx context.Context, ev event.Event) error {
	var p event.BeneficiaryUpdatedPayload
	if err := json.Unmarshal(ev.Payload, &p); err != nil || p.Testator == "" || p.Wallet == "" {
		a.skip(ev, skipMalformed, err)
		return nil
	}

	affected, err := a.repo.UpdateBeneficiary(ctx, &models.BeneficiaryRecord{
		WillTestator: p.Testator,
		Wallet:       p.Wallet,
		Share:        p.Share,
		Guardian:     p.Guardian,
		UpdatedAt:    ev.Emitted,
	})
	if err != nil {
		return err
	}
	if !affected {
		a.skip(ev, skipMissingBeneficiary, nil)
	}
	return nil
}

func (a *Applier) applyBeneficiaryRemoved(ctx context.Context, ev event.Event) error {
	var p event.BeneficiaryRemovedPayload
	if err := json.Unmarshal(ev.Payload, &p); err != nil || p.Testator == "" || p.Wallet == "" {
		a.skip(ev, skipMalformed, err)
		return nil
	}

	return a.repo.DeleteBeneficiary(ctx, p.Testator, p.Wallet)
}

func (a *Applier) applyLockedMovement(ctx context.Context, ev event.Event) error {
	var p event.VaultMovementPayload
	if err := json.Unmarshal(ev.Payload, &p); err != nil || p.Testator == "" || p.Balance == "" {
		a.skip(ev, skipMalformed, err)
		return nil
	}

	affected, err := a.repo.SetLockedBalance(ctx, p.Testator, p.Balance, ev.Emitted)
	if err != nil {
		return err
	}
	if !affected {
		a.skip(ev, skipMissingWill, nil)
	}
	return nil
}

func (a *Applier) applyFlexibleMovement(ctx context.Context, ev event.Event) error {
	var p event.VaultMovementPayload
	if err := json.Unmarshal(ev.Payload, &p); err != nil || p.Testator == "" || p.Balance == "" {
		a.skip(ev, skipMalformed, err)
		return nil
	}

	affected, err := a.repo.SetFlexibleBalance(ctx, p.Testator, p.Balance, ev.Emitted)
	if err != nil {
		return err
	}
	if !affected {
		a.skip(ev, skipMissingWill, nil)
	}
	return nil
}

func (a *Applier) applyDocumentAdded(ctx context.Context, ev event.Event) error {
	var p event.DocumentAddedPayload
	if err := json.Unmarshal(ev.Payload, &p); err != nil || p.Testator == "" || p.Hash == "" {
		a.skip(ev, skipMalformed, err)
		return nil
	}

	return a.repo.UpsertDocument(ctx, &models.DocumentRecord{
		WillTestator: p.Testator,
		Hash:         p.Hash,
		Name:         p.Name,
		Category:     p.Category,
		UploadedAt:   p.UploadedAt,
	})
}

func (a *Applier) applyDocumentRemoved(ctx context.Context, ev event.Event) error {
	var p event.DocumentRemovedPayload
	if err := json.Unmarshal(ev.Payload, &p); err != nil || p.Testator == "" || p.Hash == "" {
		a.skip(ev, skipMalformed, err)
		return nil
	}

	return a.repo.DeleteDocument(ctx, p.Testator, p.Hash)
}

func (a *Applier) skip(ev event.Event, reason string, err error) {
	slog.Warn("Skipping event",
		"cursor", ev.Cursor().String(),
		"kind", ev.Kind,
		"will", ev.Will,
		"reason", reason,
		"error", err)
	metrics.EventsSkipped.WithLabelValues(reason).Inc()
}
