package projection

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"willvault/internal/event"
	"willvault/internal/storage"
)

const (
	testator    = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	bobWallet   = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	graceWallet = "0xcccccccccccccccccccccccccccccccccccccccc"
)

// when derives a deterministic event time from a block position
func when(block uint64) time.Time {
	base := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	return base.Add(time.Duration(block) * time.Minute)
}

func mustEvent(t *testing.T, block uint64, index uint32, kind event.Kind, payload any) event.Event {
	t.Helper()
	ev, err := event.New(kind, testator, "", when(block), payload)
	require.NoError(t, err)
	ev.Block = block
	ev.Index = index
	return ev
}

// lifecycleEvents is a full will history: creation, funding, a share
// ledger reaching 100, a check-in, then a guardian execution.
func lifecycleEvents(t *testing.T) []event.Event {
	t.Helper()
	return []event.Event{
		mustEvent(t, 1, 0, event.KindWillCreated, event.WillCreatedPayload{
			Testator:      testator,
			CheckInPeriod: 2592000,
			DisputePeriod: 604800,
			LastCheckIn:   when(1),
			CreatedAt:     when(1),
		}),
		mustEvent(t, 2, 0, event.KindBeneficiaryAdded, event.BeneficiaryAddedPayload{
			Testator:    testator,
			Wallet:      bobWallet,
			Share:       60,
			TotalShares: 60,
		}),
		mustEvent(t, 3, 0, event.KindBeneficiaryAdded, event.BeneficiaryAddedPayload{
			Testator:    testator,
			Wallet:      graceWallet,
			Share:       40,
			Guardian:    true,
			TotalShares: 100,
		}),
		mustEvent(t, 4, 0, event.KindDepositLocked, event.VaultMovementPayload{
			Testator: testator,
			Amount:   "10",
			Balance:  "10",
		}),
		mustEvent(t, 5, 0, event.KindDepositFlexible, event.VaultMovementPayload{
			Testator: testator,
			Amount:   "5",
			Balance:  "5",
		}),
		mustEvent(t, 6, 0, event.KindCheckIn, event.CheckInPayload{
			Testator: testator,
			At:       when(6),
			Deadline: when(6).Add(2592000 * time.Second),
		}),
		mustEvent(t, 7, 0, event.KindDisputeStarted, event.DisputeStartedPayload{
			Testator:  testator,
			Guardian:  graceWallet,
			StartedAt: when(7),
		}),
		mustEvent(t, 7, 1, event.KindWillExecuted, event.WillExecutedPayload{
			Testator: testator,
			Caller:   graceWallet,
			Phase:    "dispute",
			Total:    "15",
			Payouts: []event.PayoutShare{
				{Wallet: bobWallet, Share: 60, Amount: "9"},
				{Wallet: graceWallet, Share: 40, Amount: "6"},
			},
			ExecutedAt: when(7),
		}),
	}
}

func applyAll(t *testing.T, applier *Applier, events []event.Event) {
	t.Helper()
	for _, ev := range events {
		require.NoError(t, applier.Apply(context.Background(), ev))
	}
}

func TestApplierProjectsLifecycle(t *testing.T) {
	repo := storage.NewMemoryRepository()
	applier := NewApplier(repo)
	ctx := context.Background()

	applyAll(t, applier, lifecycleEvents(t))

	will, err := repo.GetWill(ctx, testator)
	require.NoError(t, err)
	assert.Equal(t, int64(2592000), will.CheckInPeriod)
	assert.Equal(t, int64(604800), will.DisputePeriod)
	assert.Equal(t, when(6), will.LastCheckIn)
	assert.True(t, will.Executed)
	require.NotNil(t, will.ExecutedAt)
	assert.Equal(t, when(7), *will.ExecutedAt)
	require.NotNil(t, will.DisputeStartedAt)
	assert.Equal(t, when(7), *will.DisputeStartedAt)
	assert.Equal(t, "0", will.LockedBalance)
	assert.Equal(t, "0", will.FlexibleBalance)
	assert.Equal(t, when(1), will.CreatedAt)
	assert.Equal(t, when(7), will.UpdatedAt)

	entries, err := repo.ListBeneficiaries(ctx, testator)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, bobWallet, entries[0].Wallet)
	assert.Equal(t, 60, entries[0].Share)
	assert.False(t, entries[0].Guardian)
	assert.Equal(t, graceWallet, entries[1].Wallet)
	assert.Equal(t, 40, entries[1].Share)
	assert.True(t, entries[1].Guardian)

	payouts, err := repo.ListPayouts(ctx, testator)
	require.NoError(t, err)
	require.Len(t, payouts, 2)
	assert.Equal(t, "9", payouts[0].Amount)
	assert.Equal(t, "6", payouts[1].Amount)
	assert.Equal(t, uint64(7), payouts[0].Block)

	stats, err := repo.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalWills)
	assert.Equal(t, int64(0), stats.ActiveWills)
	assert.Equal(t, int64(1), stats.ExecutedWills)
	assert.Equal(t, int64(2), stats.Beneficiaries)
	assert.Equal(t, "15", stats.DistributedTotal)
}

func TestApplierIdempotent(t *testing.T) {
	repo := storage.NewMemoryRepository()
	applier := NewApplier(repo)
	events := lifecycleEvents(t)

	applyAll(t, applier, events)
	first, err := repo.Dump()
	require.NoError(t, err)

	// A second pass over the same history must change nothing
	applyAll(t, applier, events)
	second, err := repo.Dump()
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
}

func TestApplierUpdateBeforeAdd(t *testing.T) {
	repo := storage.NewMemoryRepository()
	applier := NewApplier(repo)
	ctx := context.Background()

	applyAll(t, applier, lifecycleEvents(t)[:1])

	// An update for an entry never added is skipped, not invented
	update := mustEvent(t, 2, 0, event.KindBeneficiaryUpdated, event.BeneficiaryUpdatedPayload{
		Testator:    testator,
		Wallet:      bobWallet,
		Share:       70,
		TotalShares: 70,
	})
	require.NoError(t, applier.Apply(ctx, update))

	entries, err := repo.ListBeneficiaries(ctx, testator)
	require.NoError(t, err)
	assert.Empty(t, entries)

	add := mustEvent(t, 3, 0, event.KindBeneficiaryAdded, event.BeneficiaryAddedPayload{
		Testator:    testator,
		Wallet:      bobWallet,
		Share:       60,
		TotalShares: 60,
	})
	require.NoError(t, applier.Apply(ctx, add))

	later := mustEvent(t, 4, 0, event.KindBeneficiaryUpdated, event.BeneficiaryUpdatedPayload{
		Testator:    testator,
		Wallet:      bobWallet,
		Share:       70,
		TotalShares: 70,
	})
	require.NoError(t, applier.Apply(ctx, later))

	entries, err = repo.ListBeneficiaries(ctx, testator)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 70, entries[0].Share)
	assert.Equal(t, when(3), entries[0].AddedAt)
	assert.Equal(t, when(4), entries[0].UpdatedAt)
}

func TestApplierSkipsMalformed(t *testing.T) {
	repo := storage.NewMemoryRepository()
	applier := NewApplier(repo)
	ctx := context.Background()

	applyAll(t, applier, lifecycleEvents(t)[:1])
	before, err := repo.Dump()
	require.NoError(t, err)

	garbled := mustEvent(t, 2, 0, event.KindCheckIn, event.CheckInPayload{})
	garbled.Payload = json.RawMessage(`{"testator`)
	require.NoError(t, applier.Apply(ctx, garbled))

	missingTestator := mustEvent(t, 3, 0, event.KindCheckIn, map[string]any{"at": when(3)})
	require.NoError(t, applier.Apply(ctx, missingTestator))

	unknown := mustEvent(t, 4, 0, event.Kind("will.notarized"), event.CheckInPayload{Testator: testator})
	require.NoError(t, applier.Apply(ctx, unknown))

	after, err := repo.Dump()
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}

func TestApplierSkipsMovementForUnknownWill(t *testing.T) {
	repo := storage.NewMemoryRepository()
	applier := NewApplier(repo)
	ctx := context.Background()

	deposit := mustEvent(t, 1, 0, event.KindDepositLocked, event.VaultMovementPayload{
		Testator: testator,
		Amount:   "10",
		Balance:  "10",
	})
	require.NoError(t, applier.Apply(ctx, deposit))

	stats, err := repo.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.TotalWills)
}

func TestApplierReturnsStorageErrors(t *testing.T) {
	repo := storage.NewMemoryRepository()
	applier := NewApplier(repo)

	repo.Fail(errors.New("connection refused"))

	err := applier.Apply(context.Background(), lifecycleEvents(t)[0])
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}
