package wills

import (
	"context"
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"willvault/internal/eventlog"
	"willvault/internal/treasury"
)

var (
	alice    = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	bob      = common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	grace    = common.HexToAddress("0xcccccccccccccccccccccccccccccccccccccccc")
	dave     = common.HexToAddress("0xdddddddddddddddddddddddddddddddddddddddd")
	outsider = common.HexToAddress("0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee")
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

type fixture struct {
	engine *Engine
	log    *eventlog.MemoryLog
	book   *treasury.MemoryBook
	clock  *fakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	clock := &fakeClock{now: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)}
	log := eventlog.NewMemoryLog()
	book := treasury.NewMemoryBook()

	seq := 0
	engine, err := NewEngine(context.Background(), log, book,
		WithClock(clock.Now),
		WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("req-%d", seq)
		}),
	)
	require.NoError(t, err)

	return &fixture{engine: engine, log: log, book: book, clock: clock}
}

func TestCreateWill(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.engine.CreateWill(ctx, alice, 2592000, 604800))

	w, err := f.engine.Will(alice)
	require.NoError(t, err)
	assert.Equal(t, alice, w.Testator)
	assert.Equal(t, int64(2592000), w.CheckInPeriod)
	assert.Equal(t, int64(604800), w.DisputePeriod)
	assert.Equal(t, f.clock.Now(), w.LastCheckIn)
	assert.False(t, w.Executed)
	assert.Equal(t, "0", w.LockedBalance.String())
	assert.Equal(t, "0", w.FlexibleBalance.String())
	assert.Empty(t, w.Beneficiaries)

	assert.ErrorIs(t, f.engine.CreateWill(ctx, alice, 2592000, 604800), ErrAlreadyExists)
}

func TestCreateWillValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.engine.CreateWill(ctx, common.Address{}, 100, 100), ErrInvalidInput)
	assert.ErrorIs(t, f.engine.CreateWill(ctx, alice, 0, 100), ErrInvalidInput)
	assert.ErrorIs(t, f.engine.CreateWill(ctx, alice, -5, 100), ErrInvalidInput)
	assert.ErrorIs(t, f.engine.CreateWill(ctx, alice, 100, 0), ErrInvalidInput)

	_, err := f.engine.Will(alice)
	assert.ErrorIs(t, err, ErrNotFound, "failed creates must not leave a will behind")
}

func TestCheckIn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.engine.CreateWill(ctx, alice, 1000, 500))
	created := f.clock.Now()

	f.clock.Advance(400 * time.Second)
	require.NoError(t, f.engine.CheckIn(ctx, alice))

	w, err := f.engine.Will(alice)
	require.NoError(t, err)
	assert.Equal(t, created.Add(400*time.Second), w.LastCheckIn)
	assert.Equal(t, created.Add(1400*time.Second), w.Deadline())

	assert.ErrorIs(t, f.engine.CheckIn(ctx, bob), ErrNotFound)
}

func TestAddBeneficiary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.engine.CreateWill(ctx, alice, 1000, 500))

	require.NoError(t, f.engine.AddBeneficiary(ctx, alice, bob, 60, false))
	require.NoError(t, f.engine.AddBeneficiary(ctx, alice, grace, 40, true))

	w, err := f.engine.Will(alice)
	require.NoError(t, err)
	require.Len(t, w.Beneficiaries, 2)
	assert.Equal(t, bob, w.Beneficiaries[0].Wallet)
	assert.Equal(t, 60, w.Beneficiaries[0].Share)
	assert.Equal(t, grace, w.Beneficiaries[1].Wallet)
	assert.True(t, w.Beneficiaries[1].Guardian)
	assert.Equal(t, 100, w.TotalShares())

	g, ok := w.Guardian()
	require.True(t, ok)
	assert.Equal(t, grace, g)
}

func TestAddBeneficiaryValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.engine.CreateWill(ctx, alice, 1000, 500))
	require.NoError(t, f.engine.AddBeneficiary(ctx, alice, bob, 60, false))

	tests := []struct {
		name     string
		wallet   common.Address
		share    int
		guardian bool
		wantErr  error
	}{
		{"zero wallet", common.Address{}, 10, false, ErrInvalidInput},
		{"testator as beneficiary", alice, 10, false, ErrInvalidInput},
		{"share zero", grace, 0, false, ErrInvalidInput},
		{"share above cap", grace, 101, false, ErrInvalidInput},
		{"duplicate", bob, 10, false, ErrDuplicateBeneficiary},
		{"overflow on crossing entry", grace, 41, false, ErrShareOverflow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.engine.AddBeneficiary(ctx, alice, tt.wallet, tt.share, tt.guardian)
			require.ErrorIs(t, err, tt.wantErr)

			w, werr := f.engine.Will(alice)
			require.NoError(t, werr)
			assert.Len(t, w.Beneficiaries, 1, "rejected add must leave the ledger unchanged")
			assert.Equal(t, 60, w.TotalShares())
		})
	}

	assert.ErrorIs(t, f.engine.AddBeneficiary(ctx, bob, grace, 10, false), ErrNotFound)
}

func TestSingleGuardian(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.engine.CreateWill(ctx, alice, 1000, 500))
	require.NoError(t, f.engine.AddBeneficiary(ctx, alice, grace, 40, true))

	err := f.engine.AddBeneficiary(ctx, alice, dave, 10, true)
	require.ErrorIs(t, err, ErrGuardianConflict)

	require.NoError(t, f.engine.AddBeneficiary(ctx, alice, dave, 10, false))
	err = f.engine.UpdateBeneficiary(ctx, alice, dave, 10, true)
	require.ErrorIs(t, err, ErrGuardianConflict)

	// demote the guardian, then the designation is free again
	require.NoError(t, f.engine.UpdateBeneficiary(ctx, alice, grace, 40, false))
	require.NoError(t, f.engine.UpdateBeneficiary(ctx, alice, dave, 10, true))

	w, err := f.engine.Will(alice)
	require.NoError(t, err)
	g, ok := w.Guardian()
	require.True(t, ok)
	assert.Equal(t, dave, g)
}

func TestUpdateBeneficiary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.engine.CreateWill(ctx, alice, 1000, 500))
	require.NoError(t, f.engine.AddBeneficiary(ctx, alice, bob, 40, false))
	require.NoError(t, f.engine.AddBeneficiary(ctx, alice, grace, 30, true))

	require.NoError(t, f.engine.UpdateBeneficiary(ctx, alice, bob, 70, false))

	w, err := f.engine.Will(alice)
	require.NoError(t, err)
	assert.Equal(t, 70, w.Beneficiaries[0].Share)
	assert.Equal(t, 100, w.TotalShares())

	// keeping the guardian's own flag is not a conflict
	require.NoError(t, f.engine.UpdateBeneficiary(ctx, alice, grace, 30, true))

	assert.ErrorIs(t, f.engine.UpdateBeneficiary(ctx, alice, dave, 10, false), ErrBeneficiaryNotFound)
	assert.ErrorIs(t, f.engine.UpdateBeneficiary(ctx, alice, bob, 0, false), ErrInvalidInput)
	assert.ErrorIs(t, f.engine.UpdateBeneficiary(ctx, alice, bob, 71, false), ErrShareOverflow)

	w, err = f.engine.Will(alice)
	require.NoError(t, err)
	assert.Equal(t, 100, w.TotalShares(), "rejected updates must leave shares unchanged")
}

func TestRemoveBeneficiary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.engine.CreateWill(ctx, alice, 1000, 500))
	require.NoError(t, f.engine.AddBeneficiary(ctx, alice, bob, 60, false))
	require.NoError(t, f.engine.AddBeneficiary(ctx, alice, grace, 40, true))

	require.NoError(t, f.engine.RemoveBeneficiary(ctx, alice, grace))

	w, err := f.engine.Will(alice)
	require.NoError(t, err)
	assert.Len(t, w.Beneficiaries, 1)
	assert.Equal(t, 60, w.TotalShares())
	_, ok := w.Guardian()
	assert.False(t, ok, "removing the guardian releases the designation")

	// released shares and designation are usable again
	require.NoError(t, f.engine.AddBeneficiary(ctx, alice, dave, 40, true))

	assert.ErrorIs(t, f.engine.RemoveBeneficiary(ctx, alice, grace), ErrBeneficiaryNotFound)
}

func TestDeposits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.engine.CreateWill(ctx, alice, 1000, 500))

	require.NoError(t, f.engine.DepositLocked(ctx, alice, big.NewInt(10)))
	require.NoError(t, f.engine.DepositLocked(ctx, alice, big.NewInt(3)))
	require.NoError(t, f.engine.DepositFlexible(ctx, alice, big.NewInt(5)))

	w, err := f.engine.Will(alice)
	require.NoError(t, err)
	assert.Equal(t, "13", w.LockedBalance.String())
	assert.Equal(t, "5", w.FlexibleBalance.String())
	assert.Equal(t, "18", w.TotalFunds().String())

	assert.ErrorIs(t, f.engine.DepositLocked(ctx, alice, big.NewInt(0)), ErrInvalidAmount)
	assert.ErrorIs(t, f.engine.DepositFlexible(ctx, alice, big.NewInt(-1)), ErrInvalidAmount)
	assert.ErrorIs(t, f.engine.DepositLocked(ctx, alice, nil), ErrInvalidAmount)
	assert.ErrorIs(t, f.engine.DepositLocked(ctx, bob, big.NewInt(1)), ErrNotFound)
}

func TestWithdrawFlexible(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.engine.CreateWill(ctx, alice, 1000, 500))
	require.NoError(t, f.engine.DepositLocked(ctx, alice, big.NewInt(10)))
	require.NoError(t, f.engine.DepositFlexible(ctx, alice, big.NewInt(8)))

	require.NoError(t, f.engine.WithdrawFlexible(ctx, alice, big.NewInt(3)))

	w, err := f.engine.Will(alice)
	require.NoError(t, err)
	assert.Equal(t, "5", w.FlexibleBalance.String())
	assert.Equal(t, "10", w.LockedBalance.String(), "locked funds never move on withdrawal")
	assert.Equal(t, "3", f.book.Balance(alice).String())

	assert.ErrorIs(t, f.engine.WithdrawFlexible(ctx, alice, big.NewInt(6)), ErrInsufficientBalance)

	// withdrawing the exact remaining balance is allowed
	require.NoError(t, f.engine.WithdrawFlexible(ctx, alice, big.NewInt(5)))
	w, err = f.engine.Will(alice)
	require.NoError(t, err)
	assert.Equal(t, "0", w.FlexibleBalance.String())
	assert.Equal(t, "8", f.book.Balance(alice).String())
}

func TestWithdrawSettlementFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.engine.CreateWill(ctx, alice, 1000, 500))
	require.NoError(t, f.engine.DepositFlexible(ctx, alice, big.NewInt(8)))

	f.book.Fail(fmt.Errorf("settlement offline"))
	err := f.engine.WithdrawFlexible(ctx, alice, big.NewInt(3))
	require.ErrorIs(t, err, ErrTransferFailure)

	w, werr := f.engine.Will(alice)
	require.NoError(t, werr)
	assert.Equal(t, "8", w.FlexibleBalance.String(), "aborted transfer must leave the vault untouched")
}

func TestDocuments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.engine.CreateWill(ctx, alice, 1000, 500))

	require.NoError(t, f.engine.AddDocument(ctx, alice, "Qmabc123", "last-wishes.pdf", "legal"))
	require.NoError(t, f.engine.AddDocument(ctx, alice, "Qmdef456", "house-deed.pdf", "property"))

	w, err := f.engine.Will(alice)
	require.NoError(t, err)
	require.Len(t, w.Documents, 2)
	assert.Equal(t, "Qmabc123", w.Documents[0].Hash)
	assert.Equal(t, "last-wishes.pdf", w.Documents[0].Name)
	assert.Equal(t, "legal", w.Documents[0].Category)

	assert.ErrorIs(t, f.engine.AddDocument(ctx, alice, "Qmabc123", "other.pdf", "legal"), ErrDuplicateDocument)
	assert.ErrorIs(t, f.engine.AddDocument(ctx, alice, "", "x.pdf", "legal"), ErrInvalidInput)
	assert.ErrorIs(t, f.engine.AddDocument(ctx, alice, "Qmzzz", "", "legal"), ErrInvalidInput)

	require.NoError(t, f.engine.RemoveDocument(ctx, alice, "Qmabc123"))
	w, err = f.engine.Will(alice)
	require.NoError(t, err)
	require.Len(t, w.Documents, 1)
	assert.Equal(t, "Qmdef456", w.Documents[0].Hash)

	assert.ErrorIs(t, f.engine.RemoveDocument(ctx, alice, "Qmabc123"), ErrDocumentNotFound)
}

func TestRestoreRebuildsState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.engine.CreateWill(ctx, alice, 2592000, 604800))
	require.NoError(t, f.engine.AddBeneficiary(ctx, alice, bob, 60, false))
	require.NoError(t, f.engine.AddBeneficiary(ctx, alice, grace, 40, true))
	require.NoError(t, f.engine.DepositLocked(ctx, alice, big.NewInt(10)))
	require.NoError(t, f.engine.DepositFlexible(ctx, alice, big.NewInt(5)))
	f.clock.Advance(100 * time.Second)
	require.NoError(t, f.engine.CheckIn(ctx, alice))
	require.NoError(t, f.engine.AddDocument(ctx, alice, "Qmabc123", "last-wishes.pdf", "legal"))

	before, err := f.engine.Will(alice)
	require.NoError(t, err)

	rebuilt, err := NewEngine(ctx, f.log, f.book, WithClock(f.clock.Now))
	require.NoError(t, err)

	after, err := rebuilt.Will(alice)
	require.NoError(t, err)
	assert.Equal(t, before, after, "a restored engine must match the one that wrote the journal")

	// the rebuilt engine keeps enforcing invariants
	assert.ErrorIs(t, rebuilt.AddBeneficiary(ctx, alice, dave, 1, false), ErrShareOverflow)
}
