package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"willvault/internal/event"
	"willvault/internal/models"
	"willvault/internal/storage"
)

const (
	aliceAddr   = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	bobAddr     = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	graceAddr   = "0xcccccccccccccccccccccccccccccccccccccccc"
	carolAddr   = "0xdddddddddddddddddddddddddddddddddddddddd"
	unknownAddr = "0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee"

	deedHash = "9c3f8a2b71d44e06b5a9c0d817f2e63a4b8d1c5e9f07a3b6c2d8e4f1a5b9c3d7"
)

func testServer(t *testing.T) (*Server, *storage.MemoryRepository) {
	t.Helper()
	repo := storage.NewMemoryRepository()
	return NewServer(8080, repo, false), repo
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
}

// seedEstate loads the replica with one active will (alice) and one
// executed will (carol), both paying out to bob and grace.
func seedEstate(t *testing.T, repo *storage.MemoryRepository) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	executedAt := base.Add(40 * 24 * time.Hour)

	require.NoError(t, repo.UpsertWill(ctx, &models.WillRecord{
		Testator:        aliceAddr,
		CheckInPeriod:   2592000,
		DisputePeriod:   604800,
		LastCheckIn:     base,
		LockedBalance:   "10",
		FlexibleBalance: "5",
		CreatedAt:       base,
		UpdatedAt:       base,
	}))
	require.NoError(t, repo.UpsertWill(ctx, &models.WillRecord{
		Testator:        carolAddr,
		CheckInPeriod:   2592000,
		DisputePeriod:   604800,
		LastCheckIn:     base,
		LockedBalance:   "0",
		FlexibleBalance: "0",
		Executed:        true,
		ExecutedAt:      &executedAt,
		CreatedAt:       base,
		UpdatedAt:       executedAt,
	}))

	for _, testator := range []string{aliceAddr, carolAddr} {
		require.NoError(t, repo.UpsertBeneficiary(ctx, &models.BeneficiaryRecord{
			WillTestator: testator,
			Wallet:       bobAddr,
			Share:        60,
			AddedAt:      base,
			UpdatedAt:    base,
		}))
		require.NoError(t, repo.UpsertBeneficiary(ctx, &models.BeneficiaryRecord{
			WillTestator: testator,
			Wallet:       graceAddr,
			Share:        40,
			Guardian:     true,
			AddedAt:      base,
			UpdatedAt:    base,
		}))
	}

	require.NoError(t, repo.UpsertDocument(ctx, &models.DocumentRecord{
		WillTestator: aliceAddr,
		Hash:         deedHash,
		Name:         "deed-of-house.pdf",
		Category:     "property",
		UploadedAt:   base,
	}))

	require.NoError(t, repo.UpsertPayout(ctx, &models.PayoutRecord{
		WillTestator: carolAddr,
		Wallet:       bobAddr,
		Share:        60,
		Amount:       "9",
		Block:        9,
	}))
	require.NoError(t, repo.UpsertPayout(ctx, &models.PayoutRecord{
		WillTestator: carolAddr,
		Wallet:       graceAddr,
		Share:        40,
		Amount:       "6",
		Block:        9,
	}))

	require.NoError(t, repo.SaveCheckpoint(ctx, event.Cursor{Block: 9, Index: 1}))
}

func TestHandleIndex(t *testing.T) {
	s, _ := testServer(t)

	rec := get(t, s, "/")
	require.Equal(t, http.StatusOK, rec.Code)

	var info map[string]any
	decode(t, rec, &info)
	assert.Equal(t, "WillVault Indexer", info["service"])

	rec = get(t, s, "/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleHealth(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		s, repo := testServer(t)
		seedEstate(t, repo)

		rec := get(t, s, "/health")
		require.Equal(t, http.StatusOK, rec.Code)

		var health models.HealthResponse
		decode(t, rec, &health)
		assert.Equal(t, "healthy", health.Status)
		assert.Equal(t, "connected", health.Database)
		assert.Equal(t, uint64(9), health.LastBlock)
		assert.Equal(t, uint32(1), health.LastIndex)
	})

	t.Run("degraded when the replica is unreachable", func(t *testing.T) {
		s, repo := testServer(t)
		repo.Fail(errors.New("connection refused"))

		rec := get(t, s, "/health")
		require.Equal(t, http.StatusServiceUnavailable, rec.Code)

		var health models.HealthResponse
		decode(t, rec, &health)
		assert.Equal(t, "degraded", health.Status)
		assert.Equal(t, "unreachable", health.Database)
	})
}

func TestWillsByTestator(t *testing.T) {
	s, repo := testServer(t)
	seedEstate(t, repo)

	t.Run("lists owned wills", func(t *testing.T) {
		rec := get(t, s, "/wills/"+aliceAddr)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp models.WillListResponse
		decode(t, rec, &resp)
		assert.Equal(t, aliceAddr, resp.Testator)
		require.Equal(t, 1, resp.Total)
		assert.Equal(t, "10", resp.Wills[0].LockedBalance)
		assert.Equal(t, "5", resp.Wills[0].FlexibleBalance)
	})

	t.Run("canonicalizes address casing", func(t *testing.T) {
		rec := get(t, s, "/wills/0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA")
		require.Equal(t, http.StatusOK, rec.Code)

		var resp models.WillListResponse
		decode(t, rec, &resp)
		assert.Equal(t, aliceAddr, resp.Testator)
		assert.Equal(t, 1, resp.Total)
	})

	t.Run("empty list for an identity without wills", func(t *testing.T) {
		rec := get(t, s, "/wills/"+unknownAddr)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp models.WillListResponse
		decode(t, rec, &resp)
		assert.Equal(t, 0, resp.Total)
		assert.NotNil(t, resp.Wills)
	})

	t.Run("rejects a malformed address", func(t *testing.T) {
		rec := get(t, s, "/wills/not-an-address")
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var resp models.ErrorResponse
		decode(t, rec, &resp)
		assert.Equal(t, http.StatusText(http.StatusBadRequest), resp.Error)
		assert.Contains(t, resp.Message, "not-an-address")
	})
}

func TestWillsByBeneficiary(t *testing.T) {
	s, repo := testServer(t)
	seedEstate(t, repo)

	rec := get(t, s, "/wills/beneficiary/"+bobAddr)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.BeneficiaryWillsResponse
	decode(t, rec, &resp)
	assert.Equal(t, bobAddr, resp.Wallet)
	require.Equal(t, 2, resp.Total)
	for _, entry := range resp.Wills {
		assert.Equal(t, 60, entry.Share)
		assert.False(t, entry.Guardian)
	}

	// /beneficiaries/{wallet} is the same view under its own prefix
	alias := get(t, s, "/beneficiaries/"+bobAddr)
	require.Equal(t, http.StatusOK, alias.Code)
	assert.Equal(t, rec.Body.String(), alias.Body.String())

	guardian := get(t, s, "/beneficiaries/"+graceAddr)
	require.Equal(t, http.StatusOK, guardian.Code)

	decode(t, guardian, &resp)
	require.Equal(t, 2, resp.Total)
	for _, entry := range resp.Wills {
		assert.Equal(t, 40, entry.Share)
		assert.True(t, entry.Guardian)
	}
}

func TestWillDetail(t *testing.T) {
	s, repo := testServer(t)
	seedEstate(t, repo)

	t.Run("active will has no payouts", func(t *testing.T) {
		rec := get(t, s, "/will/"+aliceAddr)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp models.WillDetailResponse
		decode(t, rec, &resp)
		assert.Equal(t, aliceAddr, resp.Will.Testator)
		assert.Len(t, resp.Beneficiaries, 2)
		assert.Equal(t, "10", resp.Vaults.Locked)
		assert.Equal(t, "5", resp.Vaults.Flexible)
		require.Len(t, resp.Documents, 1)
		assert.Equal(t, deedHash, resp.Documents[0].Hash)
		assert.Empty(t, resp.Payouts)
	})

	t.Run("executed will includes payouts", func(t *testing.T) {
		rec := get(t, s, "/will/"+carolAddr)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp models.WillDetailResponse
		decode(t, rec, &resp)
		assert.True(t, resp.Will.Executed)
		require.Len(t, resp.Payouts, 2)
		assert.Equal(t, bobAddr, resp.Payouts[0].Wallet)
		assert.Equal(t, "9", resp.Payouts[0].Amount)
		assert.Equal(t, graceAddr, resp.Payouts[1].Wallet)
		assert.Equal(t, "6", resp.Payouts[1].Amount)
	})

	t.Run("unknown will is a 404", func(t *testing.T) {
		rec := get(t, s, "/will/"+unknownAddr)
		require.Equal(t, http.StatusNotFound, rec.Code)

		var resp models.ErrorResponse
		decode(t, rec, &resp)
		assert.Equal(t, "Will not found", resp.Message)
	})

	t.Run("malformed address is a 400", func(t *testing.T) {
		rec := get(t, s, "/will/0x123")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestVaults(t *testing.T) {
	s, repo := testServer(t)
	seedEstate(t, repo)

	rec := get(t, s, "/vaults/"+aliceAddr)
	require.Equal(t, http.StatusOK, rec.Code)

	var vaults models.VaultBalances
	decode(t, rec, &vaults)
	assert.Equal(t, "10", vaults.Locked)
	assert.Equal(t, "5", vaults.Flexible)

	rec = get(t, s, "/vaults/"+unknownAddr)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDocuments(t *testing.T) {
	s, repo := testServer(t)
	seedEstate(t, repo)

	t.Run("lists attached documents", func(t *testing.T) {
		rec := get(t, s, "/documents/"+aliceAddr)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp models.DocumentListResponse
		decode(t, rec, &resp)
		assert.Equal(t, aliceAddr, resp.WillTestator)
		require.Equal(t, 1, resp.Total)
		assert.Equal(t, "deed-of-house.pdf", resp.Documents[0].Name)
	})

	t.Run("fetches one document by hash", func(t *testing.T) {
		rec := get(t, s, "/documents/"+aliceAddr+"/"+deedHash)
		require.Equal(t, http.StatusOK, rec.Code)

		var doc models.DocumentRecord
		decode(t, rec, &doc)
		assert.Equal(t, deedHash, doc.Hash)
		assert.Equal(t, "property", doc.Category)
	})

	t.Run("unknown hash is a 404", func(t *testing.T) {
		rec := get(t, s, "/documents/"+aliceAddr+"/ffff")
		require.Equal(t, http.StatusNotFound, rec.Code)

		var resp models.ErrorResponse
		decode(t, rec, &resp)
		assert.Equal(t, "Document not found", resp.Message)
	})
}

func TestStats(t *testing.T) {
	s, repo := testServer(t)
	seedEstate(t, repo)

	rec := get(t, s, "/stats")
	require.Equal(t, http.StatusOK, rec.Code)

	var stats models.Stats
	decode(t, rec, &stats)
	assert.Equal(t, int64(2), stats.TotalWills)
	assert.Equal(t, int64(1), stats.ActiveWills)
	assert.Equal(t, int64(1), stats.ExecutedWills)
	assert.Equal(t, int64(4), stats.Beneficiaries)
	assert.Equal(t, int64(1), stats.Documents)
	assert.Equal(t, "10", stats.LockedTotal)
	assert.Equal(t, "5", stats.FlexibleTotal)
	assert.Equal(t, "15", stats.DistributedTotal)
	assert.Equal(t, uint64(9), stats.LastAppliedBlock)
}

func TestMethodNotAllowed(t *testing.T) {
	s, repo := testServer(t)
	seedEstate(t, repo)

	paths := []string{
		"/wills/" + aliceAddr,
		"/will/" + aliceAddr,
		"/beneficiaries/" + bobAddr,
		"/vaults/" + aliceAddr,
		"/documents/" + aliceAddr,
		"/stats",
	}
	for _, path := range paths {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		rec := httptest.NewRecorder()
		s.mux.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, path)
	}
}

// Address validation runs before any replica access, so a malformed
// address stays a 400 even when storage is down.
func TestAddressValidatedBeforeLookup(t *testing.T) {
	s, repo := testServer(t)
	repo.Fail(errors.New("connection refused"))

	rec := get(t, s, "/wills/not-an-address")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = get(t, s, "/will/0x0000000000000000000000000000000000000000")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInternalErrorDetail(t *testing.T) {
	t.Run("production hides the cause", func(t *testing.T) {
		s, repo := testServer(t)
		repo.Fail(errors.New("replica exploded"))

		rec := get(t, s, "/wills/"+aliceAddr)
		require.Equal(t, http.StatusInternalServerError, rec.Code)

		var resp models.ErrorResponse
		decode(t, rec, &resp)
		assert.Equal(t, "Internal server error", resp.Message)
		assert.NotContains(t, rec.Body.String(), "replica exploded")
	})

	t.Run("development surfaces the cause", func(t *testing.T) {
		repo := storage.NewMemoryRepository()
		s := NewServer(8080, repo, true)
		repo.Fail(errors.New("replica exploded"))

		rec := get(t, s, "/wills/"+aliceAddr)
		require.Equal(t, http.StatusInternalServerError, rec.Code)

		var resp models.ErrorResponse
		decode(t, rec, &resp)
		assert.Contains(t, resp.Message, "replica exploded")
	})
}
