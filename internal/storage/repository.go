package storage

import (
	"context"
	"errors"
	"time"

	"willvault/internal/event"
	"willvault/internal/models"
)

// ErrNotFound is returned when a requested record does not exist
var ErrNotFound = errors.New("not found")

// Repository defines the interface for all replica storage operations.
// The write path is driven exclusively by the projection applying journal
// events; the read path serves the query API. Update methods report
// whether a row was touched so the applier can log order-dependent skips.
type Repository interface {
	// Wills
	UpsertWill(ctx context.Context, will *models.WillRecord) error
	UpdateCheckIn(ctx context.Context, testator string, at time.Time) (bool, error)
	SetLockedBalance(ctx context.Context, testator, balance string, at time.Time) (bool, error)
	SetFlexibleBalance(ctx context.Context, testator, balance string, at time.Time) (bool, error)
	MarkDisputeStarted(ctx context.Context, testator string, at time.Time) (bool, error)
	MarkExecuted(ctx context.Context, testator string, at time.Time) (bool, error)
	GetWill(ctx context.Context, testator string) (*models.WillRecord, error)
	ListWillsByTestator(ctx context.Context, testator string) ([]models.WillRecord, error)
	ListWillsByBeneficiary(ctx context.Context, wallet string) ([]models.BeneficiaryWill, error)

	// Beneficiaries
	UpsertBeneficiary(ctx context.Context, entry *models.BeneficiaryRecord) error
	UpdateBeneficiary(ctx context.Context, entry *models.BeneficiaryRecord) (bool, error)
	DeleteBeneficiary(ctx context.Context, testator, wallet string) error
	ListBeneficiaries(ctx context.Context, testator string) ([]models.BeneficiaryRecord, error)

	// Vaults
	GetVaults(ctx context.Context, testator string) (*models.VaultBalances, error)

	// Documents
	UpsertDocument(ctx context.Context, doc *models.DocumentRecord) error
	DeleteDocument(ctx context.Context, testator, hash string) error
	ListDocuments(ctx context.Context, testator string) ([]models.DocumentRecord, error)
	GetDocument(ctx context.Context, testator, hash string) (*models.DocumentRecord, error)

	// Payouts
	UpsertPayout(ctx context.Context, payout *models.PayoutRecord) error
	ListPayouts(ctx context.Context, testator string) ([]models.PayoutRecord, error)

	// Projection progress
	LoadCheckpoint(ctx context.Context) (event.Cursor, bool, error)
	SaveCheckpoint(ctx context.Context, cur event.Cursor) error

	// Aggregates
	GetStats(ctx context.Context) (*models.Stats, error)

	// Health & Maintenance
	Ping(ctx context.Context) error
	Close() error
}
