package storage

import (
	"context"
	"fmt"
	"time"

	"willvault/internal/event"
	"willvault/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository implements the Repository interface using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(ctx context.Context, databaseURL string) (*PostgresRepository, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Test the connection
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{
		pool: pool,
	}, nil
}

// Pool exposes the underlying connection pool so the journal store and
// treasury book can share it instead of opening their own.
func (r *PostgresRepository) Pool() *pgxpool.Pool {
	return r.pool
}

// UpsertWill inserts or fully refreshes a will row
func (r *PostgresRepository) UpsertWill(ctx context.Context, will *models.WillRecord) error {
	query := `
		INSERT INTO wills (
			testator, check_in_period, dispute_period, last_check_in,
			locked_balance, flexible_balance, executed, executed_at,
			dispute_started_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (testator) DO UPDATE SET
			check_in_period = EXCLUDED.check_in_period,
			dispute_period = EXCLUDED.dispute_period,
			last_check_in = EXCLUDED.last_check_in,
			locked_balance = EXCLUDED.locked_balance,
			flexible_balance = EXCLUDED.flexible_balance,
			executed = EXCLUDED.executed,
			executed_at = EXCLUDED.executed_at,
			dispute_started_at = EXCLUDED.dispute_started_at,
			created_at = EXCLUDED.created_at,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.pool.Exec(ctx, query,
		will.Testator,
		will.CheckInPeriod,
		will.DisputePeriod,
		will.LastCheckIn,
		will.LockedBalance,
		will.FlexibleBalance,
		will.Executed,
		will.ExecutedAt,
		will.DisputeStartedAt,
		will.CreatedAt,
		will.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to upsert will: %w", err)
	}

	return nil
}

// UpdateCheckIn resets the check-in timer of a will
func (r *PostgresRepository) UpdateCheckIn(ctx context.Context, testator string, at time.Time) (bool, error) {
	query := `UPDATE wills SET last_check_in = $2, updated_at = $2 WHERE testator = $1`

	tag, err := r.pool.Exec(ctx, query, testator, at)
	if err != nil {
		return false, fmt.Errorf("failed to update check-in: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// SetLockedBalance overwrites the locked vault balance of a will
func (r *PostgresRepository) SetLockedBalance(ctx context.Context, testator, balance string, at time.Time) (bool, error) {
	query := `UPDATE wills SET locked_balance = $2, updated_at = $3 WHERE testator = $1`

	tag, err := r.pool.Exec(ctx, query, testator, balance, at)
	if err != nil {
		return false, fmt.Errorf("failed to set locked balance: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// SetFlexibleBalance overwrites the flexible vault balance of a will
func (r *PostgresRepository) SetFlexibleBalance(ctx context.Context, testator, balance string, at time.Time) (bool, error) {
	query := `UPDATE wills SET flexible_balance = $2, updated_at = $3 WHERE testator = $1`

	tag, err := r.pool.Exec(ctx, query, testator, balance, at)
	if err != nil {
		return false, fmt.Errorf("failed to set flexible balance: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// MarkDisputeStarted stamps the opening of the dispute window
func (r *PostgresRepository) MarkDisputeStarted(ctx context.Context, testator string, at time.Time) (bool, error) {
	query := `UPDATE wills SET dispute_started_at = $2, updated_at = $2 WHERE testator = $1`

	tag, err := r.pool.Exec(ctx, query, testator, at)
	if err != nil {
		return false, fmt.Errorf("failed to mark dispute started: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// MarkExecuted finalizes a will and empties both vaults
func (r *PostgresRepository) MarkExecuted(ctx context.Context, testator string, at time.Time) (bool, error) {
	query := `
		UPDATE wills
		SET executed = TRUE, executed_at = $2, locked_balance = 0, flexible_balance = 0, updated_at = $2
		WHERE testator = $1
	`

	tag, err := r.pool.Exec(ctx, query, testator, at)
	if err != nil {
		return false, fmt.Errorf("failed to mark executed: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// GetWill retrieves a will by testator address
func (r *PostgresRepository) GetWill(ctx context.Context, testator string) (*models.WillRecord, error) {
	query := `
		SELECT
			testator, check_in_period, dispute_period, last_check_in,
			locked_balance::text, flexible_balance::text, executed, executed_at,
			dispute_started_at, created_at, updated_at
		FROM wills
		WHERE testator = $1
	`

	var will models.WillRecord

	err := r.pool.QueryRow(ctx, query, testator).Scan(
		&will.Testator,
		&will.CheckInPeriod,
		&will.DisputePeriod,
		&will.LastCheckIn,
		&will.LockedBalance,
		&will.FlexibleBalance,
		&will.Executed,
		&will.ExecutedAt,
		&will.DisputeStartedAt,
		&will.CreatedAt,
		&will.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("%w: will %s", ErrNotFound, testator)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get will: %w", err)
	}

	return &will, nil
}

// ListWillsByTestator lists the wills owned by one testator
func (r *PostgresRepository) ListWillsByTestator(ctx context.Context, testator string) ([]models.WillRecord, error) {
	query := `
		SELECT
			testator, check_in_period, dispute_period, last_check_in,
			locked_balance::text, flexible_balance::text, executed, executed_at,
			dispute_started_at, created_at, updated_at
		FROM wills
		WHERE testator = $1
		ORDER BY created_at ASC
	`

	rows, err := r.pool.Query(ctx, query, testator)
	if err != nil {
		return nil, fmt.Errorf("failed to list wills: %w", err)
	}
	defer rows.Close()

	var wills []models.WillRecord

	for rows.Next() {
		var will models.WillRecord

		err := rows.Scan(
			&will.Testator,
			&will.CheckInPeriod,
			&will.DisputePeriod,
			&will.LastCheckIn,
			&will.LockedBalance,
			&will.FlexibleBalance,
			&will.Executed,
			&will.ExecutedAt,
			&will.DisputeStartedAt,
			&will.CreatedAt,
			&will.UpdatedAt,
		)

		if err != nil {
			return nil, fmt.Errorf("failed to scan will: %w", err)
		}

		wills = append(wills, will)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating wills: %w", err)
	}

	return wills, nil
}

// ListWillsByBeneficiary lists every will in which a wallet holds shares,
// together with the wallet's position in each
func (r *PostgresRepository) ListWillsByBeneficiary(ctx context.Context, wallet string) ([]models.BeneficiaryWill, error) {
	query := `
		SELECT
			w.testator, w.check_in_period, w.dispute_period, w.last_check_in,
			w.locked_balance::text, w.flexible_balance::text, w.executed, w.executed_at,
			w.dispute_started_at, w.created_at, w.updated_at,
			b.share, b.is_guardian
		FROM wills w
		JOIN beneficiaries b ON b.will_testator = w.testator
		WHERE b.wallet = $1
		ORDER BY w.created_at ASC, w.testator ASC
	`

	rows, err := r.pool.Query(ctx, query, wallet)
	if err != nil {
		return nil, fmt.Errorf("failed to list wills by beneficiary: %w", err)
	}
	defer rows.Close()

	var entries []models.BeneficiaryWill

	for rows.Next() {
		var entry models.BeneficiaryWill

		err := rows.Scan(
			&entry.Will.Testator,
			&entry.Will.CheckInPeriod,
			&entry.Will.DisputePeriod,
			&entry.Will.LastCheckIn,
			&entry.Will.LockedBalance,
			&entry.Will.FlexibleBalance,
			&entry.Will.Executed,
			&entry.Will.ExecutedAt,
			&entry.Will.DisputeStartedAt,
			&entry.Will.CreatedAt,
			&entry.Will.UpdatedAt,
			&entry.Share,
			&entry.Guardian,
		)

		if err != nil {
			return nil, fmt.Errorf("failed to scan beneficiary will: %w", err)
		}

		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating beneficiary wills: %w", err)
	}

	return entries, nil
}

// UpsertBeneficiary inserts a share ledger entry or refreshes an existing
// one. The original added_at survives a re-apply of the same event.
func (r *PostgresRepository) UpsertBeneficiary(ctx context.Context, entry *models.BeneficiaryRecord) error {
	query := `
		INSERT INTO beneficiaries (
			will_testator, wallet, share, is_guardian, added_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (will_testator, wallet) DO UPDATE SET
			share = EXCLUDED.share,
			is_guardian = EXCLUDED.is_guardian,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.pool.Exec(ctx, query,
		entry.WillTestator,
		entry.Wallet,
		entry.Share,
		entry.Guardian,
		entry.AddedAt,
		entry.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to upsert beneficiary: %w", err)
	}

	return nil
}

// UpdateBeneficiary changes an existing share ledger entry and reports
// whether the entry was present
func (r *PostgresRepository) UpdateBeneficiary(ctx context.Context, entry *models.BeneficiaryRecord) (bool, error) {
	query := `
		UPDATE beneficiaries
		SET share = $3, is_guardian = $4, updated_at = $5
		WHERE will_testator = $1 AND wallet = $2
	`

	tag, err := r.pool.Exec(ctx, query,
		entry.WillTestator,
		entry.Wallet,
		entry.Share,
		entry.Guardian,
		entry.UpdatedAt,
	)

	if err != nil {
		return false, fmt.Errorf("failed to update beneficiary: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// DeleteBeneficiary removes a share ledger entry
func (r *PostgresRepository) DeleteBeneficiary(ctx context.Context, testator, wallet string) error {
	query := `DELETE FROM beneficiaries WHERE will_testator = $1 AND wallet = $2`

	_, err := r.pool.Exec(ctx, query, testator, wallet)
	if err != nil {
		return fmt.Errorf("failed to delete beneficiary: %w", err)
	}

	return nil
}

// ListBeneficiaries lists the share ledger of a will in addition order
func (r *PostgresRepository) ListBeneficiaries(ctx context.Context, testator string) ([]models.BeneficiaryRecord, error) {
	query := `
		SELECT will_testator, wallet, share, is_guardian, added_at, updated_at
		FROM beneficiaries
		WHERE will_testator = $1
		ORDER BY added_at ASC, wallet ASC
	`

	rows, err := r.pool.Query(ctx, query, testator)
	if err != nil {
		return nil, fmt.Errorf("failed to list beneficiaries: %w", err)
	}
	defer rows.Close()

	var entries []models.BeneficiaryRecord

	for rows.Next() {
		var entry models.BeneficiaryRecord

		err := rows.Scan(
			&entry.WillTestator,
			&entry.Wallet,
			&entry.Share,
			&entry.Guardian,
			&entry.AddedAt,
			&entry.UpdatedAt,
		)

		if err != nil {
			return nil, fmt.Errorf("failed to scan beneficiary: %w", err)
		}

		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating beneficiaries: %w", err)
	}

	return entries, nil
}

// GetVaults retrieves both vault balances of a will
func (r *PostgresRepository) GetVaults(ctx context.Context, testator string) (*models.VaultBalances, error) {
	query := `SELECT locked_balance::text, flexible_balance::text FROM wills WHERE testator = $1`

	var vaults models.VaultBalances

	err := r.pool.QueryRow(ctx, query, testator).Scan(&vaults.Locked, &vaults.Flexible)
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("%w: will %s", ErrNotFound, testator)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get vaults: %w", err)
	}

	return &vaults, nil
}

// UpsertDocument inserts or refreshes attached document metadata
func (r *PostgresRepository) UpsertDocument(ctx context.Context, doc *models.DocumentRecord) error {
	query := `
		INSERT INTO documents (
			will_testator, hash, name, category, uploaded_at
		) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (will_testator, hash) DO UPDATE SET
			name = EXCLUDED.name,
			category = EXCLUDED.category,
			uploaded_at = EXCLUDED.uploaded_at
	`

	_, err := r.pool.Exec(ctx, query,
		doc.WillTestator,
		doc.Hash,
		doc.Name,
		doc.Category,
		doc.UploadedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to upsert document: %w", err)
	}

	return nil
}

// DeleteDocument removes attached document metadata
func (r *PostgresRepository) DeleteDocument(ctx context.Context, testator, hash string) error {
	query := `DELETE FROM documents WHERE will_testator = $1 AND hash = $2`

	_, err := r.pool.Exec(ctx, query, testator, hash)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	return nil
}

// ListDocuments lists the documents attached to a will
func (r *PostgresRepository) ListDocuments(ctx context.Context, testator string) ([]models.DocumentRecord, error) {
	query := `
		SELECT will_testator, hash, name, category, uploaded_at
		FROM documents
		WHERE will_testator = $1
		ORDER BY uploaded_at ASC, hash ASC
	`

	rows, err := r.pool.Query(ctx, query, testator)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []models.DocumentRecord

	for rows.Next() {
		var doc models.DocumentRecord

		err := rows.Scan(
			&doc.WillTestator,
			&doc.Hash,
			&doc.Name,
			&doc.Category,
			&doc.UploadedAt,
		)

		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}

		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating documents: %w", err)
	}

	return docs, nil
}

// GetDocument retrieves one document of a will by content hash
func (r *PostgresRepository) GetDocument(ctx context.Context, testator, hash string) (*models.DocumentRecord, error) {
	query := `
		SELECT will_testator, hash, name, category, uploaded_at
		FROM documents
		WHERE will_testator = $1 AND hash = $2
	`

	var doc models.DocumentRecord

	err := r.pool.QueryRow(ctx, query, testator, hash).Scan(
		&doc.WillTestator,
		&doc.Hash,
		&doc.Name,
		&doc.Category,
		&doc.UploadedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("%w: document %s", ErrNotFound, hash)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	return &doc, nil
}

// UpsertPayout records one credited share of an executed distribution
func (r *PostgresRepository) UpsertPayout(ctx context.Context, payout *models.PayoutRecord) error {
	query := `
		INSERT INTO payouts (
			will_testator, wallet, share, amount, block
		) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (will_testator, wallet) DO UPDATE SET
			share = EXCLUDED.share,
			amount = EXCLUDED.amount,
			block = EXCLUDED.block
	`

	_, err := r.pool.Exec(ctx, query,
		payout.WillTestator,
		payout.Wallet,
		payout.Share,
		payout.Amount,
		payout.Block,
	)

	if err != nil {
		return fmt.Errorf("failed to upsert payout: %w", err)
	}

	return nil
}

// ListPayouts lists the distribution results of an executed will
func (r *PostgresRepository) ListPayouts(ctx context.Context, testator string) ([]models.PayoutRecord, error) {
	query := `
		SELECT will_testator, wallet, share, amount::text, block
		FROM payouts
		WHERE will_testator = $1
		ORDER BY share DESC, wallet ASC
	`

	rows, err := r.pool.Query(ctx, query, testator)
	if err != nil {
		return nil, fmt.Errorf("failed to list payouts: %w", err)
	}
	defer rows.Close()

	var payouts []models.PayoutRecord

	for rows.Next() {
		var payout models.PayoutRecord

		err := rows.Scan(
			&payout.WillTestator,
			&payout.Wallet,
			&payout.Share,
			&payout.Amount,
			&payout.Block,
		)

		if err != nil {
			return nil, fmt.Errorf("failed to scan payout: %w", err)
		}

		payouts = append(payouts, payout)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating payouts: %w", err)
	}

	return payouts, nil
}

// LoadCheckpoint returns the cursor of the last applied event, if any
func (r *PostgresRepository) LoadCheckpoint(ctx context.Context) (event.Cursor, bool, error) {
	query := `SELECT last_block, last_index FROM projection_state WHERE id = 1`

	var cur event.Cursor

	err := r.pool.QueryRow(ctx, query).Scan(&cur.Block, &cur.Index)
	if err == pgx.ErrNoRows {
		return event.Cursor{}, false, nil
	}
	if err != nil {
		return event.Cursor{}, false, fmt.Errorf("failed to load checkpoint: %w", err)
	}

	return cur, true, nil
}

// SaveCheckpoint persists the cursor of the last applied event
func (r *PostgresRepository) SaveCheckpoint(ctx context.Context, cur event.Cursor) error {
	query := `
		INSERT INTO projection_state (id, last_block, last_index, updated_at)
		VALUES (1, $1, $2, now())
		ON CONFLICT (id) DO UPDATE SET
			last_block = EXCLUDED.last_block,
			last_index = EXCLUDED.last_index,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.pool.Exec(ctx, query, cur.Block, cur.Index)
	if err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}

	return nil
}

// GetStats computes replica-wide aggregates
func (r *PostgresRepository) GetStats(ctx context.Context) (*models.Stats, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM wills),
			(SELECT COUNT(*) FROM wills WHERE NOT executed),
			(SELECT COUNT(*) FROM wills WHERE executed),
			(SELECT COUNT(*) FROM beneficiaries),
			(SELECT COUNT(*) FROM documents),
			(SELECT COALESCE(SUM(locked_balance), 0)::text FROM wills),
			(SELECT COALESCE(SUM(flexible_balance), 0)::text FROM wills),
			(SELECT COALESCE(SUM(amount), 0)::text FROM payouts)
	`

	var stats models.Stats

	err := r.pool.QueryRow(ctx, query).Scan(
		&stats.TotalWills,
		&stats.ActiveWills,
		&stats.ExecutedWills,
		&stats.Beneficiaries,
		&stats.Documents,
		&stats.LockedTotal,
		&stats.FlexibleTotal,
		&stats.DistributedTotal,
	)

	if err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}

	cur, ok, err := r.LoadCheckpoint(ctx)
	if err != nil {
		return nil, err
	}
	if ok {
		stats.LastAppliedBlock = cur.Block
		stats.LastAppliedIndex = cur.Index
	}

	return &stats, nil
}

// Ping checks if the database connection is alive
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close closes the database connection pool
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}
