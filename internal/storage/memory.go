package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"sync"
	"time"

	"willvault/internal/event"
	"willvault/internal/models"
)

// MemoryRepository is an in-memory Repository used in tests. Rows keep
// insertion order so listings are deterministic, and Fail lets tests
// inject storage faults.
type MemoryRepository struct {
	mu            sync.RWMutex
	wills         map[string]*models.WillRecord
	willOrder     []string
	beneficiaries map[string][]models.BeneficiaryRecord
	documents     map[string][]models.DocumentRecord
	payouts       map[string][]models.PayoutRecord
	checkpoint    event.Cursor
	checkpointSet bool
	failWith      error
}

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		wills:         make(map[string]*models.WillRecord),
		beneficiaries: make(map[string][]models.BeneficiaryRecord),
		documents:     make(map[string][]models.DocumentRecord),
		payouts:       make(map[string][]models.PayoutRecord),
	}
}

// Fail makes every subsequent call return err; pass nil to recover
func (m *MemoryRepository) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWith = err
}

func (m *MemoryRepository) UpsertWill(ctx context.Context, will *models.WillRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}

	cp := *will
	if _, ok := m.wills[will.Testator]; !ok {
		m.willOrder = append(m.willOrder, will.Testator)
	}
	m.wills[will.Testator] = &cp
	return nil
}

func (m *MemoryRepository) UpdateCheckIn(ctx context.Context, testator string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return false, m.failWith
	}

	will, ok := m.wills[testator]
	if !ok {
		return false, nil
	}
	will.LastCheckIn = at
	will.UpdatedAt = at
	return true, nil
}

func (m *MemoryRepository) SetLockedBalance(ctx context.Context, testator, balance string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return false, m.failWith
	}

	will, ok := m.wills[testator]
	if !ok {
		return false, nil
	}
	will.LockedBalance = balance
	will.UpdatedAt = at
	return true, nil
}

func (m *MemoryRepository) SetFlexibleBalance(ctx context.Context, testator, balance string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return false, m.failWith
	}

	will, ok := m.wills[testator]
	if !ok {
		return false, nil
	}
	will.FlexibleBalance = balance
	will.UpdatedAt = at
	return true, nil
}

func (m *MemoryRepository) MarkDisputeStarted(ctx context.Context, testator string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return false, m.failWith
	}

	will, ok := m.wills[testator]
	if !ok {
		return false, nil
	}
	started := at
	will.DisputeStartedAt = &started
	will.UpdatedAt = at
	return true, nil
}

func (m *MemoryRepository) MarkExecuted(ctx context.Context, testator string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return false, m.failWith
	}

	will, ok := m.wills[testator]
	if !ok {
		return false, nil
	}
	executed := at
	will.Executed = true
	will.ExecutedAt = &executed
	will.LockedBalance = "0"
	will.FlexibleBalance = "0"
	will.UpdatedAt = at
	return true, nil
}

func (m *MemoryRepository) GetWill(ctx context.Context, testator string) (*models.WillRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.failWith != nil {
		return nil, m.failWith
	}

	will, ok := m.wills[testator]
	if !ok {
		return nil, fmt.Errorf("%w: will %s", ErrNotFound, testator)
	}
	cp := *will
	return &cp, nil
}

func (m *MemoryRepository) ListWillsByTestator(ctx context.Context, testator string) ([]models.WillRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.failWith != nil {
		return nil, m.failWith
	}

	var wills []models.WillRecord
	if will, ok := m.wills[testator]; ok {
		wills = append(wills, *will)
	}
	return wills, nil
}

func (m *MemoryRepository) ListWillsByBeneficiary(ctx context.Context, wallet string) ([]models.BeneficiaryWill, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.failWith != nil {
		return nil, m.failWith
	}

	var entries []models.BeneficiaryWill
	for _, testator := range m.willOrder {
		for _, entry := range m.beneficiaries[testator] {
			if entry.Wallet != wallet {
				continue
			}
			entries = append(entries, models.BeneficiaryWill{
				Will:     *m.wills[testator],
				Share:    entry.Share,
				Guardian: entry.Guardian,
			})
		}
	}
	return entries, nil
}

func (m *MemoryRepository) UpsertBeneficiary(ctx context.Context, entry *models.BeneficiaryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}

	list := m.beneficiaries[entry.WillTestator]
	for i := range list {
		if list[i].Wallet == entry.Wallet {
			list[i].Share = entry.Share
			list[i].Guardian = entry.Guardian
			list[i].UpdatedAt = entry.UpdatedAt
			return nil
		}
	}
	m.beneficiaries[entry.WillTestator] = append(list, *entry)
	return nil
}

func (m *MemoryRepository) UpdateBeneficiary(ctx context.Context, entry *models.BeneficiaryRecord) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return false, m.failWith
	}

	list := m.beneficiaries[entry.WillTestator]
	for i := range list {
		if list[i].Wallet == entry.Wallet {
			list[i].Share = entry.Share
			list[i].Guardian = entry.Guardian
			list[i].UpdatedAt = entry.UpdatedAt
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryRepository) DeleteBeneficiary(ctx context.Context, testator, wallet string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}

	list := m.beneficiaries[testator]
	for i := range list {
		if list[i].Wallet == wallet {
			m.beneficiaries[testator] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *MemoryRepository) ListBeneficiaries(ctx context.Context, testator string) ([]models.BeneficiaryRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.failWith != nil {
		return nil, m.failWith
	}

	return append([]models.BeneficiaryRecord(nil), m.beneficiaries[testator]...), nil
}

func (m *MemoryRepository) GetVaults(ctx context.Context, testator string) (*models.VaultBalances, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.failWith != nil {
		return nil, m.failWith
	}

	will, ok := m.wills[testator]
	if !ok {
		return nil, fmt.Errorf("%w: will %s", ErrNotFound, testator)
	}
	return &models.VaultBalances{Locked: will.LockedBalance, Flexible: will.FlexibleBalance}, nil
}

func (m *MemoryRepository) UpsertDocument(ctx context.Context, doc *models.DocumentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}

	list := m.documents[doc.WillTestator]
	for i := range list {
		if list[i].Hash == doc.Hash {
			list[i] = *doc
			return nil
		}
	}
	m.documents[doc.WillTestator] = append(list, *doc)
	return nil
}

func (m *MemoryRepository) DeleteDocument(ctx context.Context, testator, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}

	list := m.documents[testator]
	for i := range list {
		if list[i].Hash == hash {
			m.documents[testator] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *MemoryRepository) ListDocuments(ctx context.Context, testator string) ([]models.DocumentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.failWith != nil {
		return nil, m.failWith
	}

	return append([]models.DocumentRecord(nil), m.documents[testator]...), nil
}

func (m *MemoryRepository) GetDocument(ctx context.Context, testator, hash string) (*models.DocumentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.failWith != nil {
		return nil, m.failWith
	}

	for _, doc := range m.documents[testator] {
		if doc.Hash == hash {
			cp := doc
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("%w: document %s", ErrNotFound, hash)
}

func (m *MemoryRepository) UpsertPayout(ctx context.Context, payout *models.PayoutRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}

	list := m.payouts[payout.WillTestator]
	for i := range list {
		if list[i].Wallet == payout.Wallet {
			list[i] = *payout
			return nil
		}
	}
	m.payouts[payout.WillTestator] = append(list, *payout)
	return nil
}

func (m *MemoryRepository) ListPayouts(ctx context.Context, testator string) ([]models.PayoutRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.failWith != nil {
		return nil, m.failWith
	}

	return append([]models.PayoutRecord(nil), m.payouts[testator]...), nil
}

func (m *MemoryRepository) LoadCheckpoint(ctx context.Context) (event.Cursor, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.failWith != nil {
		return event.Cursor{}, false, m.failWith
	}

	return m.checkpoint, m.checkpointSet, nil
}

func (m *MemoryRepository) SaveCheckpoint(ctx context.Context, cur event.Cursor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}

	m.checkpoint = cur
	m.checkpointSet = true
	return nil
}

func (m *MemoryRepository) GetStats(ctx context.Context) (*models.Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.failWith != nil {
		return nil, m.failWith
	}

	stats := models.Stats{
		LockedTotal:      "0",
		FlexibleTotal:    "0",
		DistributedTotal: "0",
	}
	locked := new(big.Int)
	flexible := new(big.Int)
	distributed := new(big.Int)

	for _, will := range m.wills {
		stats.TotalWills++
		if will.Executed {
			stats.ExecutedWills++
		} else {
			stats.ActiveWills++
		}
		addDecimal(locked, will.LockedBalance)
		addDecimal(flexible, will.FlexibleBalance)
	}
	for _, list := range m.beneficiaries {
		stats.Beneficiaries += int64(len(list))
	}
	for _, list := range m.documents {
		stats.Documents += int64(len(list))
	}
	for _, list := range m.payouts {
		for _, payout := range list {
			addDecimal(distributed, payout.Amount)
		}
	}

	stats.LockedTotal = locked.String()
	stats.FlexibleTotal = flexible.String()
	stats.DistributedTotal = distributed.String()
	if m.checkpointSet {
		stats.LastAppliedBlock = m.checkpoint.Block
		stats.LastAppliedIndex = m.checkpoint.Index
	}
	return &stats, nil
}

func addDecimal(sum *big.Int, s string) {
	v, ok := new(big.Int).SetString(s, 10)
	if ok {
		sum.Add(sum, v)
	}
}

func (m *MemoryRepository) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.failWith
}

func (m *MemoryRepository) Close() error {
	return nil
}

// Dump renders the whole replica as indented JSON with deterministic
// ordering, letting tests compare state snapshots byte for byte.
func (m *MemoryRepository) Dump() ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	type snapshot struct {
		Wills         []models.WillRecord        `json:"wills"`
		Beneficiaries []models.BeneficiaryRecord `json:"beneficiaries"`
		Documents     []models.DocumentRecord    `json:"documents"`
		Payouts       []models.PayoutRecord      `json:"payouts"`
		Checkpoint    event.Cursor               `json:"checkpoint"`
	}

	var snap snapshot
	for _, testator := range m.willOrder {
		snap.Wills = append(snap.Wills, *m.wills[testator])
		snap.Beneficiaries = append(snap.Beneficiaries, m.beneficiaries[testator]...)
		snap.Documents = append(snap.Documents, m.documents[testator]...)
		snap.Payouts = append(snap.Payouts, m.payouts[testator]...)
	}
	snap.Checkpoint = m.checkpoint

	return json.MarshalIndent(snap, "", "  ")
}
