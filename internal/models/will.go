package models

import "time"

// WillRecord is the replica row for one will. Identity fields are
// canonical lower-cased hex; balances are decimal strings in the smallest
// unit. Timestamps come from the originating events, never from the clock
// of the process applying them.
type WillRecord struct {
	// Identification
	Testator string `json:"testator"`

	// Dead-man's-switch configuration, in seconds
	CheckInPeriod int64 `json:"check_in_period"`
	DisputePeriod int64 `json:"dispute_period"`

	// Timer state
	LastCheckIn time.Time `json:"last_check_in"`

	// Vault balances
	LockedBalance   string `json:"locked_balance"`
	FlexibleBalance string `json:"flexible_balance"`

	// Lifecycle
	Executed         bool       `json:"executed"`
	ExecutedAt       *time.Time `json:"executed_at,omitempty"`
	DisputeStartedAt *time.Time `json:"dispute_started_at,omitempty"`

	// Metadata
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeneficiaryRecord is one share ledger entry of a will
type BeneficiaryRecord struct {
	WillTestator string    `json:"will_testator"`
	Wallet       string    `json:"wallet"`
	Share        int       `json:"share"`
	Guardian     bool      `json:"guardian"`
	AddedAt      time.Time `json:"added_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// DocumentRecord is attached document metadata; content lives off-replica
type DocumentRecord struct {
	WillTestator string    `json:"will_testator"`
	Hash         string    `json:"hash"`
	Name         string    `json:"name"`
	Category     string    `json:"category,omitempty"`
	UploadedAt   time.Time `json:"uploaded_at"`
}

// PayoutRecord is one credited share of an executed distribution
type PayoutRecord struct {
	WillTestator string `json:"will_testator"`
	Wallet       string `json:"wallet"`
	Share        int    `json:"share"`
	Amount       string `json:"amount"`
	Block        uint64 `json:"block"`
}

// VaultBalances is the custody split of one will
type VaultBalances struct {
	Locked   string `json:"locked"`
	Flexible string `json:"flexible"`
}

// BeneficiaryWill pairs a will with one wallet's position in it
type BeneficiaryWill struct {
	Will     WillRecord `json:"will"`
	Share    int        `json:"share"`
	Guardian bool       `json:"guardian"`
}

// Stats are replica-wide aggregates
type Stats struct {
	TotalWills       int64  `json:"total_wills"`
	ActiveWills      int64  `json:"active_wills"`
	ExecutedWills    int64  `json:"executed_wills"`
	Beneficiaries    int64  `json:"beneficiaries"`
	Documents        int64  `json:"documents"`
	LockedTotal      string `json:"locked_total"`
	FlexibleTotal    string `json:"flexible_total"`
	DistributedTotal string `json:"distributed_total"`
	LastAppliedBlock uint64 `json:"last_applied_block"`
	LastAppliedIndex uint32 `json:"last_applied_index"`
}
