package event

import "time"

// Addresses in payloads are canonical lower-cased hex. Amounts and balances
// are decimal strings in the smallest unit; balances and share totals are
// post-operation absolutes so replaying an event sets state rather than
// accumulating it.

// WillCreatedPayload announces a new will for a testator
type WillCreatedPayload struct {
	Testator      string    `json:"testator"`
	CheckInPeriod int64     `json:"check_in_period"`
	DisputePeriod int64     `json:"dispute_period"`
	LastCheckIn   time.Time `json:"last_check_in"`
	CreatedAt     time.Time `json:"created_at"`
}

// CheckInPayload records a proof-of-life check-in and the refreshed deadline
type CheckInPayload struct {
	Testator string    `json:"testator"`
	At       time.Time `json:"at"`
	Deadline time.Time `json:"deadline"`
}

// PayoutShare is one beneficiary's cut of an executed distribution
type PayoutShare struct {
	Wallet string `json:"wallet"`
	Share  int    `json:"share"`
	Amount string `json:"amount"`
}

// WillExecutedPayload records the final distribution of a will
type WillExecutedPayload struct {
	Testator   string        `json:"testator"`
	Caller     string        `json:"caller"`
	Phase      string        `json:"phase"`
	Total      string        `json:"total"`
	Payouts    []PayoutShare `json:"payouts"`
	ExecutedAt time.Time     `json:"executed_at"`
}

// DisputeStartedPayload records a guardian exercising the dispute window
type DisputeStartedPayload struct {
	Testator   string    `json:"testator"`
	Guardian   string    `json:"guardian"`
	Deadline   time.Time `json:"deadline"`
	DisputeEnd time.Time `json:"dispute_end"`
	StartedAt  time.Time `json:"started_at"`
}

// BeneficiaryAddedPayload records a new beneficiary entry
type BeneficiaryAddedPayload struct {
	Testator    string `json:"testator"`
	Wallet      string `json:"wallet"`
	Share       int    `json:"share"`
	Guardian    bool   `json:"guardian"`
	TotalShares int    `json:"total_shares"`
}

// BeneficiaryUpdatedPayload records a share or guardian change
type BeneficiaryUpdatedPayload struct {
	Testator    string `json:"testator"`
	Wallet      string `json:"wallet"`
	Share       int    `json:"share"`
	Guardian    bool   `json:"guardian"`
	TotalShares int    `json:"total_shares"`
}

// BeneficiaryRemovedPayload records a beneficiary removal
type BeneficiaryRemovedPayload struct {
	Testator    string `json:"testator"`
	Wallet      string `json:"wallet"`
	TotalShares int    `json:"total_shares"`
}

// VaultMovementPayload records a deposit or withdrawal and the resulting balance
type VaultMovementPayload struct {
	Testator string `json:"testator"`
	Amount   string `json:"amount"`
	Balance  string `json:"balance"`
}

// DocumentAddedPayload records document metadata attached to a will
type DocumentAddedPayload struct {
	Testator   string    `json:"testator"`
	Hash       string    `json:"hash"`
	Name       string    `json:"name"`
	Category   string    `json:"category"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// DocumentRemovedPayload records a document detachment
type DocumentRemovedPayload struct {
	Testator string `json:"testator"`
	Hash     string `json:"hash"`
}
