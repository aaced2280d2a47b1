package models

import "time"

// WillListResponse is the list of wills owned by one identity
type WillListResponse struct {
	Testator string       `json:"testator"`
	Wills    []WillRecord `json:"wills"`
	Total    int          `json:"total"`
}

// BeneficiaryWillsResponse lists every will in which a wallet holds shares
type BeneficiaryWillsResponse struct {
	Wallet string            `json:"wallet"`
	Wills  []BeneficiaryWill `json:"wills"`
	Total  int               `json:"total"`
}

// WillDetailResponse is the full view of one will
type WillDetailResponse struct {
	Will          WillRecord          `json:"will"`
	Beneficiaries []BeneficiaryRecord `json:"beneficiaries"`
	Vaults        VaultBalances       `json:"vaults"`
	Documents     []DocumentRecord    `json:"documents"`
	Payouts       []PayoutRecord      `json:"payouts,omitempty"`
}

// DocumentListResponse lists documents attached to one will
type DocumentListResponse struct {
	WillTestator string           `json:"will_testator"`
	Documents    []DocumentRecord `json:"documents"`
	Total        int              `json:"total"`
}

// HealthResponse reports service and replica health
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
	Database  string    `json:"database"`
	LastBlock uint64    `json:"last_applied_block"`
	LastIndex uint32    `json:"last_applied_index"`
}

// ErrorResponse represents an API error
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code"`
}
