package wills

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// MaxShares is the full share pool of a will, in percent
const MaxShares = 100

// Phase is the execution window that applies at a point in time
type Phase string

const (
	// PhaseLocked: the check-in deadline has not elapsed, nobody may execute
	PhaseLocked Phase = "locked"
	// PhaseDispute: past the deadline, within the dispute window, guardian only
	PhaseDispute Phase = "dispute"
	// PhaseOpen: past the dispute window, any listed beneficiary
	PhaseOpen Phase = "open"
)

// Beneficiary is one entry in a will's share ledger
type Beneficiary struct {
	Wallet   common.Address
	Share    int
	Guardian bool
}

// Document is attached metadata; content lives in external storage,
// only the hash and descriptors are kept here.
type Document struct {
	Hash       string
	Name       string
	Category   string
	UploadedAt time.Time
}

// Will is a snapshot of one testator's will. Periods are in seconds.
type Will struct {
	Testator         common.Address
	CheckInPeriod    int64
	DisputePeriod    int64
	LastCheckIn      time.Time
	CreatedAt        time.Time
	Executed         bool
	ExecutedAt       time.Time
	DisputeStartedAt time.Time
	LockedBalance    *big.Int
	FlexibleBalance  *big.Int
	Beneficiaries    []Beneficiary
	Documents        []Document
}

// TotalShares sums the allocated percentage across all beneficiaries
func (w *Will) TotalShares() int {
	total := 0
	for _, b := range w.Beneficiaries {
		total += b.Share
	}
	return total
}

// Guardian returns the designated guardian, ok=false when none exists
func (w *Will) Guardian() (common.Address, bool) {
	for _, b := range w.Beneficiaries {
		if b.Guardian {
			return b.Wallet, true
		}
	}
	return common.Address{}, false
}

// TotalFunds returns locked plus flexible balances
func (w *Will) TotalFunds() *big.Int {
	return new(big.Int).Add(w.LockedBalance, w.FlexibleBalance)
}

// Deadline is the moment the current check-in window ends
func (w *Will) Deadline() time.Time {
	return w.LastCheckIn.Add(time.Duration(w.CheckInPeriod) * time.Second)
}

// DisputeEnd is the moment the guardian-only window ends
func (w *Will) DisputeEnd() time.Time {
	return w.Deadline().Add(time.Duration(w.DisputePeriod) * time.Second)
}

// PhaseAt reports which execution phase applies at t.
// Boundaries belong to the earlier phase: execution exactly at the deadline
// is still locked, exactly at the dispute end is still guardian-only.
func (w *Will) PhaseAt(t time.Time) Phase {
	if !t.After(w.Deadline()) {
		return PhaseLocked
	}
	if !t.After(w.DisputeEnd()) {
		return PhaseDispute
	}
	return PhaseOpen
}

// Clone returns a deep copy safe to hand out
func (w *Will) Clone() Will {
	out := *w
	out.LockedBalance = new(big.Int).Set(w.LockedBalance)
	out.FlexibleBalance = new(big.Int).Set(w.FlexibleBalance)
	out.Beneficiaries = append([]Beneficiary(nil), w.Beneficiaries...)
	out.Documents = append([]Document(nil), w.Documents...)
	return out
}
