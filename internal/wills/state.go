package wills

import (
	"encoding/json"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"willvault/internal/event"
	"willvault/internal/identity"
)

// willState is the engine-side mutable state of one will. Alongside the
// snapshot it keeps direct indexes so membership and guardian checks during
// authorization are map lookups; the ordered slices stay authoritative for
// listings.
type willState struct {
	mu          sync.Mutex
	will        Will
	members     map[common.Address]int
	docs        map[string]int
	guardian    common.Address
	hasGuardian bool
}

func newWillState() *willState {
	return &willState{
		members: make(map[common.Address]int),
		docs:    make(map[string]int),
	}
}

// created reports whether a will.created event has been applied.
// A placeholder left behind by a failed create reports false.
func (st *willState) created() bool {
	return !identity.IsZero(st.will.Testator)
}

// apply folds one journal event into the state. The same path runs during
// restore and after a live append, so memory state is always what a replay
// of the journal would produce. Caller holds st.mu.
func (st *willState) apply(ev event.Event) error {
	if ev.Kind != event.KindWillCreated && !st.created() {
		return fmt.Errorf("%s applied before will.created", ev.Kind)
	}

	switch ev.Kind {
	case event.KindWillCreated:
		var p event.WillCreatedPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return fmt.Errorf("failed to decode %s: %w", ev.Kind, err)
		}
		testator, err := identity.Parse(p.Testator)
		if err != nil {
			return fmt.Errorf("%s has bad testator: %w", ev.Kind, err)
		}
		st.will = Will{
			Testator:        testator,
			CheckInPeriod:   p.CheckInPeriod,
			DisputePeriod:   p.DisputePeriod,
			LastCheckIn:     p.LastCheckIn,
			CreatedAt:       p.CreatedAt,
			LockedBalance:   new(big.Int),
			FlexibleBalance: new(big.Int),
		}
		st.members = make(map[common.Address]int)
		st.docs = make(map[string]int)
		st.guardian = common.Address{}
		st.hasGuardian = false

	case event.KindCheckIn:
		var p event.CheckInPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return fmt.Errorf("failed to decode %s: %w", ev.Kind, err)
		}
		st.will.LastCheckIn = p.At

	case event.KindBeneficiaryAdded:
		var p event.BeneficiaryAddedPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return fmt.Errorf("failed to decode %s: %w", ev.Kind, err)
		}
		wallet, err := identity.Parse(p.Wallet)
		if err != nil {
			return fmt.Errorf("%s has bad wallet: %w", ev.Kind, err)
		}
		st.members[wallet] = len(st.will.Beneficiaries)
		st.will.Beneficiaries = append(st.will.Beneficiaries, Beneficiary{
			Wallet:   wallet,
			Share:    p.Share,
			Guardian: p.Guardian,
		})
		if p.Guardian {
			st.guardian = wallet
			st.hasGuardian = true
		}

	case event.KindBeneficiaryUpdated:
		var p event.BeneficiaryUpdatedPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return fmt.Errorf("failed to decode %s: %w", ev.Kind, err)
		}
		wallet, err := identity.Parse(p.Wallet)
		if err != nil {
			return fmt.Errorf("%s has bad wallet: %w", ev.Kind, err)
		}
		pos, ok := st.members[wallet]
		if !ok {
			return fmt.Errorf("%s for unlisted wallet %s", ev.Kind, p.Wallet)
		}
		b := &st.will.Beneficiaries[pos]
		if b.Guardian && !p.Guardian {
			st.guardian = common.Address{}
			st.hasGuardian = false
		}
		if p.Guardian {
			st.guardian = wallet
			st.hasGuardian = true
		}
		b.Share = p.Share
		b.Guardian = p.Guardian

	case event.KindBeneficiaryRemoved:
		var p event.BeneficiaryRemovedPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return fmt.Errorf("failed to decode %s: %w", ev.Kind, err)
		}
		wallet, err := identity.Parse(p.Wallet)
		if err != nil {
			return fmt.Errorf("%s has bad wallet: %w", ev.Kind, err)
		}
		pos, ok := st.members[wallet]
		if !ok {
			return fmt.Errorf("%s for unlisted wallet %s", ev.Kind, p.Wallet)
		}
		if st.will.Beneficiaries[pos].Guardian {
			st.guardian = common.Address{}
			st.hasGuardian = false
		}
		st.will.Beneficiaries = append(st.will.Beneficiaries[:pos], st.will.Beneficiaries[pos+1:]...)
		delete(st.members, wallet)
		for w, i := range st.members {
			if i > pos {
				st.members[w] = i - 1
			}
		}

	case event.KindDepositLocked:
		balance, err := decodeMovement(ev)
		if err != nil {
			return err
		}
		st.will.LockedBalance = balance

	case event.KindDepositFlexible, event.KindWithdrawFlexible:
		balance, err := decodeMovement(ev)
		if err != nil {
			return err
		}
		st.will.FlexibleBalance = balance

	case event.KindDisputeStarted:
		var p event.DisputeStartedPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return fmt.Errorf("failed to decode %s: %w", ev.Kind, err)
		}
		st.will.DisputeStartedAt = p.StartedAt

	case event.KindWillExecuted:
		var p event.WillExecutedPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return fmt.Errorf("failed to decode %s: %w", ev.Kind, err)
		}
		st.will.Executed = true
		st.will.ExecutedAt = p.ExecutedAt
		st.will.LockedBalance = new(big.Int)
		st.will.FlexibleBalance = new(big.Int)

	case event.KindDocumentAdded:
		var p event.DocumentAddedPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return fmt.Errorf("failed to decode %s: %w", ev.Kind, err)
		}
		st.docs[p.Hash] = len(st.will.Documents)
		st.will.Documents = append(st.will.Documents, Document{
			Hash:       p.Hash,
			Name:       p.Name,
			Category:   p.Category,
			UploadedAt: p.UploadedAt,
		})

	case event.KindDocumentRemoved:
		var p event.DocumentRemovedPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return fmt.Errorf("failed to decode %s: %w", ev.Kind, err)
		}
		pos, ok := st.docs[p.Hash]
		if !ok {
			return fmt.Errorf("%s for unknown hash %s", ev.Kind, p.Hash)
		}
		st.will.Documents = append(st.will.Documents[:pos], st.will.Documents[pos+1:]...)
		delete(st.docs, p.Hash)
		for h, i := range st.docs {
			if i > pos {
				st.docs[h] = i - 1
			}
		}

	default:
		return fmt.Errorf("unknown event kind %q", ev.Kind)
	}

	return nil
}

func decodeMovement(ev event.Event) (*big.Int, error) {
	var p event.VaultMovementPayload
	if err := json.Unmarshal(ev.Payload, &p); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", ev.Kind, err)
	}
	balance, err := parseAmount(p.Balance)
	if err != nil {
		return nil, fmt.Errorf("%s has bad balance: %w", ev.Kind, err)
	}
	return balance, nil
}

func parseAmount(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("malformed amount %q", s)
	}
	return v, nil
}
