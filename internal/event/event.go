package event

import (
	"encoding/json"
	"fmt"
	"time"
)

// Kind identifies a will event type on the wire
type Kind string

// Will lifecycle events
const (
	KindWillCreated    Kind = "will.created"
	KindCheckIn        Kind = "will.checkin"
	KindWillExecuted   Kind = "will.executed"
	KindDisputeStarted Kind = "will.dispute_started"
)

// Beneficiary events
const (
	KindBeneficiaryAdded   Kind = "beneficiary.added"
	KindBeneficiaryUpdated Kind = "beneficiary.updated"
	KindBeneficiaryRemoved Kind = "beneficiary.removed"
)

// Vault events
const (
	KindDepositLocked    Kind = "vault.deposit_locked"
	KindDepositFlexible  Kind = "vault.deposit_flexible"
	KindWithdrawFlexible Kind = "vault.withdraw_flexible"
)

// Document events
const (
	KindDocumentAdded   Kind = "document.added"
	KindDocumentRemoved Kind = "document.removed"
)

// Cursor is the total ordering key of an event in the journal:
// the block position plus the position within that block.
type Cursor struct {
	Block uint64 `json:"block"`
	Index uint32 `json:"index"`
}

// Compare returns -1, 0 or 1 depending on whether c orders before,
// equal to, or after o.
func (c Cursor) Compare(o Cursor) int {
	switch {
	case c.Block < o.Block:
		return -1
	case c.Block > o.Block:
		return 1
	case c.Index < o.Index:
		return -1
	case c.Index > o.Index:
		return 1
	default:
		return 0
	}
}

// Before reports whether c orders strictly before o
func (c Cursor) Before(o Cursor) bool {
	return c.Compare(o) < 0
}

// IsZero reports whether the cursor is the unset position before all events
func (c Cursor) IsZero() bool {
	return c.Block == 0 && c.Index == 0
}

func (c Cursor) String() string {
	return fmt.Sprintf("%d/%d", c.Block, c.Index)
}

// Event is one immutable record in the will journal.
// Block and Index are assigned by the journal on append.
type Event struct {
	Block     uint64          `json:"block"`
	Index     uint32          `json:"index"`
	Kind      Kind            `json:"kind"`
	Will      string          `json:"will"`
	RequestID string          `json:"request_id"`
	Emitted   time.Time       `json:"emitted"`
	Payload   json.RawMessage `json:"payload"`
}

// Cursor returns the event's ordering key
func (e Event) Cursor() Cursor {
	return Cursor{Block: e.Block, Index: e.Index}
}

// New builds an unpositioned event with the payload marshalled to JSON
func New(kind Kind, will, requestID string, emitted time.Time, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("failed to marshal %s payload: %w", kind, err)
	}
	return Event{
		Kind:      kind,
		Will:      will,
		RequestID: requestID,
		Emitted:   emitted,
		Payload:   raw,
	}, nil
}
