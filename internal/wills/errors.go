package wills

import "errors"

// Failure taxonomy for will operations. These are deterministic rule
// violations surfaced to the caller as-is; none of them are retryable.
var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrNotFound             = errors.New("will not found")
	ErrAlreadyExists        = errors.New("will already exists")
	ErrWillExecuted         = errors.New("will already executed")
	ErrBeneficiaryNotFound  = errors.New("beneficiary not found")
	ErrDuplicateBeneficiary = errors.New("beneficiary already listed")
	ErrGuardianConflict     = errors.New("a guardian is already designated")
	ErrShareOverflow        = errors.New("share total would exceed 100")
	ErrSharesIncomplete     = errors.New("share total must equal 100")
	ErrNoFunds              = errors.New("will holds no funds")
	ErrInsufficientBalance  = errors.New("insufficient flexible balance")
	ErrPhaseNotElapsed      = errors.New("check-in deadline has not elapsed")
	ErrUnauthorized         = errors.New("caller not authorized")
	ErrTransferFailure      = errors.New("transfer failed")
	ErrDocumentNotFound     = errors.New("document not found")
	ErrDuplicateDocument    = errors.New("document already attached")
)
