package identity

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ErrInvalidAddress is returned when a string is not a well-formed address
var ErrInvalidAddress = errors.New("invalid address")

var zero common.Address

// Parse validates and decodes a hex address string.
// The 0x prefix is required, casing is ignored, and the zero address is rejected.
func Parse(s string) (common.Address, error) {
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return common.Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	addr := common.HexToAddress(s)
	if addr == zero {
		return common.Address{}, fmt.Errorf("%w: zero address", ErrInvalidAddress)
	}
	return addr, nil
}

// Hex returns the canonical lower-cased hex form used for storage and lookups
func Hex(a common.Address) string {
	return strings.ToLower(a.Hex())
}

// IsZero reports whether the address is the zero address
func IsZero(a common.Address) bool {
	return a == zero
}
