// Package ciphertext encrypts contract inputs and decrypts the handles
// contracts return, on top of a ready fhevm instance.
package ciphertext

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"

	fherrors "github.com/haimbb47/SkillForge/fhevmClient/errors"
)

// Handle is a ciphertext handle as passed to contracts (bytes32).
type Handle [32]byte

func (h Handle) Hex() string {
	return hexutil.Encode(h[:])
}

func (h Handle) String() string {
	return h.Hex()
}

// HandleToBytes32 normalizes a handle given as bytes or a hex string (with
// or without 0x) to 32 bytes, left-padding with zeros.
func HandleToBytes32(v any) (Handle, error) {
	var b []byte
	switch val := v.(type) {
	case Handle:
		return val, nil
	case [32]byte:
		return Handle(val), nil
	case []byte:
		b = val
	case string:
		s := strings.TrimPrefix(strings.TrimPrefix(val, "0x"), "0X")
		if len(s)%2 == 1 {
			s = "0" + s
		}
		decoded, err := hexutil.Decode("0x" + s)
		if err != nil {
			return Handle{}, fherrors.NewValidationError(fmt.Sprintf("handle %q is not hex", val))
		}
		b = decoded
	default:
		return Handle{}, fherrors.NewValidationError(fmt.Sprintf("unsupported handle type %T", v))
	}

	if len(b) > 32 {
		return Handle{}, fherrors.NewValidationError(fmt.Sprintf("handle is %d bytes, want at most 32", len(b)))
	}
	var h Handle
	copy(h[32-len(b):], b)
	return h, nil
}
