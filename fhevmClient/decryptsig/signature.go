// Package decryptsig manages decryption signatures: EIP-712 authorizations
// that let a user decrypt handles owned by a set of contracts for a bounded
// period. Signatures are cached in a string store under a key derived from
// the user, the sorted contract set and the instance's typed data.
package decryptsig

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	fherrors "github.com/haimbb47/SkillForge/fhevmClient/errors"
)

const secondsPerDay = 24 * 60 * 60

var timeNow = time.Now

// Signature is an immutable decryption signature.
type Signature struct {
	publicKey         string
	privateKey        string
	signature         string
	startTimestamp    int64
	durationDays      int
	userAddress       string
	contractAddresses []string
	eip712            apitypes.TypedData
}

func (s *Signature) PublicKey() string     { return s.publicKey }
func (s *Signature) PrivateKey() string    { return s.privateKey }
func (s *Signature) Signature() string     { return s.signature }
func (s *Signature) StartTimestamp() int64 { return s.startTimestamp }
func (s *Signature) DurationDays() int     { return s.durationDays }
func (s *Signature) UserAddress() string   { return s.userAddress }

// ContractAddresses returns a copy of the authorized contract set.
func (s *Signature) ContractAddresses() []string {
	return append([]string(nil), s.contractAddresses...)
}

// EIP712 returns the typed data the signature was produced from.
func (s *Signature) EIP712() apitypes.TypedData {
	return s.eip712
}

// ExpiresAt is the first instant at which the signature is no longer valid.
func (s *Signature) ExpiresAt() time.Time {
	return time.Unix(s.startTimestamp+int64(s.durationDays)*secondsPerDay, 0)
}

// IsValid reports whether the signature has not yet expired.
func (s *Signature) IsValid() bool {
	return s.IsValidAt(timeNow())
}

// IsValidAt reports whether the signature is valid at t.
func (s *Signature) IsValidAt(t time.Time) bool {
	return t.Unix() < s.startTimestamp+int64(s.durationDays)*secondsPerDay
}

type signatureJSON struct {
	PublicKey         string             `json:"publicKey"`
	PrivateKey        string             `json:"privateKey"`
	Signature         string             `json:"signature"`
	StartTimestamp    int64              `json:"startTimestamp"`
	DurationDays      int                `json:"durationDays"`
	UserAddress       string             `json:"userAddress"`
	ContractAddresses []string           `json:"contractAddresses"`
	EIP712            apitypes.TypedData `json:"eip712"`
}

func (s *Signature) MarshalJSON() ([]byte, error) {
	return json.Marshal(signatureJSON{
		PublicKey:         s.publicKey,
		PrivateKey:        s.privateKey,
		Signature:         s.signature,
		StartTimestamp:    s.startTimestamp,
		DurationDays:      s.durationDays,
		UserAddress:       s.userAddress,
		ContractAddresses: s.contractAddresses,
		EIP712:            s.eip712,
	})
}

// FromJSON decodes a serialized signature from a JSON string, raw bytes or
// an already decoded object. Anything that fails the shape check is rejected
// whole.
func FromJSON(v any) (*Signature, error) {
	var raw []byte
	switch val := v.(type) {
	case string:
		raw = []byte(val)
	case []byte:
		raw = val
	case json.RawMessage:
		raw = val
	case map[string]any:
		b, err := json.Marshal(val)
		if err != nil {
			return nil, fherrors.NewMalformedCacheRecordError("signature object is not serializable")
		}
		raw = b
	default:
		return nil, fherrors.NewMalformedCacheRecordError("unsupported signature encoding")
	}

	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fherrors.NewMalformedCacheRecordError("signature is not a JSON object")
	}
	if err := checkShape(fields); err != nil {
		return nil, err
	}

	var decoded signatureJSON
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fherrors.NewMalformedCacheRecordError("signature fields have the wrong types")
	}

	return &Signature{
		publicKey:         decoded.PublicKey,
		privateKey:        decoded.PrivateKey,
		signature:         decoded.Signature,
		startTimestamp:    decoded.StartTimestamp,
		durationDays:      decoded.DurationDays,
		userAddress:       decoded.UserAddress,
		contractAddresses: decoded.ContractAddresses,
		eip712:            decoded.EIP712,
	}, nil
}

func checkShape(f map[string]any) error {
	malformed := func(field string) error {
		return fherrors.NewMalformedCacheRecordError("signature field " + field + " is missing or malformed")
	}

	for _, key := range []string{"publicKey", "privateKey", "signature"} {
		if _, ok := f[key].(string); !ok {
			return malformed(key)
		}
	}
	for _, key := range []string{"startTimestamp", "durationDays"} {
		if _, ok := f[key].(float64); !ok {
			return malformed(key)
		}
	}

	addrs, ok := f["contractAddresses"].([]any)
	if !ok {
		return malformed("contractAddresses")
	}
	for _, a := range addrs {
		s, ok := a.(string)
		if !ok || !strings.HasPrefix(s, "0x") {
			return malformed("contractAddresses")
		}
	}

	if user, ok := f["userAddress"].(string); !ok || !strings.HasPrefix(user, "0x") {
		return malformed("userAddress")
	}

	td, ok := f["eip712"].(map[string]any)
	if !ok {
		return malformed("eip712")
	}
	if _, ok := td["domain"].(map[string]any); !ok {
		return malformed("eip712.domain")
	}
	if _, ok := td["primaryType"].(string); !ok {
		return malformed("eip712.primaryType")
	}
	if _, ok := td["message"]; !ok {
		return malformed("eip712.message")
	}
	if _, ok := td["types"].(map[string]any); !ok {
		return malformed("eip712.types")
	}
	return nil
}
