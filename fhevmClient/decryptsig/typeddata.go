package decryptsig

import (
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	fherrors "github.com/haimbb47/SkillForge/fhevmClient/errors"
)

// VerificationType is the EIP-712 struct a user signs to authorize decryption.
const VerificationType = "UserDecryptRequestVerification"

const domainType = "EIP712Domain"

// VerificationRequest narrows td to the verification request struct and the
// domain fields actually set, which is exactly what gets hashed and signed.
func VerificationRequest(td apitypes.TypedData) (apitypes.TypedData, error) {
	fields, ok := td.Types[VerificationType]
	if !ok || len(fields) == 0 {
		return apitypes.TypedData{}, fherrors.NewSignatureError("typed data has no "+VerificationType+" type", nil)
	}

	return apitypes.TypedData{
		Types: apitypes.Types{
			domainType:       domainFields(td.Domain),
			VerificationType: fields,
		},
		PrimaryType: VerificationType,
		Domain:      td.Domain,
		Message:     td.Message,
	}, nil
}

// domainFields lists the EIP712Domain members present in d, in canonical order.
func domainFields(d apitypes.TypedDataDomain) []apitypes.Type {
	var out []apitypes.Type
	if d.Name != "" {
		out = append(out, apitypes.Type{Name: "name", Type: "string"})
	}
	if d.Version != "" {
		out = append(out, apitypes.Type{Name: "version", Type: "string"})
	}
	if d.ChainId != nil {
		out = append(out, apitypes.Type{Name: "chainId", Type: "uint256"})
	}
	if d.VerifyingContract != "" {
		out = append(out, apitypes.Type{Name: "verifyingContract", Type: "address"})
	}
	if d.Salt != "" {
		out = append(out, apitypes.Type{Name: "salt", Type: "bytes32"})
	}
	return out
}

// HashVerificationRequest returns the EIP-712 digest of the verification
// request in td.
func HashVerificationRequest(td apitypes.TypedData) ([]byte, error) {
	req, err := VerificationRequest(td)
	if err != nil {
		return nil, err
	}
	hash, _, err := apitypes.TypedDataAndHash(req)
	if err != nil {
		return nil, fherrors.NewSignatureError("failed to hash typed data", err)
	}
	return hash, nil
}
