package decryptsig

import (
	"context"
	"crypto/ecdsa"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	fherrors "github.com/haimbb47/SkillForge/fhevmClient/errors"
)

// Signer produces EIP-712 signatures for an account, e.g. a wallet.
type Signer interface {
	Address(ctx context.Context) (string, error)
	SignTypedData(ctx context.Context, td apitypes.TypedData) (string, error)
}

// KeySigner signs with a local secp256k1 key.
type KeySigner struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

var _ Signer = (*KeySigner)(nil)

func NewKeySigner(key *ecdsa.PrivateKey) *KeySigner {
	return &KeySigner{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
	}
}

func (s *KeySigner) Address(context.Context) (string, error) {
	return s.address.Hex(), nil
}

// SignTypedData returns a 65-byte [R || S || V] signature with V in {27, 28}.
func (s *KeySigner) SignTypedData(ctx context.Context, td apitypes.TypedData) (string, error) {
	if err := fherrors.AbortIfDone(ctx); err != nil {
		return "", err
	}
	hash, _, err := apitypes.TypedDataAndHash(td)
	if err != nil {
		return "", fherrors.NewSignatureError("failed to hash typed data", err)
	}
	sig, err := crypto.Sign(hash, s.key)
	if err != nil {
		return "", fherrors.NewSignatureError("failed to sign typed data", err)
	}
	sig[crypto.RecoveryIDOffset] += 27
	return hexutil.Encode(sig), nil
}

// RecoverSigner returns the address that produced signature over td.
func RecoverSigner(td apitypes.TypedData, signature string) (common.Address, error) {
	sig, err := hexutil.Decode(signature)
	if err != nil {
		return common.Address{}, fherrors.NewSignatureError("signature is not hex", err)
	}
	if len(sig) != crypto.SignatureLength {
		return common.Address{}, fherrors.NewSignatureError("signature has wrong length", nil)
	}
	hash, _, err := apitypes.TypedDataAndHash(td)
	if err != nil {
		return common.Address{}, fherrors.NewSignatureError("failed to hash typed data", err)
	}
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}
	pub, err := crypto.SigToPub(hash, sig)
	if err != nil {
		return common.Address{}, fherrors.NewSignatureError("failed to recover signer", err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}
