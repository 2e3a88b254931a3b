package ciphertext

import (
	"context"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/rs/zerolog"

	"github.com/haimbb47/SkillForge/fhevmClient/decryptsig"
	fherrors "github.com/haimbb47/SkillForge/fhevmClient/errors"
	"github.com/haimbb47/SkillForge/fhevmClient/fhevm"
)

// ErrNoSignature is returned when no decryption signature could be loaded or
// signed, e.g. because the user rejected the signing request. It is
// retryable from the caller's point of view.
var ErrNoSignature = fherrors.New("unable to build a decryption signature")

// Decryptor exchanges handles for clear values using the user's decryption
// signature.
type Decryptor struct {
	instances  InstanceProvider
	signatures *decryptsig.Service
	signer     decryptsig.Signer
	logger     zerolog.Logger
}

func NewDecryptor(instances InstanceProvider, signatures *decryptsig.Service, signer decryptsig.Signer, logger zerolog.Logger) *Decryptor {
	return &Decryptor{
		instances:  instances,
		signatures: signatures,
		signer:     signer,
		logger:     logger.With().Str("component", "decryptor").Logger(),
	}
}

// Decrypt returns the clear value behind handle, which belongs to
// contractAddress. handle may be bytes or a hex string.
func (d *Decryptor) Decrypt(ctx context.Context, contractAddress string, handle any) (*uint256.Int, error) {
	h, err := HandleToBytes32(handle)
	if err != nil {
		return nil, err
	}
	values, err := d.DecryptMany(ctx, []fhevm.HandleContractPair{{Handle: h.Hex(), ContractAddress: contractAddress}})
	if err != nil {
		return nil, err
	}
	return values[h.Hex()], nil
}

// DecryptMany decrypts several handles under one signature covering every
// contract involved. The result is keyed by normalized handle hex.
func (d *Decryptor) DecryptMany(ctx context.Context, pairs []fhevm.HandleContractPair) (map[string]*uint256.Int, error) {
	inst := d.instances.Instance()
	if inst == nil {
		return nil, ErrNotReady
	}

	normalized := make([]fhevm.HandleContractPair, 0, len(pairs))
	seen := make(map[string]bool)
	var contracts []string
	for _, p := range pairs {
		if !common.IsHexAddress(p.ContractAddress) {
			return nil, fherrors.NewInvalidAddressError(p.ContractAddress)
		}
		h, err := HandleToBytes32(p.Handle)
		if err != nil {
			return nil, err
		}
		normalized = append(normalized, fhevm.HandleContractPair{Handle: h.Hex(), ContractAddress: p.ContractAddress})
		if !seen[p.ContractAddress] {
			seen[p.ContractAddress] = true
			contracts = append(contracts, p.ContractAddress)
		}
	}
	if len(normalized) == 0 {
		return map[string]*uint256.Int{}, nil
	}
	sort.Strings(contracts)

	sig := d.signatures.LoadOrSign(ctx, inst, contracts, d.signer, nil)
	if sig == nil {
		return nil, ErrNoSignature
	}
	if err := fherrors.AbortIfDone(ctx); err != nil {
		return nil, err
	}

	res, err := inst.UserDecrypt(ctx, fhevm.UserDecryptRequest{
		Handles:           normalized,
		PrivateKey:        sig.PrivateKey(),
		PublicKey:         sig.PublicKey(),
		Signature:         sig.Signature(),
		ContractAddresses: sig.ContractAddresses(),
		UserAddress:       sig.UserAddress(),
		StartTimestamp:    sig.StartTimestamp(),
		DurationDays:      sig.DurationDays(),
	})
	if abortErr := fherrors.AbortIfDone(ctx); abortErr != nil {
		return nil, abortErr
	}
	if err != nil {
		return nil, fherrors.NewRuntimeError("user decryption failed", err)
	}

	out := make(map[string]*uint256.Int, len(normalized))
	for _, p := range normalized {
		v, ok := res[p.Handle]
		if !ok {
			return nil, fherrors.NewRuntimeError("decryption result is missing handle "+p.Handle, nil)
		}
		out[p.Handle] = v
	}

	d.logger.Debug().Int("handles", len(out)).Strs("contracts", contracts).Msg("handles decrypted")
	return out, nil
}
