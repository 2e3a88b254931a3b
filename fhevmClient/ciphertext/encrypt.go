package ciphertext

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	fherrors "github.com/haimbb47/SkillForge/fhevmClient/errors"
	"github.com/haimbb47/SkillForge/fhevmClient/fhevm"
)

// ErrNotReady is returned when no fhevm instance is available yet.
var ErrNotReady = fherrors.New("fhevm instance is not ready")

// InstanceProvider returns the current instance, or nil when none is ready.
type InstanceProvider interface {
	Instance() fhevm.Instance
}

// EncryptedInput is a single encrypted value ready to be passed to a
// contract together with its proof.
type EncryptedInput struct {
	Handle     Handle
	InputProof []byte
}

// Encryptor encrypts single values for a contract call.
type Encryptor struct {
	instances InstanceProvider
	logger    zerolog.Logger
}

func NewEncryptor(instances InstanceProvider, logger zerolog.Logger) *Encryptor {
	return &Encryptor{
		instances: instances,
		logger:    logger.With().Str("component", "encryptor").Logger(),
	}
}

func (e *Encryptor) EncryptUint32(ctx context.Context, contractAddress, userAddress string, v uint32) (*EncryptedInput, error) {
	return e.encrypt(ctx, contractAddress, userAddress, func(in fhevm.EncryptedInput) { in.Add32(v) })
}

func (e *Encryptor) EncryptUint64(ctx context.Context, contractAddress, userAddress string, v uint64) (*EncryptedInput, error) {
	return e.encrypt(ctx, contractAddress, userAddress, func(in fhevm.EncryptedInput) { in.Add64(v) })
}

func (e *Encryptor) EncryptBool(ctx context.Context, contractAddress, userAddress string, v bool) (*EncryptedInput, error) {
	return e.encrypt(ctx, contractAddress, userAddress, func(in fhevm.EncryptedInput) { in.AddBool(v) })
}

func (e *Encryptor) encrypt(ctx context.Context, contractAddress, userAddress string, add func(fhevm.EncryptedInput)) (*EncryptedInput, error) {
	inst := e.instances.Instance()
	if inst == nil {
		return nil, ErrNotReady
	}
	if !common.IsHexAddress(contractAddress) {
		return nil, fherrors.NewInvalidAddressError(contractAddress)
	}
	if !common.IsHexAddress(userAddress) {
		return nil, fherrors.NewInvalidAddressError(userAddress)
	}

	input := inst.CreateEncryptedInput(contractAddress, userAddress)
	add(input)

	enc, err := input.Encrypt(ctx)
	if abortErr := fherrors.AbortIfDone(ctx); abortErr != nil {
		return nil, abortErr
	}
	if err != nil {
		return nil, fherrors.NewRuntimeError("failed to encrypt input", err)
	}
	if len(enc.Handles) == 0 {
		return nil, fherrors.NewRuntimeError("encryption returned no handles", nil)
	}

	handle, err := HandleToBytes32(enc.Handles[0])
	if err != nil {
		return nil, err
	}

	e.logger.Debug().
		Str("contract", contractAddress).
		Str("handle", handle.Hex()).
		Msg("input encrypted")

	return &EncryptedInput{Handle: handle, InputProof: enc.InputProof}, nil
}
