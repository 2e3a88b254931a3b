// Package fhevm defines the contract between the session layer and an fhevm
// instance: the instance operations themselves, their value types, and the
// capability set a loaded relayer runtime has to expose.
package fhevm

import (
	"context"

	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/holiman/uint256"

	"github.com/haimbb47/SkillForge/fhevmClient/network"
)

// Instance is a ready-to-use encryption/decryption capability bound to one
// chain. It is never mutated after construction.
type Instance interface {
	// CreateEncryptedInput starts building an encrypted input for a call
	// from userAddress to contractAddress.
	CreateEncryptedInput(contractAddress, userAddress string) EncryptedInput

	// GenerateKeypair returns a fresh decryption key pair.
	GenerateKeypair() (KeyPair, error)

	// CreateEIP712 returns the typed data a user signs to authorize
	// decryption for contractAddresses.
	CreateEIP712(publicKey string, contractAddresses []string, startTimestamp int64, durationDays int) (apitypes.TypedData, error)

	// UserDecrypt decrypts handles using a decryption signature. The
	// result is keyed by handle as a 0x-prefixed hex string.
	UserDecrypt(ctx context.Context, req UserDecryptRequest) (map[string]*uint256.Int, error)

	// GetPublicKey returns the current encryption public key, if any.
	GetPublicKey() *PublicKey

	// GetPublicParams returns the public parameters for the given bit size, if any.
	GetPublicParams(size int) *PublicParams
}

// EncryptedInput accumulates plaintext values and encrypts them together.
type EncryptedInput interface {
	AddBool(v bool) EncryptedInput
	Add8(v uint8) EncryptedInput
	Add16(v uint16) EncryptedInput
	Add32(v uint32) EncryptedInput
	Add64(v uint64) EncryptedInput
	Encrypt(ctx context.Context) (*EncryptedValues, error)
}

// EncryptedValues is the output of EncryptedInput.Encrypt, one handle per
// added value in insertion order.
type EncryptedValues struct {
	Handles    [][]byte
	InputProof []byte
}

// KeyPair is a decryption key pair as hex strings.
type KeyPair struct {
	PublicKey  string `json:"publicKey"`
	PrivateKey string `json:"privateKey"`
}

// PublicKey is the network's encryption public key.
type PublicKey struct {
	ID   string
	Data []byte
}

// PublicParams is a set of public parameters for one bit size.
type PublicParams struct {
	ID   string
	Data []byte
}

// HandleContractPair names a ciphertext handle and the contract that owns it.
type HandleContractPair struct {
	Handle          string
	ContractAddress string
}

// UserDecryptRequest carries everything UserDecrypt needs.
type UserDecryptRequest struct {
	Handles           []HandleContractPair
	PrivateKey        string
	PublicKey         string
	Signature         string
	ContractAddresses []string
	UserAddress       string
	StartTimestamp    int64
	DurationDays      int
}

// NetworkConfig is the runtime's built-in configuration for the production
// network.
type NetworkConfig struct {
	ACLContractAddress                  string
	KMSContractAddress                  string
	InputVerifierContractAddress        string
	VerifyingContractAddressDecryption  string
	VerifyingContractAddressInputVerify string
	ChainID                             uint64
	GatewayChainID                      uint64
	RelayerURL                          string
}

// InstanceConfig is passed to the runtime's instance constructor.
type InstanceConfig struct {
	NetworkConfig
	Network network.Target

	// PublicKey and PublicParams come from the key material cache and are
	// nil on a miss. PublicParams is keyed by bit size.
	PublicKey    *PublicKey
	PublicParams map[int]*PublicParams
}

// InitOptions is passed to the runtime's one-time initializer.
type InitOptions struct {
	// Threads is the worker count hint. Zero lets the runtime decide.
	Threads int
}

// InitSDKFunc performs one-time runtime initialization and reports success.
type InitSDKFunc func(ctx context.Context, opts *InitOptions) (bool, error)

// CreateInstanceFunc builds a production instance.
type CreateInstanceFunc func(ctx context.Context, cfg InstanceConfig) (Instance, error)

// Capability is the validated surface of a loaded relayer runtime.
type Capability struct {
	InitSDK        InitSDKFunc
	CreateInstance CreateInstanceFunc
	NetworkConfig  NetworkConfig

	// Initialized is nil when the runtime does not track it.
	Initialized *bool
}

// IsInitialized reports whether the runtime has completed InitSDK.
func (c *Capability) IsInitialized() bool {
	return c != nil && c.Initialized != nil && *c.Initialized
}
