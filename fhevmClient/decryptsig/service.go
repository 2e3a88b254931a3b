package decryptsig

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/haimbb47/SkillForge/fhevmClient/constant"
	"github.com/haimbb47/SkillForge/fhevmClient/fhevm"
)

// Observer is notified of signature cache lookups and signing outcomes.
type Observer interface {
	SignatureLookup(hit bool)
	SignatureCreated(ok bool)
}

// Service creates, caches and reloads decryption signatures. Signing and
// loading failures are logged and reported as nil so callers can treat "no
// signature" uniformly.
type Service struct {
	storage  Storage
	logger   zerolog.Logger
	observer Observer
}

func NewService(storage Storage, logger zerolog.Logger) *Service {
	return &Service{
		storage: storage,
		logger:  logger.With().Str("component", "decryption_signature").Logger(),
	}
}

// WithObserver sets the observer and returns s.
func (s *Service) WithObserver(o Observer) *Service {
	s.observer = o
	return s
}

// Create signs a new decryption signature valid from now for
// DecryptionSignatureDurationDays. It returns nil if anything fails,
// including the signer refusing.
func (s *Service) Create(ctx context.Context, inst fhevm.Instance, contractAddresses []string, publicKey, privateKey string, signer Signer) *Signature {
	sig, err := s.create(ctx, inst, contractAddresses, publicKey, privateKey, signer)
	if s.observer != nil {
		s.observer.SignatureCreated(err == nil)
	}
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to create decryption signature")
		return nil
	}
	return sig
}

func (s *Service) create(ctx context.Context, inst fhevm.Instance, contractAddresses []string, publicKey, privateKey string, signer Signer) (*Signature, error) {
	userAddress, err := signer.Address(ctx)
	if err != nil {
		return nil, err
	}

	start := timeNow().Unix()
	days := constant.DecryptionSignatureDurationDays

	td, err := inst.CreateEIP712(publicKey, contractAddresses, start, days)
	if err != nil {
		return nil, err
	}
	req, err := VerificationRequest(td)
	if err != nil {
		return nil, err
	}
	signature, err := signer.SignTypedData(ctx, req)
	if err != nil {
		return nil, err
	}

	return &Signature{
		publicKey:         publicKey,
		privateKey:        privateKey,
		signature:         signature,
		startTimestamp:    start,
		durationDays:      days,
		userAddress:       userAddress,
		contractAddresses: append([]string(nil), contractAddresses...),
		eip712:            td,
	}, nil
}

// Load returns the cached signature for the contract set and user, or nil
// when it is missing, malformed or expired.
func (s *Service) Load(ctx context.Context, inst fhevm.Instance, contractAddresses []string, userAddress, publicKey string) *Signature {
	sig := s.load(ctx, inst, contractAddresses, userAddress, publicKey)
	if s.observer != nil {
		s.observer.SignatureLookup(sig != nil)
	}
	return sig
}

func (s *Service) load(ctx context.Context, inst fhevm.Instance, contractAddresses []string, userAddress, publicKey string) *Signature {
	key, err := DeriveStorageKey(inst, contractAddresses, userAddress, publicKey)
	if err != nil {
		s.logger.Debug().Err(err).Msg("cannot derive signature storage key")
		return nil
	}

	value, ok, err := s.storage.GetItem(ctx, key)
	if err != nil {
		s.logger.Warn().Err(err).Str("storage_key", key).Msg("failed to read decryption signature")
		return nil
	}
	if !ok {
		return nil
	}

	sig, err := FromJSON(value)
	if err != nil {
		s.logger.Warn().Err(err).Str("storage_key", key).Msg("ignoring malformed decryption signature")
		return nil
	}
	if !sig.IsValid() {
		s.logger.Debug().Str("storage_key", key).Time("expired_at", sig.ExpiresAt()).Msg("cached decryption signature expired")
		return nil
	}
	return sig
}

// Save stores sig under its derived key. withPublicKey selects whether the
// key includes the signature's public key or the placeholder.
func (s *Service) Save(ctx context.Context, inst fhevm.Instance, sig *Signature, withPublicKey bool) error {
	publicKey := ""
	if withPublicKey {
		publicKey = sig.publicKey
	}
	key, err := DeriveStorageKey(inst, sig.contractAddresses, sig.userAddress, publicKey)
	if err != nil {
		return err
	}
	value, err := json.Marshal(sig)
	if err != nil {
		return err
	}
	return s.storage.SetItem(ctx, key, string(value))
}

// LoadOrSign returns a valid cached signature for the signer's address, or
// signs, stores and returns a new one. keyPair is used for signing when
// given; otherwise a fresh pair is generated. A failed save still returns
// the new signature.
func (s *Service) LoadOrSign(ctx context.Context, inst fhevm.Instance, contractAddresses []string, signer Signer, keyPair *fhevm.KeyPair) *Signature {
	userAddress, err := signer.Address(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("signer has no address")
		return nil
	}

	var requestedPublicKey string
	if keyPair != nil {
		requestedPublicKey = keyPair.PublicKey
	}

	if cached := s.Load(ctx, inst, contractAddresses, userAddress, requestedPublicKey); cached != nil {
		return cached
	}

	var kp fhevm.KeyPair
	if keyPair != nil {
		kp = *keyPair
	} else {
		kp, err = inst.GenerateKeypair()
		if err != nil {
			s.logger.Warn().Err(err).Msg("failed to generate decryption key pair")
			return nil
		}
	}

	sig := s.Create(ctx, inst, contractAddresses, kp.PublicKey, kp.PrivateKey, signer)
	if sig == nil {
		return nil
	}

	if err := s.Save(ctx, inst, sig, requestedPublicKey != ""); err != nil {
		s.logger.Warn().Err(err).Str("user_address", userAddress).Msg("failed to save decryption signature")
	}
	return sig
}
