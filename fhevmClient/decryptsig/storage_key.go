package decryptsig

import (
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	fherrors "github.com/haimbb47/SkillForge/fhevmClient/errors"
	"github.com/haimbb47/SkillForge/fhevmClient/fhevm"
)

// placeholderPublicKey stands in for the public key when none is given, so
// the key depends only on the user and the contract set.
var placeholderPublicKey = common.Address{}.Hex()

// DeriveStorageKey returns "{userAddress}:{hash}" where hash is the EIP-712
// digest of a verification request for the sorted contract set with zero
// timestamps. The argument order of contractAddresses does not matter.
func DeriveStorageKey(inst fhevm.Instance, contractAddresses []string, userAddress, publicKey string) (string, error) {
	if !common.IsHexAddress(userAddress) {
		return "", fherrors.NewInvalidAddressError(userAddress)
	}

	sorted := append([]string(nil), contractAddresses...)
	sort.Strings(sorted)

	if publicKey == "" {
		publicKey = placeholderPublicKey
	}

	td, err := inst.CreateEIP712(publicKey, sorted, 0, 0)
	if err != nil {
		return "", fherrors.NewSignatureError("failed to build typed data for storage key", err)
	}
	hash, err := HashVerificationRequest(td)
	if err != nil {
		return "", err
	}
	return userAddress + ":" + hexutil.Encode(hash), nil
}
