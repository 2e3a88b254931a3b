package testutils

import (
	"crypto/ecdsa"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

// Well-known development accounts (hardhat / anvil accounts #0 and #1).
const (
	devKey0 = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	devKey1 = "59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d"
)

type TestAccounts struct {
	DefaultKey  *ecdsa.PrivateKey
	DefaultAddr string
	OtherKey    *ecdsa.PrivateKey
	OtherAddr   string
}

func SetupTestAccounts(t *testing.T) TestAccounts {
	t.Helper()

	k0, err := crypto.HexToECDSA(devKey0)
	require.NoError(t, err)
	k1, err := crypto.HexToECDSA(devKey1)
	require.NoError(t, err)

	return TestAccounts{
		DefaultKey:  k0,
		DefaultAddr: crypto.PubkeyToAddress(k0.PublicKey).Hex(),
		OtherKey:    k1,
		OtherAddr:   crypto.PubkeyToAddress(k1.PublicKey).Hex(),
	}
}
