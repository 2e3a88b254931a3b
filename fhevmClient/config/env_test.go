package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyEnv(t *testing.T) {
	t.Run("overrides set variables only", func(t *testing.T) {
		t.Setenv(EnvRPCURL, "http://node:8545")
		t.Setenv(EnvChainID, "31337")
		t.Setenv(EnvQueryServerPort, "9090")

		cfg := &Config{RPCURL: "http://localhost:8545", RelayerSDKURL: "https://cdn/sdk.js"}
		require.NoError(t, ApplyEnv(cfg))

		assert.Equal(t, "http://node:8545", cfg.RPCURL)
		assert.Equal(t, uint64(31337), cfg.ChainID)
		assert.Equal(t, 9090, cfg.QueryServerPort)
		assert.Equal(t, "https://cdn/sdk.js", cfg.RelayerSDKURL)
	})

	t.Run("bad chain id", func(t *testing.T) {
		t.Setenv(EnvChainID, "sepolia")
		assert.ErrorContains(t, ApplyEnv(&Config{}), EnvChainID)
	})

	t.Run("bad port", func(t *testing.T) {
		t.Setenv(EnvQueryServerPort, "70000")
		assert.ErrorContains(t, ApplyEnv(&Config{}), EnvQueryServerPort)
	})
}
