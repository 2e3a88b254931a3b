package config

import (
	"fmt"
	"os"
	"strconv"
)

// Environment variables that override file settings. The daemon loads a
// .env file into the environment before reading them.
const (
	EnvRPCURL          = "SKILLFORGE_RPC_URL"
	EnvChainID         = "SKILLFORGE_CHAIN_ID"
	EnvQueryServerPort = "SKILLFORGE_QUERY_SERVER_PORT"
	EnvRelayerSDKURL   = "SKILLFORGE_RELAYER_SDK_URL"
)

// ApplyEnv overrides cfg with any of the SKILLFORGE_* variables that are set.
func ApplyEnv(cfg *Config) error {
	if v := os.Getenv(EnvRPCURL); v != "" {
		cfg.RPCURL = v
	}
	if v := os.Getenv(EnvRelayerSDKURL); v != "" {
		cfg.RelayerSDKURL = v
	}
	if v := os.Getenv(EnvChainID); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvChainID, err)
		}
		cfg.ChainID = id
	}
	if v := os.Getenv(EnvQueryServerPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 || port > 65535 {
			return fmt.Errorf("%s: invalid port %q", EnvQueryServerPort, v)
		}
		cfg.QueryServerPort = port
	}
	return nil
}
