package config

import (
	"fmt"
	"strconv"
	"time"
)

type Config struct {
	// Log Config
	LogLevel   int    `json:"log_level"`   // e.g., 0 = debug, 1 = info, etc.
	LogFormat  string `json:"log_format"`  // "json" or "console"
	LogSampler bool   `json:"log_sampler"` // if true, samples logs (e.g., 1 in 5)

	// Node Config
	NodeHome string `json:"node_home"` // Home directory (default: ~/.skillforge)

	// Network Config
	RPCURL     string            `json:"rpc_url"`     // JSON-RPC endpoint the session is bound to
	ChainID    uint64            `json:"chain_id"`    // Expected chain id, 0 = whatever the endpoint reports
	MockChains map[string]string `json:"mock_chains"` // Decimal chain id -> RPC URL, merged over the built-in table

	// Provider runtime
	RelayerSDKURL string `json:"relayer_sdk_url"` // Where the encryption provider bundle is fetched from
	Enabled       *bool  `json:"enabled,omitempty"`

	// Storage
	DatabaseFile string `json:"database_file"` // SQLite file under <NodeHome>/databases

	// Query Server Config
	QueryServerPort int `json:"query_server_port"` // Port for HTTP query server (default: 8080)

	// Retry Config
	MaxRetries     int `json:"max_retries"`      // Attempts for the mandatory chain id query (default: 3)
	RetryBackoffMS int `json:"retry_backoff_ms"` // Initial backoff between attempts (default: 250)
}

// GetMockChains parses the string keyed mock chain table.
func (c *Config) GetMockChains() (map[uint64]string, error) {
	chains := make(map[uint64]string, len(c.MockChains))
	for key, url := range c.MockChains {
		chainID, err := strconv.ParseUint(key, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid mock chain id %q: %w", key, err)
		}
		chains[chainID] = url
	}
	return chains, nil
}

// IsEnabled reports whether session construction should start right away.
func (c *Config) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// RetryBackoff returns the initial retry delay.
func (c *Config) RetryBackoff() time.Duration {
	return time.Duration(c.RetryBackoffMS) * time.Millisecond
}
