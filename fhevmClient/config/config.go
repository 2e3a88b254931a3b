package config

import (
	_ "embed"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/haimbb47/SkillForge/fhevmClient/constant"
	fherrors "github.com/haimbb47/SkillForge/fhevmClient/errors"
)

//go:embed default_config.json
var defaultConfigJSON []byte

const (
	defaultQueryServerPort = 8080
	defaultMaxRetries      = 3
	defaultRetryBackoffMS  = 250
)

// validateConfig rejects settings the daemon cannot run with and fills the
// zero-valued ones with defaults.
func validateConfig(cfg *Config) error {
	switch {
	case cfg.LogLevel < 0 || cfg.LogLevel > 5:
		return fherrors.NewConfigError("log level must be between 0 and 5", nil)
	case cfg.LogFormat != "json" && cfg.LogFormat != "console":
		return fherrors.NewConfigError("log format must be 'json' or 'console'", nil)
	case cfg.MaxRetries < 0 || cfg.RetryBackoffMS < 0:
		return fherrors.NewConfigError("retry settings must not be negative", nil)
	}
	if _, err := cfg.GetMockChains(); err != nil {
		return fherrors.NewConfigError("mock_chains", err)
	}

	setDefault(&cfg.RelayerSDKURL, constant.SDKCDNURL)
	setDefault(&cfg.DatabaseFile, constant.DatabaseFileName)
	setDefault(&cfg.QueryServerPort, defaultQueryServerPort)
	setDefault(&cfg.MaxRetries, defaultMaxRetries)
	setDefault(&cfg.RetryBackoffMS, defaultRetryBackoffMS)
	return nil
}

func setDefault[T comparable](field *T, value T) {
	var zero T
	if *field == zero {
		*field = value
	}
}

// Path returns <basePath>/config/skillforge_config.json.
func Path(basePath string) string {
	return filepath.Join(basePath, constant.ConfigSubdir, constant.ConfigFileName)
}

// Save validates cfg and writes it to Path(basePath).
func Save(cfg *Config, basePath string) error {
	if err := validateConfig(cfg); err != nil {
		return fherrors.NewConfigError("invalid config", err)
	}

	file := Path(basePath)
	if err := os.MkdirAll(filepath.Dir(file), 0o750); err != nil {
		return fherrors.NewConfigError("failed to create config directory", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fherrors.NewConfigError("failed to marshal config", err)
	}
	if err := os.WriteFile(file, data, 0o600); err != nil {
		return fherrors.NewConfigError("failed to write config file", err)
	}
	return nil
}

// Load reads Path(basePath) and fills missing fields with defaults. A missing
// file wraps fs.ErrNotExist.
func Load(basePath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(Path(basePath)))
	if err != nil {
		return Config{}, fherrors.NewConfigError("failed to read config file", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fherrors.NewConfigError("failed to unmarshal config", err)
	}
	if err := validateConfig(&cfg); err != nil {
		return Config{}, fherrors.NewConfigError("invalid config", err)
	}
	return cfg, nil
}

// LoadDefaultConfig returns the embedded default configuration.
func LoadDefaultConfig() (*Config, error) {
	var cfg Config
	if err := json.Unmarshal(defaultConfigJSON, &cfg); err != nil {
		return nil, fherrors.NewConfigError("failed to unmarshal default config", err)
	}
	if err := validateConfig(&cfg); err != nil {
		return nil, fherrors.NewConfigError("invalid default config", err)
	}
	return &cfg, nil
}

// DatabaseDir returns <NodeHome>/databases.
func DatabaseDir(cfg *Config) string {
	home := cfg.NodeHome
	if home == "" {
		home = constant.DefaultNodeHome
	}
	return filepath.Join(home, constant.DatabasesSubdir)
}
