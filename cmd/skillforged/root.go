package main

import (
	"errors"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/haimbb47/SkillForge/fhevmClient/config"
	"github.com/haimbb47/SkillForge/fhevmClient/constant"
)

const flagHome = "home"

func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "skillforged",
		Short:         "SkillForge confidential credential daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String(flagHome, envOr("SKILLFORGE_HOME", constant.DefaultNodeHome), "node home directory")

	InitRootCmd(rootCmd)

	return rootCmd
}

// loadConfig reads <home>/config/skillforge_config.json, falling back to the
// embedded defaults when the file does not exist yet.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	home, err := cmd.Flags().GetString(flagHome)
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(home)
	switch {
	case err == nil:
	case errors.Is(err, fs.ErrNotExist):
		defaults, derr := config.LoadDefaultConfig()
		if derr != nil {
			return nil, derr
		}
		cfg = *defaults
	default:
		return nil, err
	}

	if cfg.NodeHome == "" {
		cfg.NodeHome = home
	}
	if err := config.ApplyEnv(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
