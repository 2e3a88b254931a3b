package main

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/haimbb47/SkillForge/fhevmClient/config"
	"github.com/haimbb47/SkillForge/fhevmClient/db"
	fherrors "github.com/haimbb47/SkillForge/fhevmClient/errors"
	"github.com/haimbb47/SkillForge/fhevmClient/keycache"
)

const flagACL = "acl"

// CacheEntryOutput summarizes the key material cached for one ACL address.
type CacheEntryOutput struct {
	ACLAddress        string `json:"acl_address"`
	PublicKeyID       string `json:"public_key_id,omitempty"`
	PublicKeyBytes    int    `json:"public_key_bytes,omitempty"`
	PublicParamsID    string `json:"public_params_id,omitempty"`
	PublicParamsBytes int    `json:"public_params_bytes,omitempty"`
}

func cacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear cached key material",
	}

	cmd.AddCommand(cacheGetCmd(), cacheClearCmd())
	return cmd
}

func cacheGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Show the cached public key and params for an ACL address",
		RunE: func(cmd *cobra.Command, args []string) error {
			acl, _ := cmd.Flags().GetString(flagACL)
			cache, closeDB, err := openCache(cmd, acl)
			if err != nil {
				return err
			}
			defer closeDB()

			material := cache.Get(cmd.Context(), acl)
			out := CacheEntryOutput{ACLAddress: acl}
			if material.PublicKey != nil {
				out.PublicKeyID = material.PublicKey.ID
				out.PublicKeyBytes = len(material.PublicKey.Data)
			}
			for _, pp := range material.PublicParams {
				out.PublicParamsID = pp.ID
				out.PublicParamsBytes = len(pp.Data)
			}
			return writeJSON(cmd, out)
		},
	}
	cmd.Flags().String(flagACL, "", "ACL contract address")
	_ = cmd.MarkFlagRequired(flagACL)
	return cmd
}

func cacheClearCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Drop cached key material for an ACL address",
		RunE: func(cmd *cobra.Command, args []string) error {
			acl, _ := cmd.Flags().GetString(flagACL)
			cache, closeDB, err := openCache(cmd, acl)
			if err != nil {
				return err
			}
			defer closeDB()

			if err := cache.Clear(cmd.Context(), acl); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cleared key material for %s\n", acl)
			return nil
		},
	}
	cmd.Flags().String(flagACL, "", "ACL contract address")
	_ = cmd.MarkFlagRequired(flagACL)
	return cmd
}

func openCache(cmd *cobra.Command, acl string) (*keycache.Cache, func(), error) {
	if !common.IsHexAddress(acl) {
		return nil, nil, fherrors.NewInvalidAddressError(acl)
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	database, err := db.OpenFileDB(config.DatabaseDir(cfg), cfg.DatabaseFile, true)
	if err != nil {
		return nil, nil, err
	}
	closeDB := func() { _ = database.Close() }
	return keycache.New(database, zerolog.Nop()), closeDB, nil
}
