// Package keycache keeps the network public key and public parameters per
// ACL contract address so instance construction can skip refetching them.
package keycache

import (
	"context"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/haimbb47/SkillForge/fhevmClient/constant"
	"github.com/haimbb47/SkillForge/fhevmClient/db"
	fherrors "github.com/haimbb47/SkillForge/fhevmClient/errors"
	"github.com/haimbb47/SkillForge/fhevmClient/fhevm"
	"github.com/haimbb47/SkillForge/fhevmClient/store"
)

// Material is what the cache holds for one ACL address. Either field may be
// nil. PublicParams is keyed by bit size.
type Material struct {
	PublicKey    *fhevm.PublicKey
	PublicParams map[int]*fhevm.PublicParams
}

// Observer is notified of cache lookups. It may be nil.
type Observer interface {
	KeyMaterialLookup(kind string, hit bool)
}

// Cache is a durable key material cache. A Cache without a database is
// unavailable: Get returns empty material and Set does nothing.
type Cache struct {
	db       *db.DB
	logger   zerolog.Logger
	observer Observer
}

// New creates a cache over database. database may be nil.
func New(database *db.DB, logger zerolog.Logger) *Cache {
	return &Cache{
		db:     database,
		logger: logger.With().Str("component", "keycache").Logger(),
	}
}

// WithObserver sets the lookup observer and returns c.
func (c *Cache) WithObserver(o Observer) *Cache {
	c.observer = o
	return c
}

// Available reports whether a durable store backs the cache.
func (c *Cache) Available() bool {
	return c != nil && c.db != nil
}

func (c *Cache) observe(kind string, hit bool) {
	if c.observer != nil {
		c.observer.KeyMaterialLookup(kind, hit)
	}
}

// Get returns the cached material for aclAddress. Read failures and
// malformed rows are logged and reported as misses.
func (c *Cache) Get(ctx context.Context, aclAddress string) Material {
	var m Material
	if !c.Available() {
		return m
	}
	client := c.db.Client().WithContext(ctx)

	var pk store.PublicKeyRecord
	if ok := c.load(client, &pk, aclAddress, "public key"); ok {
		if err := validatePublicKeyRecord(&pk); err != nil {
			c.logger.Warn().Err(err).Str("acl_address", aclAddress).Msg("ignoring malformed public key record")
		} else {
			m.PublicKey = &fhevm.PublicKey{ID: pk.PublicKeyID, Data: pk.PublicKey}
		}
	}
	c.observe("public_key", m.PublicKey != nil)

	var pp store.PublicParamsRecord
	if ok := c.load(client, &pp, aclAddress, "public params"); ok {
		if err := validatePublicParamsRecord(&pp); err != nil {
			c.logger.Warn().Err(err).Str("acl_address", aclAddress).Msg("ignoring malformed public params record")
		} else {
			m.PublicParams = map[int]*fhevm.PublicParams{
				pp.Size: {ID: pp.PublicParamsID, Data: pp.PublicParams},
			}
		}
	}
	c.observe("public_params", m.PublicParams != nil)

	return m
}

func (c *Cache) load(client *gorm.DB, dest any, aclAddress, what string) bool {
	err := client.First(dest, "acl_address = ?", aclAddress).Error
	if err == nil {
		return true
	}
	if !fherrors.Is(err, gorm.ErrRecordNotFound) {
		c.logger.Warn().Err(err).Str("acl_address", aclAddress).Msgf("failed to read cached %s", what)
	}
	return false
}

// Set stores whichever of publicKey and publicParams is non-nil.
func (c *Cache) Set(ctx context.Context, aclAddress string, publicKey *fhevm.PublicKey, publicParams *fhevm.PublicParams) error {
	if !c.Available() {
		return nil
	}
	if aclAddress == "" {
		return fherrors.NewValidationError("acl address is required")
	}
	if publicKey != nil && (publicKey.ID == "" || len(publicKey.Data) == 0) {
		return fherrors.NewValidationError("public key must carry an id and data")
	}
	if publicParams != nil && (publicParams.ID == "" || len(publicParams.Data) == 0) {
		return fherrors.NewValidationError("public params must carry an id and data")
	}

	client := c.db.Client().WithContext(ctx)

	if publicKey != nil {
		rec := &store.PublicKeyRecord{
			ACLAddress:  aclAddress,
			PublicKeyID: publicKey.ID,
			PublicKey:   publicKey.Data,
		}
		if err := client.Save(rec).Error; err != nil {
			return fherrors.NewDatabaseError("failed to store public key", err).WithContext("acl_address", aclAddress)
		}
	}

	if publicParams != nil {
		rec := &store.PublicParamsRecord{
			ACLAddress:     aclAddress,
			PublicParamsID: publicParams.ID,
			PublicParams:   publicParams.Data,
			Size:           constant.PublicParamsSize,
		}
		if err := client.Save(rec).Error; err != nil {
			return fherrors.NewDatabaseError("failed to store public params", err).WithContext("acl_address", aclAddress)
		}
	}

	c.logger.Debug().
		Str("acl_address", aclAddress).
		Bool("public_key", publicKey != nil).
		Bool("public_params", publicParams != nil).
		Msg("key material cached")
	return nil
}

// Clear drops everything cached for aclAddress.
func (c *Cache) Clear(ctx context.Context, aclAddress string) error {
	if !c.Available() {
		return nil
	}
	client := c.db.Client().WithContext(ctx)
	if err := client.Where("acl_address = ?", aclAddress).Delete(&store.PublicKeyRecord{}).Error; err != nil {
		return fherrors.NewDatabaseError("failed to clear public key", err)
	}
	if err := client.Where("acl_address = ?", aclAddress).Delete(&store.PublicParamsRecord{}).Error; err != nil {
		return fherrors.NewDatabaseError("failed to clear public params", err)
	}
	c.logger.Info().Str("acl_address", aclAddress).Msg("key material cleared")
	return nil
}

func validatePublicKeyRecord(r *store.PublicKeyRecord) error {
	if r.PublicKeyID == "" {
		return fherrors.NewMalformedCacheRecordError("public key record has no id")
	}
	if len(r.PublicKey) == 0 {
		return fherrors.NewMalformedCacheRecordError("public key record has no data")
	}
	return nil
}

func validatePublicParamsRecord(r *store.PublicParamsRecord) error {
	if r.PublicParamsID == "" {
		return fherrors.NewMalformedCacheRecordError("public params record has no id")
	}
	if len(r.PublicParams) == 0 {
		return fherrors.NewMalformedCacheRecordError("public params record has no data")
	}
	if r.Size <= 0 {
		return fherrors.NewMalformedCacheRecordError("public params record has no size")
	}
	return nil
}
