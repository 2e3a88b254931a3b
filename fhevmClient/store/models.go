// Package store contains GORM-backed SQLite models used by the fhevm client.
//
// Database Structure (database file: fhevm_cache.db):
//
//	databases/
//	└── fhevm_cache.db
//	    ├── public_key_records
//	    ├── public_params_records
//	    └── decryption_signatures
package store

import (
	"time"
)

// PublicKeyRecord caches the encryption public key for one ACL contract address.
// One row per ACL address; the address stands in for the key epoch.
type PublicKeyRecord struct {
	ACLAddress  string `gorm:"primaryKey"` // ACL contract address, as read from the network config
	PublicKeyID string // Identifier reported by the instance
	PublicKey   []byte // Raw key bytes
	UpdatedAt   time.Time
}

// PublicParamsRecord caches the public parameters for one ACL contract address.
type PublicParamsRecord struct {
	ACLAddress     string `gorm:"primaryKey"`
	PublicParamsID string
	PublicParams   []byte
	Size           int // Bit size the params were fetched at (2048)
	UpdatedAt      time.Time
}

// DecryptionSignature holds one serialized decryption signature under its
// derived storage key ("{userAddress}:{hash}").
type DecryptionSignature struct {
	StorageKey string `gorm:"primaryKey"`
	Value      string `gorm:"type:text;not null"` // JSON encoded signature
	UpdatedAt  time.Time
}
