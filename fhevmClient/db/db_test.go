package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haimbb47/SkillForge/fhevmClient/store"
)

func TestOpenInMemoryDB(t *testing.T) {
	d, err := OpenInMemoryDB(true)
	require.NoError(t, err)
	defer d.Close()

	assert.Empty(t, d.Path())
	require.NoError(t, d.Ping(context.Background()))

	for _, m := range Models {
		assert.True(t, d.Client().Migrator().HasTable(m), "%T", m)
	}
	insertAndReadKey(t, d)
}

func TestOpenInMemoryDB_WithoutMigration(t *testing.T) {
	d, err := OpenInMemoryDB(false)
	require.NoError(t, err)
	defer d.Close()

	assert.False(t, d.Client().Migrator().HasTable(&store.PublicKeyRecord{}))
	require.NoError(t, d.Migrate())
	assert.True(t, d.Client().Migrator().HasTable(&store.PublicKeyRecord{}))
}

func TestOpenFileDB(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "databases")

	d, err := OpenFileDB(dir, "cache.db", true)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "cache.db"), d.Path())
	assert.FileExists(t, d.Path())

	insertAndReadKey(t, d)
	require.NoError(t, d.Client().Create(&store.DecryptionSignature{StorageKey: "k", Value: "{}"}).Error)
	require.NoError(t, d.Close())

	reopened, err := OpenFileDB(dir, "cache.db", true)
	require.NoError(t, err)
	defer reopened.Close()

	var row store.DecryptionSignature
	require.NoError(t, reopened.Client().First(&row, "storage_key = ?", "k").Error)
	assert.Equal(t, "{}", row.Value)
}

func TestFileDSN(t *testing.T) {
	assert.Equal(t, "/tmp/x.db?_busy_timeout=5000&_journal_mode=WAL", fileDSN("/tmp/x.db"))
}

func insertAndReadKey(t *testing.T, d *DB) {
	t.Helper()
	entry := store.PublicKeyRecord{
		ACLAddress:  "0x687820221192C5B662b25367F70076A37bc79b6c",
		PublicKeyID: "pk-1",
		PublicKey:   []byte{1, 2, 3},
	}
	require.NoError(t, d.Client().Create(&entry).Error)

	var got store.PublicKeyRecord
	require.NoError(t, d.Client().First(&got, "acl_address = ?", entry.ACLAddress).Error)
	assert.Equal(t, "pk-1", got.PublicKeyID)
	assert.Equal(t, []byte{1, 2, 3}, got.PublicKey)
}
