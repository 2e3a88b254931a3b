package decryptsig

import (
	"context"
	"sync"

	"gorm.io/gorm"

	"github.com/haimbb47/SkillForge/fhevmClient/db"
	fherrors "github.com/haimbb47/SkillForge/fhevmClient/errors"
	"github.com/haimbb47/SkillForge/fhevmClient/store"
)

// Storage is a string key/value store for serialized signatures.
type Storage interface {
	GetItem(ctx context.Context, key string) (string, bool, error)
	SetItem(ctx context.Context, key, value string) error
	RemoveItem(ctx context.Context, key string) error
}

// MemoryStorage keeps signatures for the life of the process.
type MemoryStorage struct {
	mu    sync.RWMutex
	items map[string]string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{items: make(map[string]string)}
}

func (m *MemoryStorage) GetItem(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.items[key]
	return v, ok, nil
}

func (m *MemoryStorage) SetItem(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = value
	return nil
}

func (m *MemoryStorage) RemoveItem(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

// DBStorage keeps signatures in the client database. A nil database makes
// every read a miss and every write a no-op.
type DBStorage struct {
	db *db.DB
}

func NewDBStorage(database *db.DB) *DBStorage {
	return &DBStorage{db: database}
}

func (s *DBStorage) GetItem(ctx context.Context, key string) (string, bool, error) {
	if s.db == nil {
		return "", false, nil
	}
	var row store.DecryptionSignature
	err := s.db.Client().WithContext(ctx).First(&row, "storage_key = ?", key).Error
	if fherrors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fherrors.NewDatabaseError("failed to read decryption signature", err)
	}
	return row.Value, true, nil
}

func (s *DBStorage) SetItem(ctx context.Context, key, value string) error {
	if s.db == nil {
		return nil
	}
	row := &store.DecryptionSignature{StorageKey: key, Value: value}
	if err := s.db.Client().WithContext(ctx).Save(row).Error; err != nil {
		return fherrors.NewDatabaseError("failed to store decryption signature", err)
	}
	return nil
}

func (s *DBStorage) RemoveItem(ctx context.Context, key string) error {
	if s.db == nil {
		return nil
	}
	err := s.db.Client().WithContext(ctx).Where("storage_key = ?", key).Delete(&store.DecryptionSignature{}).Error
	if err != nil {
		return fherrors.NewDatabaseError("failed to remove decryption signature", err)
	}
	return nil
}
