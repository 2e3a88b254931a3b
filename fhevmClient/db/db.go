// Package db opens the SQLite database the fhevm client keeps across
// restarts: cached public key material and serialized decryption signatures.
package db

import (
	"context"
	"net/url"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/haimbb47/SkillForge/fhevmClient/store"
)

const (
	// InMemorySQLiteDSN opens a database that disappears with its connection.
	InMemorySQLiteDSN = ":memory:"

	dirPermissions = 0o750
)

// Models is the schema migrated when a database is opened with migration on.
var Models = []any{
	&store.PublicKeyRecord{},
	&store.PublicParamsRecord{},
	&store.DecryptionSignature{},
}

// DB owns one GORM client.
type DB struct {
	client *gorm.DB
	path   string
}

// OpenFileDB opens dir/filename, creating the directory if needed.
func OpenFileDB(dir, filename string, migrateSchema bool) (*DB, error) {
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return nil, errors.Wrapf(err, "failed to create database directory %s", dir)
	}

	path := filepath.Join(dir, filename)
	d, err := open(fileDSN(path), migrateSchema)
	if err != nil {
		return nil, errors.Wrapf(err, "database %s", path)
	}
	d.path = path
	return d, nil
}

// OpenInMemoryDB opens a private in-memory database, mostly for tests.
func OpenInMemoryDB(migrateSchema bool) (*DB, error) {
	return open(InMemorySQLiteDSN, migrateSchema)
}

// fileDSN turns on WAL and a busy timeout so that the CLI can read the cache
// while a daemon holds the same file.
func fileDSN(path string) string {
	q := url.Values{}
	q.Set("_journal_mode", "WAL")
	q.Set("_busy_timeout", "5000")
	return path + "?" + q.Encode()
}

func open(dsn string, migrateSchema bool) (*DB, error) {
	client, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to open SQLite database")
	}

	sqlDB, err := client.DB()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get underlying sql.DB")
	}
	// An in-memory database lives exactly as long as its only connection.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)

	d := &DB{client: client}
	if migrateSchema {
		if err := d.Migrate(); err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
	}
	return d, nil
}

// Migrate creates or updates the tables for Models.
func (d *DB) Migrate() error {
	return errors.Wrap(d.client.AutoMigrate(Models...), "failed to migrate schema")
}

// Client returns the GORM client for queries.
func (d *DB) Client() *gorm.DB {
	return d.client
}

// Path is the database file, or "" for an in-memory database.
func (d *DB) Path() string {
	return d.path
}

// Ping checks that the database still answers.
func (d *DB) Ping(ctx context.Context) error {
	sqlDB, err := d.client.DB()
	if err != nil {
		return errors.Wrap(err, "failed to get underlying sql.DB")
	}
	return errors.Wrap(sqlDB.PingContext(ctx), "database did not answer")
}

func (d *DB) Close() error {
	sqlDB, err := d.client.DB()
	if err != nil {
		return errors.Wrap(err, "failed to get underlying sql.DB")
	}
	return errors.Wrap(sqlDB.Close(), "failed to close database")
}
