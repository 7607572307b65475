// Package catalog implements a local read-side index of every chain a host
// knows about (§C.3): name, chain_uuid, directory, head patch_index, head
// patch_uuid, manifest_uuid, and a last-seen timestamp. It is never
// consulted by the chain validator — a chain remains self-describing from
// its own user-blocks — so a stale or missing catalog can never corrupt
// chain integrity; it exists purely to make `ih5ctl catalog list` and the
// manifest registry's `GET /chains` fast without re-walking the filesystem.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/metador-go/ih5/internal/telemetry"
	"github.com/metador-go/ih5/pkg/config"
)

// Entry is a single row of the catalog: the last-known state of one chain.
type Entry struct {
	Name           string    `gorm:"column:name;primaryKey"`
	Directory      string    `gorm:"column:directory;not null"`
	ChainUUID      string    `gorm:"column:chain_uuid;not null;index"`
	HeadPatchIndex int       `gorm:"column:head_patch_index;not null"`
	HeadPatchUUID  string    `gorm:"column:head_patch_uuid;not null"`
	ManifestUUID   string    `gorm:"column:manifest_uuid"`
	LastSeenAt     time.Time `gorm:"column:last_seen_at;not null"`
	CreatedAt      time.Time `gorm:"column:created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at"`
}

// TableName pins the table name regardless of gorm's pluralization rules,
// matching the name the postgres migration creates.
func (Entry) TableName() string { return "chain_entries" }

// Database backend names accepted by config.CatalogConfig.Type.
const (
	TypeSQLite   = "sqlite"
	TypePostgres = "postgres"
)

// Store is the catalog's persistence layer, backed by gorm over either
// sqlite (default, embedded) or postgres (HA-capable), mirroring the
// teacher's control-plane store's dialector switch.
type Store struct {
	db   *gorm.DB
	kind string
}

// Open connects to the catalog database described by cfg and ensures its
// schema exists. SQLite uses gorm's AutoMigrate (a single-process, single-
// file store has no concurrent-migration race to guard against); postgres
// runs the embedded golang-migrate migrations first, since multiple hosts
// may share one catalog database and golang-migrate's advisory locking
// keeps concurrent `catalog sync` runs from racing on schema changes.
func Open(cfg config.CatalogConfig) (*Store, error) {
	kind := cfg.Type
	if kind == "" {
		kind = TypeSQLite
	}

	var dialector gorm.Dialector
	switch kind {
	case TypeSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.SQLite.Path), 0o755); err != nil {
			return nil, fmt.Errorf("creating catalog directory: %w", err)
		}
		dsn := cfg.SQLite.Path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
		dialector = sqlite.Open(dsn)

	case TypePostgres:
		if err := runPostgresMigrations(cfg.Postgres.DSN); err != nil {
			return nil, fmt.Errorf("running catalog migrations: %w", err)
		}
		dialector = postgres.Open(cfg.Postgres.DSN)

	default:
		return nil, fmt.Errorf("unsupported catalog database type: %s", kind)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to catalog database: %w", err)
	}

	if kind == TypePostgres {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("getting underlying catalog connection: %w", err)
		}
		sqlDB.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
	} else {
		if err := db.AutoMigrate(&Entry{}); err != nil {
			return nil, fmt.Errorf("migrating catalog schema: %w", err)
		}
	}

	return &Store{db: db, kind: kind}, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Upsert inserts or updates the row for entry.Name, keyed on the primary
// key. LastSeenAt is always overwritten with the caller's value.
func (s *Store) Upsert(ctx context.Context, entry Entry) (err error) {
	ctx, span := telemetry.StartCatalogSpan(ctx, "upsert", telemetry.ChainName(entry.Name), telemetry.DBType(s.kind))
	defer func() {
		if err != nil {
			telemetry.RecordError(ctx, err)
		}
		span.End()
	}()

	var existing Entry
	result := s.db.WithContext(ctx).Where("name = ?", entry.Name).First(&existing)
	switch {
	case result.Error == nil:
		return s.db.WithContext(ctx).Model(&existing).Where("name = ?", entry.Name).Updates(entry).Error
	case errors.Is(result.Error, gorm.ErrRecordNotFound):
		return s.db.WithContext(ctx).Create(&entry).Error
	default:
		return result.Error
	}
}

// Get returns the catalog row for name.
func (s *Store) Get(ctx context.Context, name string) (Entry, bool, error) {
	var entry Entry
	result := s.db.WithContext(ctx).Where("name = ?", name).First(&entry)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Entry{}, false, nil
		}
		return Entry{}, false, result.Error
	}
	return entry, true, nil
}

// List returns every catalog row, ordered by name.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	var entries []Entry
	if err := s.db.WithContext(ctx).Order("name").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// Delete removes the catalog row for name, if any. It is not an error to
// delete a name that isn't present.
func (s *Store) Delete(ctx context.Context, name string) error {
	return s.db.WithContext(ctx).Where("name = ?", name).Delete(&Entry{}).Error
}
