package gormstorage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	persistexpire "github.com/karupanerura/persist-expire"
	"github.com/karupanerura/persist-expire/storage"
)

// DefaultTableName is the default name of the table holding the persisted states.
const DefaultTableName = "persisted_states"

// Item is a row of a persisted state.
type Item struct {
	StorageKey string `gorm:"column:storage_key;primaryKey"`
	Value      []byte `gorm:"column:value;not null"`
	UpdatedAt  time.Time
}

// Storage is a persistexpire.Storage backed by a GORM database.
type Storage struct {
	db    *gorm.DB
	table string
}

var _ persistexpire.Storage = (*Storage)(nil)

// Option is the interface for the options of the storage.
type Option interface {
	apply(*Storage)
}

type optionFunc func(*Storage)

func (f optionFunc) apply(s *Storage) {
	f(s)
}

// WithTableName sets the table name.
func WithTableName(name string) Option {
	return optionFunc(func(s *Storage) {
		s.table = name
	})
}

// New creates a new storage with the database and migrates the table.
func New(db *gorm.DB, opts ...Option) (*Storage, error) {
	s := &Storage{
		db:    db,
		table: DefaultTableName,
	}
	for _, opt := range opts {
		opt.apply(s)
	}

	if err := s.db.Table(s.table).AutoMigrate(&Item{}); err != nil {
		return nil, fmt.Errorf("migrate %s: %w", s.table, err)
	}
	return s, nil
}

// Open opens a SQLite database with the DSN and creates a new storage with it.
// An in-memory DSN is limited to a single connection so that every query sees the same database.
func Open(dsn string, opts ...Option) (*Storage, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dsn, err)
	}

	if dsn == ":memory:" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return New(db, opts...)
}

// Close closes the underlying database connection.
func (s *Storage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// GetItem retrieves the value stored with the key.
func (s *Storage) GetItem(ctx context.Context, key string) ([]byte, error) {
	var item Item
	err := s.db.WithContext(ctx).Table(s.table).Where("storage_key = ?", key).Take(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrGet, err)
	}
	if item.Value == nil {
		return []byte{}, nil
	}
	return item.Value, nil
}

// SetItem stores the value with the key, overwriting the existing one.
func (s *Storage) SetItem(ctx context.Context, key string, value []byte) error {
	item := &Item{
		StorageKey: key,
		Value:      bytes.Clone(value),
		UpdatedAt:  time.Now(),
	}
	if item.Value == nil {
		item.Value = []byte{}
	}

	err := s.db.WithContext(ctx).Table(s.table).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "storage_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(item).Error
	if err != nil {
		return fmt.Errorf("%w: %w", storage.ErrSet, err)
	}
	return nil
}

// RemoveItem removes the value stored with the key.
func (s *Storage) RemoveItem(ctx context.Context, key string) error {
	err := s.db.WithContext(ctx).Table(s.table).Where("storage_key = ?", key).Delete(&Item{}).Error
	if err != nil {
		return fmt.Errorf("%w: %w", storage.ErrRemove, err)
	}
	return nil
}
