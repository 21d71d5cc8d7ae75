package kvstore

import (
	"errors"
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Store is the key-value configuration store the tracker persists into.
// Values are opaque strings; absence is reported rather than treated as an
// error.
type Store interface {
	Get(group, key string) (string, bool, error)
	Set(group, key, value string) error
	Unset(group, key string) error
}

// Entry is one persisted configuration value.
type Entry struct {
	Group string `gorm:"primaryKey;size:64"`
	Key   string `gorm:"primaryKey;size:128"`
	Value string
}

// SQLiteStore persists entries to a sqlite database through gorm.
type SQLiteStore struct {
	db *gorm.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens the database at dsn and migrates the schema.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open config store: %w", err)
	}
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("failed to migrate config store: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Get(group, key string) (string, bool, error) {
	var entry Entry
	err := s.db.First(&entry, "\"group\" = ? AND \"key\" = ?", group, key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s/%s: %w", group, key, err)
	}
	return entry.Value, true, nil
}

func (s *SQLiteStore) Set(group, key, value string) error {
	entry := Entry{Group: group, Key: key, Value: value}
	if err := s.db.Save(&entry).Error; err != nil {
		return fmt.Errorf("failed to write %s/%s: %w", group, key, err)
	}
	return nil
}

func (s *SQLiteStore) Unset(group, key string) error {
	err := s.db.Delete(&Entry{}, "\"group\" = ? AND \"key\" = ?", group, key).Error
	if err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", group, key, err)
	}
	return nil
}
