package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Snapshot is one persisted store document per namespace.
type Snapshot struct {
	Namespace string `gorm:"primaryKey"`
	Payload   []byte
	UpdatedAt time.Time
}

type GormBackend struct {
	db        *gorm.DB
	namespace string
}

// NewSQLiteBackend opens (and migrates) a sqlite database file.
func NewSQLiteBackend(path, namespace string) (*GormBackend, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite directory: %w", err)
		}
	}

	gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return NewGormBackend(gdb, namespace)
}

func NewGormBackend(gdb *gorm.DB, namespace string) (*GormBackend, error) {
	if err := gdb.AutoMigrate(&Snapshot{}); err != nil {
		return nil, fmt.Errorf("migrate snapshots: %w", err)
	}
	return &GormBackend{db: gdb, namespace: namespace}, nil
}

func (b *GormBackend) Load(ctx context.Context) ([]byte, error) {
	var snap Snapshot
	if err := b.db.WithContext(ctx).Where("namespace = ?", b.namespace).First(&snap).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return snap.Payload, nil
}

func (b *GormBackend) Save(ctx context.Context, data []byte) error {
	snap := Snapshot{Namespace: b.namespace, Payload: data, UpdatedAt: time.Now()}
	if err := b.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "namespace"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
	}).Create(&snap).Error; err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

func (b *GormBackend) Close() error {
	sqlDB, err := b.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
