package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/zaltra000/mihrab-sala/internal/config"
)

// Backend persists the store document as an opaque blob. Load returns nil
// data and no error when nothing has been saved yet.
type Backend interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
	Close() error
}

// Open builds the backend selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StorageConfig) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "file":
		return NewFileBackend(cfg.FilePath), nil
	case "memory":
		return NewMemoryBackend(), nil
	case "sqlite":
		b, err := NewSQLiteBackend(cfg.SQLitePath, cfg.Namespace)
		if err != nil {
			return nil, err
		}
		return b, nil
	case "redis":
		b, err := NewRedisBackend(ctx, cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword, cfg.Namespace)
		if err != nil {
			return nil, err
		}
		return b, nil
	case "postgres":
		b, err := NewPostgresBackend(ctx, cfg.PostgresURL, cfg.Namespace)
		if err != nil {
			return nil, err
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
	}
}

type FileBackend struct {
	filePath string
}

func NewFileBackend(filePath string) *FileBackend {
	return &FileBackend{filePath: filePath}
}

func (b *FileBackend) Load(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(b.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}

// Save writes through a temp file and rename so a crash never leaves a
// truncated document behind.
func (b *FileBackend) Save(_ context.Context, data []byte) error {
	dir := filepath.Dir(b.filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(b.filePath)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, b.filePath); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace file: %w", err)
	}
	return nil
}

func (b *FileBackend) Close() error {
	return nil
}

// MemoryBackend keeps the document in process memory. Nothing survives a
// restart.
type MemoryBackend struct {
	mu   sync.Mutex
	data []byte
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

func (b *MemoryBackend) Load(_ context.Context) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.data...), nil
}

func (b *MemoryBackend) Save(_ context.Context, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data = append([]byte(nil), data...)
	return nil
}

func (b *MemoryBackend) Close() error {
	return nil
}
