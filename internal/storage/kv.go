package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/multierr"

	"github.com/yndnr/garagebook-go/internal/telemetry/logger"
)

// Common errors
var (
	ErrKeyNotFound = errors.New("key not found")
	ErrClosed      = errors.New("store closed")
	ErrUnsealed    = errors.New("stored value cannot be opened")
)

// Engine names accepted by Open.
const (
	EngineBadger = "badger"
	EngineMemory = "memory"
)

// KV is the small persistent key-value surface the client keeps its
// identity record and cookies in.
//
// Implementations must be safe for concurrent use.
type KV interface {
	// Get returns ErrKeyNotFound if key doesn't exist.
	Get(ctx context.Context, key string) ([]byte, error)

	Set(ctx context.Context, key string, value []byte) error

	// Delete is a no-op for missing keys.
	Delete(ctx context.Context, key string) error

	Close() error
}

// Erase deletes key, falling back to overwriting it with tombstone when the
// delete fails. An error is returned only when the old value may still be
// read back.
func Erase(ctx context.Context, kv KV, key string, tombstone []byte) error {
	delErr := kv.Delete(ctx, key)
	if delErr == nil {
		return nil
	}
	if err := kv.Set(ctx, key, tombstone); err != nil {
		return multierr.Append(
			fmt.Errorf("delete %s: %w", key, delErr),
			fmt.Errorf("overwrite %s: %w", key, err))
	}
	return nil
}

// Config selects and configures a KV engine.
type Config struct {
	// Engine is "badger" (default) or "memory".
	Engine string

	// Dir is the storage directory. Required for badger.
	Dir string

	// Encrypt seals values at rest. Ignored by the memory engine.
	Encrypt bool

	// KeyFile holds the master key, created on first use.
	// Default: state.key next to Dir.
	KeyFile string

	Badger BadgerConfig
}

// BadgerConfig contains Badger-specific tuning parameters.
type BadgerConfig struct {
	// GCThreshold is the value log discard ratio used on Close.
	// Default: 0.5
	GCThreshold float64

	// ValueLogFileSize is the max value log file size in bytes.
	// Default: 16MB
	ValueLogFileSize int64

	// MemTableSize is the memtable size in bytes.
	// Default: 8MB
	MemTableSize int64

	// SyncWrites fsyncs after each write.
	// Default: true
	SyncWrites bool
}

// DefaultConfig returns the default configuration rooted at dir.
func DefaultConfig(dir string) Config {
	return Config{
		Engine:  EngineBadger,
		Dir:     dir,
		Encrypt: true,
		KeyFile: filepath.Join(filepath.Dir(dir), "state.key"),
		Badger:  DefaultBadgerConfig(),
	}
}

// DefaultBadgerConfig returns Badger settings sized for a handful of small records.
func DefaultBadgerConfig() BadgerConfig {
	return BadgerConfig{
		GCThreshold:      0.5,
		ValueLogFileSize: 16 << 20, // 16MB
		MemTableSize:     8 << 20,  // 8MB
		SyncWrites:       true,
	}
}

// Open creates the engine named by cfg.Engine.
func Open(cfg Config, log logger.Logger) (KV, error) {
	switch strings.ToLower(cfg.Engine) {
	case "", EngineBadger:
		store, err := NewBadgerStore(cfg, log)
		if err != nil {
			return nil, err
		}
		if !cfg.Encrypt {
			return store, nil
		}
		sealed, err := sealWithKeyFile(store, cfg.KeyFile)
		if err != nil {
			store.Close()
			return nil, err
		}
		return sealed, nil
	case EngineMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("storage: unknown engine %q", cfg.Engine)
	}
}
