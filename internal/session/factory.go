package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/Mahi-B-Rahaman/IIUC-Blood-Network/internal/config"
)

// StorageFactory creates session storages based on configuration
type StorageFactory struct {
	cfg                   config.Config
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// FactoryOption is a functional option for configuring the factory
type FactoryOption func(*StorageFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *StorageFactory) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithInMemoryFallback overrides session.fallback_to_memory.
func WithInMemoryFallback(allow bool) FactoryOption {
	return func(f *StorageFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewStorageFactory creates a new factory
func NewStorageFactory(cfg config.Config, opts ...FactoryOption) *StorageFactory {
	f := &StorageFactory{
		cfg:                   cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: cfg.Session.FallbackToMemory,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// CreateRedisStorage connects to the configured Redis.
func (f *StorageFactory) CreateRedisStorage(ctx context.Context) (Storage, error) {
	storage, err := NewRedisStorage(ctx, RedisConfig{
		Addr:      f.cfg.RedisAddr(),
		Password:  f.cfg.Redis.Password,
		DB:        f.cfg.Redis.DB,
		KeyPrefix: f.cfg.Redis.KeyPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis session storage: %w", err)
	}
	return storage, nil
}

// CreateFileStorage returns a file storage after checking that its
// directory can be created.
func (f *StorageFactory) CreateFileStorage() (Storage, error) {
	path := f.cfg.Session.Path
	if path == "" {
		path = config.DefaultSessionPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}
	return NewFileStorage(path), nil
}

// CreateInMemoryStorage creates an in-memory storage.
// WARNING: the session is lost when the process exits.
func (f *StorageFactory) CreateInMemoryStorage() Storage {
	return NewMemoryStorage()
}

// CreateStorage creates the configured storage. When the backend is
// unavailable and fallback is allowed, an in-memory storage is returned.
func (f *StorageFactory) CreateStorage(ctx context.Context) (Storage, error) {
	var (
		storage Storage
		err     error
	)

	switch f.cfg.Session.Backend {
	case config.BackendMemory:
		f.logger.Debug("using in-memory session storage")
		return f.CreateInMemoryStorage(), nil
	case config.BackendRedis:
		storage, err = f.CreateRedisStorage(ctx)
	case config.BackendFile, "":
		storage, err = f.CreateFileStorage()
	default:
		return nil, fmt.Errorf("%w: unknown session backend %q", config.ErrInvalidConfig, f.cfg.Session.Backend)
	}

	if err == nil {
		f.logger.Debug("using session storage", zap.String("backend", f.cfg.Session.Backend))
		return storage, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("session backend %s unavailable: %w", f.cfg.Session.Backend, err)
	}

	f.logger.Warn("session backend unavailable, falling back to in-memory storage. "+
		"The login will not survive this process.",
		zap.String("backend", f.cfg.Session.Backend),
		zap.Error(err),
	)
	return f.CreateInMemoryStorage(), nil
}
