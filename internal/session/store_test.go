package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Mahi-B-Rahaman/IIUC-Blood-Network/internal/config"
	"github.com/Mahi-B-Rahaman/IIUC-Blood-Network/internal/domain"
)

// failingStorage errors on every call.
type failingStorage struct{ err error }

func (f failingStorage) Get(context.Context, string) (string, bool, error) { return "", false, f.err }
func (f failingStorage) Set(context.Context, string, string) error         { return f.err }
func (f failingStorage) Delete(context.Context, string) error              { return f.err }

func TestStore_LoginPersists(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	store := NewStore(storage, nil)

	require.NoError(t, store.Login(ctx, "u1"))

	assert.Equal(t, domain.Session{UserID: "u1", IsLoggedIn: true}, store.Current())

	id, ok, err := storage.Get(ctx, KeyUserID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "u1", id)

	flag, ok, err := storage.Get(ctx, KeyLoggedIn)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "true", flag)
}

func TestStore_LoginRejectsEmptyID(t *testing.T) {
	store := NewStore(NewMemoryStorage(), nil)

	err := store.Login(context.Background(), "  ")
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.False(t, store.Current().IsLoggedIn)
}

func TestStore_RestoreAfterRestart(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.json")

	first := NewStore(NewFileStorage(path), nil)
	require.NoError(t, first.Login(ctx, "u42"))

	second := NewStore(NewFileStorage(path), nil)
	assert.False(t, second.Current().IsLoggedIn)

	sess, err := second.Restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, "u42", sess.UserID)
	assert.True(t, sess.IsLoggedIn)
	assert.Equal(t, sess, second.Current())
}

func TestStore_RestoreIgnoresLoneFlag(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	require.NoError(t, storage.Set(ctx, KeyLoggedIn, "true"))

	sess, err := NewStore(storage, nil).Restore(ctx)
	require.NoError(t, err)
	assert.False(t, sess.IsLoggedIn)
	assert.Empty(t, sess.UserID)
}

func TestStore_RestoreError(t *testing.T) {
	boom := errors.New("disk gone")
	store := NewStore(failingStorage{err: boom}, nil)

	sess, err := store.Restore(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.False(t, sess.IsLoggedIn)
}

func TestStore_LogoutIdempotent(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	require.NoError(t, storage.Set(ctx, KeyLegacyToken, "stale"))
	store := NewStore(storage, nil)
	require.NoError(t, store.Login(ctx, "u1"))

	require.NoError(t, store.Logout(ctx))
	require.NoError(t, store.Logout(ctx))

	assert.Equal(t, domain.Session{}, store.Current())
	for _, key := range []string{KeyUserID, KeyLoggedIn, KeyLegacyToken} {
		_, ok, err := storage.Get(ctx, key)
		require.NoError(t, err)
		assert.False(t, ok, key)
	}
}

func TestStore_LogoutClearsMemoryOnStorageError(t *testing.T) {
	ctx := context.Background()
	store := NewStore(NewMemoryStorage(), nil)
	require.NoError(t, store.Login(ctx, "u1"))

	store.storage = failingStorage{err: errors.New("read-only")}
	assert.Error(t, store.Logout(ctx))
	assert.False(t, store.Current().IsLoggedIn)
}

func TestStore_UserID(t *testing.T) {
	ctx := context.Background()
	store := NewStore(NewMemoryStorage(), nil)

	_, err := store.UserID()
	assert.ErrorIs(t, err, domain.ErrNotLoggedIn)

	require.NoError(t, store.Login(ctx, "u7"))
	id, err := store.UserID()
	require.NoError(t, err)
	assert.Equal(t, "u7", id)
}

func TestStore_LogsLoginAndLogout(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	ctx := context.Background()
	store := NewStore(NewMemoryStorage(), zap.New(core))

	require.NoError(t, store.Login(ctx, "u1"))
	require.NoError(t, store.Logout(ctx))
	require.NoError(t, store.Logout(ctx))

	assert.Equal(t, 1, logs.FilterMessage("logged in").Len())
	assert.Equal(t, 1, logs.FilterMessage("logged out").Len())
}

func TestFileStorage_Permissions(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	storage := NewFileStorage(path)

	require.NoError(t, storage.Set(ctx, KeyUserID, "u1"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	dirInfo, err := os.Stat(filepath.Dir(path))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o700), dirInfo.Mode().Perm())
}

func TestFileStorage_DeleteMissing(t *testing.T) {
	storage := NewFileStorage(filepath.Join(t.TempDir(), "session.json"))
	assert.NoError(t, storage.Delete(context.Background(), KeyUserID))

	_, ok, err := storage.Get(context.Background(), KeyUserID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileStorage_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, _, err := NewFileStorage(path).Get(context.Background(), KeyUserID)
	assert.Error(t, err)
}

func TestStorageFactory(t *testing.T) {
	ctx := context.Background()

	t.Run("memory backend", func(t *testing.T) {
		cfg := config.Config{Session: config.SessionConfig{Backend: config.BackendMemory}}
		storage, err := NewStorageFactory(cfg).CreateStorage(ctx)
		require.NoError(t, err)
		assert.IsType(t, &MemoryStorage{}, storage)
	})

	t.Run("file backend", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "s", "session.json")
		cfg := config.Config{Session: config.SessionConfig{Backend: config.BackendFile, Path: path}}
		storage, err := NewStorageFactory(cfg).CreateStorage(ctx)
		require.NoError(t, err)
		require.IsType(t, &FileStorage{}, storage)
		assert.Equal(t, path, storage.(*FileStorage).Path())
	})

	t.Run("unknown backend", func(t *testing.T) {
		cfg := config.Config{Session: config.SessionConfig{Backend: "etcd", FallbackToMemory: true}}
		_, err := NewStorageFactory(cfg).CreateStorage(ctx)
		assert.ErrorIs(t, err, config.ErrInvalidConfig)
	})

	t.Run("redis unavailable falls back", func(t *testing.T) {
		core, logs := observer.New(zap.WarnLevel)
		cfg := config.Config{
			Session: config.SessionConfig{Backend: config.BackendRedis, FallbackToMemory: true},
			Redis:   config.RedisConfig{Host: "127.0.0.1", Port: 1},
		}
		storage, err := NewStorageFactory(cfg, WithLogger(zap.New(core))).CreateStorage(ctx)
		require.NoError(t, err)
		assert.IsType(t, &MemoryStorage{}, storage)
		assert.Equal(t, 1, logs.Len())
	})

	t.Run("redis unavailable without fallback", func(t *testing.T) {
		cfg := config.Config{
			Session: config.SessionConfig{Backend: config.BackendRedis, FallbackToMemory: true},
			Redis:   config.RedisConfig{Host: "127.0.0.1", Port: 1},
		}
		_, err := NewStorageFactory(cfg, WithInMemoryFallback(false)).CreateStorage(ctx)
		assert.Error(t, err)
	})
}
