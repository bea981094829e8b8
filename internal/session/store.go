// Package session holds the client's login identity and persists it across
// restarts through a pluggable Storage.
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/Mahi-B-Rahaman/IIUC-Blood-Network/internal/domain"
)

// Store is the single owner of the current Session. All reads go through
// Current so every screen sees the same identity.
type Store struct {
	mu      sync.RWMutex
	current domain.Session
	storage Storage
	logger  *zap.Logger
}

// NewStore creates a logged-out store over storage. Call Restore to pick
// up a persisted login.
func NewStore(storage Storage, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		storage: storage,
		logger:  logger,
	}
}

// Restore loads the persisted login, if any. A stored user id is taken at
// face value; it is not revalidated against the backend.
func (s *Store) Restore(ctx context.Context) (domain.Session, error) {
	id, ok, err := s.storage.Get(ctx, KeyUserID)
	if err != nil {
		return s.Current(), fmt.Errorf("restoring session: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id = strings.TrimSpace(id)
	if !ok || id == "" {
		s.current = domain.Session{}
		return s.current, nil
	}

	s.current = domain.Session{UserID: id, IsLoggedIn: true}
	s.logger.Debug("session restored", zap.String("user_id", id))
	return s.current, nil
}

// Login records userID as the logged-in identity and persists it.
// The in-memory session is updated even if persistence fails.
func (s *Store) Login(ctx context.Context, userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.NewValidationError("userId", "user id is required")
	}

	s.mu.Lock()
	s.current = domain.Session{UserID: userID, IsLoggedIn: true}
	s.mu.Unlock()

	if err := s.storage.Set(ctx, KeyUserID, userID); err != nil {
		return fmt.Errorf("persisting session: %w", err)
	}
	if err := s.storage.Set(ctx, KeyLoggedIn, "true"); err != nil {
		return fmt.Errorf("persisting session: %w", err)
	}

	s.logger.Info("logged in", zap.String("user_id", userID))
	return nil
}

// Logout clears the session in memory and in storage. Logging out when
// already logged out is a no-op.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	prev := s.current
	s.current = domain.Session{}
	s.mu.Unlock()

	var firstErr error
	for _, key := range []string{KeyUserID, KeyLoggedIn, KeyLegacyToken} {
		if err := s.storage.Delete(ctx, key); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("clearing session: %w", err)
		}
	}

	if prev.IsLoggedIn {
		s.logger.Info("logged out", zap.String("user_id", prev.UserID))
	}
	return firstErr
}

// Current returns a snapshot of the session.
func (s *Store) Current() domain.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// UserID returns the logged-in user id, or domain.ErrNotLoggedIn.
func (s *Store) UserID() (string, error) {
	cur := s.Current()
	if !cur.IsLoggedIn {
		return "", domain.ErrNotLoggedIn
	}
	return cur.UserID, nil
}
