// Package auth resolves the authenticated principal the chat core acts for.
package auth

import (
	"campus-chat/domain"
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// SessionProvider holds the session token handed over by the sign-in flow.
// It is injected into services at construction instead of living in a global.
type SessionProvider struct {
	mu     sync.RWMutex
	log    *slog.Logger
	key    []byte
	issuer string
	token  string
}

func NewSessionProvider(log *slog.Logger, key []byte, issuer string) *SessionProvider {
	return &SessionProvider{log: log, key: key, issuer: issuer}
}

// SetToken installs the token of a freshly signed-in or refreshed session.
func (s *SessionProvider) SetToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

// Clear signs the session out.
func (s *SessionProvider) Clear() {
	s.SetToken("")
}

// CurrentUser returns false when there is no valid session.
// A missing or expired session is a normal state, not an error.
func (s *SessionProvider) CurrentUser(_ context.Context) (domain.Identity, bool) {
	s.mu.RLock()
	token := s.token
	s.mu.RUnlock()
	if token == "" {
		return domain.Identity{}, false
	}
	claims, err := ValidateToken(s.key, s.issuer, token)
	if err != nil {
		s.log.Debug(fmt.Sprintf("Session token rejected: %v", err))
		return domain.Identity{}, false
	}
	return domain.Identity{ID: domain.UserID(claims.UserID), Email: claims.Email}, true
}

// StaticIdentity always resolves the same principal. The zero value is signed out.
type StaticIdentity struct {
	Identity *domain.Identity
}

func (s StaticIdentity) CurrentUser(_ context.Context) (domain.Identity, bool) {
	if s.Identity == nil {
		return domain.Identity{}, false
	}
	return *s.Identity, true
}
