package viewer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/tutorview/internal/apperr"
)

// DefaultSessionTTL is how long an untouched session is kept.
const DefaultSessionTTL = 30 * time.Minute

// Registry keeps the live sessions in memory, keyed by a random id.
type Registry struct {
	deps Deps
	ttl  time.Duration

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates a Registry. A non-positive ttl uses DefaultSessionTTL.
func NewRegistry(deps Deps, ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Registry{deps: deps, ttl: ttl, sessions: make(map[string]*Session)}
}

// Create opens a new session for the given URL fragment.
func (r *Registry) Create(ctx context.Context, fragment string) (*Session, Update, error) {
	s := NewSession(uuid.NewString(), r.deps)

	r.mu.Lock()
	r.sessions[s.ID()] = s
	r.mu.Unlock()

	u, err := s.Open(ctx, fragment)
	if err != nil {
		return s, u, err
	}
	r.deps.Logger.Info("viewer: session opened",
		slog.String("session", s.ID()),
		slog.String("state", string(u.State)))
	return s, u, nil
}

// Get returns the session with id and marks it as used.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("viewer: session %q: %w", id, apperr.ErrUnknownSession)
	}
	s.touch()
	return s, nil
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Expire drops sessions idle since before now minus the ttl.
func (r *Registry) Expire(now time.Time) int {
	cutoff := now.Add(-r.ttl)
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, s := range r.sessions {
		if s.idleSince().Before(cutoff) {
			delete(r.sessions, id)
			n++
		}
	}
	return n
}

// Janitor expires idle sessions until ctx is cancelled.
func (r *Registry) Janitor(ctx context.Context) error {
	interval := r.ttl / 2
	if interval > time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			if n := r.Expire(now); n > 0 {
				r.deps.Logger.Debug("viewer: sessions expired", slog.Int("count", n))
			}
		}
	}
}
