package session

import (
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/shoptalk/assistant/internal/agent/model"
	logx "github.com/shoptalk/assistant/pkg/logger"
)

// DefaultTTL is the eviction window applied when no TTL is configured.
const DefaultTTL = 60 * time.Minute

// Store is the shared in-process session context store. Eviction is lazy:
// every Get first sweeps expired entries; there is no background janitor.
// Cross-session keys are independent; same-session concurrent saves are
// last-write-wins.
type Store struct {
	cache *cache.Cache
	ttl   time.Duration
}

func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	// cleanup interval 0 disables the janitor; expiry is enforced on access
	return &Store{
		cache: cache.New(ttl, 0),
		ttl:   ttl,
	}
}

// Get returns a copy of the context for the session, creating a fresh
// default-valued one if absent or expired. It never fails. Callers own the
// copy; mutations reach the store only through Save.
func (s *Store) Get(sessionID string) *model.SessionContext {
	s.cache.DeleteExpired()

	if v, found := s.cache.Get(sessionID); found {
		return v.(*model.SessionContext).Clone()
	}

	logx.Debug().Str("session_id", sessionID).Msg("creating new session context")
	ctx := model.NewSessionContext(sessionID)
	s.cache.Set(sessionID, ctx.Clone(), cache.DefaultExpiration)
	return ctx
}

// Save upserts a snapshot of the context and stamps LastUpdated. Mutating
// the argument after Save has no effect on the stored entry.
func (s *Store) Save(ctx *model.SessionContext) {
	ctx.LastUpdated = time.Now()
	s.cache.Set(ctx.SessionID, ctx.Clone(), cache.DefaultExpiration)
}

// Clear removes the session entirely; the next Get starts from defaults.
func (s *Store) Clear(sessionID string) {
	s.cache.Delete(sessionID)
}

// Reset returns the session's context to its initial state and keeps it.
func (s *Store) Reset(sessionID string) *model.SessionContext {
	ctx := s.Get(sessionID)
	ctx.Reset()
	s.Save(ctx)
	logx.Debug().Str("session_id", sessionID).Msg("session context reset")
	return ctx
}
