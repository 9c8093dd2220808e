package permissions

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"lms-edge/internal/cache"
)

// DefaultTTL keeps resolved grants hot for a short window. A stale entry
// can over- or under-grant for at most this long, which is the accepted
// trade-off for avoiding a persistence round trip per check.
const DefaultTTL = 30 * time.Second

// Set is one subject's resolved permission set.
type Set struct {
	perms map[string]struct{}

	// errored marks a failed resolution. The set is empty: persistence
	// problems fail closed, never open.
	errored bool
}

func newSet(perms []string) Set {
	s := Set{perms: make(map[string]struct{}, len(perms))}
	for _, p := range perms {
		s.perms[p] = struct{}{}
	}
	return s
}

func erroredSet() Set { return Set{errored: true} }

func (s Set) Errored() bool { return s.errored }

// List returns the grants in sorted order, for JSON responses and logs.
func (s Set) List() []string {
	out := make([]string, 0, len(s.perms))
	for p := range s.perms {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func (s Set) Can(permission string) bool {
	_, ok := s.perms[permission]
	return ok
}

func (s Set) CanAny(permissions ...string) bool {
	for _, p := range permissions {
		if s.Can(p) {
			return true
		}
	}
	return false
}

func (s Set) CanAll(permissions ...string) bool {
	for _, p := range permissions {
		if !s.Can(p) {
			return false
		}
	}
	return true
}

// Service caches resolved grants per subject. It is an explicit instance
// handed to the request-handling context, never package state, so tests
// own its lifecycle.
//
// Concurrent requests for one subject may race to populate an entry; last
// writer wins and there is no lock. Correctness does not depend on cache
// coherency, only the TTL bounds staleness.
type Service struct {
	store Store
	cache cache.Client
	ttl   time.Duration
}

func NewService(store Store, c cache.Client, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{store: store, cache: c, ttl: ttl}
}

func cacheKey(subjectID string) string { return "perms:" + subjectID }

// GetUserPermissions returns the cached set for the subject, resolving
// through the store on a miss.
func (s *Service) GetUserPermissions(ctx context.Context, subjectID, role string) Set {
	key := cacheKey(subjectID)
	if raw, ok := s.cache.Get(ctx, key); ok {
		var perms []string
		if err := json.Unmarshal([]byte(raw), &perms); err == nil {
			return newSet(perms)
		}
		// Undecodable entry: drop it and fall through to the store.
		_ = s.cache.Delete(ctx, key)
	}

	perms, err := s.store.PermissionsForRole(ctx, role)
	if err != nil {
		if errors.Is(err, ErrUnauthorized) {
			_ = s.cache.Delete(ctx, key)
		}
		return erroredSet()
	}

	if raw, err := json.Marshal(perms); err == nil {
		_ = s.cache.Set(ctx, key, string(raw), s.ttl)
	}
	return newSet(perms)
}

// Can is the membership test most callers want.
func (s *Service) Can(ctx context.Context, subjectID, role, permission string) bool {
	return s.GetUserPermissions(ctx, subjectID, role).Can(permission)
}

// Refresh forces a fresh store read, bypassing any cached entry.
func (s *Service) Refresh(ctx context.Context, subjectID, role string) Set {
	_ = s.cache.Delete(ctx, cacheKey(subjectID))
	return s.GetUserPermissions(ctx, subjectID, role)
}

// Clear drops one subject's entry, or every entry when subjectID is empty.
// Must be called on logout and on any role or permission mutation.
func (s *Service) Clear(ctx context.Context, subjectID string) {
	if subjectID == "" {
		_ = s.cache.Flush(ctx)
		return
	}
	_ = s.cache.Delete(ctx, cacheKey(subjectID))
}
