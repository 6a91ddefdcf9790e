package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/EternisAI/vpn-admin-bot/internal/metrics"
)

// Principal identifies whoever sent a command or callback.
type Principal int64

// Authorizer tracks when each logged-in principal was last seen. Sessions
// slide: every authorized access pushes the expiry forward by the TTL.
type Authorizer struct {
	mu         sync.Mutex
	lastSeen   map[Principal]time.Time
	ttl        time.Duration
	superusers map[Principal]struct{}
}

func NewAuthorizer(ttl time.Duration, superusers ...Principal) *Authorizer {
	su := make(map[Principal]struct{}, len(superusers))
	for _, p := range superusers {
		su[p] = struct{}{}
	}
	return &Authorizer{
		lastSeen:   make(map[Principal]time.Time),
		ttl:        ttl,
		superusers: su,
	}
}

func (a *Authorizer) TTL() time.Duration {
	return a.ttl
}

func (a *Authorizer) IsSuperuser(p Principal) bool {
	_, ok := a.superusers[p]
	return ok
}

// IsAuthorized reports whether p may run privileged commands at now and, if
// so, refreshes its session.
func (a *Authorizer) IsAuthorized(p Principal, now time.Time) bool {
	if a.IsSuperuser(p) {
		return true
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	seen, ok := a.lastSeen[p]
	if !ok {
		return false
	}
	if now.Sub(seen) >= a.ttl {
		return false
	}
	if now.After(seen) {
		a.lastSeen[p] = now
	}
	return true
}

// Authorize checks supplied against the expected shared secret and opens a
// session for p on match.
func (a *Authorizer) Authorize(p Principal, supplied, expected string, now time.Time) bool {
	return a.AuthorizeWith(p, supplied, PlainSecret(expected), now)
}

func (a *Authorizer) AuthorizeWith(p Principal, supplied string, v Verifier, now time.Time) bool {
	if supplied == "" || v == nil || !v.Verify(supplied) {
		return false
	}

	a.mu.Lock()
	a.lastSeen[p] = now
	metrics.ActiveSessions.Set(float64(a.liveLocked(now)))
	a.mu.Unlock()

	slog.Info("Session opened", "principal", int64(p), "expires_at", now.Add(a.ttl))
	return true
}

// Sessions returns the number of sessions still live at now.
func (a *Authorizer) Sessions(now time.Time) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.liveLocked(now)
}

func (a *Authorizer) liveLocked(now time.Time) int {
	n := 0
	for _, seen := range a.lastSeen {
		if now.Sub(seen) < a.ttl {
			n++
		}
	}
	return n
}

func (a *Authorizer) StartCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			a.cleanup(now)
		}
	}
}

func (a *Authorizer) cleanup(now time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()

	removed := 0
	for p, seen := range a.lastSeen {
		if now.Sub(seen) >= a.ttl {
			delete(a.lastSeen, p)
			removed++
		}
	}
	if removed > 0 {
		slog.Debug("Cleaned up expired sessions", "removed", removed)
	}
	metrics.ActiveSessions.Set(float64(len(a.lastSeen)))
}
