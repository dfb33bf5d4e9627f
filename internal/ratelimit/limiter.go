// Package ratelimit implements the per-IP connection cap and token-bucket
// request limiter keyed on a normalized peer address.
package ratelimit

import (
	"net/netip"
	"sync"
	"time"
)

// Key is a normalized peer address: IPv4-mapped IPv6 addresses are folded
// to their v4 form so the same client is metered once regardless of
// socket family, mirroring the spec's "keyed on normalized address".
type Key = netip.Addr

// Normalize folds addr to a canonical comparison key.
func Normalize(addr netip.Addr) Key {
	if addr.Is4In6() {
		return addr.Unmap()
	}
	return addr
}

type tokenBucket struct {
	tokens     uint32
	lastRefill time.Time
}

type entry struct {
	connections uint32
	bucket      tokenBucket
}

// Config carries the limiter's tunables (mirrors the network config
// surface: max_connections_per_ip, max_request_burst_per_ip,
// max_requests_per_ip_per_sec).
type Config struct {
	MaxConnectionsPerIP uint32
	MaxBurst            uint32
	RefillPerSecond     uint32
}

// Limiter enforces the connection cap and token bucket per source IP.
type Limiter struct {
	mu      sync.Mutex
	cfg     Config
	entries map[Key]*entry
	now     func() time.Time
}

// New builds a limiter with the given configuration.
func New(cfg Config) *Limiter {
	return &Limiter{
		cfg:     cfg,
		entries: make(map[Key]*entry),
		now:     time.Now,
	}
}

// AllowConnection admits a new connection from ip, or refuses it if the
// per-IP connection cap is already reached. The token bucket is seeded
// with a full burst on the first connection from an address.
func (l *Limiter) AllowConnection(ip netip.Addr) bool {
	key := Normalize(ip)

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok {
		e = &entry{}
		l.entries[key] = e
	}
	if e.connections >= l.cfg.MaxConnectionsPerIP {
		return false
	}
	if e.connections == 0 && e.bucket.tokens == 0 {
		e.bucket.tokens = l.cfg.MaxBurst
		e.bucket.lastRefill = l.now()
	}
	e.connections++
	return true
}

// AllowRequest refills the token bucket for ip proportionally to elapsed
// time and consumes one token, returning false if the bucket is empty.
func (l *Limiter) AllowRequest(ip netip.Addr) bool {
	key := Normalize(ip)

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok {
		return false
	}

	now := l.now()
	elapsedMs := now.Sub(e.bucket.lastRefill).Milliseconds()
	if elapsedMs < 0 {
		elapsedMs = 0
	}
	refill := uint64(elapsedMs) * uint64(l.cfg.RefillPerSecond) / 1000
	if refill > 0 {
		newTokens := e.bucket.tokens + uint32(refill)
		if newTokens > l.cfg.MaxBurst {
			newTokens = l.cfg.MaxBurst
		}
		e.bucket.tokens = newTokens
		e.bucket.lastRefill = now
	}

	if e.bucket.tokens == 0 {
		return false
	}
	e.bucket.tokens--
	return true
}

// ReleaseConnection decrements the connection count for ip, erasing the
// entry entirely once it drops to zero.
func (l *Limiter) ReleaseConnection(ip netip.Addr) {
	key := Normalize(ip)

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok {
		return
	}
	if e.connections > 0 {
		e.connections--
	}
	if e.connections == 0 {
		delete(l.entries, key)
	}
}

// Tracked reports how many distinct addresses currently have live state,
// mostly useful for tests and metrics gauges.
func (l *Limiter) Tracked() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
