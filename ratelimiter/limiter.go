// Package ratelimiter limits request rates per key with token buckets.
package ratelimiter

import (
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultRequestsPerSecond = 100
	defaultBurstSize         = 200
	defaultCleanupInterval   = 5 * time.Minute
	defaultEntryTTL          = 10 * time.Minute
	defaultMaxEntries        = 100000
)

// Config defines token bucket limiter settings.
type Config struct {
	RequestsPerSecond int
	BurstSize         int
	CleanupInterval   time.Duration
	EntryTTL          time.Duration
	MaxEntries        int
}

func normalizeConfig(cfg Config) Config {
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = defaultRequestsPerSecond
	}
	if cfg.BurstSize <= 0 {
		cfg.BurstSize = defaultBurstSize
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = defaultCleanupInterval
	}
	if cfg.EntryTTL <= 0 {
		cfg.EntryTTL = defaultEntryTTL
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = defaultMaxEntries
	}
	return cfg
}

type limiterEntry struct {
	limiter    *rate.Limiter
	lastAccess atomic.Int64
}

// KeyedLimiter applies an independent token bucket to every key. Idle keys
// are dropped after EntryTTL.
type KeyedLimiter struct {
	mu      sync.RWMutex
	entries map[string]*limiterEntry
	config  Config

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewKeyedLimiter creates a limiter and starts its cleanup loop. Close
// stops the loop.
func NewKeyedLimiter(cfg Config) *KeyedLimiter {
	kl := &KeyedLimiter{
		entries: make(map[string]*limiterEntry),
		config:  normalizeConfig(cfg),
		stopCh:  make(chan struct{}),
	}

	go kl.cleanupLoop()
	return kl
}

// Allow consumes a token for key.
func (k *KeyedLimiter) Allow(key string) bool {
	if key == "" {
		key = "unknown"
	}

	entry := k.entry(key)
	now := time.Now()
	entry.lastAccess.Store(now.UnixNano())
	return entry.limiter.AllowN(now, 1)
}

// Len returns the number of tracked keys.
func (k *KeyedLimiter) Len() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.entries)
}

func (k *KeyedLimiter) Limit() int {
	return k.config.RequestsPerSecond
}

func (k *KeyedLimiter) Close() error {
	k.stopOnce.Do(func() {
		close(k.stopCh)
	})
	return nil
}

func (k *KeyedLimiter) entry(key string) *limiterEntry {
	k.mu.RLock()
	entry, found := k.entries[key]
	k.mu.RUnlock()
	if found {
		return entry
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	if entry, found = k.entries[key]; found {
		return entry
	}

	entry = &limiterEntry{
		limiter: rate.NewLimiter(rate.Limit(float64(k.config.RequestsPerSecond)), k.config.BurstSize),
	}
	entry.lastAccess.Store(time.Now().UnixNano())
	k.entries[key] = entry

	k.evictOldestLocked()
	return entry
}

func (k *KeyedLimiter) cleanupLoop() {
	ticker := time.NewTicker(k.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			k.cleanupExpired(time.Now())
		case <-k.stopCh:
			return
		}
	}
}

func (k *KeyedLimiter) cleanupExpired(now time.Time) {
	cutoff := now.Add(-k.config.EntryTTL).UnixNano()

	k.mu.Lock()
	defer k.mu.Unlock()

	for key, entry := range k.entries {
		if entry.lastAccess.Load() < cutoff {
			delete(k.entries, key)
		}
	}
}

func (k *KeyedLimiter) evictOldestLocked() {
	for len(k.entries) > k.config.MaxEntries {
		oldestKey := ""
		oldest := time.Now().UnixNano()
		for key, entry := range k.entries {
			if last := entry.lastAccess.Load(); last <= oldest {
				oldest = last
				oldestKey = key
			}
		}
		if oldestKey == "" {
			return
		}
		delete(k.entries, oldestKey)
	}
}
