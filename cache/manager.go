package cache

import (
	"errors"
	"fmt"
	"sync"
)

// Manager keeps named raw caches for the lifetime of a service.
type Manager interface {
	AddCache(name string, cache RawCache)
	GetRawCache(name string) (RawCache, bool)
	RemoveCache(name string) error
	Close() error
}

type manager struct {
	caches sync.Map // map[string]RawCache
}

// NewManager creates an empty Manager.
func NewManager() Manager {
	return &manager{}
}

func (cm *manager) AddCache(name string, cache RawCache) {
	cm.caches.Store(name, cache)
}

func (cm *manager) GetRawCache(name string) (RawCache, bool) {
	c, ok := cm.caches.Load(name)
	if !ok {
		return nil, false
	}
	rawCache, ok := c.(RawCache)
	return rawCache, ok
}

// GetCache returns a typed view over the named raw cache.
func GetCache[K comparable, V any](
	manager Manager,
	name string,
	keyFunc func(K) string,
) (Cache[K, V], bool) {
	raw, ok := manager.GetRawCache(name)
	if !ok {
		return nil, false
	}
	return NewGenericCache[K, V](raw, keyFunc), true
}

// RemoveCache removes and closes the named cache.
func (cm *manager) RemoveCache(name string) error {
	c, ok := cm.caches.LoadAndDelete(name)
	if !ok {
		return nil
	}
	rawCache, ok := c.(RawCache)
	if !ok {
		return nil
	}
	return rawCache.Close()
}

// Close closes all managed caches.
func (cm *manager) Close() error {
	var errs []error

	cm.caches.Range(func(name, value any) bool {
		if rawCache, ok := value.(RawCache); ok {
			if closeErr := rawCache.Close(); closeErr != nil {
				errs = append(errs, fmt.Errorf("cache %v: %w", name, closeErr))
			}
		}
		return true
	})

	return errors.Join(errs...)
}
