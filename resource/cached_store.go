package resource

import (
	"context"
	"time"

	"github.com/pitabwire/util"

	"github.com/pitabwire/fluent/cache"
)

// CachedStore memoizes another Loader in a cache. Missing resources are not
// cached; cache failures are logged and fall through to the wrapped loader.
type CachedStore struct {
	next  Loader
	texts cache.Cache[string, string]
	ttl   time.Duration
}

// NewCachedStore wraps next with raw. A ttl <= 0 uses the cache's max age.
func NewCachedStore(next Loader, raw cache.RawCache, ttl time.Duration) *CachedStore {
	return &CachedStore{
		next:  next,
		texts: cache.NewGenericCache[string, string](raw, func(k string) string { return "l10n:" + k }),
		ttl:   ttl,
	}
}

func (c *CachedStore) Load(ctx context.Context, locale, resourceID string) ([]byte, error) {
	key := objectKey(locale, resourceID)
	log := util.Log(ctx).WithField("resource", key)

	text, found, err := c.texts.Get(ctx, key)
	if err != nil {
		log.WithError(err).Warn("could not read resource from cache")
	}
	if found {
		return []byte(text), nil
	}

	data, err := c.next.Load(ctx, locale, resourceID)
	if err != nil {
		return nil, err
	}

	if err = c.texts.Set(ctx, key, string(data), c.ttl); err != nil {
		log.WithError(err).Warn("could not cache resource")
	}
	return data, nil
}

// Invalidate drops the cached copy of a resource.
func (c *CachedStore) Invalidate(ctx context.Context, locale, resourceID string) error {
	return c.texts.Delete(ctx, objectKey(locale, resourceID))
}
