package valkey

import (
	"context"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/pitabwire/fluent/cache"
	"github.com/pitabwire/fluent/data"
)

// Cache is a Valkey-backed RawCache using the official Valkey client.
type Cache struct {
	client valkey.Client
	maxAge time.Duration
}

const connectionTimeout = 5 * time.Second

// New connects to the DSN given through cache.WithDSN. The valkey://
// scheme is accepted as an alias of redis://.
func New(ctx context.Context, opts ...cache.Option) (*Cache, error) {
	cacheOpts := cache.NewOptions(opts...)

	dsn := cacheOpts.DSN
	if dsn.IsValkey() {
		dsn = dsn.WithScheme(data.RedisScheme)
	}

	valkeyOpts, err := valkey.ParseURL(dsn.String())
	if err != nil {
		return nil, err
	}
	if cacheOpts.Name != "" {
		valkeyOpts.ClientName = cacheOpts.Name
	}

	client, err := valkey.NewClient(valkeyOpts)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectionTimeout)
	defer cancel()

	if pingErr := client.Do(pingCtx, client.B().Ping().Build()).Error(); pingErr != nil {
		client.Close()
		return nil, pingErr
	}

	return &Cache{
		client: client,
		maxAge: cacheOpts.MaxAge,
	}, nil
}

func (vc *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	resp := vc.client.Do(ctx, vc.client.B().Get().Key(key).Build())
	if err := resp.Error(); err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, false, nil
		}
		return nil, false, err
	}

	val, err := resp.AsBytes()
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (vc *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = vc.maxAge
	}

	if ttl <= 0 {
		cmd := vc.client.B().Set().Key(key).Value(valkey.BinaryString(value)).Build()
		return vc.client.Do(ctx, cmd).Error()
	}

	// Valkey expiry has second granularity.
	seconds := max(int64(ttl.Seconds()), 1)
	cmd := vc.client.B().Set().Key(key).Value(valkey.BinaryString(value)).ExSeconds(seconds).Build()
	return vc.client.Do(ctx, cmd).Error()
}

func (vc *Cache) Delete(ctx context.Context, key string) error {
	return vc.client.Do(ctx, vc.client.B().Del().Key(key).Build()).Error()
}

func (vc *Cache) Exists(ctx context.Context, key string) (bool, error) {
	resp := vc.client.Do(ctx, vc.client.B().Exists().Key(key).Build())
	if err := resp.Error(); err != nil {
		return false, err
	}

	count, err := resp.AsInt64()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (vc *Cache) Flush(ctx context.Context) error {
	return vc.client.Do(ctx, vc.client.B().Flushdb().Build()).Error()
}

func (vc *Cache) Close() error {
	vc.client.Close()
	return nil
}
