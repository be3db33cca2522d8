package resource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob" // file:// bucket driver
	_ "gocloud.dev/blob/memblob"  // mem:// bucket driver
	"gocloud.dev/gcerrors"
)

// ErrResourceNotFound is returned when a locale does not provide a resource.
var ErrResourceNotFound = errors.New("resource: not found")

// Loader fetches the raw bytes of a resource for a locale.
type Loader interface {
	Load(ctx context.Context, locale, resourceID string) ([]byte, error)
}

// LoaderFunc adapts a function to a Loader.
type LoaderFunc func(ctx context.Context, locale, resourceID string) ([]byte, error)

func (f LoaderFunc) Load(ctx context.Context, locale, resourceID string) ([]byte, error) {
	return f(ctx, locale, resourceID)
}

// Store reads resources from a blob bucket laid out as
// <locale>/<resourceID>.
type Store struct {
	bucket *blob.Bucket
}

// OpenStore opens the bucket at url, e.g. file:///srv/l10n or mem://.
func OpenStore(ctx context.Context, url string) (*Store, error) {
	bucket, err := blob.OpenBucket(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("resource: open store %q: %w", url, err)
	}
	return NewStore(bucket), nil
}

func NewStore(bucket *blob.Bucket) *Store {
	return &Store{bucket: bucket}
}

func objectKey(locale, resourceID string) string {
	return path.Join(locale, resourceID)
}

func (s *Store) Load(ctx context.Context, locale, resourceID string) ([]byte, error) {
	key := objectKey(locale, resourceID)
	data, err := s.bucket.ReadAll(ctx, key)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, fmt.Errorf("%w: %s", ErrResourceNotFound, key)
		}
		return nil, fmt.Errorf("resource: read %s: %w", key, err)
	}
	return data, nil
}

// Save writes a resource for a locale.
func (s *Store) Save(ctx context.Context, locale, resourceID string, data []byte) error {
	key := objectKey(locale, resourceID)
	if err := s.bucket.WriteAll(ctx, key, data, nil); err != nil {
		return fmt.Errorf("resource: write %s: %w", key, err)
	}
	return nil
}

// Locales lists the top-level locale directories present in the bucket.
func (s *Store) Locales(ctx context.Context) ([]string, error) {
	var locales []string
	it := s.bucket.List(&blob.ListOptions{Delimiter: "/"})
	for {
		obj, err := it.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return locales, nil
			}
			return nil, fmt.Errorf("resource: list locales: %w", err)
		}
		if obj.IsDir {
			locales = append(locales, strings.TrimSuffix(obj.Key, "/"))
		}
	}
}

func (s *Store) Close() error {
	return s.bucket.Close()
}
