package data

import (
	"net/url"
	"path"
	"strings"
)

// Schemes understood by the cache and resource store factories.
const (
	MemScheme    = "mem"
	FileScheme   = "file"
	RedisScheme  = "redis"
	RedissScheme = "rediss"
	ValkeyScheme = "valkey"
)

// A DSN for conveniently handling a URI connection string.
type DSN string

func (d DSN) String() string {
	return string(d)
}

// Scheme returns the lower-cased URI scheme, or "" when there is none.
func (d DSN) Scheme() string {
	i := strings.Index(string(d), "://")
	if i <= 0 {
		return ""
	}
	return strings.ToLower(string(d)[:i])
}

func (d DSN) IsMem() bool {
	return d.Scheme() == MemScheme
}

func (d DSN) IsFile() bool {
	return d.Scheme() == FileScheme
}

func (d DSN) IsRedis() bool {
	s := d.Scheme()
	return s == RedisScheme || s == RedissScheme
}

func (d DSN) IsValkey() bool {
	return d.Scheme() == ValkeyScheme
}

// IsCache reports whether the DSN names a cache backend.
func (d DSN) IsCache() bool {
	return d.IsMem() || d.IsRedis() || d.IsValkey()
}

// WithScheme replaces the scheme, keeping everything after "://".
func (d DSN) WithScheme(scheme string) DSN {
	i := strings.Index(string(d), "://")
	if i <= 0 {
		return d
	}
	return DSN(scheme + string(d)[i:])
}

func (d DSN) ToURI() (*url.URL, error) {
	return url.Parse(string(d))
}

func (d DSN) ExtendPath(epath ...string) DSN {
	nuURI, err := d.ToURI()
	if err != nil {
		return d
	}

	nuPathPieces := []string{nuURI.Path}
	nuPathPieces = append(nuPathPieces, epath...)

	nuURI.Path = path.Join(nuPathPieces...)

	return DSN(nuURI.String())
}

func (d DSN) GetQuery(key string) string {
	nuURI, err := d.ToURI()
	if err != nil {
		return ""
	}

	return nuURI.Query().Get(key)
}
