package vfs

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// CacheBackend is a Redis-backed mount: an ephemeral, possibly shared
// scratch mount for
// scatter/gather worker temp files and other resource-namespace data,
// keyed with a prefix the way internal/web/cache's RedisCache
// namespaces keys. Paths are flat string keys rather than a real
// directory tree, so List only ever reports the immediate children it
// can discover with a prefix SCAN.
type CacheBackend struct {
	client   *redis.Client
	prefix   string
	ttl      time.Duration
	readOnly bool
}

// CacheConfig configures a Redis-backed mount.
type CacheConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration
}

// DefaultCacheConfig returns sane defaults for a local Redis instance.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		Addr:   "localhost:6379",
		Prefix: "shellkit:",
		TTL:    10 * time.Minute,
	}
}

// NewCacheBackend dials Redis and verifies the connection with a ping.
func NewCacheBackend(cfg CacheConfig) (*CacheBackend, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &CacheBackend{client: client, prefix: cfg.Prefix, ttl: cfg.TTL}, nil
}

// NewCacheBackendWithClient wraps an already-connected client, the way
// tests point a backend at a miniredis instance.
func NewCacheBackendWithClient(client *redis.Client, cfg CacheConfig) *CacheBackend {
	return &CacheBackend{client: client, prefix: cfg.Prefix, ttl: cfg.TTL}
}

func (b *CacheBackend) Read(path string) ([]byte, error) {
	ctx := context.Background()
	data, err := b.client.Get(ctx, b.prefix+path).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotExist
		}
		return nil, err
	}
	return data, nil
}

func (b *CacheBackend) Write(path string, data []byte) error {
	if b.readOnly {
		return ErrReadOnly
	}
	ctx := context.Background()
	return b.client.Set(ctx, b.prefix+path, data, b.ttl).Err()
}

func (b *CacheBackend) Append(path string, data []byte) error {
	if b.readOnly {
		return ErrReadOnly
	}
	ctx := context.Background()
	existing, err := b.client.Get(ctx, b.prefix+path).Bytes()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return b.client.Set(ctx, b.prefix+path, append(existing, data...), b.ttl).Err()
}

func (b *CacheBackend) Mkdir(path string) error {
	// Redis keys have no directory structure to create; a mount rooted
	// here always "has" every prefix once a key under it exists.
	return nil
}

func (b *CacheBackend) Remove(path string) error {
	if b.readOnly {
		return ErrReadOnly
	}
	ctx := context.Background()
	keys, err := b.scanChildren(ctx, path)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return b.client.Del(ctx, b.prefix+path).Err()
	}
	return b.client.Del(ctx, keys...).Err()
}

func (b *CacheBackend) Stat(path string) (FileInfo, error) {
	ctx := context.Background()
	size, err := b.client.StrLen(ctx, b.prefix+path).Result()
	if err == nil && size > 0 {
		return FileInfo{Name: path, Size: size}, nil
	}
	children, err := b.scanChildren(ctx, path)
	if err != nil {
		return FileInfo{}, err
	}
	if len(children) > 0 {
		return FileInfo{Name: path, IsDir: true}, nil
	}
	return FileInfo{}, ErrNotExist
}

func (b *CacheBackend) List(path string) ([]FileInfo, error) {
	ctx := context.Background()
	keys, err := b.scanChildren(ctx, path)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	out := make([]FileInfo, 0, len(keys))
	for _, k := range keys {
		rel := strings.TrimPrefix(k, b.prefix)
		rel = strings.TrimPrefix(strings.TrimPrefix(rel, path), "/")
		name := strings.SplitN(rel, "/", 2)[0]
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, FileInfo{Name: name, IsDir: strings.Contains(rel, "/")})
	}
	return out, nil
}

func (b *CacheBackend) scanChildren(ctx context.Context, path string) ([]string, error) {
	pattern := b.prefix + path + "*"
	var keys []string
	iter := b.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	return keys, iter.Err()
}

func (b *CacheBackend) ReadOnly() bool { return b.readOnly }

// Close releases the underlying Redis connection.
func (b *CacheBackend) Close() error { return b.client.Close() }
