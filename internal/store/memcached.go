package store

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/bradfitz/gomemcache/memcache"

	"github.com/kjstillabower/krishi-dashboard/internal/models"
)

const keyPrefix = "krishi:session:"

// MemcachedStore keeps session state in memcached. Items are written
// without expiration; the two keys are overwritten, never deleted.
type MemcachedStore struct {
	client *memcache.Client
}

// NewMemcachedStore creates a MemcachedStore. addrs is a comma-separated list
// (e.g. "localhost:11211" or "host1:11211,host2:11211"). timeout and maxIdleConns
// configure the client; both use package defaults if zero.
func NewMemcachedStore(addrs string, timeout time.Duration, maxIdleConns int) (*MemcachedStore, error) {
	servers := parseAddrs(addrs)
	if len(servers) == 0 {
		servers = []string{"localhost:11211"}
	}
	client := memcache.New(servers...)
	if timeout > 0 {
		client.Timeout = timeout
	}
	if maxIdleConns > 0 {
		client.MaxIdleConns = maxIdleConns
	}
	return &MemcachedStore{client: client}, nil
}

func parseAddrs(s string) []string {
	var out []string
	for _, a := range strings.Split(s, ",") {
		a = strings.TrimSpace(a)
		if a != "" {
			out = append(out, a)
		}
	}
	return out
}

func (s *MemcachedStore) Location(ctx context.Context) (models.LocationRecord, bool, error) {
	var rec models.LocationRecord
	ok, err := s.get(ctx, KeyLocation, &rec)
	return rec, ok, err
}

func (s *MemcachedStore) SaveLocation(ctx context.Context, rec models.LocationRecord) error {
	return s.set(ctx, KeyLocation, rec)
}

func (s *MemcachedStore) Language(ctx context.Context) (models.Language, bool, error) {
	var lang models.Language
	ok, err := s.get(ctx, KeyLanguage, &lang)
	return lang, ok, err
}

func (s *MemcachedStore) SaveLanguage(ctx context.Context, lang models.Language) error {
	return s.set(ctx, KeyLanguage, lang)
}

// get returns false, nil on cache miss; false, err on error.
func (s *MemcachedStore) get(ctx context.Context, key string, out interface{}) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	item, err := s.client.Get(keyPrefix + key)
	if err != nil {
		if err == memcache.ErrCacheMiss {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(item.Value, out); err != nil {
		return false, err
	}
	return true, nil
}

func (s *MemcachedStore) set(ctx context.Context, key string, value interface{}) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.client.Set(&memcache.Item{
		Key:   keyPrefix + key,
		Value: raw,
	})
}

// Ping checks if memcached is reachable. Used for health checks.
func (s *MemcachedStore) Ping() error {
	return s.client.Ping()
}

// Close closes the memcached client connections. Call during shutdown.
func (s *MemcachedStore) Close() error {
	return s.client.Close()
}
