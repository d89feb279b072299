// Package cache implements the persistent storefront cache: a key/value store
// whose entries carry the time they were written, so callers can serve stale
// data immediately and decide separately whether to revalidate.
//
// Every namespaced entry is stored as the JSON envelope
//
//	{"data": <payload>, "timestamp": <unix millis>}
//
// under "shop_cache_<key>". The store never fails its callers: backend and
// encoding errors are logged and turned into cache misses, so a broken or
// disabled backend degrades to "no cache" rather than an error.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// Namespace prefixes every key written through Save.
	Namespace = "shop_cache_"
	// ActiveDiscountKey holds the discount currently applied to the cart.
	// It is written with SaveRaw and is not wrapped in an envelope.
	ActiveDiscountKey = Namespace + "active_discount"
	// DefaultTTL is the freshness window used when IsStale gets ttl <= 0.
	DefaultTTL = 5 * time.Minute
)

// ErrMiss is returned by a Backend when a key does not exist.
var ErrMiss = errors.New("cache: miss")

// Backend is the storage medium behind a Store. Writes of a single key must
// be atomic.
type Backend interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Store(ctx context.Context, key string, val []byte, at time.Time) error
	Delete(ctx context.Context, keys ...string) error
	DeletePrefix(ctx context.Context, prefix string) error
}

type envelope struct {
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

// Store is the process-wide cache. It is safe for concurrent use as long as
// its Backend is.
type Store struct {
	backend Backend
	now     func() time.Time
	log     zerolog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger used for swallowed errors.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.log = l }
}

// New returns a Store over b. A nil backend yields a store that never hits.
func New(b Backend, opts ...Option) *Store {
	s := &Store{
		backend: b,
		now:     time.Now,
		log:     log.Logger.With().Str("component", "cache").Logger(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Save writes data under the namespaced key, overwriting any prior entry.
// Failures are logged and swallowed.
func (s *Store) Save(ctx context.Context, key string, data any) {
	if s.backend == nil {
		observe("save", "disabled")
		return
	}
	payload, err := json.Marshal(data)
	if err != nil {
		observe("save", "error")
		s.log.Warn().Err(err).Str("key", key).Msg("cache encode failed")
		return
	}
	now := s.now()
	b, err := json.Marshal(envelope{Data: payload, Timestamp: now.UnixMilli()})
	if err != nil {
		observe("save", "error")
		s.log.Warn().Err(err).Str("key", key).Msg("cache encode failed")
		return
	}
	if err := s.backend.Store(ctx, Namespace+key, b, now); err != nil {
		observe("save", "error")
		s.log.Warn().Err(err).Str("key", key).Msg("cache write failed")
		return
	}
	observe("save", "ok")
}

// Get decodes the cached data for key into out and reports whether it did.
// Missing, unreadable and corrupted entries all report false.
func (s *Store) Get(ctx context.Context, key string, out any) bool {
	env, ok := s.load(ctx, key)
	if !ok {
		observe("get", "miss")
		return false
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		observe("get", "miss")
		return false
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		observe("get", "corrupt")
		s.log.Warn().Err(err).Str("key", key).Msg("cache entry does not match target type")
		return false
	}
	observe("get", "hit")
	return true
}

// IsStale reports whether key is missing, unreadable, or older than ttl.
// A ttl <= 0 means DefaultTTL.
func (s *Store) IsStale(ctx context.Context, key string, ttl time.Duration) bool {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	env, ok := s.load(ctx, key)
	if !ok {
		return true
	}
	age := s.now().Sub(time.UnixMilli(env.Timestamp))
	return age > ttl
}

// WrittenAt returns the write time of key, if the entry is readable.
func (s *Store) WrittenAt(ctx context.Context, key string) (time.Time, bool) {
	env, ok := s.load(ctx, key)
	if !ok {
		return time.Time{}, false
	}
	return time.UnixMilli(env.Timestamp).UTC(), true
}

// Clear removes the given namespaced keys, or every key under Namespace when
// none are given. Keys outside the namespace are never touched.
func (s *Store) Clear(ctx context.Context, keys ...string) {
	if s.backend == nil {
		return
	}
	var err error
	if len(keys) == 0 {
		err = s.backend.DeletePrefix(ctx, Namespace)
	} else {
		full := make([]string, len(keys))
		for i, k := range keys {
			full[i] = Namespace + k
		}
		err = s.backend.Delete(ctx, full...)
	}
	if err != nil {
		observe("clear", "error")
		s.log.Warn().Err(err).Strs("keys", keys).Msg("cache clear failed")
		return
	}
	observe("clear", "ok")
}

// SaveRaw writes data as plain JSON under an exact key (no namespace, no
// envelope). Failures are logged and swallowed.
func (s *Store) SaveRaw(ctx context.Context, key string, data any) {
	if s.backend == nil {
		return
	}
	b, err := json.Marshal(data)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("cache encode failed")
		return
	}
	if err := s.backend.Store(ctx, key, b, s.now()); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}

// GetRaw decodes the plain JSON stored under an exact key into out.
func (s *Store) GetRaw(ctx context.Context, key string, out any) bool {
	if s.backend == nil {
		return false
	}
	b, err := s.backend.Load(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			s.log.Warn().Err(err).Str("key", key).Msg("cache read failed")
		}
		return false
	}
	if err := json.Unmarshal(b, out); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("cache entry corrupted")
		return false
	}
	return true
}

// DeleteRaw removes an exact key.
func (s *Store) DeleteRaw(ctx context.Context, key string) {
	if s.backend == nil {
		return
	}
	if err := s.backend.Delete(ctx, key); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("cache delete failed")
	}
}

func (s *Store) load(ctx context.Context, key string) (envelope, bool) {
	var env envelope
	if s.backend == nil {
		return env, false
	}
	b, err := s.backend.Load(ctx, Namespace+key)
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			observe("load", "error")
			s.log.Warn().Err(err).Str("key", key).Msg("cache read failed")
		}
		return env, false
	}
	if err := json.Unmarshal(b, &env); err != nil {
		observe("load", "corrupt")
		s.log.Warn().Err(err).Str("key", key).Msg("cache entry corrupted")
		return env, false
	}
	return env, true
}
