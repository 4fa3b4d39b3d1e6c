package cache

import "errors"

// ErrCacheMiss reports that the key is absent or its entry has expired.
var ErrCacheMiss = errors.New("cache miss")

// Provider is a byte-oriented result cache. Implementations must be safe
// for concurrent use.
type Provider interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Del(key string) error
	Close() error
}

// NoopProvider satisfies Provider without storing anything. Used when the
// cache is disabled so callers never branch on nil.
type NoopProvider struct{}

func (NoopProvider) Get(string) ([]byte, error) { return nil, ErrCacheMiss }
func (NoopProvider) Set(string, []byte) error   { return nil }
func (NoopProvider) Del(string) error           { return nil }
func (NoopProvider) Close() error               { return nil }
