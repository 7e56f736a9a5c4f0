// Package storage is the engine's external key-value collaborator. It
// holds the handful of keys the engine persists across page loads:
// user identity, tunable settings, and the ignored-sites set. Reads
// and writes are best-effort; callers must treat every failure as
// "key absent" and proceed with defaults.
package storage

import (
	"context"
	"encoding/json"
	"sync"
)

// Well-known keys.
const (
	KeyUserID       = "userId"
	KeySettings     = "settings"
	KeyIgnoredSites = "ignoredSites"
)

// Store is an async key-value store with JSON-valued keys.
type Store interface {
	// Get unmarshals the value at key into out. The boolean reports
	// whether the key was present.
	Get(ctx context.Context, key string, out any) (bool, error)

	// Set marshals val and stores it at key.
	Set(ctx context.Context, key string, val any) error
}

// MemStore is an in-memory Store. It backs tests and the CLI's
// default ephemeral session.
type MemStore struct {
	mu   sync.Mutex
	data map[string]json.RawMessage
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{data: make(map[string]json.RawMessage)}
}

func (s *MemStore) Get(ctx context.Context, key string, out any) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	raw, ok := s.data[key]
	s.mu.Unlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, err
	}
	return true, nil
}

func (s *MemStore) Set(ctx context.Context, key string, val any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := json.Marshal(val)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.data[key] = raw
	s.mu.Unlock()
	return nil
}

// IgnoredSites reads the ignored-sites set. Absence or a read failure
// yields an empty set.
func IgnoredSites(ctx context.Context, s Store) []string {
	var sites []string
	if _, err := s.Get(ctx, KeyIgnoredSites, &sites); err != nil {
		return nil
	}
	return sites
}

// IsIgnored reports whether hostname is in the ignored-sites set.
func IsIgnored(ctx context.Context, s Store, hostname string) bool {
	for _, site := range IgnoredSites(ctx, s) {
		if site == hostname {
			return true
		}
	}
	return false
}

// AddIgnoredSite appends hostname to the ignored-sites set,
// deduplicating so the set stays bounded. A failed read aborts the
// write: the persisted set must never be replaced with a partial one.
func AddIgnoredSite(ctx context.Context, s Store, hostname string) error {
	var sites []string
	if _, err := s.Get(ctx, KeyIgnoredSites, &sites); err != nil {
		return err
	}
	for _, site := range sites {
		if site == hostname {
			return nil
		}
	}
	return s.Set(ctx, KeyIgnoredSites, append(sites, hostname))
}
