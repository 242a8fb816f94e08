package config

import (
	"reflect"
	"slices"
	"strings"
	"sync"
)

// Change lists the top-level keys that differ between two snapshots.
type Change struct {
	Keys []string
}

// Has reports whether key changed.
func (c Change) Has(key string) bool {
	for _, k := range c.Keys {
		if k == key {
			return true
		}
	}
	return false
}

// Store holds the current snapshot and notifies subscribers when it changes.
// Readers always see a complete snapshot; there is no partial update.
type Store struct {
	mu   sync.RWMutex
	cfg  Config
	subs []func(Change, Config)
}

func NewStore(cfg Config) *Store {
	return &Store{cfg: cfg}
}

// Current returns the active snapshot.
func (s *Store) Current() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Subscribe registers fn to be called after every effective change.
func (s *Store) Subscribe(fn func(Change, Config)) {
	s.mu.Lock()
	s.subs = append(s.subs, fn)
	s.mu.Unlock()
}

// Update swaps in cfg and notifies subscribers with the changed keys.
// Nothing is published when cfg equals the current snapshot.
func (s *Store) Update(cfg Config) Change {
	s.mu.Lock()
	change := Change{Keys: diff(s.cfg, cfg)}
	s.cfg = cfg
	subs := slices.Clone(s.subs)
	s.mu.Unlock()

	if len(change.Keys) == 0 {
		return change
	}
	for _, fn := range subs {
		fn(change, cfg)
	}
	return change
}

// diff compares the yaml-tagged fields of two configs.
func diff(a, b Config) []string {
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	t := va.Type()
	var keys []string
	for i := 0; i < t.NumField(); i++ {
		name, _, _ := strings.Cut(t.Field(i).Tag.Get("yaml"), ",")
		if name == "" || name == "-" {
			continue
		}
		if !reflect.DeepEqual(va.Field(i).Interface(), vb.Field(i).Interface()) {
			keys = append(keys, name)
		}
	}
	return keys
}
