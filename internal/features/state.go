package features

import (
	"slices"
	"time"
)

// KeySet is an immutable set of feature keys. Methods that change membership
// return a new set; the receiver is never modified, so a KeySet handed to a
// subscriber stays valid after later updates.
type KeySet map[string]struct{}

// NewKeySet builds a set from keys.
func NewKeySet(keys ...string) KeySet {
	s := make(KeySet, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}

// Has reports whether key is in the set.
func (s KeySet) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// Keys returns the members in sorted order.
func (s KeySet) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func (s KeySet) with(key string) KeySet {
	if s.Has(key) {
		return s
	}
	out := make(KeySet, len(s)+1)
	for k := range s {
		out[k] = struct{}{}
	}
	out[key] = struct{}{}
	return out
}

func (s KeySet) without(key string) KeySet {
	if !s.Has(key) {
		return s
	}
	out := make(KeySet, len(s))
	for k := range s {
		if k != key {
			out[k] = struct{}{}
		}
	}
	return out
}

// State is the feature flag cache contents.
//
// A key is in at most one of EnabledFeatures and DisabledFeatures. Loading is
// true only while a LoadFeatures call is in flight. LastUpdated is set only
// by a successful load and never moves backwards.
type State struct {
	EnabledFeatures  KeySet
	DisabledFeatures KeySet
	Loading          bool
	// Error holds the diagnostic from the last failed load; empty when the
	// last load succeeded or none has run.
	Error string
	// LastUpdated is zero until the first successful load.
	LastUpdated time.Time
}

// Lookup reports a key's cached value. known is false for keys in neither set.
func (s State) Lookup(key string) (enabled, known bool) {
	if s.EnabledFeatures.Has(key) {
		return true, true
	}
	if s.DisabledFeatures.Has(key) {
		return false, true
	}
	return false, false
}

func (s State) upsert(key string, enabled bool) State {
	if enabled {
		s.EnabledFeatures = s.EnabledFeatures.with(key)
		s.DisabledFeatures = s.DisabledFeatures.without(key)
	} else {
		s.DisabledFeatures = s.DisabledFeatures.with(key)
		s.EnabledFeatures = s.EnabledFeatures.without(key)
	}
	return s
}
