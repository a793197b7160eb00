// Package features caches server-side feature flags for the current user and
// exposes named gates over them.
//
// Flags are owned by the backend. The client learns them either in bulk via
// Cache.LoadFeatures or one at a time when a gate asks about a key the cache
// has not seen. Anything uncertain resolves to disabled.
package features

import (
	"context"
	"sort"
)

// Feature describes a gated client capability.
type Feature struct {
	Name        string
	Description string
}

var (
	// ProcessTracking gates the running-process list used to suggest entries.
	ProcessTracking = Feature{
		Name:        "process_tracking",
		Description: "List running processes to suggest time entries",
	}

	// TrayTimer gates the live timer view.
	TrayTimer = Feature{
		Name:        "tray_timer",
		Description: "Show the running timer in the tray/watch view",
	}

	// CustomThemes gates user-defined color themes.
	CustomThemes = Feature{
		Name:        "custom_themes",
		Description: "Allow user-defined color themes",
	}

	// TimeEntryTags gates tagging time entries on start.
	TimeEntryTags = Feature{
		Name:        "time_entry_tags",
		Description: "Attach tags when starting a time entry",
	}
)

var allFeatures = []Feature{
	CustomThemes,
	ProcessTracking,
	TimeEntryTags,
	TrayTimer,
}

var known = buildKnownSet()

func buildKnownSet() map[string]bool {
	values := make(map[string]bool, len(allFeatures))
	for _, feature := range allFeatures {
		values[feature.Name] = true
	}
	return values
}

// ListAll returns all gated features sorted by name.
func ListAll() []Feature {
	items := make([]Feature, len(allFeatures))
	copy(items, allFeatures)
	sort.Slice(items, func(i, j int) bool {
		return items[i].Name < items[j].Name
	})
	return items
}

// IsKnownFeature returns true when the client has a gate for name.
func IsKnownFeature(name string) bool {
	return known[name]
}

// Gate answers named feature questions from a Cache.
type Gate struct {
	cache *Cache
}

// NewGate returns a gate reading from cache.
func NewGate(cache *Cache) *Gate {
	return &Gate{cache: cache}
}

// Enabled checks an arbitrary feature.
func (g *Gate) Enabled(ctx context.Context, f Feature) bool {
	return g.cache.IsFeatureEnabled(ctx, f.Name)
}

// ProcessTrackingEnabled reports whether the process list is available.
func (g *Gate) ProcessTrackingEnabled(ctx context.Context) bool {
	return g.Enabled(ctx, ProcessTracking)
}

// TrayTimerEnabled reports whether the live timer view is available.
func (g *Gate) TrayTimerEnabled(ctx context.Context) bool {
	return g.Enabled(ctx, TrayTimer)
}

// CustomThemesEnabled reports whether custom themes may be used.
func (g *Gate) CustomThemesEnabled(ctx context.Context) bool {
	return g.Enabled(ctx, CustomThemes)
}

// TimeEntryTagsEnabled reports whether tags may be attached to entries.
func (g *Gate) TimeEntryTagsEnabled(ctx context.Context) bool {
	return g.Enabled(ctx, TimeEntryTags)
}
