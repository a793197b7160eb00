package version

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/tockapp/tock/internal/store"
)

// UpdateAvailableMsg is sent when a new version is available.
type UpdateAvailableMsg struct {
	CurrentVersion string
	LatestVersion  string
	UpdateCommand  string
}

// CheckCached returns the update notice for currentVersion, consulting the
// cache in b before the network. It returns nil when up to date or when the
// check fails.
func (c *Checker) CheckCached(ctx context.Context, b store.Backend, currentVersion string) *UpdateAvailableMsg {
	if cached, err := LoadCache(b); err == nil && IsCacheValid(cached, currentVersion) {
		if cached.HasUpdate {
			return notice(currentVersion, cached.LatestVersion)
		}
		return nil
	}

	result := c.Check(ctx, currentVersion)

	// Network errors are not cached.
	if result.Error == nil && !IsDevelopmentVersion(currentVersion) {
		_ = SaveCache(b, &CacheEntry{
			LatestVersion:  result.LatestVersion,
			CurrentVersion: currentVersion,
			CheckedAt:      time.Now(),
			HasUpdate:      result.HasUpdate,
		})
	}

	if result.HasUpdate {
		return notice(currentVersion, result.LatestVersion)
	}
	return nil
}

// CheckAsync returns a Bubble Tea command that runs CheckCached in the
// background.
func (c *Checker) CheckAsync(ctx context.Context, b store.Backend, currentVersion string) tea.Cmd {
	return func() tea.Msg {
		if msg := c.CheckCached(ctx, b, currentVersion); msg != nil {
			return *msg
		}
		return nil
	}
}

func notice(current, latest string) *UpdateAvailableMsg {
	return &UpdateAvailableMsg{
		CurrentVersion: current,
		LatestVersion:  latest,
		UpdateCommand:  UpdateCommand(latest),
	}
}
