package features

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/tockapp/tock/internal/apiclient"
	"github.com/tockapp/tock/internal/store"
)

// LoadErrorMessage is recorded in State.Error when LoadFeatures fails.
const LoadErrorMessage = "Failed to load features"

// DefaultRefreshDelay is the delay armed by Refresh.
const DefaultRefreshDelay = 5 * time.Minute

var errEmptyResponse = errors.New("empty response")

// Remote is the backend feature service.
type Remote interface {
	MyFeatures(ctx context.Context) (*apiclient.MyFeaturesResponse, error)
	CheckFeature(ctx context.Context, key string) (*apiclient.FeatureCheckResponse, error)
	LogFeatureAccess(ctx context.Context, key string) error
}

// Cache holds the feature flags known for the current user. It is the only
// writer of its State; readers use State, Subscribe or IsFeatureEnabled.
//
// Enabled and disabled answers are cached until the next LoadFeatures or
// Clear. A remote check that fails is answered false and not cached, so the
// next call for that key asks the backend again.
type Cache struct {
	remote Remote
	logger *slog.Logger
	access *AccessLogger
	now    func() time.Time

	state *store.Writable[State]
	// inflight counts running loads. Only touched inside state.Update.
	inflight int

	refreshMu    sync.Mutex
	refreshDelay time.Duration
	refreshTimer *time.Timer
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) { c.logger = l }
}

// WithAccessLogger replaces the access logger built from the remote.
func WithAccessLogger(a *AccessLogger) Option {
	return func(c *Cache) { c.access = a }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithRefreshDelay sets the delay armed by Refresh.
func WithRefreshDelay(d time.Duration) Option {
	return func(c *Cache) { c.refreshDelay = d }
}

// NewCache returns an empty cache backed by remote.
func NewCache(remote Remote, opts ...Option) *Cache {
	c := &Cache{
		remote:       remote,
		logger:       slog.Default(),
		now:          time.Now,
		state:        store.NewWritable(State{}),
		refreshDelay: DefaultRefreshDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.access == nil {
		c.access = NewAccessLogger(remote, c.logger)
	}
	return c
}

// State returns the current cache contents.
func (c *Cache) State() State {
	return c.state.Get()
}

// Subscribe calls fn with the current state and again after every change.
// fn must not call mutating Cache methods synchronously.
func (c *Cache) Subscribe(fn func(State)) (unsubscribe func()) {
	return c.state.Subscribe(fn)
}

// AccessLogger returns the logger used for feature access events.
func (c *Cache) AccessLogger() *AccessLogger {
	return c.access
}

// LoadFeatures replaces the cached sets with the backend's full lists. On
// failure the existing sets are kept and State.Error is set. Overlapping
// calls are not merged; the last one to finish wins.
func (c *Cache) LoadFeatures(ctx context.Context) {
	c.state.Update(func(s State) State {
		c.inflight++
		s.Loading = true
		return s
	})

	resp, err := c.remote.MyFeatures(ctx)
	if err == nil && resp == nil {
		err = errEmptyResponse
	}
	if err != nil {
		c.logger.Error("load features", "err", err)
		c.state.Update(func(s State) State {
			c.inflight--
			s.Loading = c.inflight > 0
			s.Error = LoadErrorMessage
			return s
		})
		return
	}

	disabled := NewKeySet()
	for _, f := range resp.DisabledFeatures {
		disabled[f.Key] = struct{}{}
	}
	enabled := NewKeySet()
	for _, f := range resp.EnabledFeatures {
		// A key listed as both is treated as disabled.
		if !disabled.Has(f.Key) {
			enabled[f.Key] = struct{}{}
		}
	}
	now := c.now()

	c.state.Update(func(s State) State {
		c.inflight--
		s.EnabledFeatures = enabled
		s.DisabledFeatures = disabled
		s.Error = ""
		if now.After(s.LastUpdated) {
			s.LastUpdated = now
		}
		s.Loading = c.inflight > 0
		return s
	})

	c.logger.Debug("features loaded", "enabled", len(enabled), "disabled", len(disabled))
}

// IsFeatureEnabled reports whether key is enabled for the current user.
//
// Cached answers return without a remote call; a key cached as disabled
// stays disabled until LoadFeatures or Clear. Unknown keys are checked
// remotely: the answer is is_enabled && user_has_access and is cached. If
// the check fails the answer is false and nothing is cached.
func (c *Cache) IsFeatureEnabled(ctx context.Context, key string) bool {
	if key == "" {
		return false
	}

	if enabled, known := c.state.Get().Lookup(key); known {
		return enabled
	}

	resp, err := c.remote.CheckFeature(ctx, key)
	if err == nil && resp == nil {
		err = errEmptyResponse
	}
	if err != nil {
		c.logger.Warn("check feature", "key", key, "err", err)
		return false
	}

	enabled := resp.IsEnabled && resp.UserHasAccess
	// Applied against the state at completion time, not the state seen above.
	c.state.Update(func(s State) State {
		return s.upsert(key, enabled)
	})

	c.access.LogFeatureAccess(ctx, key)
	return enabled
}

// LogFeatureAccess reports an access of key to the backend without waiting
// for the result.
func (c *Cache) LogFeatureAccess(ctx context.Context, key string) {
	c.access.LogFeatureAccess(ctx, key)
}

// Refresh arms the refresh timer. The timer does not reload anything when it
// fires; call LoadFeatures (or run AutoRefresh) to pick up server changes.
func (c *Cache) Refresh() {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	if c.refreshTimer != nil {
		c.refreshTimer.Stop()
	}
	c.refreshTimer = time.AfterFunc(c.refreshDelay, func() {
		c.logger.Debug("feature refresh timer fired")
	})
}

// AutoRefresh calls LoadFeatures every interval until ctx is done. It
// returns immediately when interval is not positive.
func (c *Cache) AutoRefresh(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.LoadFeatures(ctx)
		}
	}
}

// Clear resets the cache to its initial empty state. In-flight remote calls
// are not cancelled and may repopulate keys when they finish.
func (c *Cache) Clear() {
	c.state.Set(State{})
}

// Close stops the refresh timer and waits for pending access log calls.
func (c *Cache) Close() {
	c.refreshMu.Lock()
	if c.refreshTimer != nil {
		c.refreshTimer.Stop()
		c.refreshTimer = nil
	}
	c.refreshMu.Unlock()

	c.access.Wait()
}
