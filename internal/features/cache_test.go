package features

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tockapp/tock/internal/apiclient"
)

// fakeRemote is an in-memory Remote that counts calls. When checkStarted /
// checkRelease (or loadStarted / loadRelease) are set, calls announce
// themselves and block until released.
type fakeRemote struct {
	mu sync.Mutex

	enabled     []string
	disabled    []string
	featuresErr error

	checks   map[string]apiclient.FeatureCheckResponse
	checkErr error
	logErr   error

	featuresCalls int
	checkCalls    map[string]int
	logged        []string

	checkStarted chan string
	checkRelease chan struct{}
	loadStarted  chan struct{}
	loadRelease  chan struct{}
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		checks:     make(map[string]apiclient.FeatureCheckResponse),
		checkCalls: make(map[string]int),
	}
}

func (f *fakeRemote) MyFeatures(ctx context.Context) (*apiclient.MyFeaturesResponse, error) {
	f.mu.Lock()
	f.featuresCalls++
	started, release := f.loadStarted, f.loadRelease
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
		<-release
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.featuresErr != nil {
		return nil, f.featuresErr
	}
	resp := &apiclient.MyFeaturesResponse{}
	for _, k := range f.enabled {
		resp.EnabledFeatures = append(resp.EnabledFeatures, apiclient.FeatureRef{Key: k})
	}
	for _, k := range f.disabled {
		resp.DisabledFeatures = append(resp.DisabledFeatures, apiclient.FeatureRef{Key: k})
	}
	return resp, nil
}

func (f *fakeRemote) CheckFeature(ctx context.Context, key string) (*apiclient.FeatureCheckResponse, error) {
	f.mu.Lock()
	f.checkCalls[key]++
	started, release := f.checkStarted, f.checkRelease
	f.mu.Unlock()

	if started != nil {
		started <- key
		<-release
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.checkErr != nil {
		return nil, f.checkErr
	}
	resp := f.checks[key]
	return &resp, nil
}

func (f *fakeRemote) LogFeatureAccess(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logged = append(f.logged, key)
	return f.logErr
}

func (f *fakeRemote) set(fn func(f *fakeRemote)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeRemote) calls(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.checkCalls[key]
}

func newTestCache(t *testing.T, remote *fakeRemote, opts ...Option) *Cache {
	t.Helper()
	c := NewCache(remote, opts...)
	t.Cleanup(c.Close)
	return c
}

func TestLoadedEnabledKeyNeedsNoRemoteCheck(t *testing.T) {
	remote := newFakeRemote()
	remote.enabled = []string{"tray_timer", "custom_themes"}
	c := newTestCache(t, remote)
	ctx := context.Background()

	c.LoadFeatures(ctx)

	for _, key := range []string{"tray_timer", "custom_themes"} {
		if !c.IsFeatureEnabled(ctx, key) {
			t.Errorf("IsFeatureEnabled(%q) = false, want true", key)
		}
		if n := remote.calls(key); n != 0 {
			t.Errorf("remote checks for %q = %d, want 0", key, n)
		}
	}
}

func TestLoadedDisabledKeyShortCircuits(t *testing.T) {
	remote := newFakeRemote()
	remote.disabled = []string{"process_tracking"}
	c := newTestCache(t, remote)
	ctx := context.Background()

	c.LoadFeatures(ctx)

	// The server would now say yes, but the cached answer wins.
	remote.set(func(f *fakeRemote) {
		f.checks["process_tracking"] = apiclient.FeatureCheckResponse{IsEnabled: true, UserHasAccess: true}
	})

	if c.IsFeatureEnabled(ctx, "process_tracking") {
		t.Error("IsFeatureEnabled = true, want cached false")
	}
	if n := remote.calls("process_tracking"); n != 0 {
		t.Errorf("remote checks = %d, want 0", n)
	}
}

func TestUnseenKeyCheckedOnceThenCached(t *testing.T) {
	remote := newFakeRemote()
	remote.checks["time_entry_tags"] = apiclient.FeatureCheckResponse{IsEnabled: true, UserHasAccess: true}
	c := newTestCache(t, remote)
	ctx := context.Background()

	if !c.IsFeatureEnabled(ctx, "time_entry_tags") {
		t.Fatal("first call = false, want true")
	}
	if n := remote.calls("time_entry_tags"); n != 1 {
		t.Fatalf("remote checks after first call = %d, want 1", n)
	}

	if !c.IsFeatureEnabled(ctx, "time_entry_tags") {
		t.Fatal("second call = false, want true")
	}
	if n := remote.calls("time_entry_tags"); n != 1 {
		t.Errorf("remote checks after second call = %d, want 1", n)
	}
	if !c.State().EnabledFeatures.Has("time_entry_tags") {
		t.Error("key not cached as enabled")
	}
}

func TestEffectiveResultIsCached(t *testing.T) {
	remote := newFakeRemote()
	remote.checks["beta"] = apiclient.FeatureCheckResponse{IsEnabled: true, UserHasAccess: false}
	c := newTestCache(t, remote)
	ctx := context.Background()

	if c.IsFeatureEnabled(ctx, "beta") {
		t.Fatal("IsFeatureEnabled = true, want false without access")
	}

	s := c.State()
	if !s.DisabledFeatures.Has("beta") {
		t.Error("key not cached as disabled")
	}
	if s.EnabledFeatures.Has("beta") {
		t.Error("key cached as enabled")
	}

	c.IsFeatureEnabled(ctx, "beta")
	if n := remote.calls("beta"); n != 1 {
		t.Errorf("remote checks = %d, want 1", n)
	}
}

func TestCheckFailureIsNotCached(t *testing.T) {
	remote := newFakeRemote()
	remote.checkErr = errors.New("connection refused")
	c := newTestCache(t, remote)
	ctx := context.Background()

	if c.IsFeatureEnabled(ctx, "beta") {
		t.Fatal("IsFeatureEnabled = true, want false on error")
	}

	s := c.State()
	if _, known := s.Lookup("beta"); known {
		t.Error("failed check was cached")
	}
	if s.Error != "" {
		t.Errorf("State.Error = %q, check failures must not set it", s.Error)
	}

	// Next call goes back to the server and picks up the recovery.
	remote.set(func(f *fakeRemote) {
		f.checkErr = nil
		f.checks["beta"] = apiclient.FeatureCheckResponse{IsEnabled: true, UserHasAccess: true}
	})
	if !c.IsFeatureEnabled(ctx, "beta") {
		t.Error("retry = false, want true")
	}
	if n := remote.calls("beta"); n != 2 {
		t.Errorf("remote checks = %d, want 2", n)
	}
}

func TestEmptyKeyIsDisabled(t *testing.T) {
	remote := newFakeRemote()
	c := newTestCache(t, remote)
	if c.IsFeatureEnabled(context.Background(), "") {
		t.Error("empty key enabled")
	}
	if n := remote.calls(""); n != 0 {
		t.Errorf("remote checks = %d, want 0", n)
	}
}

func TestClearResetsState(t *testing.T) {
	remote := newFakeRemote()
	remote.enabled = []string{"a"}
	remote.disabled = []string{"b"}
	c := newTestCache(t, remote)
	ctx := context.Background()

	var states []State
	c.Subscribe(func(s State) { states = append(states, s) })

	c.LoadFeatures(ctx)
	before := c.State()
	if !before.EnabledFeatures.Has("a") || before.LastUpdated.IsZero() {
		t.Fatalf("load did not populate state: %+v", before)
	}

	c.Clear()

	last := states[len(states)-1]
	assertInitial(t, last)
	assertInitial(t, c.State())

	// The snapshot taken before Clear is unaffected.
	if !before.EnabledFeatures.Has("a") {
		t.Error("Clear mutated a previously delivered state")
	}
}

func TestClearIsIdempotent(t *testing.T) {
	remote := newFakeRemote()
	remote.enabled = []string{"a"}
	c := newTestCache(t, remote)

	c.LoadFeatures(context.Background())
	c.Clear()
	once := c.State()
	c.Clear()
	twice := c.State()

	assertInitial(t, once)
	assertInitial(t, twice)
}

func assertInitial(t *testing.T, s State) {
	t.Helper()
	if len(s.EnabledFeatures) != 0 || len(s.DisabledFeatures) != 0 {
		t.Errorf("sets not empty: enabled=%v disabled=%v", s.EnabledFeatures.Keys(), s.DisabledFeatures.Keys())
	}
	if s.Loading {
		t.Error("Loading = true")
	}
	if s.Error != "" {
		t.Errorf("Error = %q", s.Error)
	}
	if !s.LastUpdated.IsZero() {
		t.Errorf("LastUpdated = %v", s.LastUpdated)
	}
}

func TestLoadFailureKeepsCachedKeys(t *testing.T) {
	remote := newFakeRemote()
	remote.enabled = []string{"a"}
	remote.disabled = []string{"b"}
	c := newTestCache(t, remote)
	ctx := context.Background()

	c.LoadFeatures(ctx)
	loadedAt := c.State().LastUpdated

	remote.set(func(f *fakeRemote) { f.featuresErr = errors.New("502") })
	c.LoadFeatures(ctx)

	s := c.State()
	if s.Error != LoadErrorMessage {
		t.Errorf("Error = %q, want %q", s.Error, LoadErrorMessage)
	}
	if s.Loading {
		t.Error("Loading still true after failure")
	}
	if !s.EnabledFeatures.Has("a") || !s.DisabledFeatures.Has("b") {
		t.Errorf("cached keys lost: enabled=%v disabled=%v", s.EnabledFeatures.Keys(), s.DisabledFeatures.Keys())
	}
	if !s.LastUpdated.Equal(loadedAt) {
		t.Errorf("LastUpdated changed on failure: %v -> %v", loadedAt, s.LastUpdated)
	}

	// A later success clears the error.
	remote.set(func(f *fakeRemote) { f.featuresErr = nil })
	c.LoadFeatures(ctx)
	if got := c.State().Error; got != "" {
		t.Errorf("Error after recovery = %q", got)
	}
}

func TestLoadReplacesBothSets(t *testing.T) {
	remote := newFakeRemote()
	remote.checks["x"] = apiclient.FeatureCheckResponse{IsEnabled: true, UserHasAccess: true}
	c := newTestCache(t, remote)
	ctx := context.Background()

	c.IsFeatureEnabled(ctx, "x")
	remote.set(func(f *fakeRemote) {
		f.enabled = []string{"y"}
		f.disabled = []string{"x", "z", "y"}
	})
	c.LoadFeatures(ctx)

	s := c.State()
	if s.EnabledFeatures.Has("x") {
		t.Error("point-checked key survived bulk replace")
	}
	if s.EnabledFeatures.Has("y") || !s.DisabledFeatures.Has("y") {
		t.Error("key listed as both enabled and disabled should be disabled")
	}
	if got := s.DisabledFeatures.Keys(); len(got) != 3 {
		t.Errorf("disabled = %v", got)
	}
}

func TestLoadingFlagDuringLoad(t *testing.T) {
	remote := newFakeRemote()
	remote.loadStarted = make(chan struct{})
	remote.loadRelease = make(chan struct{})
	c := newTestCache(t, remote)

	done := make(chan struct{})
	go func() {
		c.LoadFeatures(context.Background())
		close(done)
	}()

	<-remote.loadStarted
	if !c.State().Loading {
		t.Error("Loading = false while load in flight")
	}
	close(remote.loadRelease)
	<-done

	if c.State().Loading {
		t.Error("Loading = true after load finished")
	}
}

func TestOverlappingLoadsKeepLoadingUntilLast(t *testing.T) {
	remote := newFakeRemote()
	remote.loadStarted = make(chan struct{})
	remote.loadRelease = make(chan struct{})
	c := newTestCache(t, remote)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.LoadFeatures(context.Background())
		}()
	}
	<-remote.loadStarted
	<-remote.loadStarted

	remote.loadRelease <- struct{}{}
	// One load finished, one still blocked.
	waitFor(t, func() bool { return !c.State().LastUpdated.IsZero() })
	if !c.State().Loading {
		t.Error("Loading = false while second load in flight")
	}

	remote.loadRelease <- struct{}{}
	wg.Wait()
	if c.State().Loading {
		t.Error("Loading = true after both loads finished")
	}
}

func TestLastUpdatedNeverMovesBackwards(t *testing.T) {
	remote := newFakeRemote()
	base := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	times := []time.Time{base, base.Add(-time.Hour), base.Add(time.Minute)}
	i := 0
	c := newTestCache(t, remote, WithClock(func() time.Time {
		ts := times[i]
		i++
		return ts
	}))
	ctx := context.Background()

	c.LoadFeatures(ctx)
	if got := c.State().LastUpdated; !got.Equal(base) {
		t.Fatalf("LastUpdated = %v, want %v", got, base)
	}
	c.LoadFeatures(ctx)
	if got := c.State().LastUpdated; !got.Equal(base) {
		t.Errorf("LastUpdated moved backwards to %v", got)
	}
	c.LoadFeatures(ctx)
	if got := c.State().LastUpdated; !got.Equal(base.Add(time.Minute)) {
		t.Errorf("LastUpdated = %v, want %v", got, base.Add(time.Minute))
	}
}

func TestPointCheckAppliedAfterConcurrentLoad(t *testing.T) {
	remote := newFakeRemote()
	remote.checks["k"] = apiclient.FeatureCheckResponse{IsEnabled: true, UserHasAccess: true}
	remote.checkStarted = make(chan string)
	remote.checkRelease = make(chan struct{})
	c := newTestCache(t, remote)
	ctx := context.Background()

	result := make(chan bool)
	go func() { result <- c.IsFeatureEnabled(ctx, "k") }()
	<-remote.checkStarted

	// The bulk load lands while the check is outstanding and says k is disabled.
	remote.set(func(f *fakeRemote) {
		f.enabled = []string{"other"}
		f.disabled = []string{"k"}
	})
	c.LoadFeatures(ctx)

	close(remote.checkRelease)
	if !<-result {
		t.Fatal("check result = false, want true")
	}

	s := c.State()
	if !s.EnabledFeatures.Has("k") || s.DisabledFeatures.Has("k") {
		t.Errorf("k not moved to enabled: enabled=%v disabled=%v", s.EnabledFeatures.Keys(), s.DisabledFeatures.Keys())
	}
	if !s.EnabledFeatures.Has("other") {
		t.Error("bulk-loaded key lost by point-check upsert")
	}
}

func TestClearDoesNotCancelInFlightCheck(t *testing.T) {
	remote := newFakeRemote()
	remote.checks["k"] = apiclient.FeatureCheckResponse{IsEnabled: true, UserHasAccess: true}
	remote.checkStarted = make(chan string)
	remote.checkRelease = make(chan struct{})
	c := newTestCache(t, remote)

	result := make(chan bool)
	go func() { result <- c.IsFeatureEnabled(context.Background(), "k") }()
	<-remote.checkStarted

	c.Clear()
	close(remote.checkRelease)
	<-result

	// The answer from before Clear repopulates the cache.
	s := c.State()
	if !s.EnabledFeatures.Has("k") {
		t.Error("in-flight check result was dropped")
	}
	if len(s.DisabledFeatures) != 0 {
		t.Errorf("disabled = %v, want empty", s.DisabledFeatures.Keys())
	}
}

func TestRemoteCheckLogsAccess(t *testing.T) {
	remote := newFakeRemote()
	remote.enabled = []string{"cached"}
	remote.checks["fresh"] = apiclient.FeatureCheckResponse{IsEnabled: true, UserHasAccess: true}
	remote.logErr = errors.New("audit endpoint down")
	c := newTestCache(t, remote)
	ctx := context.Background()

	c.LoadFeatures(ctx)
	c.IsFeatureEnabled(ctx, "cached")
	if !c.IsFeatureEnabled(ctx, "fresh") {
		t.Fatal("fresh = false, want true even though access logging fails")
	}
	c.AccessLogger().Wait()

	remote.mu.Lock()
	defer remote.mu.Unlock()
	if len(remote.logged) != 1 || remote.logged[0] != "fresh" {
		t.Errorf("logged = %v, want [fresh]", remote.logged)
	}
}

func TestRefreshIsInert(t *testing.T) {
	remote := newFakeRemote()
	remote.enabled = []string{"a"}
	c := newTestCache(t, remote, WithRefreshDelay(time.Millisecond))

	var changes int
	c.Subscribe(func(State) { changes++ })

	c.Refresh()
	c.Refresh()
	time.Sleep(20 * time.Millisecond)

	remote.mu.Lock()
	calls := remote.featuresCalls
	remote.mu.Unlock()
	if calls != 0 {
		t.Errorf("MyFeatures calls = %d, want 0", calls)
	}
	if changes != 1 {
		t.Errorf("state notifications = %d, want 1 (subscribe only)", changes)
	}
}

func TestAutoRefreshLoadsOnInterval(t *testing.T) {
	remote := newFakeRemote()
	remote.enabled = []string{"a"}
	c := newTestCache(t, remote)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.AutoRefresh(ctx, 5*time.Millisecond)
		close(done)
	}()

	waitFor(t, func() bool {
		remote.mu.Lock()
		defer remote.mu.Unlock()
		return remote.featuresCalls >= 2
	})
	cancel()
	<-done

	if !c.State().EnabledFeatures.Has("a") {
		t.Error("auto refresh did not populate cache")
	}
}

func TestAutoRefreshDisabled(t *testing.T) {
	c := newTestCache(t, newFakeRemote())
	done := make(chan struct{})
	go func() {
		c.AutoRefresh(context.Background(), 0)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("AutoRefresh(0) did not return")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(time.Millisecond)
	}
}
