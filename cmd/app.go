package cmd

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/tockapp/tock/internal/apiclient"
	"github.com/tockapp/tock/internal/features"
	"github.com/tockapp/tock/internal/output"
	"github.com/tockapp/tock/internal/settings"
)

var errNotLoggedIn = errors.New("not logged in")

// app holds the components shared by every command. It is built on first
// use and closed by Execute.
type app struct {
	settings *settings.Settings
	client   *apiclient.Client
	cache    *features.Cache
	gate     *features.Gate
}

var current *app

// getApp returns the shared app, opening settings on first call.
func getApp() (*app, error) {
	if current != nil {
		return current, nil
	}

	dir, err := settings.Dir()
	if err != nil {
		output.Error("%v", err)
		return nil, err
	}
	s, err := settings.Open(dir, slog.Default())
	if err != nil {
		output.Error("open settings: %v", err)
		return nil, err
	}

	current = newApp(s, slog.Default())
	return current, nil
}

func newApp(s *settings.Settings, logger *slog.Logger) *app {
	client := apiclient.New(s.ServerURL, s.Token)
	client.Logger = logger
	cache := features.NewCache(client, features.WithLogger(logger))
	return &app{
		settings: s,
		client:   client,
		cache:    cache,
		gate:     features.NewGate(cache),
	}
}

// Close waits for pending feature access reports and releases settings.
func (a *app) Close() {
	a.cache.Close()
	if err := a.settings.Close(); err != nil {
		slog.Debug("close settings", "err", err)
	}
}

func closeApp() {
	if current != nil {
		current.Close()
		current = nil
	}
}

// requireAuth returns the app if a token is available.
func requireAuth() (*app, error) {
	a, err := getApp()
	if err != nil {
		return nil, err
	}
	if !a.settings.IsAuthenticated() {
		output.Error("not logged in (run: tock auth login)")
		return nil, errNotLoggedIn
	}
	return a, nil
}

// requireFeature reports f as disabled when the gate check returned false.
func requireFeature(f features.Feature, enabled bool) error {
	if enabled {
		return nil
	}
	output.Error("%s is not enabled for this account", f.Name)
	return fmt.Errorf("feature %s is disabled", f.Name)
}

// apiError prints err in a form suited to the user and returns it.
func apiError(action string, err error) error {
	switch {
	case errors.Is(err, apiclient.ErrUnauthorized):
		output.Error("%s: session expired or invalid token (run: tock auth login)", action)
	case errors.Is(err, apiclient.ErrForbidden):
		output.Error("%s: permission denied", action)
	default:
		output.Error("%s: %v", action, err)
	}
	return err
}
