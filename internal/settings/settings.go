// Package settings holds the persisted client settings and the env overrides
// layered on top of them.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/tockapp/tock/internal/apiclient"
	"github.com/tockapp/tock/internal/store"
)

// Setting keys as stored on disk.
const (
	KeyAuthToken               = "authToken"
	KeyUser                    = "user"
	KeyBaseURL                 = "baseUrl"
	KeyTheme                   = "theme"
	KeyCustomThemes            = "customThemes"
	KeyMinimizeToTray          = "minimizeToTray"
	KeyCloseToTray             = "closeToTray"
	KeyAutostart               = "autostart"
	KeyTimeEntriesDisplayMode  = "timeEntriesDisplayMode"
	KeyFeaturesRefreshInterval = "featuresRefreshInterval"
)

// Defaults for settings that have one.
const (
	DefaultBaseURL     = "http://localhost:8000"
	DefaultTheme       = "light"
	DefaultDisplayMode = "window"
)

// Environment overrides.
const (
	EnvConfigDir       = "TOCK_CONFIG_DIR"
	EnvBaseURL         = "TOCK_BASE_URL"
	EnvAuthToken       = "TOCK_AUTH_TOKEN"
	EnvRefreshInterval = "TOCK_FEATURES_REFRESH_INTERVAL"
)

const (
	settingsFile = "settings.json"
	mirrorFile   = "store.db"
)

var (
	// ErrUnknownKey is returned for a key that is not a setting.
	ErrUnknownKey = errors.New("unknown setting")
	// ErrReadOnly is returned when setting a key that is managed elsewhere.
	ErrReadOnly = errors.New("setting is read-only")
)

// Theme maps CSS-style variable names to values.
type Theme map[string]string

// Settings is the set of persisted client settings. Each field is observable
// and saves itself on every change.
type Settings struct {
	AuthToken               *store.Persistent[string]
	User                    *store.Persistent[*apiclient.User]
	BaseURL                 *store.Persistent[string]
	Theme                   *store.Persistent[string]
	CustomThemes            *store.Persistent[map[string]Theme]
	MinimizeToTray          *store.Persistent[bool]
	CloseToTray             *store.Persistent[bool]
	Autostart               *store.Persistent[bool]
	TimeEntriesDisplayMode  *store.Persistent[string]
	FeaturesRefreshInterval *store.Persistent[string]

	dir     string
	backend store.Backend
	mirror  *store.SQLiteBackend
	logger  *slog.Logger
	fields  map[string]field
}

type field struct {
	get func() any
	set func(raw string) error
}

// Dir returns the settings directory: TOCK_CONFIG_DIR if set, otherwise
// ~/.config/tock. The directory is created if necessary.
func Dir() (string, error) {
	dir := os.Getenv(EnvConfigDir)
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("get home dir: %w", err)
		}
		dir = filepath.Join(home, ".config", "tock")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}
	return dir, nil
}

// Open loads settings from dir. Values are kept in settings.json and mirrored
// into a SQLite store; when the mirror cannot be opened the file is used
// alone.
func Open(dir string, logger *slog.Logger) (*Settings, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create config dir: %w", err)
	}

	s := &Settings{dir: dir, logger: logger}

	var backend store.Backend = store.NewFileBackend(filepath.Join(dir, settingsFile))
	if mirror, err := store.OpenSQLite(filepath.Join(dir, mirrorFile)); err != nil {
		logger.Warn("settings mirror unavailable", "err", err)
	} else {
		s.mirror = mirror
		backend = &store.Mirror{Primary: backend, Secondary: mirror, Logger: logger}
	}

	s.load(backend)
	return s, nil
}

// New builds settings over an arbitrary backend.
func New(backend store.Backend, logger *slog.Logger) *Settings {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Settings{logger: logger}
	s.load(backend)
	return s
}

func (s *Settings) load(b store.Backend) {
	s.backend = b
	l := s.logger
	s.AuthToken = store.NewPersistent(b, KeyAuthToken, "", l)
	s.User = store.NewPersistent[*apiclient.User](b, KeyUser, nil, l)
	s.BaseURL = store.NewPersistent(b, KeyBaseURL, DefaultBaseURL, l)
	s.Theme = store.NewPersistent(b, KeyTheme, DefaultTheme, l)
	s.CustomThemes = store.NewPersistent(b, KeyCustomThemes, map[string]Theme{}, l)
	s.MinimizeToTray = store.NewPersistent(b, KeyMinimizeToTray, true, l)
	s.CloseToTray = store.NewPersistent(b, KeyCloseToTray, false, l)
	s.Autostart = store.NewPersistent(b, KeyAutostart, false, l)
	s.TimeEntriesDisplayMode = store.NewPersistent(b, KeyTimeEntriesDisplayMode, DefaultDisplayMode, l)
	s.FeaturesRefreshInterval = store.NewPersistent(b, KeyFeaturesRefreshInterval, "", l)

	s.fields = map[string]field{
		KeyAuthToken: {
			get: func() any { return s.AuthToken.Get() },
			set: stringSetter(s.AuthToken, nil),
		},
		KeyUser: {
			get: func() any { return s.User.Get() },
		},
		KeyBaseURL: {
			get: func() any { return s.BaseURL.Get() },
			set: stringSetter(s.BaseURL, validURL),
		},
		KeyTheme: {
			get: func() any { return s.Theme.Get() },
			set: stringSetter(s.Theme, nonEmpty),
		},
		KeyCustomThemes: {
			get: func() any { return s.CustomThemes.Get() },
			set: jsonSetter(s.CustomThemes),
		},
		KeyMinimizeToTray: {
			get: func() any { return s.MinimizeToTray.Get() },
			set: boolSetter(s.MinimizeToTray),
		},
		KeyCloseToTray: {
			get: func() any { return s.CloseToTray.Get() },
			set: boolSetter(s.CloseToTray),
		},
		KeyAutostart: {
			get: func() any { return s.Autostart.Get() },
			set: boolSetter(s.Autostart),
		},
		KeyTimeEntriesDisplayMode: {
			get: func() any { return s.TimeEntriesDisplayMode.Get() },
			set: stringSetter(s.TimeEntriesDisplayMode, nonEmpty),
		},
		KeyFeaturesRefreshInterval: {
			get: func() any { return s.FeaturesRefreshInterval.Get() },
			set: stringSetter(s.FeaturesRefreshInterval, optionalInterval),
		},
	}
}

// Close releases the SQLite mirror, if open.
func (s *Settings) Close() error {
	if s.mirror == nil {
		return nil
	}
	return s.mirror.Close()
}

// Backend returns the store settings are kept in. Other components may keep
// their own keys there.
func (s *Settings) Backend() store.Backend {
	return s.backend
}

// Path returns the settings directory, or "" for settings built with New.
func (s *Settings) Path() string {
	return s.dir
}

// ServerURL returns the backend base URL.
// Priority: TOCK_BASE_URL env > baseUrl > default.
func (s *Settings) ServerURL() string {
	if v := os.Getenv(EnvBaseURL); v != "" {
		return v
	}
	if v := s.BaseURL.Get(); v != "" {
		return v
	}
	return DefaultBaseURL
}

// Token returns the auth token.
// Priority: TOCK_AUTH_TOKEN env > authToken.
func (s *Settings) Token() string {
	if v := os.Getenv(EnvAuthToken); v != "" {
		return v
	}
	return s.AuthToken.Get()
}

// IsAuthenticated returns true if a token is available.
func (s *Settings) IsAuthenticated() bool {
	return s.Token() != ""
}

// RefreshInterval returns the feature auto-refresh interval. Zero means auto
// refresh is off.
// Priority: TOCK_FEATURES_REFRESH_INTERVAL env > featuresRefreshInterval > 0.
func (s *Settings) RefreshInterval() time.Duration {
	if v := os.Getenv(EnvRefreshInterval); v != "" {
		if d, err := parseInterval(v); err == nil {
			return d
		}
	}
	if d, err := parseInterval(s.FeaturesRefreshInterval.Get()); err == nil {
		return d
	}
	return 0
}

// Logout clears the stored token and user.
func (s *Settings) Logout() error {
	return errors.Join(s.AuthToken.Set(""), s.User.Set(nil))
}

// Keys returns every setting key, sorted.
func (s *Settings) Keys() []string {
	keys := make([]string, 0, len(s.fields))
	for k := range s.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Value returns the current value of key.
func (s *Settings) Value(key string) (any, error) {
	f, ok := s.fields[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	return f.get(), nil
}

// SetString parses raw for key's type and saves it. Booleans accept the
// strconv.ParseBool forms; customThemes takes a JSON object.
func (s *Settings) SetString(key, raw string) error {
	f, ok := s.fields[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	if f.set == nil {
		return fmt.Errorf("%w: %s", ErrReadOnly, key)
	}
	return f.set(raw)
}

func parseInterval(v string) (time.Duration, error) {
	if v == "" {
		return 0, errors.New("empty interval")
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative interval %q", v)
	}
	return d, nil
}

func validURL(v string) error {
	if !strings.HasPrefix(v, "http://") && !strings.HasPrefix(v, "https://") {
		return errors.New("base URL must start with http:// or https://")
	}
	return nil
}

func optionalInterval(v string) error {
	if v == "" {
		return nil
	}
	_, err := parseInterval(v)
	return err
}

func nonEmpty(v string) error {
	if v == "" {
		return errors.New("value must not be empty")
	}
	return nil
}

func stringSetter(p *store.Persistent[string], validate func(string) error) func(string) error {
	return func(raw string) error {
		if validate != nil {
			if err := validate(raw); err != nil {
				return err
			}
		}
		return p.Set(raw)
	}
}

func boolSetter(p *store.Persistent[bool]) func(string) error {
	return func(raw string) error {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("invalid boolean %q", raw)
		}
		return p.Set(v)
	}
}

func jsonSetter[T any](p *store.Persistent[T]) func(string) error {
	return func(raw string) error {
		var v T
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return fmt.Errorf("invalid JSON: %w", err)
		}
		return p.Set(v)
	}
}
