package apiclient

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// --- Auth types ---

// User is the authenticated account returned by auth/users/me/.
type User struct {
	ID           int     `json:"id"`
	Username     string  `json:"username"`
	FirstName    string  `json:"first_name"`
	LastName     string  `json:"last_name"`
	ProfileImage *string `json:"profile_image,omitempty"`
}

// RegisterRequest is the body for POST auth/users/.
type RegisterRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// --- Project / time entry types ---

// Project is a project time entries are booked against.
type Project struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// TimeEntry is a single tracked interval. EndTime and Duration are nil while
// the entry is running.
type TimeEntry struct {
	ID          int      `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	StartTime   string   `json:"start_time"`
	EndTime     *string  `json:"end_time"`
	Duration    *string  `json:"duration"`
	IsActive    bool     `json:"is_active"`
	User        string   `json:"user"`
	Project     string   `json:"project"`
	Tags        []string `json:"tags"`
}

// Started parses StartTime.
func (e *TimeEntry) Started() (time.Time, error) {
	return time.Parse(time.RFC3339, e.StartTime)
}

// PaginatedTimeEntries is a cursor-paginated page of entries.
type PaginatedTimeEntries struct {
	Next     *string     `json:"next"`
	Previous *string     `json:"previous"`
	Results  []TimeEntry `json:"results"`
}

// StartTimeEntryRequest is the body for POST api/time_entries/.
type StartTimeEntryRequest struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Project     int    `json:"project"`
	Tags        []int  `json:"tags,omitempty"`
}

// --- Feature flag types ---

// FeatureRef identifies a feature in a list response. Other fields the
// backend returns are ignored.
type FeatureRef struct {
	Key         string `json:"key"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
}

// MyFeaturesResponse lists the features enabled and disabled for the
// authenticated user.
type MyFeaturesResponse struct {
	EnabledFeatures  []FeatureRef `json:"enabled_features"`
	DisabledFeatures []FeatureRef `json:"disabled_features"`
}

// FeatureCheckResponse is the result of a single feature check.
type FeatureCheckResponse struct {
	IsEnabled     bool `json:"is_enabled"`
	UserHasAccess bool `json:"user_has_access"`
}

// --- Auth methods ---

// Login exchanges credentials for an auth token. No token is sent.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	body := map[string]string{"username": username, "password": password}
	var resp struct {
		AuthToken string `json:"auth_token"`
	}
	if err := c.doNoAuth(ctx, "POST", "auth/token/login/", body, &resp); err != nil {
		return "", err
	}
	if resp.AuthToken == "" {
		return "", fmt.Errorf("login response missing auth_token")
	}
	return resp.AuthToken, nil
}

// Register creates an account. No token is sent.
func (c *Client) Register(ctx context.Context, req *RegisterRequest) error {
	return c.doNoAuth(ctx, "POST", "auth/users/", req, nil)
}

// Me returns the authenticated user.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var resp User
	if err := c.do(ctx, "GET", "auth/users/me/", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// --- Project methods ---

// ListProjects lists the user's projects.
func (c *Client) ListProjects(ctx context.Context) ([]Project, error) {
	var resp []Project
	if err := c.do(ctx, "GET", "api/projects/", nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// --- Time entry methods ---

// ListTimeEntries fetches one page of entries. Empty cursor means the first
// page; limit <= 0 uses the server default.
func (c *Client) ListTimeEntries(ctx context.Context, cursor string, limit int) (*PaginatedTimeEntries, error) {
	params := url.Values{}
	if cursor != "" {
		params.Set("cursor", cursor)
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	var resp PaginatedTimeEntries
	if err := c.do(ctx, "GET", "api/time_entries/?"+params.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetTimeEntry fetches a single entry.
func (c *Client) GetTimeEntry(ctx context.Context, id int) (*TimeEntry, error) {
	var resp TimeEntry
	if err := c.do(ctx, "GET", fmt.Sprintf("api/time_entries/%d/", id), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// StartTimeEntry starts a new running entry.
func (c *Client) StartTimeEntry(ctx context.Context, req *StartTimeEntryRequest) (*TimeEntry, error) {
	var resp TimeEntry
	if err := c.do(ctx, "POST", "api/time_entries/", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// StopTimeEntry stops a running entry.
func (c *Client) StopTimeEntry(ctx context.Context, id int) (*TimeEntry, error) {
	var resp TimeEntry
	if err := c.do(ctx, "POST", fmt.Sprintf("api/time_entries/%d/stop/", id), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CurrentActive returns the running entry, or nil when nothing is running.
func (c *Client) CurrentActive(ctx context.Context) (*TimeEntry, error) {
	var resp TimeEntry
	if err := c.do(ctx, "GET", "api/time_entries/current_active/", nil, &resp); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &resp, nil
}

// --- Feature flag methods ---

// MyFeatures fetches the full enabled/disabled feature lists for the
// authenticated user.
func (c *Client) MyFeatures(ctx context.Context) (*MyFeaturesResponse, error) {
	var resp MyFeaturesResponse
	if err := c.do(ctx, "GET", "api/features/my_features/", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CheckFeature checks a single feature for the authenticated user.
func (c *Client) CheckFeature(ctx context.Context, key string) (*FeatureCheckResponse, error) {
	var resp FeatureCheckResponse
	if err := c.do(ctx, "GET", fmt.Sprintf("api/features/%s/check/", url.PathEscape(key)), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LogFeatureAccess records that the user accessed a feature.
func (c *Client) LogFeatureAccess(ctx context.Context, key string) error {
	return c.do(ctx, "POST", fmt.Sprintf("api/features/%s/log_access/", url.PathEscape(key)), nil, nil)
}
