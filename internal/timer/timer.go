// Package timer derives the running-timer state from the active time entry.
package timer

import (
	"context"
	"time"

	"github.com/tockapp/tock/internal/apiclient"
)

// State is the timer as shown in the tray and the watch view. Title and
// ElapsedSeconds are nil when no entry is running.
type State struct {
	Active         bool    `json:"active"`
	EntryID        int     `json:"entry_id,omitempty"`
	Title          *string `json:"title"`
	ElapsedSeconds *uint64 `json:"elapsed_seconds"`
}

// Elapsed returns the elapsed time, or zero when inactive.
func (s State) Elapsed() time.Duration {
	if s.ElapsedSeconds == nil {
		return 0
	}
	return time.Duration(*s.ElapsedSeconds) * time.Second
}

// ActiveSource returns the currently running entry, or nil when none is.
type ActiveSource interface {
	CurrentActive(ctx context.Context) (*apiclient.TimeEntry, error)
}

// FromEntry builds the state for e as of now. A nil or stopped entry yields
// an inactive state.
func FromEntry(e *apiclient.TimeEntry, now time.Time) State {
	if e == nil || !e.IsActive {
		return State{}
	}
	title := e.Title
	st := State{Active: true, EntryID: e.ID, Title: &title}
	if start, err := e.Started(); err == nil {
		var secs uint64
		if now.After(start) {
			secs = uint64(now.Sub(start) / time.Second)
		}
		st.ElapsedSeconds = &secs
	}
	return st
}

// Current fetches the active entry and returns its state.
func Current(ctx context.Context, src ActiveSource, now time.Time) (State, error) {
	e, err := src.CurrentActive(ctx)
	if err != nil {
		return State{}, err
	}
	return FromEntry(e, now), nil
}
