package timer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tockapp/tock/internal/apiclient"
)

type fakeActive struct {
	entry *apiclient.TimeEntry
	err   error
}

func (f fakeActive) CurrentActive(context.Context) (*apiclient.TimeEntry, error) {
	return f.entry, f.err
}

func TestFromEntry(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		entry       *apiclient.TimeEntry
		wantActive  bool
		wantElapsed time.Duration
		wantTitle   string
	}{
		{"nil entry", nil, false, 0, ""},
		{"stopped entry", &apiclient.TimeEntry{ID: 1, Title: "done", StartTime: "2024-05-01T10:00:00Z"}, false, 0, ""},
		{"running", &apiclient.TimeEntry{ID: 2, Title: "coding", StartTime: "2024-05-01T11:15:30Z", IsActive: true}, true, 44*time.Minute + 30*time.Second, "coding"},
		{"clock skew", &apiclient.TimeEntry{ID: 3, Title: "future", StartTime: "2024-05-01T12:01:00Z", IsActive: true}, true, 0, "future"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := FromEntry(tt.entry, now)
			if st.Active != tt.wantActive {
				t.Fatalf("Active = %v, want %v", st.Active, tt.wantActive)
			}
			if st.Elapsed() != tt.wantElapsed {
				t.Errorf("Elapsed = %v, want %v", st.Elapsed(), tt.wantElapsed)
			}
			if !tt.wantActive {
				if st.Title != nil || st.ElapsedSeconds != nil {
					t.Errorf("inactive state carries fields: %+v", st)
				}
				return
			}
			if st.Title == nil || *st.Title != tt.wantTitle {
				t.Errorf("Title = %v, want %q", st.Title, tt.wantTitle)
			}
		})
	}
}

func TestFromEntryUnparseableStart(t *testing.T) {
	st := FromEntry(&apiclient.TimeEntry{Title: "x", StartTime: "nope", IsActive: true}, time.Now())
	if !st.Active || st.ElapsedSeconds != nil {
		t.Errorf("state = %+v, want active with no elapsed", st)
	}
}

func TestCurrent(t *testing.T) {
	now := time.Now()
	entry := &apiclient.TimeEntry{ID: 5, Title: "t", StartTime: now.Add(-time.Minute).UTC().Format(time.RFC3339), IsActive: true}

	st, err := Current(context.Background(), fakeActive{entry: entry}, now)
	if err != nil || !st.Active || st.EntryID != 5 {
		t.Errorf("Current = %+v, %v", st, err)
	}

	boom := errors.New("boom")
	if _, err := Current(context.Background(), fakeActive{err: boom}, now); !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}

	st, err = Current(context.Background(), fakeActive{}, now)
	if err != nil || st.Active {
		t.Errorf("no active entry: %+v, %v", st, err)
	}
}
