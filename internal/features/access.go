package features

import (
	"context"
	"log/slog"
	"sync"
)

// AccessRemote records feature access events.
type AccessRemote interface {
	LogFeatureAccess(ctx context.Context, key string) error
}

// AccessLogger sends feature access events to the backend in the
// background. Failures are logged and dropped; there are no retries.
type AccessLogger struct {
	remote AccessRemote
	logger *slog.Logger
	wg     sync.WaitGroup
}

// NewAccessLogger creates a logger sending events to remote. A nil remote
// produces a logger that drops every event.
func NewAccessLogger(remote AccessRemote, logger *slog.Logger) *AccessLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AccessLogger{remote: remote, logger: logger}
}

// LogFeatureAccess starts sending an access event for key and returns
// immediately. The send is detached from ctx cancellation.
func (l *AccessLogger) LogFeatureAccess(ctx context.Context, key string) {
	if l == nil || l.remote == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		if err := l.remote.LogFeatureAccess(ctx, key); err != nil {
			l.logger.Debug("log feature access", "key", key, "err", err)
		}
	}()
}

// Wait blocks until every started send has finished.
func (l *AccessLogger) Wait() {
	if l == nil {
		return
	}
	l.wg.Wait()
}
