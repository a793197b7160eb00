package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
)

// Persistent is a Writable whose value is loaded from and saved to a Backend
// under a fixed key. Values are stored as JSON.
type Persistent[T any] struct {
	*Writable[T]

	key     string
	backend Backend
	logger  *slog.Logger
}

// NewPersistent loads key from backend, falling back to initial when the key
// is absent or unreadable. A stored value that is not valid JSON is used
// verbatim when T is string.
func NewPersistent[T any](backend Backend, key string, initial T, logger *slog.Logger) *Persistent[T] {
	if logger == nil {
		logger = slog.Default()
	}

	value := initial
	raw, ok, err := backend.Get(key)
	switch {
	case err != nil:
		logger.Warn("load setting", "key", key, "err", err)
	case ok:
		if decoded, err := decode[T](raw); err == nil {
			value = decoded
		} else {
			logger.Warn("decode setting", "key", key, "err", err)
		}
	}

	return &Persistent[T]{
		Writable: NewWritable(value),
		key:      key,
		backend:  backend,
		logger:   logger,
	}
}

// Key returns the storage key.
func (p *Persistent[T]) Key() string {
	return p.key
}

// Set replaces the value, notifies subscribers and saves it. The in-memory
// value is updated even when saving fails.
func (p *Persistent[T]) Set(v T) error {
	return p.Update(func(T) T { return v })
}

// Update applies fn atomically, then saves and notifies as Set does.
func (p *Persistent[T]) Update(fn func(T) T) error {
	var saveErr error
	p.Writable.Update(func(cur T) T {
		next := fn(cur)
		saveErr = p.save(next)
		return next
	})
	return saveErr
}

func (p *Persistent[T]) save(v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", p.key, err)
	}
	if err := p.backend.Put(p.key, data); err != nil {
		p.logger.Error("failed to save setting", "key", p.key, "err", err)
		return fmt.Errorf("save %s: %w", p.key, err)
	}
	return nil
}

func decode[T any](raw []byte) (T, error) {
	var v T
	err := json.Unmarshal(raw, &v)
	if err == nil {
		return v, nil
	}
	// Values written by older builds were plain strings.
	if s, ok := any(&v).(*string); ok {
		*s = string(raw)
		return v, nil
	}
	return v, err
}
