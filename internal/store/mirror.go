package store

import "log/slog"

// Mirror reads from and writes to a primary backend, copying writes to a
// secondary backend on a best-effort basis. Secondary failures are logged.
type Mirror struct {
	Primary   Backend
	Secondary Backend
	Logger    *slog.Logger
}

// Get implements Backend. Reads fall back to the secondary when the primary
// has no value for key.
func (m *Mirror) Get(key string) ([]byte, bool, error) {
	v, ok, err := m.Primary.Get(key)
	if err != nil || ok || m.Secondary == nil {
		return v, ok, err
	}
	v, ok, serr := m.Secondary.Get(key)
	if serr != nil {
		m.logger().Warn("secondary store read", "key", key, "err", serr)
		return nil, false, nil
	}
	return v, ok, nil
}

// Put implements Backend.
func (m *Mirror) Put(key string, value []byte) error {
	if err := m.Primary.Put(key, value); err != nil {
		return err
	}
	if m.Secondary != nil {
		if err := m.Secondary.Put(key, value); err != nil {
			m.logger().Warn("failed to save to secondary store", "key", key, "err", err)
		}
	}
	return nil
}

// Delete implements Backend.
func (m *Mirror) Delete(key string) error {
	if err := m.Primary.Delete(key); err != nil {
		return err
	}
	if m.Secondary != nil {
		if err := m.Secondary.Delete(key); err != nil {
			m.logger().Warn("failed to delete from secondary store", "key", key, "err", err)
		}
	}
	return nil
}

func (m *Mirror) logger() *slog.Logger {
	if m.Logger != nil {
		return m.Logger
	}
	return slog.Default()
}
