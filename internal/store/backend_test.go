package store

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// backendContract exercises the behavior every Backend must share.
func backendContract(t *testing.T, b Backend) {
	t.Helper()

	if _, ok, err := b.Get("missing"); err != nil || ok {
		t.Fatalf("Get(missing) = ok %v, err %v; want absent", ok, err)
	}

	if err := b.Put("theme", []byte(`"dark"`)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := b.Put("autostart", []byte(`true`)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := b.Put("theme", []byte(`"light"`)); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}

	v, ok, err := b.Get("theme")
	if err != nil || !ok {
		t.Fatalf("Get(theme) = ok %v, err %v", ok, err)
	}
	if string(v) != `"light"` {
		t.Errorf("Get(theme) = %s, want \"light\"", v)
	}

	if err := b.Delete("theme"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := b.Delete("theme"); err != nil {
		t.Fatalf("Delete absent: %v", err)
	}
	if _, ok, _ := b.Get("theme"); ok {
		t.Error("theme still present after Delete")
	}
	if _, ok, _ := b.Get("autostart"); !ok {
		t.Error("autostart lost after deleting another key")
	}
}

func TestFileBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.json")
	b := NewFileBackend(path)
	backendContract(t, b)

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("file mode = %o, want 600", perm)
	}

	keys, err := b.Keys()
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if len(keys) != 1 || keys[0] != "autostart" {
		t.Errorf("Keys() = %v, want [autostart]", keys)
	}
}

func TestFileBackendCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}
	b := NewFileBackend(path)
	if _, _, err := b.Get("theme"); err == nil {
		t.Error("expected parse error for corrupt file")
	}
}

func TestSQLiteBackendOpen(t *testing.T) {
	b, err := OpenSQLite(filepath.Join(t.TempDir(), "store.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer b.Close()
	backendContract(t, b)
}

func TestSQLiteBackendExistingConn(t *testing.T) {
	conn, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	conn.SetMaxOpenConns(1)
	defer conn.Close()

	b, err := NewSQLiteBackend(conn)
	if err != nil {
		t.Fatalf("NewSQLiteBackend: %v", err)
	}
	backendContract(t, b)
}

type failingBackend struct{ err error }

func (f failingBackend) Get(string) ([]byte, bool, error) { return nil, false, f.err }
func (f failingBackend) Put(string, []byte) error         { return f.err }
func (f failingBackend) Delete(string) error              { return f.err }

func TestMirrorSecondaryFailureIsNotFatal(t *testing.T) {
	primary := NewFileBackend(filepath.Join(t.TempDir(), "settings.json"))
	m := &Mirror{Primary: primary, Secondary: failingBackend{err: errors.New("disk gone")}}

	if err := m.Put("theme", []byte(`"dark"`)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := m.Delete("theme"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, err := m.Get("theme"); ok || err != nil {
		t.Errorf("Get = ok %v, err %v; want absent, nil", ok, err)
	}
}

func TestMirrorReadsFallBackToSecondary(t *testing.T) {
	dir := t.TempDir()
	primary := NewFileBackend(filepath.Join(dir, "settings.json"))
	secondary := NewFileBackend(filepath.Join(dir, "mirror.json"))
	if err := secondary.Put("authToken", []byte(`"abc"`)); err != nil {
		t.Fatal(err)
	}

	m := &Mirror{Primary: primary, Secondary: secondary}
	v, ok, err := m.Get("authToken")
	if err != nil || !ok || string(v) != `"abc"` {
		t.Errorf("Get = %s, %v, %v; want \"abc\" from secondary", v, ok, err)
	}

	if err := m.Put("theme", []byte(`"dark"`)); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := secondary.Get("theme"); !ok {
		t.Error("write not mirrored to secondary")
	}
}

func TestMirrorPrimaryFailurePropagates(t *testing.T) {
	m := &Mirror{Primary: failingBackend{err: errors.New("boom")}}
	if err := m.Put("k", []byte(`1`)); err == nil {
		t.Error("expected primary error")
	}
}
