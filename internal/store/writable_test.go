package store

import (
	"sync"
	"testing"
)

func TestWritableSubscribeReceivesCurrentValue(t *testing.T) {
	w := NewWritable(3)

	var got []int
	unsub := w.Subscribe(func(v int) { got = append(got, v) })
	defer unsub()

	if len(got) != 1 || got[0] != 3 {
		t.Fatalf("subscribe delivered %v, want [3]", got)
	}

	w.Set(4)
	w.Update(func(v int) int { return v * 2 })

	want := []int{3, 4, 8}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestWritableUnsubscribe(t *testing.T) {
	w := NewWritable("a")

	calls := 0
	unsub := w.Subscribe(func(string) { calls++ })
	unsub()
	unsub() // second call is a no-op

	w.Set("b")
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (initial delivery only)", calls)
	}
	if w.Get() != "b" {
		t.Errorf("Get() = %q, want b", w.Get())
	}
}

func TestWritableSubscriberMayRead(t *testing.T) {
	w := NewWritable(0)
	var seen int
	w.Subscribe(func(v int) { seen = w.Get() })
	w.Set(7)
	if seen != 7 {
		t.Errorf("seen = %d, want 7", seen)
	}
}

func TestWritableConcurrentUpdates(t *testing.T) {
	w := NewWritable(0)

	var (
		mu   sync.Mutex
		last int
	)
	w.Subscribe(func(v int) {
		mu.Lock()
		defer mu.Unlock()
		if v < last {
			t.Errorf("notification went backwards: %d after %d", v, last)
		}
		last = v
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Update(func(v int) int { return v + 1 })
		}()
	}
	wg.Wait()

	if got := w.Get(); got != 50 {
		t.Errorf("Get() = %d, want 50", got)
	}
	if last != 50 {
		t.Errorf("last notification = %d, want 50", last)
	}
}
