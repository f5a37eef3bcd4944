//go:build linux

package aio

import (
	"testing"
)

func TestRegistryTakeRemoveRecycle(t *testing.T) {
	reg := newRegistry(2)

	reg.mu.Lock()
	a, ok := reg.take(Fsync(1), nil)
	reg.mu.Unlock()
	if !ok {
		t.Fatal("take failed")
	}
	if a.token == 0 {
		t.Fatal("zero token")
	}
	if a.ch == nil || cap(a.ch) != 1 {
		t.Fatal("future slot not a cap-1 channel")
	}
	// the struct behind a is pooled, recycle reuses it for later
	// registrations, so remember what this registration looked like
	aToken, aCh := a.token, a.ch

	reg.mu.Lock()
	b, _ := reg.take(Fsync(2), nil)
	_, exhausted := reg.take(Fsync(3), nil)
	reg.mu.Unlock()
	if exhausted {
		t.Fatal("take beyond depth succeeded")
	}
	bToken := b.token
	if bToken == aToken {
		t.Fatal("token reused while entry live")
	}

	reg.mu.Lock()
	got, found := reg.remove(aToken)
	_, again := reg.remove(aToken)
	reg.recycle(got)
	reg.mu.Unlock()
	if !found || got != a {
		t.Fatal("remove did not return the entry")
	}
	if again {
		t.Fatal("second remove found the entry")
	}

	// recycled slot serves a new registration under a fresh token and a
	// fresh channel
	reg.mu.Lock()
	c, ok := reg.take(Fsync(4), nil)
	reg.mu.Unlock()
	if !ok {
		t.Fatal("take after recycle failed")
	}
	if c.token == aToken || c.token == bToken {
		t.Fatal("token reused:", c.token)
	}
	if c.ch == aCh {
		t.Fatal("channel reused across registrations")
	}
}

func TestRegistryHandlerEntryHasNoChannel(t *testing.T) {
	reg := newRegistry(1)
	reg.mu.Lock()
	p, ok := reg.take(Fsync(1), func(n int, err error) {})
	reg.mu.Unlock()
	if !ok {
		t.Fatal("take failed")
	}
	if p.ch != nil {
		t.Error("handler entry allocated a channel")
	}
}

func TestRegistryDetachAll(t *testing.T) {
	reg := newRegistry(4)
	reg.mu.Lock()
	for i := 0; i < 3; i++ {
		if _, ok := reg.take(Fsync(i), nil); !ok {
			reg.mu.Unlock()
			t.Fatal("take failed")
		}
	}
	detached := reg.detachAll()
	empty := reg.detachAll()
	reg.mu.Unlock()
	if len(detached) != 3 {
		t.Fatal("detached:", len(detached))
	}
	if empty != nil {
		t.Fatal("second detach returned entries")
	}
	if reg.size() != 0 {
		t.Fatal("registry not empty")
	}
}
