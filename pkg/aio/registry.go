//go:build linux

package aio

import (
	"sync"

	"github.com/eapache/queue"
)

// pending is one registry entry, keyed by token. Exactly one exists per
// in-flight operation and it is removed exactly once, by the harvester.
type pending struct {
	token   uint64
	op      Operation
	ch      chan Result
	handler CompletionHandler
}

func (p *pending) deliver(r Result) {
	if p.handler != nil {
		p.handler(r.N, r.Err)
		return
	}
	p.ch <- r
}

// registry matches completions to waiters. The lock is held across map and
// free-list manipulation only, never across a syscall, so concurrent
// submitters stay independent.
type registry struct {
	mu      sync.Mutex
	entries map[uint64]*pending
	free    *queue.Queue
	next    uint64
}

func newRegistry(depth int) *registry {
	free := queue.New()
	for i := 0; i < depth; i++ {
		free.Add(&pending{})
	}
	return &registry{
		entries: make(map[uint64]*pending, depth),
		free:    free,
	}
}

// take pops a free slot and registers it under a fresh token.
// Callers hold r.mu.
func (r *registry) take(op Operation, handler CompletionHandler) (*pending, bool) {
	if r.free.Length() == 0 {
		return nil, false
	}
	p := r.free.Remove().(*pending)
	r.next++
	p.token = r.next
	p.op = op
	p.handler = handler
	if handler == nil {
		p.ch = make(chan Result, 1)
	}
	r.entries[p.token] = p
	return p, true
}

// remove detaches the entry for token. Callers hold r.mu.
func (r *registry) remove(token uint64) (*pending, bool) {
	p, ok := r.entries[token]
	if ok {
		delete(r.entries, token)
	}
	return p, ok
}

// recycle returns a detached entry to the free list. Callers hold r.mu.
func (r *registry) recycle(p *pending) {
	p.op = Operation{}
	p.ch = nil
	p.handler = nil
	r.free.Add(p)
}

// detachAll empties the registry, returning every entry. Callers hold r.mu.
func (r *registry) detachAll() []*pending {
	if len(r.entries) == 0 {
		return nil
	}
	detached := make([]*pending, 0, len(r.entries))
	for token, p := range r.entries {
		delete(r.entries, token)
		detached = append(detached, p)
	}
	return detached
}

func (r *registry) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
