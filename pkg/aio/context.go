//go:build linux

package aio

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/kaio/pkg/libaio"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sys/unix"
)

const (
	stateRunning int64 = iota
	stateClosing
	stateClosed
)

type kernelQueue interface {
	Submit(blocks ...*libaio.ControlBlock) (int, error)
	GetEvents(minNr int, events []libaio.Event, timeout *unix.Timespec) (int, error)
	Destroy() error
}

type notifier interface {
	Fd() int
	Wait() (uint64, error)
	Notify(n uint64) error
	Close() error
}

// Context owns a kernel queue of fixed depth, its completion eventfd and
// the registry of in-flight operations. Create starts the harvester, Close
// drains and tears everything down.
type Context struct {
	kctx      kernelQueue
	efd       notifier
	reg       *registry
	sem       *semaphore.Weighted
	depth     int
	batch     int
	state     atomic.Int64
	poison    atomic.Value
	drainCh   chan struct{}
	closeOnce sync.Once
	closeErr  error
	wg        sync.WaitGroup
}

// Create sets up a kernel queue of capacity depth and returns the lifecycle
// handle together with the shareable submission handle. The submission
// handle is safe for concurrent use.
func Create(depth int, mode NotificationMode, options ...Option) (*Context, *Handle, error) {
	setupFailed := func(cause error) error {
		return errors.From(
			ErrSetup,
			errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
			errors.WithWrap(cause),
		)
	}
	opt := Options{}
	for _, option := range options {
		if err := option(&opt); err != nil {
			return nil, nil, setupFailed(err)
		}
	}
	if depth < 1 {
		return nil, nil, setupFailed(errors.New("depth must be positive"))
	}
	kctx, setupErr := libaio.Setup(depth)
	if setupErr != nil {
		return nil, nil, setupFailed(setupErr)
	}
	efd, efdErr := libaio.NewEventfd(0, mode == SemaphoreMode)
	if efdErr != nil {
		_ = kctx.Destroy()
		return nil, nil, setupFailed(efdErr)
	}
	c := newContext(kctx, efd, depth, opt.WaitBatch)
	return c, &Handle{c: c}, nil
}

func newContext(kctx kernelQueue, efd notifier, depth int, batch int) *Context {
	if batch < 1 {
		batch = depth
	}
	if batch > maxWaitBatch {
		batch = maxWaitBatch
	}
	c := &Context{
		kctx:    kctx,
		efd:     efd,
		reg:     newRegistry(depth),
		sem:     semaphore.NewWeighted(int64(depth)),
		depth:   depth,
		batch:   batch,
		drainCh: make(chan struct{}),
	}
	c.state.Store(stateRunning)
	c.wg.Add(1)
	go c.harvest()
	return c
}

// Depth returns the kernel queue capacity.
func (c *Context) Depth() int {
	return c.depth
}

// Pending returns the number of operations currently in flight.
func (c *Context) Pending() int {
	return c.reg.size()
}

// Close stops admitting, waits until every in-flight operation has been
// harvested, then releases the kernel queue and the eventfd. In-flight
// kernel operations are never cancelled, they complete naturally.
// Idempotent, safe to call from several goroutines.
func (c *Context) Close(ctx context.Context) error {
	c.reg.mu.Lock()
	if c.state.Load() == stateRunning {
		c.state.Store(stateClosing)
	}
	c.reg.mu.Unlock()
	// nudge a parked harvester so it re-evaluates the drain condition
	_ = c.efd.Notify(1)
	select {
	case <-c.drainCh:
	case <-ctx.Done():
		return errors.From(
			ErrUncompleted,
			errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
			errors.WithMeta(errMetaOpKey, "close"),
			errors.WithWrap(ctx.Err()),
		)
	}
	c.wg.Wait()
	c.closeOnce.Do(func() {
		destroyErr := c.kctx.Destroy()
		efdErr := c.efd.Close()
		c.state.Store(stateClosed)
		if destroyErr != nil {
			c.closeErr = destroyErr
		} else {
			c.closeErr = efdErr
		}
	})
	if err := c.poisonErr(); err != nil {
		return err
	}
	return c.closeErr
}

func (c *Context) poisonErr() error {
	if v := c.poison.Load(); v != nil {
		return v.(error)
	}
	return nil
}

// submittable reports whether new submissions are admitted.
// Callers hold c.reg.mu when registering, keeping the answer and the
// registry insert atomic with respect to Close.
func (c *Context) submittable() error {
	if err := c.poisonErr(); err != nil {
		return err
	}
	if c.state.Load() != stateRunning {
		return errors.From(
			ErrClosed,
			errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
		)
	}
	return nil
}

func (c *Context) register(op Operation, handler CompletionHandler) (*pending, error) {
	c.reg.mu.Lock()
	defer c.reg.mu.Unlock()
	if err := c.submittable(); err != nil {
		return nil, err
	}
	p, ok := c.reg.take(op, handler)
	if !ok {
		// the admission semaphore bounds registrations, an empty free list
		// here means bookkeeping went wrong
		return nil, errors.From(
			ErrBusy,
			errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
		)
	}
	if op.Buf != nil {
		// validate saw the buffer open, but a concurrent Close may have won
		// the race since, borrow re-checks under the buffer lock
		if borrowErr := op.Buf.borrow(); borrowErr != nil {
			c.reg.remove(p.token)
			c.reg.recycle(p)
			return nil, errors.From(
				borrowErr,
				errors.WithMeta(errMetaOpKey, op.Cmd.String()),
			)
		}
	}
	return p, nil
}

// unregister rolls a registration back after a failed kernel submit. The
// entry returns to the free list only if it was still registered, so a slot
// can never be freed twice.
func (c *Context) unregister(p *pending) {
	c.reg.mu.Lock()
	if _, ok := c.reg.remove(p.token); ok {
		if p.op.Buf != nil {
			p.op.Buf.release()
		}
		c.reg.recycle(p)
	}
	closing := c.state.Load() == stateClosing
	empty := len(c.reg.entries) == 0
	c.reg.mu.Unlock()
	if closing && empty {
		_ = c.efd.Notify(1)
	}
}
