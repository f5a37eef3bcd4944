//go:build linux

package aio

import (
	"strconv"

	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/kaio/pkg/libaio"
	"golang.org/x/sys/unix"
)

// harvest is the per-context completion loop. It parks on the eventfd,
// consumes the readiness count, then drains the kernel queue in bounded
// non-blocking batches, routing each completion to its waiter. Exactly one
// harvester runs per context.
func (c *Context) harvest() {
	defer c.wg.Done()
	events := make([]libaio.Event, c.batch)
	var zero unix.Timespec
	for {
		if _, waitErr := c.efd.Wait(); waitErr != nil {
			c.poisonAll(waitErr)
			return
		}
		for {
			n, getErr := c.kctx.GetEvents(0, events, &zero)
			if getErr != nil {
				if errors.Is(getErr, unix.EINTR) {
					continue
				}
				c.poisonAll(getErr)
				return
			}
			for i := 0; i < n; i++ {
				if !c.complete(&events[i]) {
					return
				}
			}
			if n < len(events) {
				break
			}
		}
		if c.drained() {
			return
		}
	}
}

// complete routes one kernel event to its registry entry. An event whose
// token is unknown means the bookkeeping invariant broke, the context is
// poisoned and the harvester stops.
func (c *Context) complete(ev *libaio.Event) bool {
	c.reg.mu.Lock()
	p, ok := c.reg.remove(ev.Data)
	c.reg.mu.Unlock()
	if !ok {
		c.poisonAll(errors.New(
			"completion token not registered",
			errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
			errors.WithMeta("token", strconv.FormatUint(ev.Data, 10)),
		))
		return false
	}
	r := decode(p.op, ev.Res)
	if p.op.Buf != nil {
		p.op.Buf.release()
	}
	p.deliver(r)
	c.reg.mu.Lock()
	c.reg.recycle(p)
	c.reg.mu.Unlock()
	c.sem.Release(1)
	return true
}

// decode turns the kernel's signed result into bytes transferred or a
// structured error, raw negative errnos never leave the core.
func decode(op Operation, res int64) Result {
	if res < 0 {
		return Result{Err: errors.New(
			op.Cmd.String()+" failed",
			errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
			errors.WithMeta(errMetaOpKey, op.Cmd.String()),
			errors.WithWrap(unix.Errno(-res)),
		)}
	}
	return Result{N: int(res)}
}

func (c *Context) drained() bool {
	c.reg.mu.Lock()
	closing := c.state.Load() == stateClosing
	empty := len(c.reg.entries) == 0
	c.reg.mu.Unlock()
	if closing && empty {
		close(c.drainCh)
		return true
	}
	return false
}

// poisonAll marks the context unusable and fails every current waiter.
// Future submissions and Close report the same poisoned error.
func (c *Context) poisonAll(cause error) {
	err := errors.From(
		ErrPoisoned,
		errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
		errors.WithWrap(cause),
	)
	c.poison.Store(err)
	c.reg.mu.Lock()
	detached := c.reg.detachAll()
	c.reg.mu.Unlock()
	for _, p := range detached {
		if p.op.Buf != nil {
			p.op.Buf.release()
		}
		p.deliver(Result{Err: err})
	}
	if len(detached) > 0 {
		c.sem.Release(int64(len(detached)))
	}
	close(c.drainCh)
}
