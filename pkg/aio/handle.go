//go:build linux

package aio

import (
	"context"

	"github.com/brickingsoft/errors"
	"golang.org/x/sys/unix"
)

// Handle is the lightweight submission side of a Context. Any number of
// goroutines may share one, and extra copies cost nothing. Once the
// context closes every submission fails with ErrClosed.
type Handle struct {
	c *Context
}

// Pread submits a full-buffer read, see Submit.
func (h *Handle) Pread(ctx context.Context, fd int, buf *LockedBuf, offset int64, flags ReadFlags) (*Future, error) {
	return h.Submit(ctx, Pread(fd, buf, offset, flags))
}

// Pwrite submits a full-buffer write, see Submit.
func (h *Handle) Pwrite(ctx context.Context, fd int, buf *LockedBuf, offset int64, flags WriteFlags) (*Future, error) {
	return h.Submit(ctx, Pwrite(fd, buf, offset, flags))
}

// Fsync submits a data+metadata flush, see Submit.
func (h *Handle) Fsync(ctx context.Context, fd int) (*Future, error) {
	return h.Submit(ctx, Fsync(fd))
}

// Fdsync submits a data-only flush, see Submit.
func (h *Handle) Fdsync(ctx context.Context, fd int) (*Future, error) {
	return h.Submit(ctx, Fdsync(fd))
}

// Submit validates op, waits for a free queue slot (admission blocks until
// capacity, ctx aborts the wait), registers a token and issues the kernel
// submit. The returned future resolves exactly once, when the harvester
// matches the completion.
func (h *Handle) Submit(ctx context.Context, op Operation) (*Future, error) {
	ch, err := h.submit(ctx, op, nil)
	if err != nil {
		return nil, err
	}
	return &Future{ch: ch}, nil
}

// SubmitHandled is Submit with a callback instead of a future. The handler
// runs on the harvester goroutine and must not block.
func (h *Handle) SubmitHandled(ctx context.Context, op Operation, handler CompletionHandler) error {
	if handler == nil {
		return errors.From(
			ErrInvalidOperation,
			errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
			errors.WithWrap(errors.New("nil completion handler")),
		)
	}
	_, err := h.submit(ctx, op, handler)
	return err
}

func (h *Handle) submit(ctx context.Context, op Operation, handler CompletionHandler) (chan Result, error) {
	c := h.c
	if err := op.validate(); err != nil {
		return nil, err
	}
	// fail fast before queueing on the admission gate
	if err := c.submittable(); err != nil {
		return nil, err
	}
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, errors.From(
			ErrUncompleted,
			errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
			errors.WithMeta(errMetaOpKey, op.Cmd.String()),
			errors.WithWrap(err),
		)
	}
	p, regErr := c.register(op, handler)
	if regErr != nil {
		c.sem.Release(1)
		return nil, regErr
	}
	// capture before the kernel sees the block: after io_submit returns,
	// the harvester may deliver and recycle the entry at any moment
	ch := p.ch
	cb := op.controlBlock(p.token, c.efd.Fd())
	retried := false
	for {
		_, submitErr := c.kctx.Submit(&cb)
		if submitErr == nil {
			return ch, nil
		}
		if errors.Is(submitErr, unix.EINTR) {
			continue
		}
		if errors.Is(submitErr, unix.EAGAIN) && !retried {
			// transient queue-full, one immediate retry
			retried = true
			continue
		}
		c.unregister(p)
		c.sem.Release(1)
		return nil, errors.New(
			"io_submit failed",
			errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
			errors.WithMeta(errMetaOpKey, op.Cmd.String()),
			errors.WithWrap(submitErr),
		)
	}
}
