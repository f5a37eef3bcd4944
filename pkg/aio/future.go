//go:build linux

package aio

import (
	"context"

	"github.com/brickingsoft/errors"
)

// Result is a decoded completion: bytes transferred or the operation error.
type Result struct {
	N   int
	Err error
}

// CompletionHandler receives a completion instead of a Future when the
// submission was made with SubmitHandled. It runs on the harvester
// goroutine and must not block.
type CompletionHandler func(n int, err error)

// Future resolves exactly once, when the harvester delivers the matching
// completion. It captures the registration's result channel, the registry
// entry behind it may be recycled for another operation as soon as the
// completion is delivered.
type Future struct {
	ch chan Result
}

// Await blocks until the completion arrives or ctx is done. Abandoning the
// wait does not retract the kernel operation, the result is delivered into
// the future's slot and dropped.
func (future *Future) Await(ctx context.Context) (n int, err error) {
	select {
	case r := <-future.ch:
		n, err = r.N, r.Err
	case <-ctx.Done():
		err = errors.From(
			ErrUncompleted,
			errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
			errors.WithWrap(ctx.Err()),
		)
	}
	return
}
