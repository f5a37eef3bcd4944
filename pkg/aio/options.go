//go:build linux

package aio

import (
	"github.com/brickingsoft/errors"
)

type Options struct {
	// WaitBatch bounds how many completions one io_getevents call may
	// harvest. Defaults to the context depth, capped internally.
	WaitBatch int
}

type Option func(options *Options) error

// WithWaitBatch
// 设置单次收割的完成事件批量上限。
func WithWaitBatch(n int) Option {
	return func(options *Options) error {
		if n < 1 {
			return errors.New("aio: wait batch must be positive")
		}
		options.WaitBatch = n
		return nil
	}
}
