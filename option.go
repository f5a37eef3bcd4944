//go:build linux

package kaio

import (
	"errors"

	"github.com/brickingsoft/kaio/pkg/aio"
	"github.com/brickingsoft/rxp"
)

type Options struct {
	NotificationMode aio.NotificationMode
	WaitBatch        int
	Executors        rxp.Executors
}

type Option func(options *Options) (err error)

// WithNotificationMode
// 设置完成通知 eventfd 的计数模式。
//
// 默认为 aio.CounterMode，即一次唤醒消费全部就绪计数。
func WithNotificationMode(mode aio.NotificationMode) Option {
	return func(options *Options) error {
		if mode != aio.CounterMode && mode != aio.SemaphoreMode {
			return errors.New("kaio: unknown notification mode")
		}
		options.NotificationMode = mode
		return nil
	}
}

// WithWaitBatch
// 设置单次收割的完成事件批量上限。
func WithWaitBatch(n int) Option {
	return func(options *Options) error {
		if n < 1 {
			return errors.New("kaio: wait batch must be positive")
		}
		options.WaitBatch = n
		return nil
	}
}

// WithExecutors
// 使用外部的 rxp.Executors，其生命周期由调用方管理。
func WithExecutors(executors rxp.Executors) Option {
	return func(options *Options) error {
		if executors == nil {
			return errors.New("kaio: executors is nil")
		}
		options.Executors = executors
		return nil
	}
}
