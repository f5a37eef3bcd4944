//go:build linux

package kaio

import (
	"github.com/brickingsoft/kaio/pkg/aio"
)

var (
	ErrClosed           = aio.ErrClosed
	ErrPoisoned         = aio.ErrPoisoned
	ErrInvalidOperation = aio.ErrInvalidOperation
	ErrBufferLock       = aio.ErrBufferLock
	ErrBufferInFlight   = aio.ErrBufferInFlight
	ErrBusy             = aio.ErrBusy
	ErrUncompleted      = aio.ErrUncompleted
)

func IsClosed(err error) bool {
	return aio.IsClosed(err)
}

func IsPoisoned(err error) bool {
	return aio.IsPoisoned(err)
}

func IsInvalidOperation(err error) bool {
	return aio.IsInvalidOperation(err)
}

func IsBufferInFlight(err error) bool {
	return aio.IsBufferInFlight(err)
}

func IsBusy(err error) bool {
	return aio.IsBusy(err)
}

func IsUncompleted(err error) bool {
	return aio.IsUncompleted(err)
}
