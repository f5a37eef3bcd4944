//go:build linux

package aio

import (
	"github.com/brickingsoft/errors"
)

var (
	ErrSetup            = errors.Define("aio: setup failed")
	ErrClosed           = errors.Define("aio: context closed")
	ErrPoisoned         = errors.Define("aio: context poisoned")
	ErrInvalidOperation = errors.Define("aio: invalid operation")
	ErrBufferLock       = errors.Define("aio: buffer lock failed")
	ErrBufferInFlight   = errors.Define("aio: buffer in flight")
	ErrBusy             = errors.Define("aio: busy")
	ErrUncompleted      = errors.Define("aio: operation uncompleted")
)

func IsClosed(err error) bool {
	return errors.Is(err, ErrClosed)
}

func IsPoisoned(err error) bool {
	return errors.Is(err, ErrPoisoned)
}

func IsInvalidOperation(err error) bool {
	return errors.Is(err, ErrInvalidOperation)
}

func IsBufferInFlight(err error) bool {
	return errors.Is(err, ErrBufferInFlight)
}

func IsBusy(err error) bool {
	return errors.Is(err, ErrBusy)
}

func IsUncompleted(err error) bool {
	return errors.Is(err, ErrUncompleted)
}

const (
	errMetaPkgKey = "pkg"
	errMetaPkgVal = "aio"
)

const (
	errMetaOpKey = "op"
)
