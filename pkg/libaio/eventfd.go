//go:build linux

package libaio

import (
	"encoding/binary"
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// Eventfd is the completion notification descriptor, an eventfd(2) counter
// the kernel bumps for every harvested-able completion (FlagResfd).
//
// The descriptor is nonblocking and wrapped in an os.File, so Wait parks
// the calling goroutine on the runtime netpoller instead of pinning a
// thread. Close unblocks a parked Wait.
type Eventfd struct {
	fd   int
	file *os.File
}

// NewEventfd creates the descriptor with an initial count.
// In semaphore mode (EFD_SEMAPHORE) every Wait consumes a single unit,
// otherwise Wait drains and returns the whole counter.
func NewEventfd(initval uint, semaphore bool) (*Eventfd, error) {
	flags := unix.EFD_NONBLOCK | unix.EFD_CLOEXEC
	if semaphore {
		flags |= unix.EFD_SEMAPHORE
	}
	fd, err := unix.Eventfd(initval, flags)
	if err != nil {
		return nil, err
	}
	return &Eventfd{
		fd:   fd,
		file: os.NewFile(uintptr(fd), "eventfd"),
	}, nil
}

// Fd returns the raw descriptor number, for ControlBlock.ResFD.
func (efd *Eventfd) Fd() int {
	return efd.fd
}

// Wait parks until the counter is non-zero and returns its value.
func (efd *Eventfd) Wait() (uint64, error) {
	var b [8]byte
	n, err := efd.file.Read(b[:])
	if err != nil {
		return 0, err
	}
	if n != len(b) {
		return 0, errors.New("libaio: short eventfd read")
	}
	return binary.NativeEndian.Uint64(b[:]), nil
}

// Notify adds n to the counter, waking a parked Wait.
func (efd *Eventfd) Notify(n uint64) error {
	var b [8]byte
	binary.NativeEndian.PutUint64(b[:], n)
	for {
		_, err := efd.file.Write(b[:])
		if err == nil {
			return nil
		}
		if errors.Is(err, unix.EINTR) {
			continue
		}
		return err
	}
}

func (efd *Eventfd) Close() error {
	return efd.file.Close()
}
