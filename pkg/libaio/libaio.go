//go:build linux

// Package libaio wraps the Linux kernel AIO syscalls, see io_setup(2),
// io_submit(2), io_getevents(2) and io_destroy(2). It is the raw boundary,
// errors are returned as unix.Errno and nothing here blocks a goroutine
// beyond the syscall itself.
package libaio

import (
	"runtime"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Context is the kernel aio_context_t, an opaque id owned by the kernel.
type Context uint64

// ControlBlock is struct iocb from <linux/aio_abi.h>, little-endian layout.
type ControlBlock struct {
	Data      uint64
	Key       uint32
	RWFlags   uint32
	Opcode    uint16
	ReqPrio   int16
	FD        uint32
	Buf       uint64
	Nbytes    uint64
	Offset    int64
	Reserved2 uint64
	Flags     uint32
	ResFD     uint32
}

// Event is struct io_event, one harvested completion.
type Event struct {
	Data uint64
	Obj  uint64
	Res  int64
	Res2 int64
}

// Setup creates a kernel queue able to hold nr concurrent control blocks.
func Setup(nr int) (ctx Context, err error) {
	_, _, errno := unix.Syscall(unix.SYS_IO_SETUP, uintptr(nr), uintptr(unsafe.Pointer(&ctx)), 0)
	if errno != 0 {
		err = errno
		return
	}
	return
}

// Destroy releases the kernel queue. The kernel waits for or cancels
// whatever is still in flight.
func (ctx Context) Destroy() (err error) {
	_, _, errno := unix.Syscall(unix.SYS_IO_DESTROY, uintptr(ctx), 0, 0)
	if errno != 0 {
		err = errno
	}
	return
}

// Submit queues the given control blocks. Returns the number accepted,
// which can be short of len(blocks) when the queue is full.
func (ctx Context) Submit(blocks ...*ControlBlock) (n int, err error) {
	if len(blocks) == 0 {
		return
	}
	accepted, _, errno := unix.Syscall(
		unix.SYS_IO_SUBMIT,
		uintptr(ctx),
		uintptr(len(blocks)),
		uintptr(unsafe.Pointer(&blocks[0])),
	)
	runtime.KeepAlive(blocks)
	if errno != 0 {
		err = errno
		return
	}
	n = int(accepted)
	return
}

// GetEvents harvests up to len(events) completions, blocking for at least
// minNr of them unless timeout says otherwise. A zero timeout makes the
// call non-blocking.
func (ctx Context) GetEvents(minNr int, events []Event, timeout *unix.Timespec) (n int, err error) {
	if len(events) == 0 {
		return
	}
	harvested, _, errno := unix.Syscall6(
		unix.SYS_IO_GETEVENTS,
		uintptr(ctx),
		uintptr(minNr),
		uintptr(len(events)),
		uintptr(unsafe.Pointer(&events[0])),
		uintptr(unsafe.Pointer(timeout)),
		0,
	)
	runtime.KeepAlive(events)
	runtime.KeepAlive(timeout)
	if errno != 0 {
		err = errno
		return
	}
	n = int(harvested)
	return
}
