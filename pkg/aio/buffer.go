//go:build linux

package aio

import (
	"sync"
	"unsafe"

	"github.com/brickingsoft/errors"
	"golang.org/x/sys/unix"
)

// LockedBuf is an anonymous page-aligned mapping locked into RAM with
// mlock(2), so the kernel can transfer into and out of it without faulting
// mid-operation. While an operation borrows it the buffer cannot be closed,
// the registry keeps a reference until the completion is delivered.
type LockedBuf struct {
	mu       sync.Mutex
	mem      []byte
	inflight int
	closed   bool
}

// NewLockedBuf maps and locks size bytes, zero-initialized. The mapping is
// page-aligned, which also satisfies O_DIRECT placement rules.
func NewLockedBuf(size int) (*LockedBuf, error) {
	if size < 1 {
		return nil, errors.From(
			ErrBufferLock,
			errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
			errors.WithWrap(errors.New("size must be positive")),
		)
	}
	mem, mmapErr := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if mmapErr != nil {
		return nil, errors.From(
			ErrBufferLock,
			errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
			errors.WithWrap(mmapErr),
		)
	}
	if lockErr := unix.Mlock(mem); lockErr != nil {
		_ = unix.Munmap(mem)
		return nil, errors.From(
			ErrBufferLock,
			errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
			errors.WithWrap(lockErr),
		)
	}
	return &LockedBuf{mem: mem}, nil
}

// Bytes returns the whole locked region.
func (buf *LockedBuf) Bytes() []byte {
	return buf.mem
}

// Slice returns the [lo:hi) view of the locked region.
func (buf *LockedBuf) Slice(lo int, hi int) []byte {
	return buf.mem[lo:hi]
}

// Size returns the region length in bytes.
func (buf *LockedBuf) Size() int {
	return len(buf.mem)
}

// Close unlocks and unmaps the region. It fails with ErrBufferInFlight
// while any operation still borrows the buffer. The in-flight check and
// the close transition happen under one lock, a borrow can never slip in
// between them.
func (buf *LockedBuf) Close() error {
	buf.mu.Lock()
	if buf.inflight != 0 {
		buf.mu.Unlock()
		return errors.From(
			ErrBufferInFlight,
			errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
		)
	}
	if buf.closed {
		buf.mu.Unlock()
		return nil
	}
	buf.closed = true
	mem := buf.mem
	buf.mem = nil
	buf.mu.Unlock()
	if err := unix.Munlock(mem); err != nil {
		_ = unix.Munmap(mem)
		return err
	}
	return unix.Munmap(mem)
}

func (buf *LockedBuf) isClosed() bool {
	buf.mu.Lock()
	defer buf.mu.Unlock()
	return buf.closed
}

func (buf *LockedBuf) addr() uint64 {
	return uint64(uintptr(unsafe.Pointer(&buf.mem[0])))
}

// borrow pins the buffer for one flight, refusing once closed.
func (buf *LockedBuf) borrow() error {
	buf.mu.Lock()
	defer buf.mu.Unlock()
	if buf.closed {
		return errors.From(
			ErrInvalidOperation,
			errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
			errors.WithWrap(errors.New("closed buffer")),
		)
	}
	buf.inflight++
	return nil
}

func (buf *LockedBuf) release() {
	buf.mu.Lock()
	buf.inflight--
	buf.mu.Unlock()
}
