//go:build linux

package aio

import (
	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/kaio/pkg/kernel"
	"github.com/brickingsoft/kaio/pkg/libaio"
)

// Cmd identifies the kind of kernel operation.
type Cmd uint8

const (
	CmdUnknown Cmd = iota
	CmdPread
	CmdPwrite
	CmdFsync
	CmdFdsync
)

func (cmd Cmd) String() string {
	switch cmd {
	case CmdPread:
		return "pread"
	case CmdPwrite:
		return "pwrite"
	case CmdFsync:
		return "fsync"
	case CmdFdsync:
		return "fdsync"
	default:
		return "unknown"
	}
}

func (cmd Cmd) opcode() uint16 {
	switch cmd {
	case CmdPread:
		return libaio.CmdPread
	case CmdPwrite:
		return libaio.CmdPwrite
	case CmdFsync:
		return libaio.CmdFsync
	default:
		return libaio.CmdFdsync
	}
}

// ReadFlags are the per-IO flags a read may carry.
type ReadFlags uint32

const (
	ReadHiPri  = ReadFlags(libaio.RWFHiPri)
	ReadNoWait = ReadFlags(libaio.RWFNoWait)
)

const readFlagsMask = uint32(ReadHiPri | ReadNoWait)

// WriteFlags are the per-IO flags a write may carry. WriteAppend makes the
// kernel ignore the offset and append atomically.
type WriteFlags uint32

const (
	WriteAppend = WriteFlags(libaio.RWFAppend)
	WriteDSync  = WriteFlags(libaio.RWFDSync)
	WriteSync   = WriteFlags(libaio.RWFSync)
	WriteHiPri  = WriteFlags(libaio.RWFHiPri)
	WriteNoWait = WriteFlags(libaio.RWFNoWait)
)

const writeFlagsMask = uint32(WriteAppend | WriteDSync | WriteSync | WriteHiPri | WriteNoWait)

// Operation describes one submission. It is a value, immutable once
// submitted. Buf is borrowed, ownership returns to the caller when the
// completion is delivered.
type Operation struct {
	Cmd    Cmd
	FD     int
	Buf    *LockedBuf
	Offset int64
	Len    int
	rwf    uint32
}

// Pread reads the full buffer from fd at offset.
func Pread(fd int, buf *LockedBuf, offset int64, flags ReadFlags) Operation {
	n := 0
	if buf != nil {
		n = buf.Size()
	}
	return Operation{Cmd: CmdPread, FD: fd, Buf: buf, Offset: offset, Len: n, rwf: uint32(flags)}
}

// Pwrite writes the full buffer to fd at offset.
func Pwrite(fd int, buf *LockedBuf, offset int64, flags WriteFlags) Operation {
	n := 0
	if buf != nil {
		n = buf.Size()
	}
	return Operation{Cmd: CmdPwrite, FD: fd, Buf: buf, Offset: offset, Len: n, rwf: uint32(flags)}
}

// Fsync flushes data and metadata of fd.
func Fsync(fd int) Operation {
	return Operation{Cmd: CmdFsync, FD: fd}
}

// Fdsync flushes data of fd.
func Fdsync(fd int) Operation {
	return Operation{Cmd: CmdFdsync, FD: fd}
}

func (op Operation) validate() error {
	fail := func(cause string) error {
		return errors.From(
			ErrInvalidOperation,
			errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
			errors.WithMeta(errMetaOpKey, op.Cmd.String()),
			errors.WithWrap(errors.New(cause)),
		)
	}
	if op.FD < 0 {
		return fail("bad file descriptor")
	}
	switch op.Cmd {
	case CmdPread:
		if op.rwf&^readFlagsMask != 0 {
			return fail("unknown read flag bits")
		}
		if err := checkRWFlagSupport(op.rwf); err != nil {
			return err
		}
	case CmdPwrite:
		if op.rwf&^writeFlagsMask != 0 {
			return fail("unknown write flag bits")
		}
		if err := checkRWFlagSupport(op.rwf); err != nil {
			return err
		}
	case CmdFsync, CmdFdsync:
		if op.rwf != 0 {
			return fail("sync takes no flags")
		}
		if op.Buf != nil || op.Len != 0 {
			return fail("sync takes no buffer")
		}
		return nil
	default:
		return fail("unknown command")
	}
	if op.Buf == nil {
		return fail("nil buffer")
	}
	if op.Buf.isClosed() {
		return fail("closed buffer")
	}
	if op.Len < 1 || op.Len > op.Buf.Size() {
		return fail("length out of buffer range")
	}
	if op.Offset < 0 {
		return fail("negative offset")
	}
	return nil
}

// checkRWFlagSupport rejects per-IO flags the running kernel predates.
// RWF_HIPRI, RWF_DSYNC and RWF_SYNC landed in 4.13, RWF_NOWAIT in 4.14
// and RWF_APPEND in 4.16.
func checkRWFlagSupport(rwf uint32) error {
	fail := func(cause string) error {
		return errors.From(
			ErrInvalidOperation,
			errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
			errors.WithWrap(errors.New(cause)),
		)
	}
	if rwf&uint32(libaio.RWFHiPri|libaio.RWFDSync|libaio.RWFSync) != 0 && !kernel.AtLeast(4, 13) {
		return fail("per-IO sync and priority flags need kernel 4.13")
	}
	if rwf&uint32(libaio.RWFNoWait) != 0 && !kernel.AtLeast(4, 14) {
		return fail("RWF_NOWAIT needs kernel 4.14")
	}
	if rwf&uint32(libaio.RWFAppend) != 0 && !kernel.AtLeast(4, 16) {
		return fail("RWF_APPEND needs kernel 4.16")
	}
	return nil
}

func (op Operation) controlBlock(token uint64, resfd int) libaio.ControlBlock {
	cb := libaio.ControlBlock{
		Data:    token,
		Opcode:  op.Cmd.opcode(),
		RWFlags: op.rwf,
		FD:      uint32(op.FD),
		Flags:   libaio.FlagResfd,
		ResFD:   uint32(resfd),
	}
	if op.Buf != nil {
		cb.Buf = op.Buf.addr()
		cb.Nbytes = uint64(op.Len)
		cb.Offset = op.Offset
	}
	return cb
}
