//go:build linux

package aio

import (
	"testing"

	"github.com/brickingsoft/kaio/pkg/libaio"
)

func TestOperationValidate(t *testing.T) {
	buf, bufErr := NewLockedBuf(128)
	if bufErr != nil {
		t.Fatal(bufErr)
	}
	defer buf.Close()

	closed, closedErr := NewLockedBuf(128)
	if closedErr != nil {
		t.Fatal(closedErr)
	}
	_ = closed.Close()

	for _, tc := range []struct {
		name string
		op   Operation
		ok   bool
	}{
		{"read", Pread(0, buf, 0, 0), true},
		{"read hipri nowait", Pread(0, buf, 0, ReadHiPri|ReadNoWait), true},
		{"write", Pwrite(0, buf, 4096, 0), true},
		{"write append", Pwrite(0, buf, 0, WriteAppend|WriteDSync), true},
		{"fsync", Fsync(0), true},
		{"fdsync", Fdsync(0), true},
		{"negative fd", Pread(-1, buf, 0, 0), false},
		{"append on read", Pread(0, buf, 0, ReadFlags(libaio.RWFAppend)), false},
		{"unknown write bits", Pwrite(0, buf, 0, WriteFlags(1<<16)), false},
		{"nil buffer read", Pread(0, nil, 0, 0), false},
		{"nil buffer write", Pwrite(0, nil, 0, 0), false},
		{"closed buffer", Pread(0, closed, 0, 0), false},
		{"negative offset", Pread(0, buf, -1, 0), false},
		{"sync with buffer", Operation{Cmd: CmdFsync, Buf: buf, Len: buf.Size()}, false},
		{"sync with flags", Operation{Cmd: CmdFdsync, rwf: uint32(WriteDSync)}, false},
		{"zero length", Operation{Cmd: CmdPread, Buf: buf, Len: 0}, false},
		{"length over buffer", Operation{Cmd: CmdPwrite, Buf: buf, Len: buf.Size() + 1}, false},
		{"unknown command", Operation{Cmd: CmdUnknown}, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.op.validate()
			if tc.ok && err != nil {
				t.Error("unexpected:", err)
			}
			if !tc.ok {
				if err == nil {
					t.Error("accepted")
				} else if !IsInvalidOperation(err) {
					t.Error("wrong kind:", err)
				}
			}
		})
	}
}

func TestOperationControlBlock(t *testing.T) {
	buf, bufErr := NewLockedBuf(512)
	if bufErr != nil {
		t.Fatal(bufErr)
	}
	defer buf.Close()

	op := Pwrite(7, buf, 1024, WriteDSync)
	cb := op.controlBlock(33, 9)
	if cb.Data != 33 {
		t.Error("token:", cb.Data)
	}
	if cb.Opcode != libaio.CmdPwrite {
		t.Error("opcode:", cb.Opcode)
	}
	if cb.FD != 7 {
		t.Error("fd:", cb.FD)
	}
	if cb.Buf != buf.addr() || cb.Nbytes != 512 || cb.Offset != 1024 {
		t.Error("buffer fields:", cb.Buf, cb.Nbytes, cb.Offset)
	}
	if cb.RWFlags != uint32(WriteDSync) {
		t.Error("rw flags:", cb.RWFlags)
	}
	if cb.Flags&libaio.FlagResfd == 0 || cb.ResFD != 9 {
		t.Error("resfd wiring:", cb.Flags, cb.ResFD)
	}

	sync := Fsync(3).controlBlock(1, 9)
	if sync.Buf != 0 || sync.Nbytes != 0 {
		t.Error("sync carries buffer fields")
	}
}
