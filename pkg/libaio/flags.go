//go:build linux

package libaio

// IOCB_CMD_* opcodes from <linux/aio_abi.h>.
const (
	CmdPread   uint16 = 0
	CmdPwrite  uint16 = 1
	CmdFsync   uint16 = 2
	CmdFdsync  uint16 = 3
	CmdNoop    uint16 = 6
	CmdPreadv  uint16 = 7
	CmdPwritev uint16 = 8
)

// FlagResfd asks the kernel to bump the eventfd named by ControlBlock.ResFD
// on completion.
const FlagResfd uint32 = 1 << 0

// Per-IO flags from <linux/fs.h>, same bits preadv2(2)/pwritev2(2) take.
const (
	RWFHiPri  uint32 = 0x1
	RWFDSync  uint32 = 0x2
	RWFSync   uint32 = 0x4
	RWFNoWait uint32 = 0x8
	RWFAppend uint32 = 0x10
)
