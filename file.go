//go:build linux

package kaio

import (
	"os"

	"github.com/brickingsoft/kaio/pkg/aio"
	"github.com/brickingsoft/rxp/async"
	"golang.org/x/sys/unix"
)

// File is a file opened for kernel AIO. It is always opened with O_DIRECT,
// so transfers bypass the page cache and buffers must keep the usual
// O_DIRECT alignment (aio.LockedBuf regions are page-aligned already,
// lengths and offsets stay on the caller).
type File struct {
	a    *AIO
	file *os.File
}

// Open
// 以 O_DIRECT 模式只读打开文件。sync 为真时附加 O_SYNC。
func (a *AIO) Open(path string, sync bool) (f *File, err error) {
	return a.OpenFile(path, os.O_RDONLY, 0, sync)
}

// Create
// 以 O_DIRECT 模式创建（或截断）读写文件。sync 为真时附加 O_SYNC。
func (a *AIO) Create(path string, sync bool) (f *File, err error) {
	return a.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644, sync)
}

// OpenFile opens path with the given flags plus O_DIRECT, and O_SYNC when
// sync is set.
func (a *AIO) OpenFile(path string, flag int, perm os.FileMode, sync bool) (f *File, err error) {
	flag |= unix.O_DIRECT
	if sync {
		flag |= unix.O_SYNC
	}
	file, openErr := os.OpenFile(path, flag, perm)
	if openErr != nil {
		err = openErr
		return
	}
	f = &File{a: a, file: file}
	return
}

// Fd returns the descriptor used for submissions.
func (f *File) Fd() int {
	return int(f.file.Fd())
}

// ReadAt reads the full buffer from offset.
func (f *File) ReadAt(offset int64, buf *aio.LockedBuf, flags aio.ReadFlags) (future async.Future[int]) {
	return f.a.Read(f.Fd(), offset, buf, flags)
}

// WriteAt writes the full buffer at offset.
func (f *File) WriteAt(offset int64, buf *aio.LockedBuf, flags aio.WriteFlags) (future async.Future[int]) {
	return f.a.Write(f.Fd(), offset, buf, flags)
}

// Sync flushes data and metadata through the kernel queue.
func (f *File) Sync() (future async.Future[async.Void]) {
	return f.a.Fsync(f.Fd())
}

// Datasync flushes data only.
func (f *File) Datasync() (future async.Future[async.Void]) {
	return f.a.Fdsync(f.Fd())
}

func (f *File) Truncate(size int64) error {
	return f.file.Truncate(size)
}

func (f *File) Stat() (os.FileInfo, error) {
	return f.file.Stat()
}

func (f *File) Close() error {
	return f.file.Close()
}
