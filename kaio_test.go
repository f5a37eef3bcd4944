//go:build linux

package kaio_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/brickingsoft/kaio"
	"github.com/brickingsoft/kaio/pkg/aio"
	"github.com/brickingsoft/rxp"
	"github.com/brickingsoft/rxp/async"
)

type funcTask func()

func (task funcTask) Handle(_ context.Context) { task() }

func TestCreateClose(t *testing.T) {
	a, err := kaio.Create(context.Background(), 8)
	if err != nil {
		t.Fatal(err)
	}
	if _, err = async.AwaitableFuture(a.Close()).Await(); err != nil {
		t.Fatal(err)
	}
}

func TestCreateInvalidOption(t *testing.T) {
	if _, err := kaio.Create(context.Background(), 8, kaio.WithWaitBatch(0)); err == nil {
		t.Error("zero wait batch accepted")
	}
	if _, err := kaio.Create(context.Background(), 0); err == nil {
		t.Error("zero depth accepted")
	}
}

func TestReadWriteFutures(t *testing.T) {
	a, err := kaio.Create(context.Background(), 8)
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		_, _ = async.AwaitableFuture(a.Close()).Await()
	}()

	file, openErr := os.Create(filepath.Join(t.TempDir(), "data.bin"))
	if openErr != nil {
		t.Fatal(openErr)
	}
	defer file.Close()
	fd := int(file.Fd())

	out, outErr := aio.NewLockedBuf(1024)
	if outErr != nil {
		t.Fatal(outErr)
	}
	defer out.Close()
	for i := range out.Bytes() {
		out.Bytes()[i] = byte(i % 255)
	}

	n, writeErr := async.AwaitableFuture(a.Write(fd, 0, out, 0)).Await()
	if writeErr != nil {
		t.Fatal(writeErr)
	}
	if n != 1024 {
		t.Fatal("written:", n)
	}
	if _, syncErr := async.AwaitableFuture(a.Fdsync(fd)).Await(); syncErr != nil {
		t.Fatal(syncErr)
	}

	in, inErr := aio.NewLockedBuf(1024)
	if inErr != nil {
		t.Fatal(inErr)
	}
	defer in.Close()
	n, readErr := async.AwaitableFuture(a.Read(fd, 0, in, 0)).Await()
	if readErr != nil {
		t.Fatal(readErr)
	}
	if n != 1024 {
		t.Fatal("read:", n)
	}
	if !bytes.Equal(in.Bytes(), out.Bytes()) {
		t.Fatal("roundtrip corrupted the data")
	}
	if pending := a.Pending(); pending != 0 {
		t.Error("pending:", pending)
	}
}

func TestSubmitAfterClose(t *testing.T) {
	a, err := kaio.Create(context.Background(), 2)
	if err != nil {
		t.Fatal(err)
	}
	if _, err = async.AwaitableFuture(a.Close()).Await(); err != nil {
		t.Fatal(err)
	}

	buf, bufErr := aio.NewLockedBuf(64)
	if bufErr != nil {
		t.Fatal(bufErr)
	}
	defer buf.Close()
	if _, err = async.AwaitableFuture(a.Read(0, 0, buf, 0)).Await(); !kaio.IsClosed(err) {
		t.Fatal("want closed, got:", err)
	}
}

func TestWithExecutors(t *testing.T) {
	executors, execErr := rxp.New()
	if execErr != nil {
		t.Fatal(execErr)
	}
	defer executors.Close()

	a, err := kaio.Create(context.Background(), 4, kaio.WithExecutors(executors))
	if err != nil {
		t.Fatal(err)
	}
	file, openErr := os.Create(filepath.Join(t.TempDir(), "fsync.bin"))
	if openErr != nil {
		t.Fatal(openErr)
	}
	defer file.Close()
	if _, err = async.AwaitableFuture(a.Fsync(int(file.Fd()))).Await(); err != nil {
		t.Fatal(err)
	}
	if _, err = async.AwaitableFuture(a.Close()).Await(); err != nil {
		t.Fatal(err)
	}

	// the supplied executors stay usable after the bridge closes
	done := make(chan struct{})
	if execErr := executors.Execute(context.Background(), funcTask(func() { close(done) })); execErr != nil {
		t.Fatal(execErr)
	}
	<-done
}

func TestFileDirect(t *testing.T) {
	a, err := kaio.Create(context.Background(), 8)
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		_, _ = async.AwaitableFuture(a.Close()).Await()
	}()

	f, createErr := a.Create(filepath.Join(t.TempDir(), "direct.bin"), false)
	if createErr != nil {
		// tmpfs and some filesystems reject O_DIRECT
		t.Skip("O_DIRECT unavailable:", createErr)
	}
	defer f.Close()

	out, outErr := aio.NewLockedBuf(4096)
	if outErr != nil {
		t.Fatal(outErr)
	}
	defer out.Close()
	for i := range out.Bytes() {
		out.Bytes()[i] = byte(i)
	}

	n, writeErr := async.AwaitableFuture(f.WriteAt(0, out, 0)).Await()
	if writeErr != nil {
		t.Fatal(writeErr)
	}
	if n != 4096 {
		t.Fatal("written:", n)
	}
	if _, syncErr := async.AwaitableFuture(f.Sync()).Await(); syncErr != nil {
		t.Fatal(syncErr)
	}

	in, inErr := aio.NewLockedBuf(4096)
	if inErr != nil {
		t.Fatal(inErr)
	}
	defer in.Close()
	n, readErr := async.AwaitableFuture(f.ReadAt(0, in, 0)).Await()
	if readErr != nil {
		t.Fatal(readErr)
	}
	if n != 4096 {
		t.Fatal("read:", n)
	}
	if !bytes.Equal(in.Bytes(), out.Bytes()) {
		t.Fatal("roundtrip corrupted the data")
	}

	info, statErr := f.Stat()
	if statErr != nil {
		t.Fatal(statErr)
	}
	if info.Size() != 4096 {
		t.Error("size:", info.Size())
	}
}
