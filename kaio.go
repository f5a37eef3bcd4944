//go:build linux

package kaio

import (
	"context"

	"github.com/brickingsoft/kaio/pkg/aio"
	"github.com/brickingsoft/rxp"
	"github.com/brickingsoft/rxp/async"
)

// Create
// 创建内核 AIO 上下文。
//
// depth 为内核队列的固定容量。提交数超过容量时，提交方会等待空位。
// kaio 基于 rxp.Executors 异步编程模式，未通过 WithExecutors 指定时，
// 会创建私有的执行器并随 Close 一起关闭。
func Create(ctx context.Context, depth int, options ...Option) (v *AIO, err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	opt := Options{
		NotificationMode: aio.CounterMode,
	}
	for _, option := range options {
		if err = option(&opt); err != nil {
			return
		}
	}
	executors := opt.Executors
	ownsExecutors := false
	if executors == nil {
		executors, err = rxp.New()
		if err != nil {
			return
		}
		ownsExecutors = true
	}
	ctx = rxp.With(ctx, executors)
	coreOptions := make([]aio.Option, 0, 1)
	if opt.WaitBatch > 0 {
		coreOptions = append(coreOptions, aio.WithWaitBatch(opt.WaitBatch))
	}
	core, handle, createErr := aio.Create(depth, opt.NotificationMode, coreOptions...)
	if createErr != nil {
		if ownsExecutors {
			_ = executors.Close()
		}
		err = createErr
		return
	}
	v = &AIO{
		ctx:           ctx,
		core:          core,
		handle:        handle,
		executors:     executors,
		ownsExecutors: ownsExecutors,
	}
	return
}

// AIO owns one kernel AIO context and exposes the awaitable surface over
// it. All methods are safe for concurrent use.
type AIO struct {
	ctx           context.Context
	core          *aio.Context
	handle        *aio.Handle
	executors     rxp.Executors
	ownsExecutors bool
}

// Handle returns the raw submission handle for Await-style use without
// the rxp layer.
func (a *AIO) Handle() *aio.Handle {
	return a.handle
}

// Pending returns the number of operations currently in flight.
func (a *AIO) Pending() int {
	return a.core.Pending()
}

// Read
// 读取。从 fd 的 offset 处读满锁定缓冲区，返回已传输字节数的未来。
func (a *AIO) Read(fd int, offset int64, buf *aio.LockedBuf, flags aio.ReadFlags) (future async.Future[int]) {
	return a.submit(aio.Pread(fd, buf, offset, flags))
}

// Write
// 写入。把锁定缓冲区写到 fd 的 offset 处，返回已传输字节数的未来。
// 带 aio.WriteAppend 时内核忽略 offset 并原子地追加。
func (a *AIO) Write(fd int, offset int64, buf *aio.LockedBuf, flags aio.WriteFlags) (future async.Future[int]) {
	return a.submit(aio.Pwrite(fd, buf, offset, flags))
}

// Fsync
// 同步数据与元数据。
func (a *AIO) Fsync(fd int) (future async.Future[async.Void]) {
	return a.submitVoid(aio.Fsync(fd))
}

// Fdsync
// 仅同步数据。
func (a *AIO) Fdsync(fd int) (future async.Future[async.Void]) {
	return a.submitVoid(aio.Fdsync(fd))
}

// Close
// 关闭。停止接纳新提交，等待在途操作全部收割完再释放内核资源。
func (a *AIO) Close() (future async.Future[async.Void]) {
	promise, promiseErr := async.Make[async.Void](a.ctx, async.WithWait())
	if promiseErr != nil {
		future = async.FailedImmediately[async.Void](a.ctx, promiseErr)
		return
	}
	task := closeTask{a: a, promise: promise}
	if execErr := a.executors.Execute(a.ctx, &task); execErr != nil {
		promise.Fail(execErr)
	}
	future = promise.Future()
	return
}

func (a *AIO) submit(op aio.Operation) (future async.Future[int]) {
	promise, promiseErr := async.Make[int](a.ctx, async.WithWait())
	if promiseErr != nil {
		future = async.FailedImmediately[int](a.ctx, promiseErr)
		return
	}
	task := submitTask{handle: a.handle, op: op, promise: promise}
	if execErr := a.executors.Execute(a.ctx, &task); execErr != nil {
		promise.Fail(execErr)
	}
	future = promise.Future()
	return
}

func (a *AIO) submitVoid(op aio.Operation) (future async.Future[async.Void]) {
	promise, promiseErr := async.Make[async.Void](a.ctx, async.WithWait())
	if promiseErr != nil {
		future = async.FailedImmediately[async.Void](a.ctx, promiseErr)
		return
	}
	task := submitVoidTask{handle: a.handle, op: op, promise: promise}
	if execErr := a.executors.Execute(a.ctx, &task); execErr != nil {
		promise.Fail(execErr)
	}
	future = promise.Future()
	return
}

type submitTask struct {
	handle  *aio.Handle
	op      aio.Operation
	promise async.Promise[int]
}

func (task *submitTask) Handle(ctx context.Context) {
	promise := task.promise
	submitErr := task.handle.SubmitHandled(ctx, task.op, func(n int, cause error) {
		if cause != nil {
			promise.Fail(cause)
			return
		}
		promise.Succeed(n)
	})
	if submitErr != nil {
		promise.Fail(submitErr)
	}
}

type submitVoidTask struct {
	handle  *aio.Handle
	op      aio.Operation
	promise async.Promise[async.Void]
}

func (task *submitVoidTask) Handle(ctx context.Context) {
	promise := task.promise
	submitErr := task.handle.SubmitHandled(ctx, task.op, func(_ int, cause error) {
		if cause != nil {
			promise.Fail(cause)
			return
		}
		promise.Succeed(async.Void{})
	})
	if submitErr != nil {
		promise.Fail(submitErr)
	}
}

type closeTask struct {
	a       *AIO
	promise async.Promise[async.Void]
}

func (task *closeTask) Handle(ctx context.Context) {
	a := task.a
	if err := a.core.Close(ctx); err != nil {
		task.promise.Fail(err)
	} else {
		task.promise.Succeed(async.Void{})
	}
	if a.ownsExecutors {
		go func(executors rxp.Executors) {
			_ = executors.Close()
		}(a.executors)
	}
}
