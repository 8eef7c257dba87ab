package iio

import (
	"sync"
	"sync/atomic"
	"syscall"

	"iiobuf/pkg/async"

	"github.com/sirupsen/logrus"
)

// Buffer is an input or output sample buffer of exactly one Device.
//
// Channels are selected before creation with Channel.Enable; the buffer is
// created with Device.CreateBuffer and must be destroyed with Close. Samples
// of all enabled channels are interleaved frame by frame in one memory
// region; use ChannelIter to read one channel and WriteChannel to fill one.
//
// A Buffer is either active or cancelled. Cancel moves it to cancelled for
// good: every later Refill, Push or PushPartial fails with ECANCELED.
//
// At most one transfer may be in flight per Buffer. Cancel is the only
// method that may be called concurrently with a transfer.
type Buffer struct {
	dev    *Device
	ctx    *Context // reference held until Close
	drv    BufferDriver
	mem    []byte
	cap    int
	layout FrameLayout
	output bool
	cyclic bool

	end    int
	pushed bool

	cancel   async.Event
	cancelMu sync.Mutex // orders the driver Cancel before the driver Close
	closed   atomic.Bool
	once     sync.Once
	closeErr error
}

func newBuffer(dev *Device, drv BufferDriver, samples int, cyclic bool, layout FrameLayout) *Buffer {
	mem := make([]byte, samples*layout.Stride)
	return &Buffer{
		dev:    dev,
		ctx:    dev.ctx.Retain(),
		drv:    drv,
		mem:    mem,
		cap:    samples,
		layout: layout,
		output: layout.IsOutput(),
		cyclic: cyclic,
		end:    len(mem),
	}
}

// Capacity is the number of samples per channel the buffer holds.
func (b *Buffer) Capacity() int {
	return b.cap
}

func (b *Buffer) Device() *Device {
	return b.dev
}

func (b *Buffer) IsOutput() bool {
	return b.output
}

func (b *Buffer) IsCyclic() bool {
	return b.cyclic
}

// Bytes exposes the memory region. Valid data ends at End.
func (b *Buffer) Bytes() []byte {
	return b.mem
}

func (b *Buffer) Layout() FrameLayout {
	return b.layout
}

// Step is the distance in bytes between two samples of the same channel.
func (b *Buffer) Step() int {
	return b.layout.Stride
}

// End is the offset one past the last valid byte.
func (b *Buffer) End() int {
	return b.end
}

// First is the offset of the first sample of ch. A channel that is not
// part of the buffer maps to the start of the region.
func (b *Buffer) First(ch *Channel) int {
	if s, ok := b.layout.Slot(ch); ok {
		return s.Offset
	}
	return 0
}

// PollFD returns a descriptor that becomes readable when Refill or Push
// can proceed without blocking.
func (b *Buffer) PollFD() (int, error) {
	if b.closed.Load() {
		return -1, newError("poll fd", syscall.EBADF)
	}
	fd, err := b.drv.PollFD()
	if err != nil {
		return -1, sysResult("poll fd", err)
	}
	return fd, nil
}

// SetBlockingMode makes Refill and Push block or not. Buffers block by
// default.
func (b *Buffer) SetBlockingMode(blocking bool) error {
	if b.closed.Load() {
		return newError("set blocking mode", syscall.EBADF)
	}
	return sysResult("set blocking mode", b.drv.SetBlocking(blocking))
}

// Refill fetches more samples from the hardware and returns the number of
// bytes received. Only valid for input buffers.
func (b *Buffer) Refill() (int, error) {
	const op = "refill"
	if err := b.ready(op, false); err != nil {
		return 0, err
	}
	n, err := b.drv.Refill(b.cancel.Done(), b.mem)
	if err != nil {
		return 0, sysResult(op, err)
	}
	if n > 0 {
		b.end = n
	}
	return n, nil
}

// Push sends the whole buffer to the hardware and returns the number of
// bytes sent. Only valid for output buffers.
func (b *Buffer) Push() (int, error) {
	return b.push("push", b.cap)
}

// PushPartial sends the first n samples of every enabled channel. n counts
// samples, not bytes, whatever the sample size of each channel.
func (b *Buffer) PushPartial(n int) (int, error) {
	if n < 0 || n > b.cap {
		return 0, newError("push partial", syscall.EINVAL)
	}
	return b.push("push partial", n)
}

func (b *Buffer) push(op string, samples int) (int, error) {
	if err := b.ready(op, true); err != nil {
		return 0, err
	}
	if b.cyclic && b.pushed {
		return 0, newError(op, syscall.EBUSY)
	}
	n, err := b.drv.Push(b.cancel.Done(), b.mem[:samples*b.layout.Stride])
	if err != nil {
		return 0, sysResult(op, err)
	}
	b.pushed = true
	return n, nil
}

func (b *Buffer) ready(op string, output bool) error {
	switch {
	case b.closed.Load():
		return newError(op, syscall.EBADF)
	case b.cancel.IsSet():
		return newError(op, syscall.ECANCELED)
	case b.output != output:
		return newError(op, syscall.EBADF)
	}
	return nil
}

// Cancel aborts a pending Refill or Push and makes every later transfer
// return ECANCELED. Only the first call has an effect. To transfer again
// the buffer has to be closed and created anew.
func (b *Buffer) Cancel() {
	b.cancelMu.Lock()
	defer b.cancelMu.Unlock()
	if b.closed.Load() || !b.cancel.Set() {
		return
	}
	b.drv.Cancel()
	logrus.WithField("device", b.dev.id).Debug("iio buffer cancelled")
}

func (b *Buffer) Cancelled() bool {
	return b.cancel.IsSet()
}

// Done is closed once the buffer is cancelled or closed.
func (b *Buffer) Done() <-chan struct{} {
	return b.cancel.Done()
}

// Close destroys the buffer and drops its context reference. Only the
// first call does anything. Iterators must not be used afterwards.
func (b *Buffer) Close() error {
	b.once.Do(func() {
		b.cancelMu.Lock()
		b.closed.Store(true)
		b.cancel.Set()
		b.cancelMu.Unlock()
		err := sysResult("destroy", b.drv.Close())
		b.dev.release(b)
		if rerr := b.ctx.Release(); err == nil {
			err = rerr
		}
		b.closeErr = err
		logrus.WithField("device", b.dev.id).Debug("iio buffer destroyed")
	})
	return b.closeErr
}
