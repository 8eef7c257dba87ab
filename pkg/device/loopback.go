package device

import (
	"sync"
	"syscall"
	"time"

	"iiobuf/pkg/iio"

	"github.com/sirupsen/logrus"
)

const (
	LoopbackRx = "loopback-rx"
	LoopbackTx = "loopback-tx"
)

// Loopback is a backend with an output device whose pushed frames come back
// on the refills of its input device. Both devices have the same channels,
// so enabling the same set on both gives identical frame layouts.
type Loopback struct {
	SampleRate float64 // the fake sample rate, 0 means no limit
	Depth      int     // queued blocks, DefaultDepth if 0
	Channels   []iio.ChannelSpec

	once    sync.Once
	initErr error
	queue   chan []byte
	data    *notifier // readable while a block is queued
	space   *notifier // readable while the queue has room

	mu      sync.Mutex
	cyclic  []byte
	cpos    int    // replay position inside cyclic
	pending []byte // rest of a dequeued block a refill had no room for
}

func (l *Loopback) init() error {
	l.once.Do(func() {
		depth := l.Depth
		if depth <= 0 {
			depth = DefaultDepth
		}
		l.queue = make(chan []byte, depth)
		if l.data, l.initErr = newNotifier(); l.initErr != nil {
			return
		}
		if l.space, l.initErr = newNotifier(); l.initErr != nil {
			return
		}
		l.space.set(true)
	})
	return l.initErr
}

func (l *Loopback) Name() string {
	return "loopback"
}

func (l *Loopback) Devices() []iio.DeviceSpec {
	rx := iio.DeviceSpec{ID: LoopbackRx, Name: LoopbackRx}
	tx := iio.DeviceSpec{ID: LoopbackTx, Name: LoopbackTx}
	for _, ch := range l.Channels {
		ch.ScanElement = true
		ch.Output = false
		rx.Channels = append(rx.Channels, ch)
		ch.Output = true
		tx.Channels = append(tx.Channels, ch)
	}
	return []iio.DeviceSpec{rx, tx}
}

func (l *Loopback) OpenBuffer(spec iio.BufferSpec) (iio.BufferDriver, error) {
	if err := l.init(); err != nil {
		return nil, err
	}
	switch spec.Device.ID() {
	case LoopbackRx:
		r := &loopbackRx{l: l, stride: spec.Layout.Stride}
		r.init(l.data)
		return r, nil
	case LoopbackTx:
		t := &loopbackTx{l: l, cyclic: spec.Cyclic}
		t.init(l.space)
		return t, nil
	}
	return nil, syscall.ENODEV
}

func (l *Loopback) Close() error {
	if l.init() != nil {
		return l.initErr
	}
	err := l.data.close()
	if serr := l.space.close(); err == nil {
		err = serr
	}
	return err
}

// update refreshes the poll descriptors after the queue changed.
func (l *Loopback) update() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.data.set(l.cyclic != nil || len(l.pending) > 0 || len(l.queue) > 0)
	l.space.set(len(l.queue) < cap(l.queue))
}

// next copies the next available frames into dst: the cyclic block, then
// the rest of a partly consumed block. It reports false when neither exists.
func (l *Loopback) next(dst []byte) (int, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cyclic != nil {
		if l.cpos >= len(l.cyclic) {
			l.cpos = 0
		}
		n := copy(dst, l.cyclic[l.cpos:])
		l.cpos += n
		return n, true
	}
	if len(l.pending) > 0 {
		n := copy(dst, l.pending)
		l.pending = l.pending[n:]
		return n, true
	}
	return 0, false
}

// keep stores what a refill could not take from block.
func (l *Loopback) keep(block []byte) {
	l.mu.Lock()
	l.pending = block
	l.mu.Unlock()
}

// pace waits the time the hardware would need to capture frames.
func (l *Loopback) pace(done <-chan struct{}, frames int) error {
	if l.SampleRate == 0 || frames == 0 {
		return nil
	}
	timer := time.NewTimer(time.Duration(float64(frames) / l.SampleRate * float64(time.Second)))
	defer timer.Stop()
	select {
	case <-done:
		return syscall.ECANCELED
	case <-timer.C:
		return nil
	}
}

type loopbackRx struct {
	driver
	l      *Loopback
	stride int
}

func (r *loopbackRx) Refill(done <-chan struct{}, dst []byte) (int, error) {
	n, ok := r.l.next(dst)
	if !ok {
		block, ok, err := receive(r.blocking.Load(), done, r.l.queue)
		if err != nil || !ok {
			return 0, err
		}
		n = copy(dst, block)
		if n < len(block) {
			r.l.keep(block[n:])
		}
	}
	r.l.update()
	if r.blocking.Load() {
		if err := r.l.pace(done, n/r.stride); err != nil {
			return 0, err
		}
	}
	return n, nil
}

func (r *loopbackRx) Push(<-chan struct{}, []byte) (int, error) {
	return 0, syscall.EBADF
}

// Cancel has nothing to do: a blocked Refill is woken through done.
func (r *loopbackRx) Cancel() {}

func (r *loopbackRx) Close() error {
	r.l.update()
	return nil
}

type loopbackTx struct {
	driver
	l      *Loopback
	cyclic bool
}

func (t *loopbackTx) Refill(<-chan struct{}, []byte) (int, error) {
	return 0, syscall.EBADF
}

func (t *loopbackTx) Push(done <-chan struct{}, src []byte) (int, error) {
	block := append([]byte(nil), src...)
	if t.cyclic {
		t.l.mu.Lock()
		t.l.cyclic, t.l.cpos = block, 0
		t.l.mu.Unlock()
		t.l.update()
		return len(block), nil
	}
	ok, err := send(t.blocking.Load(), done, t.l.queue, block)
	if err != nil || !ok {
		return 0, err
	}
	t.l.update()
	logrus.WithField("bytes", len(block)).Trace("loopback block queued")
	return len(block), nil
}

func (t *loopbackTx) Cancel() {}

func (t *loopbackTx) Close() error {
	if t.cyclic {
		t.l.mu.Lock()
		t.l.cyclic = nil
		t.l.mu.Unlock()
	}
	t.l.update()
	return nil
}
