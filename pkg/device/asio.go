//go:build windows

package device

import (
	"fmt"
	"sync"
	"syscall"

	"iiobuf/pkg/iio"

	"github.com/sirupsen/logrus"
	"github.com/xsjk/go-asio"
)

const (
	ASIOIn  = "asio-in"
	ASIOOut = "asio-out"
)

var asioFormat = iio.MustParseFormat("le:s32/32>>0")

// ASIO exposes a sound card as an input device and an output device with
// one channel per hardware channel. The driver callback exchanges blocks
// with the buffers through bounded queues: captured blocks are dropped when
// nobody refills, and silence is played when nothing was pushed.
type ASIO struct {
	DeviceName  string
	SampleRate  float64
	InChannels  int
	OutChannels int
	Depth       int

	device asio.Device

	mu      sync.Mutex
	running bool
	in      chan [][]int32
	out     chan [][]int32
	current [][]int32 // block being played
	pos     int
}

func (a *ASIO) Name() string {
	return "asio:" + a.DeviceName
}

func (a *ASIO) Devices() []iio.DeviceSpec {
	in := iio.DeviceSpec{ID: ASIOIn, Name: ASIOIn}
	for i := range a.InChannels {
		in.Channels = append(in.Channels, iio.ChannelSpec{
			ID: fmt.Sprintf("voltage%d", i), Index: i, ScanElement: true, Format: asioFormat,
		})
	}
	out := iio.DeviceSpec{ID: ASIOOut, Name: ASIOOut}
	for i := range a.OutChannels {
		out.Channels = append(out.Channels, iio.ChannelSpec{
			ID: fmt.Sprintf("voltage%d", i), Index: i, Output: true, ScanElement: true, Format: asioFormat,
		})
	}
	return []iio.DeviceSpec{in, out}
}

func (a *ASIO) start() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.running {
		return
	}
	depth := a.Depth
	if depth <= 0 {
		depth = DefaultDepth
	}
	a.in = make(chan [][]int32, depth)
	a.out = make(chan [][]int32, depth)

	a.device.Load(a.DeviceName)
	a.device.SetSampleRate(a.SampleRate)
	a.device.Open()
	a.device.Start(a.callback)
	a.running = true
	logrus.WithFields(logrus.Fields{"device": a.DeviceName, "rate": a.SampleRate}).Debug("asio started")
}

func (a *ASIO) callback(in, out [][]int32) {
	if len(in) > 0 {
		block := allocBlock(len(in), len(in[0]))
		for i := range in {
			copy(block[i], in[i])
		}
		select {
		case a.in <- block:
		default:
			logrus.Trace("asio input block dropped")
		}
	}
	a.write(out)
}

// write consumes the pushed blocks and writes them to out.
func (a *ASIO) write(out [][]int32) {
	if len(out) == 0 {
		return
	}
	frames := len(out[0])
	i := 0
	for i < frames {
		if a.current == nil {
			select {
			case a.current = <-a.out:
				a.pos = 0
			default:
			}
		}
		if a.current == nil {
			break
		}
		n := 0
		for ch := range out {
			if ch < len(a.current) {
				n = copy(out[ch][i:], a.current[ch][a.pos:])
			} else {
				n = min(frames-i, len(a.current[0])-a.pos)
				cleari32(out[ch][i : i+n])
			}
		}
		i += n
		a.pos += n
		if a.pos >= len(a.current[0]) {
			a.current = nil
		}
	}
	for ch := range out {
		cleari32(out[ch][i:])
	}
}

func (a *ASIO) OpenBuffer(spec iio.BufferSpec) (iio.BufferDriver, error) {
	if spec.Device == nil {
		return nil, syscall.ENODEV
	}
	switch spec.Device.ID() {
	case ASIOIn:
		a.start()
		r := &asioRx{a: a, layout: spec.Layout}
		r.init(nil)
		return r, nil
	case ASIOOut:
		a.start()
		t := &asioTx{a: a, layout: spec.Layout, channels: a.OutChannels}
		t.init(nil)
		return t, nil
	}
	return nil, syscall.ENODEV
}

func (a *ASIO) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.running {
		return nil
	}
	a.device.Stop()
	a.device.Close()
	a.device.Unload()
	a.running = false
	logrus.WithField("device", a.DeviceName).Debug("asio stopped")
	return nil
}

type asioRx struct {
	driver
	a       *ASIO
	layout  iio.FrameLayout
	pending [][]int32
	pos     int
}

func (r *asioRx) PollFD() (int, error) {
	return -1, syscall.ENOTSUP
}

func (r *asioRx) Refill(done <-chan struct{}, dst []byte) (int, error) {
	frames := len(dst) / r.layout.Stride
	k := 0
	for k < frames {
		if r.pending == nil {
			// after the first block only take what is already queued
			block, ok, err := receive(r.blocking.Load() && k == 0, done, r.a.in)
			if err != nil {
				return 0, err
			}
			if !ok {
				break
			}
			r.pending, r.pos = block, 0
		}
		n := min(frames-k, len(r.pending[0])-r.pos)
		for _, slot := range r.layout.Slots {
			src := r.pending[slot.Channel.Index()][r.pos : r.pos+n]
			for j, v := range src {
				asioFormat.Store(dst[(k+j)*r.layout.Stride+slot.Offset:], asioFormat.Unconvert(int64(v)))
			}
		}
		k += n
		r.pos += n
		if r.pos == len(r.pending[0]) {
			r.pending = nil
		}
	}
	return k * r.layout.Stride, nil
}

func (r *asioRx) Push(<-chan struct{}, []byte) (int, error) {
	return 0, syscall.EBADF
}

func (r *asioRx) Cancel() {}

func (r *asioRx) Close() error {
	return nil
}

type asioTx struct {
	driver
	a        *ASIO
	layout   iio.FrameLayout
	channels int
}

func (t *asioTx) PollFD() (int, error) {
	return -1, syscall.ENOTSUP
}

func (t *asioTx) Refill(<-chan struct{}, []byte) (int, error) {
	return 0, syscall.EBADF
}

func (t *asioTx) Push(done <-chan struct{}, src []byte) (int, error) {
	frames := len(src) / t.layout.Stride
	block := allocBlock(t.channels, frames)
	for _, slot := range t.layout.Slots {
		dst := block[slot.Channel.Index()]
		for j := range dst {
			dst[j] = int32(asioFormat.Convert(asioFormat.Load(src[j*t.layout.Stride+slot.Offset:])))
		}
	}
	ok, err := send(t.blocking.Load(), done, t.a.out, block)
	if err != nil || !ok {
		return 0, err
	}
	return frames * t.layout.Stride, nil
}

func (t *asioTx) Cancel() {}

func (t *asioTx) Close() error {
	return nil
}
