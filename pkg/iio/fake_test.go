package iio

import (
	"sync"
	"syscall"
)

type fakeBackend struct {
	devices []DeviceSpec
	closes  int

	mu      sync.Mutex
	drivers []*fakeDriver
	openErr error
}

func (f *fakeBackend) Name() string          { return "fake" }
func (f *fakeBackend) Devices() []DeviceSpec { return f.devices }

func (f *fakeBackend) OpenBuffer(spec BufferSpec) (BufferDriver, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	d := &fakeDriver{
		spec:     spec,
		blocking: true,
		incoming: make(chan []byte, 4),
	}
	f.mu.Lock()
	f.drivers = append(f.drivers, d)
	f.mu.Unlock()
	return d, nil
}

func (f *fakeBackend) Close() error {
	f.closes++
	return nil
}

func (f *fakeBackend) last() *fakeDriver {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.drivers[len(f.drivers)-1]
}

type fakeDriver struct {
	spec     BufferSpec
	blocking bool
	incoming chan []byte

	mu               sync.Mutex
	pushed           [][]byte
	cancels          int
	closes           int
	cancelAfterClose bool
	refilling        chan struct{}
}

func (d *fakeDriver) PollFD() (int, error) {
	return -1, syscall.ENOSYS
}

func (d *fakeDriver) SetBlocking(blocking bool) error {
	d.blocking = blocking
	return nil
}

func (d *fakeDriver) Refill(done <-chan struct{}, dst []byte) (int, error) {
	if d.refilling != nil {
		close(d.refilling)
	}
	if !d.blocking {
		select {
		case data := <-d.incoming:
			return copy(dst, data), nil
		default:
			return 0, nil
		}
	}
	select {
	case data := <-d.incoming:
		return copy(dst, data), nil
	case <-done:
		return 0, syscall.ECANCELED
	}
}

func (d *fakeDriver) Push(done <-chan struct{}, src []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pushed = append(d.pushed, append([]byte(nil), src...))
	return len(src), nil
}

func (d *fakeDriver) Cancel() {
	d.mu.Lock()
	d.cancels++
	if d.closes > 0 {
		d.cancelAfterClose = true
	}
	d.mu.Unlock()
}

func (d *fakeDriver) Close() error {
	d.mu.Lock()
	d.closes++
	d.mu.Unlock()
	return nil
}

func s16(id string, index int) ChannelSpec {
	return ChannelSpec{ID: id, Index: index, ScanElement: true, Format: MustParseFormat("le:s16/16>>0")}
}

func s32(id string, index int) ChannelSpec {
	return ChannelSpec{ID: id, Index: index, ScanElement: true, Format: MustParseFormat("le:s32/32>>0")}
}

func output(spec ChannelSpec) ChannelSpec {
	spec.Output = true
	return spec
}

func newFakeContext(devices ...DeviceSpec) (*Context, *fakeBackend) {
	backend := &fakeBackend{devices: devices}
	ctx, err := NewContext(backend)
	if err != nil {
		panic(err)
	}
	return ctx, backend
}
