package iio

import (
	"fmt"
	"slices"
	"sync"
	"syscall"

	"github.com/sirupsen/logrus"
)

type Channel struct {
	dev     *Device
	spec    ChannelSpec
	enabled bool
}

func (ch *Channel) ID() string          { return ch.spec.ID }
func (ch *Channel) Name() string        { return ch.spec.Name }
func (ch *Channel) Index() int          { return ch.spec.Index }
func (ch *Channel) IsOutput() bool      { return ch.spec.Output }
func (ch *Channel) IsScanElement() bool { return ch.spec.ScanElement }
func (ch *Channel) Format() DataFormat  { return ch.spec.Format }
func (ch *Channel) Device() *Device     { return ch.dev }
func (ch *Channel) IsEnabled() bool     { return ch.enabled }

// Scale is the factor converting a sample value to its physical unit;
// zero in the ChannelSpec means 1.
func (ch *Channel) Scale() float64 {
	if ch.spec.Scale == 0 {
		return 1
	}
	return ch.spec.Scale
}

// Enable marks the channel for capture. It takes effect when the next
// buffer of the device is created.
func (ch *Channel) Enable() error {
	if !ch.spec.ScanElement {
		return newError("enable "+ch.spec.ID, syscall.ENOTSUP)
	}
	ch.enabled = true
	return nil
}

func (ch *Channel) Disable() {
	ch.enabled = false
}

type Device struct {
	ctx      *Context
	id, name string
	trigger  bool
	needsTrg bool
	channels []*Channel

	mu      sync.Mutex
	trg     *Device
	current *Buffer
}

func newDevice(ctx *Context, spec DeviceSpec) (*Device, error) {
	d := &Device{
		ctx:      ctx,
		id:       spec.ID,
		name:     spec.Name,
		trigger:  spec.Trigger,
		needsTrg: spec.NeedsTrigger,
	}
	for _, cs := range spec.Channels {
		if cs.ScanElement {
			if err := cs.Format.Validate(); err != nil {
				return nil, fmt.Errorf("device %s channel %s: %w", spec.ID, cs.ID, err)
			}
		}
		d.channels = append(d.channels, &Channel{dev: d, spec: cs})
	}
	return d, nil
}

func (d *Device) ID() string           { return d.id }
func (d *Device) Name() string         { return d.name }
func (d *Device) IsTrigger() bool      { return d.trigger }
func (d *Device) Context() *Context    { return d.ctx }
func (d *Device) Channels() []*Channel { return d.channels }

// FindChannel looks a channel up by id or name and direction.
func (d *Device) FindChannel(name string, output bool) *Channel {
	for _, ch := range d.channels {
		if (ch.spec.ID == name || ch.spec.Name == name) && ch.spec.Output == output {
			return ch
		}
	}
	return nil
}

// SetTrigger assigns trg as the device trigger; nil clears it.
func (d *Device) SetTrigger(trg *Device) error {
	if trg != nil && !trg.trigger {
		return newError("set trigger "+trg.id, syscall.EINVAL)
	}
	d.mu.Lock()
	d.trg = trg
	d.mu.Unlock()
	return nil
}

func (d *Device) Trigger() *Device {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.trg
}

// Layout computes the frame layout of the currently enabled channels.
func (d *Device) Layout() FrameLayout {
	var enabled []*Channel
	for _, ch := range d.channels {
		if ch.enabled {
			enabled = append(enabled, ch)
		}
	}
	slices.SortStableFunc(enabled, func(a, b *Channel) int {
		return a.spec.Index - b.spec.Index
	})

	var l FrameLayout
	offset, align := 0, 1
	for _, ch := range enabled {
		size := ch.spec.Format.ElementSize()
		if r := offset % size; r != 0 {
			offset += size - r
		}
		l.Slots = append(l.Slots, Slot{Channel: ch, Offset: offset})
		offset += ch.spec.Format.SampleSize()
		align = max(align, size)
	}
	if r := offset % align; r != 0 {
		offset += align - r
	}
	l.Stride = offset
	return l
}

// CreateBuffer opens a buffer of the given capacity (samples per channel)
// over the enabled channels. It fails when no channel is enabled, when the
// device needs a trigger and has none, or while another buffer of the
// device is open.
func (d *Device) CreateBuffer(samples int, cyclic bool) (*Buffer, error) {
	op := "create buffer " + d.id
	if samples <= 0 {
		return nil, newError(op, syscall.EINVAL)
	}
	layout := d.Layout()
	if len(layout.Slots) == 0 {
		return nil, newError(op, syscall.EINVAL)
	}
	for _, s := range layout.Slots {
		if s.Channel.spec.Output != layout.IsOutput() {
			return nil, newError(op, syscall.EINVAL)
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.needsTrg && d.trg == nil {
		return nil, newError(op, syscall.EINVAL)
	}
	if d.current != nil {
		return nil, newError(op, syscall.EBUSY)
	}

	drv, err := d.ctx.backend.OpenBuffer(BufferSpec{
		Device:  d,
		Samples: samples,
		Cyclic:  cyclic,
		Layout:  layout,
	})
	if err != nil {
		return nil, sysResult(op, err)
	}

	b := newBuffer(d, drv, samples, cyclic, layout)
	d.current = b
	logrus.WithFields(logrus.Fields{
		"device":   d.id,
		"capacity": samples,
		"stride":   layout.Stride,
		"cyclic":   cyclic,
	}).Debug("iio buffer created")
	return b, nil
}

// IsOutput reports whether the enabled channels of l are output channels.
func (l FrameLayout) IsOutput() bool {
	return len(l.Slots) > 0 && l.Slots[0].Channel.spec.Output
}

func (d *Device) release(b *Buffer) {
	d.mu.Lock()
	if d.current == b {
		d.current = nil
	}
	d.mu.Unlock()
}
