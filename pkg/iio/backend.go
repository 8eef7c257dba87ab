package iio

// Backend is the driver transport a Context is opened on.
type Backend interface {
	Name() string
	Devices() []DeviceSpec
	OpenBuffer(spec BufferSpec) (BufferDriver, error)
	Close() error
}

// BufferDriver is the driver-level region behind one Buffer.
//
// Refill and Push receive the buffer's cancel channel; a blocking
// implementation must return ECANCELED promptly once it is closed.
// In non-blocking mode a transfer that cannot make progress returns 0, nil.
type BufferDriver interface {
	PollFD() (int, error)
	SetBlocking(blocking bool) error
	Refill(done <-chan struct{}, dst []byte) (int, error)
	Push(done <-chan struct{}, src []byte) (int, error)
	Cancel()
	Close() error
}

type DeviceSpec struct {
	ID           string
	Name         string
	Trigger      bool // the device is a trigger other devices can use
	NeedsTrigger bool
	Channels     []ChannelSpec
}

type ChannelSpec struct {
	ID          string
	Name        string
	Index       int // scan index, defines the order inside a frame
	Output      bool
	ScanElement bool
	Format      DataFormat
	Scale       float64
}

// BufferSpec is what a Backend needs to open a driver region.
type BufferSpec struct {
	Device  *Device
	Samples int
	Cyclic  bool
	Layout  FrameLayout
}

// FrameLayout describes one interleaved frame of a buffer.
type FrameLayout struct {
	Stride int
	Slots  []Slot
}

// Slot is the placement of one enabled channel inside a frame.
type Slot struct {
	Channel *Channel
	Offset  int
}

// Slot returns the slot of ch, if ch is part of the layout.
func (l FrameLayout) Slot(ch *Channel) (Slot, bool) {
	for _, s := range l.Slots {
		if s.Channel == ch {
			return s, true
		}
	}
	return Slot{}, false
}
