package iio

import (
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// Context is a shared handle over a Backend. Every holder (the caller,
// each open Buffer) owns one reference; the Backend is closed when the last
// reference is released.
type Context struct {
	backend Backend
	devices []*Device

	refs     atomic.Int64
	once     sync.Once
	closeErr error
}

// NewContext builds the device tree described by backend. The returned
// Context holds one reference owned by the caller.
func NewContext(backend Backend) (*Context, error) {
	c := &Context{backend: backend}
	for _, spec := range backend.Devices() {
		d, err := newDevice(c, spec)
		if err != nil {
			return nil, err
		}
		c.devices = append(c.devices, d)
	}
	c.refs.Store(1)
	logrus.WithFields(logrus.Fields{
		"backend": backend.Name(),
		"devices": len(c.devices),
	}).Debug("iio context created")
	return c, nil
}

func (c *Context) Name() string {
	return c.backend.Name()
}

func (c *Context) Devices() []*Device {
	return c.devices
}

// FindDevice looks a device up by id or name.
func (c *Context) FindDevice(name string) *Device {
	for _, d := range c.devices {
		if d.id == name || d.name == name {
			return d
		}
	}
	return nil
}

// Retain adds a reference. Retaining a fully released context is a bug.
func (c *Context) Retain() *Context {
	if c.refs.Add(1) <= 1 {
		panic("iio: retain of released context")
	}
	return c
}

// Release drops a reference and closes the backend once none are left.
func (c *Context) Release() error {
	n := c.refs.Add(-1)
	if n < 0 {
		panic("iio: context released too many times")
	}
	if n > 0 {
		return nil
	}
	c.once.Do(func() {
		c.closeErr = c.backend.Close()
		logrus.WithField("backend", c.backend.Name()).Debug("iio context released")
	})
	return c.closeErr
}

// Refs reports the current reference count.
func (c *Context) Refs() int64 {
	return c.refs.Load()
}
