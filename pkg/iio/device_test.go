package iio

import (
	"errors"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateBufferPreconditions(t *testing.T) {
	ctx, _ := newFakeContext(
		DeviceSpec{ID: "adc", NeedsTrigger: true, Channels: []ChannelSpec{
			s16("voltage0", 0),
			{ID: "sampling_frequency"},
		}},
		DeviceSpec{ID: "trigger0", Trigger: true},
	)
	defer ctx.Release()
	dev := ctx.FindDevice("adc")

	_, err := dev.CreateBuffer(16, false)
	assert.ErrorIs(t, err, syscall.EINVAL, "no channel enabled")

	assert.ErrorIs(t, dev.FindChannel("sampling_frequency", false).Enable(), syscall.ENOTSUP)
	require.NoError(t, dev.FindChannel("voltage0", false).Enable())

	_, err = dev.CreateBuffer(16, false)
	assert.ErrorIs(t, err, syscall.EINVAL, "no trigger")

	assert.ErrorIs(t, dev.SetTrigger(dev), syscall.EINVAL)
	require.NoError(t, dev.SetTrigger(ctx.FindDevice("trigger0")))

	_, err = dev.CreateBuffer(0, false)
	assert.ErrorIs(t, err, syscall.EINVAL)

	buf, err := dev.CreateBuffer(16, false)
	require.NoError(t, err)
	require.NoError(t, buf.Close())
}

func TestCreateBufferMixedDirections(t *testing.T) {
	ctx, _ := newFakeContext(DeviceSpec{ID: "dev", Channels: []ChannelSpec{
		s16("voltage0", 0),
		output(s16("voltage0", 1)),
	}})
	defer ctx.Release()
	dev := ctx.FindDevice("dev")
	require.NoError(t, dev.FindChannel("voltage0", false).Enable())
	require.NoError(t, dev.FindChannel("voltage0", true).Enable())

	_, err := dev.CreateBuffer(4, false)
	assert.ErrorIs(t, err, syscall.EINVAL)
}

func TestCreateBufferDriverError(t *testing.T) {
	ctx, backend := newFakeContext(DeviceSpec{ID: "adc", Channels: []ChannelSpec{s16("voltage0", 0)}})
	defer ctx.Release()
	backend.openErr = errors.New("no memory")

	dev := ctx.FindDevice("adc")
	require.NoError(t, dev.Channels()[0].Enable())
	_, err := dev.CreateBuffer(4, false)

	var ie *Error
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, syscall.EIO, ie.Code)
	assert.Contains(t, err.Error(), "no memory")
	assert.EqualValues(t, 1, ctx.Refs())
}

func TestDeviceLayout(t *testing.T) {
	ctx, _ := newFakeContext(DeviceSpec{ID: "adc", Channels: []ChannelSpec{
		s32("b", 2),
		{ID: "a", Index: 0, ScanElement: true, Format: MustParseFormat("le:u8/8>>0")},
		s16("c", 1),
	}})
	defer ctx.Release()
	dev := ctx.FindDevice("adc")
	for _, ch := range dev.Channels() {
		require.NoError(t, ch.Enable())
	}

	l := dev.Layout()
	require.Len(t, l.Slots, 3)
	assert.Equal(t, "a", l.Slots[0].Channel.ID())
	assert.Equal(t, 0, l.Slots[0].Offset)
	assert.Equal(t, "c", l.Slots[1].Channel.ID())
	assert.Equal(t, 2, l.Slots[1].Offset)
	assert.Equal(t, "b", l.Slots[2].Channel.ID())
	assert.Equal(t, 4, l.Slots[2].Offset)
	assert.Equal(t, 8, l.Stride)

	dev.FindChannel("b", false).Disable()
	assert.Equal(t, 4, dev.Layout().Stride)
}

func TestContextRefcount(t *testing.T) {
	ctx, backend := newFakeContext()
	ctx.Retain()
	require.NoError(t, ctx.Release())
	assert.Zero(t, backend.closes)
	require.NoError(t, ctx.Release())
	assert.Equal(t, 1, backend.closes)

	assert.Panics(t, func() { ctx.Retain() })
}

func TestContextRejectsBadFormat(t *testing.T) {
	_, err := NewContext(&fakeBackend{devices: []DeviceSpec{{ID: "adc", Channels: []ChannelSpec{
		{ID: "voltage0", ScanElement: true, Format: DataFormat{Bits: 12, StorageBits: 12}},
	}}}})
	assert.ErrorIs(t, err, syscall.EINVAL)
}
