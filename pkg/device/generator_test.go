package device

import (
	"syscall"
	"testing"
	"time"

	"iiobuf/pkg/async"
	"iiobuf/pkg/iio"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGenerator(t *testing.T, g *Generator) *iio.Device {
	t.Helper()
	ctx, err := iio.NewContext(g)
	require.NoError(t, err)
	t.Cleanup(func() { ctx.Release() })
	dev := ctx.FindDevice(GeneratorDevice)
	require.NotNil(t, dev)
	for _, ch := range dev.Channels() {
		require.NoError(t, ch.Enable())
	}
	return dev
}

func TestGeneratorWaveforms(t *testing.T) {
	dev := newGenerator(t, &Generator{Channels: []GeneratorChannel{
		{
			Spec:   iio.ChannelSpec{ID: "voltage0", Index: 0, Format: iio.MustParseFormat("le:s16/16>>0")},
			Signal: Signal{Waveform: Sine, Frequency: DefaultSampleRate / 4, Amplitude: 1},
		},
		{
			Spec:   iio.ChannelSpec{ID: "voltage1", Index: 1, Format: iio.MustParseFormat("le:u8/8>>0")},
			Signal: Signal{Waveform: Constant, Amplitude: 0.5},
		},
	}})

	buf, err := dev.CreateBuffer(8, false)
	require.NoError(t, err)
	defer buf.Close()

	n, err := buf.Refill()
	require.NoError(t, err)
	assert.Equal(t, 8*buf.Step(), n)

	sine, err := iio.ReadChannel[int16](buf, dev.FindChannel("voltage0", false))
	require.NoError(t, err)
	assert.Equal(t, []int16{0, 32767, 0, -32767, 0, 32767, 0, -32767}, sine)

	dc, err := iio.ReadChannel[uint8](buf, dev.FindChannel("voltage1", false))
	require.NoError(t, err)
	for _, v := range dc {
		assert.Equal(t, uint8(191), v)
	}

	// the phase carries over to the next refill
	_, err = buf.Refill()
	require.NoError(t, err)
	sine, err = iio.ReadChannel[int16](buf, dev.FindChannel("voltage0", false))
	require.NoError(t, err)
	assert.Equal(t, int16(0), sine[0])
	assert.Equal(t, int16(32767), sine[1])
}

func TestGeneratorNoiseIsBounded(t *testing.T) {
	dev := newGenerator(t, &Generator{Seed: 7, Channels: []GeneratorChannel{{
		Spec:   iio.ChannelSpec{ID: "voltage0", Format: iio.MustParseFormat("be:s12/16>>4")},
		Signal: Signal{Waveform: Noise, Amplitude: 0.25},
	}}})

	buf, err := dev.CreateBuffer(256, false)
	require.NoError(t, err)
	defer buf.Close()
	_, err = buf.Refill()
	require.NoError(t, err)

	ch := dev.Channels()[0]
	it, err := iio.NewIterator(buf, ch, iio.FormatLayout(ch.Format()))
	require.NoError(t, err)
	amplitude := 0.25
	limit := int64(amplitude*2047) + 1
	for v := range it.All() {
		assert.True(t, v >= -limit && v <= limit, "%d out of range", v)
	}
}

func TestGeneratorChirp(t *testing.T) {
	dev := newGenerator(t, &Generator{SampleRate: 0, Channels: []GeneratorChannel{{
		Spec:   iio.ChannelSpec{ID: "voltage0", Format: iio.MustParseFormat("le:s16/16>>0")},
		Signal: Signal{Waveform: Chirp, Frequency: 2000, Amplitude: 0.5},
	}}})

	buf, err := dev.CreateBuffer(DefaultSampleRate/4, false)
	require.NoError(t, err)
	defer buf.Close()
	_, err = buf.Refill()
	require.NoError(t, err)

	got, err := iio.ReadChannel[int16](buf, dev.Channels()[0])
	require.NoError(t, err)
	assert.Equal(t, int16(0), got[0])
	var peak int16
	for _, v := range got {
		assert.LessOrEqual(t, v, int16(16384))
		assert.GreaterOrEqual(t, v, int16(-16384))
		peak = max(peak, v)
	}
	assert.Greater(t, peak, int16(16000), "the sweep reaches full amplitude")
}

func TestGeneratorPacing(t *testing.T) {
	dev := newGenerator(t, &Generator{SampleRate: 1000, Channels: []GeneratorChannel{{
		Spec:   iio.ChannelSpec{ID: "voltage0", Format: iio.MustParseFormat("le:s16/16>>0")},
		Signal: Signal{Waveform: Ramp, Frequency: 10, Amplitude: 1},
	}}})

	buf, err := dev.CreateBuffer(50, false)
	require.NoError(t, err)
	defer buf.Close()

	require.NoError(t, buf.SetBlockingMode(false))
	n, err := buf.Refill()
	require.NoError(t, err)
	assert.Zero(t, n, "not enough samples produced yet")

	require.NoError(t, buf.SetBlockingMode(true))
	start := time.Now()
	n, err = buf.Refill()
	require.NoError(t, err)
	assert.Equal(t, 50*buf.Step(), n)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestGeneratorCancel(t *testing.T) {
	dev := newGenerator(t, &Generator{SampleRate: 1, Channels: []GeneratorChannel{{
		Spec:   iio.ChannelSpec{ID: "voltage0", Format: iio.MustParseFormat("le:s16/16>>0")},
		Signal: Signal{Waveform: Sine, Frequency: 1, Amplitude: 1},
	}}})

	buf, err := dev.CreateBuffer(16, false)
	require.NoError(t, err)
	defer buf.Close()

	_, err = buf.PollFD()
	assert.ErrorIs(t, err, syscall.ENOTSUP)

	result := async.Try(buf.Refill)
	time.Sleep(20 * time.Millisecond)
	buf.Cancel()
	select {
	case r := <-result:
		assert.True(t, iio.IsCanceled(r.Err))
	case <-time.After(time.Second):
		t.Fatal("refill still blocked after cancel")
	}
}

func TestGeneratorUnknownDevice(t *testing.T) {
	g := &Generator{}
	_, err := g.OpenBuffer(iio.BufferSpec{})
	assert.ErrorIs(t, err, syscall.ENODEV)
}
