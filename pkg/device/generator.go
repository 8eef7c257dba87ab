package device

import (
	"math"
	"syscall"
	"time"

	"iiobuf/internel/utils"
	"iiobuf/pkg/iio"

	"golang.org/x/exp/rand"
)

const (
	GeneratorDevice = "generator"

	// DefaultSampleRate is the synthesis rate of a Generator without a
	// SampleRate.
	DefaultSampleRate = 48000
)

type Waveform string

const (
	Sine     Waveform = "sine"
	Chirp    Waveform = "chirp"
	Noise    Waveform = "noise"
	Ramp     Waveform = "ramp"
	Constant Waveform = "constant"
)

// Signal is the waveform one generator channel produces. Amplitude is
// relative to the full scale of the channel format.
type Signal struct {
	Waveform  Waveform
	Frequency float64
	Amplitude float64
}

// at returns the value of s at time t. Chirp and noise come from tables.
func (s Signal) at(t float64) float64 {
	switch s.Waveform {
	case Sine:
		return s.Amplitude * math.Sin(2*math.Pi*s.Frequency*t)
	case Ramp:
		p := s.Frequency * t
		return s.Amplitude * (2*(p-math.Floor(p)) - 1)
	case Constant:
		return s.Amplitude
	}
	return 0
}

type GeneratorChannel struct {
	Spec   iio.ChannelSpec
	Signal Signal
}

// Generator is a backend with one input device whose channels synthesise
// their Signal. Refills are paced by SampleRate.
type Generator struct {
	SampleRate float64 // 0 means no pacing
	Channels   []GeneratorChannel
	Seed       uint64
}

func (g *Generator) Name() string {
	return "generator"
}

func (g *Generator) Devices() []iio.DeviceSpec {
	dev := iio.DeviceSpec{ID: GeneratorDevice, Name: GeneratorDevice}
	for _, ch := range g.Channels {
		spec := ch.Spec
		spec.Output = false
		spec.ScanElement = true
		dev.Channels = append(dev.Channels, spec)
	}
	return []iio.DeviceSpec{dev}
}

func (g *Generator) signal(id string) Signal {
	for _, ch := range g.Channels {
		if ch.Spec.ID == id {
			return ch.Signal
		}
	}
	return Signal{}
}

func (g *Generator) OpenBuffer(spec iio.BufferSpec) (iio.BufferDriver, error) {
	if spec.Device == nil || spec.Device.ID() != GeneratorDevice {
		return nil, syscall.ENODEV
	}
	r := &generatorRx{
		layout:  spec.Layout,
		rate:    g.SampleRate,
		signals: make([]Signal, len(spec.Layout.Slots)),
		chirps:  make([][]float64, len(spec.Layout.Slots)),
		rng:     rand.New(rand.NewSource(g.Seed)),
		noise:   make([]float64, spec.Samples),
	}
	rate := r.synthRate()
	for i, slot := range spec.Layout.Slots {
		s := g.signal(slot.Channel.ID())
		r.signals[i] = s
		if s.Waveform == Chirp {
			// one up and down sweep per second
			r.chirps[i] = utils.Chirp(0, s.Frequency, int(rate), rate)
		}
	}
	r.init(nil)
	return r, nil
}

func (g *Generator) Close() error {
	return nil
}

type generatorRx struct {
	driver
	layout  iio.FrameLayout
	rate    float64
	signals []Signal
	chirps  [][]float64
	rng     *rand.Rand
	noise   []float64

	start    time.Time
	produced int64
}

func (r *generatorRx) Refill(done <-chan struct{}, dst []byte) (int, error) {
	select {
	case <-done:
		return 0, syscall.ECANCELED
	default:
	}
	frames := len(dst) / r.layout.Stride
	if frames == 0 {
		return 0, nil
	}
	if r.start.IsZero() {
		r.start = time.Now()
	}
	if r.rate > 0 {
		due := r.start.Add(time.Duration(float64(r.produced+int64(frames)) / r.rate * float64(time.Second)))
		wait := time.Until(due)
		if wait > 0 {
			if !r.blocking.Load() {
				return 0, nil
			}
			timer := time.NewTimer(wait)
			defer timer.Stop()
			select {
			case <-done:
				return 0, syscall.ECANCELED
			case <-timer.C:
			}
		}
	}
	r.synthesize(dst, frames)
	r.produced += int64(frames)
	return frames * r.layout.Stride, nil
}

func (r *generatorRx) synthRate() float64 {
	if r.rate == 0 {
		return DefaultSampleRate
	}
	return r.rate
}

func (r *generatorRx) synthesize(dst []byte, frames int) {
	rate := r.synthRate()
	for i, slot := range r.layout.Slots {
		s := r.signals[i]
		if s.Waveform == Noise {
			randf64(r.rng, r.noise[:frames])
		}
		f := slot.Channel.Format()
		size := f.ElementSize()
		for k := range frames {
			var x float64
			switch n := r.produced + int64(k); {
			case s.Waveform == Noise:
				x = s.Amplitude * r.noise[k]
			case s.Waveform == Chirp && len(r.chirps[i]) > 0:
				x = s.Amplitude * r.chirps[i][n%int64(len(r.chirps[i]))]
			default:
				x = s.at(float64(n) / rate)
			}
			raw := f.Unconvert(level(x, f))
			off := k*r.layout.Stride + slot.Offset
			for e := range max(f.Repeat, 1) {
				f.Store(dst[off+e*size:], raw)
			}
		}
	}
}

// level maps x in [-1, 1] to the integer range of f. Unsigned formats are
// offset so that 0 sits at mid scale.
func level(x float64, f iio.DataFormat) int64 {
	if f.Signed {
		return utils.Quantize(x, f.Max())
	}
	half := f.Max() / 2
	return max(utils.Quantize(x, half)+half, 0)
}

// PollFD is unsupported: samples are produced on demand, there is nothing
// to wait for but the clock.
func (r *generatorRx) PollFD() (int, error) {
	return -1, syscall.ENOTSUP
}

func (r *generatorRx) Push(<-chan struct{}, []byte) (int, error) {
	return 0, syscall.EBADF
}

func (r *generatorRx) Cancel() {}

func (r *generatorRx) Close() error {
	return nil
}
