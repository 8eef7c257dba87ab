package config

import (
	"fmt"
	"os"

	"iiobuf/pkg/device"
	"iiobuf/pkg/iio"

	"gopkg.in/yaml.v3"
)

// Config describes the context iiobuf opens.
type Config struct {
	Backend struct {
		Kind        string  `yaml:"kind"`
		SampleRate  float64 `yaml:"sample_rate"`
		DeviceName  string  `yaml:"device_name"`
		Depth       int     `yaml:"depth"`
		Seed        uint64  `yaml:"seed"`
		InChannels  int     `yaml:"in_channels"`
		OutChannels int     `yaml:"out_channels"`
	} `yaml:"backend"`

	Channels []Channel `yaml:"channels"`
}

type Channel struct {
	ID        string  `yaml:"id"`
	Name      string  `yaml:"name"`
	Format    string  `yaml:"format"`
	Scale     float64 `yaml:"scale"`
	Waveform  string  `yaml:"waveform"`
	Frequency float64 `yaml:"frequency"`
	Amplitude float64 `yaml:"amplitude"`
}

// DefaultConfig is a loopback context with two 16-bit channels.
func DefaultConfig() *Config {
	var config Config
	config.Backend.Kind = "loopback"
	config.Backend.SampleRate = 48000
	config.Channels = []Channel{
		{ID: "voltage0", Format: "le:s16/16>>0"},
		{ID: "voltage1", Format: "le:s16/16>>0"},
	}
	return &config
}

func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	config := DefaultConfig()
	config.Channels = nil
	err = yaml.Unmarshal(data, config)
	if err != nil {
		return nil, err
	}

	return config, nil
}

// CreateChannelSpecs parses the channel list. The scan index of a channel
// is its position in the list.
func CreateChannelSpecs(config *Config) ([]iio.ChannelSpec, error) {
	specs := make([]iio.ChannelSpec, len(config.Channels))
	for i, ch := range config.Channels {
		format, err := iio.ParseFormat(ch.Format)
		if err != nil {
			return nil, fmt.Errorf("channel %s: %w", ch.ID, err)
		}
		specs[i] = iio.ChannelSpec{
			ID:     ch.ID,
			Name:   ch.Name,
			Index:  i,
			Format: format,
			Scale:  ch.Scale,
		}
	}
	return specs, nil
}

func CreateBackend(config *Config) (iio.Backend, error) {
	switch config.Backend.Kind {
	case "loopback", "":
		specs, err := CreateChannelSpecs(config)
		if err != nil {
			return nil, err
		}
		return &device.Loopback{
			SampleRate: config.Backend.SampleRate,
			Depth:      config.Backend.Depth,
			Channels:   specs,
		}, nil
	case "generator":
		return CreateGenerator(config)
	case "asio":
		return createASIO(config)
	}
	return nil, fmt.Errorf("unknown backend kind %q", config.Backend.Kind)
}

func CreateGenerator(config *Config) (*device.Generator, error) {
	specs, err := CreateChannelSpecs(config)
	if err != nil {
		return nil, err
	}
	g := &device.Generator{
		SampleRate: config.Backend.SampleRate,
		Seed:       config.Backend.Seed,
	}
	for i, ch := range config.Channels {
		waveform := device.Waveform(ch.Waveform)
		switch waveform {
		case device.Sine, device.Chirp, device.Noise, device.Ramp, device.Constant:
		case "":
			waveform = device.Sine
		default:
			return nil, fmt.Errorf("channel %s: unknown waveform %q", ch.ID, ch.Waveform)
		}
		g.Channels = append(g.Channels, device.GeneratorChannel{
			Spec: specs[i],
			Signal: device.Signal{
				Waveform:  waveform,
				Frequency: ch.Frequency,
				Amplitude: ch.Amplitude,
			},
		})
	}
	return g, nil
}

func CreateContext(config *Config) (*iio.Context, error) {
	backend, err := CreateBackend(config)
	if err != nil {
		return nil, err
	}
	return iio.NewContext(backend)
}
