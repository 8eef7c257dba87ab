package config

import (
	"iiobuf/pkg/device"
	"iiobuf/pkg/iio"
)

func createASIO(config *Config) (iio.Backend, error) {
	return &device.ASIO{
		DeviceName:  config.Backend.DeviceName,
		SampleRate:  config.Backend.SampleRate,
		InChannels:  config.Backend.InChannels,
		OutChannels: config.Backend.OutChannels,
		Depth:       config.Backend.Depth,
	}, nil
}
