//go:build !windows

package config

import (
	"errors"

	"iiobuf/pkg/iio"
)

func createASIO(*Config) (iio.Backend, error) {
	return nil, errors.New("asio backend is only available on windows")
}
