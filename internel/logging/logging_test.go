package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit(t *testing.T) {
	defer logrus.SetOutput(os.Stderr)
	defer logrus.SetLevel(logrus.InfoLevel)

	logFile := filepath.Join(t.TempDir(), "logs", "iiobuf.log")
	require.NoError(t, Init("debug", logFile, false))
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())

	logrus.WithField("device", "adc").Debug("buffer created")
	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "buffer created")
	assert.Contains(t, string(data), "device=adc")
}

func TestInitBadLevel(t *testing.T) {
	defer logrus.SetOutput(os.Stderr)
	require.NoError(t, Init("loud", "", false))
	assert.Equal(t, logrus.InfoLevel, logrus.GetLevel())
}
