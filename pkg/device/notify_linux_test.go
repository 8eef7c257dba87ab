//go:build linux

package device

import (
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func readable(t *testing.T, fd int) bool {
	t.Helper()
	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
	n, err := unix.Poll(fds, 0)
	require.NoError(t, err)
	return n == 1 && fds[0].Revents&unix.POLLIN != 0
}

func TestNotifier(t *testing.T) {
	n, err := newNotifier()
	require.NoError(t, err)
	defer n.close()
	fd, err := n.FD()
	require.NoError(t, err)

	assert.False(t, readable(t, fd))
	n.set(true)
	n.set(true)
	assert.True(t, readable(t, fd))
	n.set(false)
	assert.False(t, readable(t, fd))
}

func TestLoopbackPollFD(t *testing.T) {
	rx, tx := newLoopback(t, &Loopback{Depth: 1})

	in, err := rx.CreateBuffer(8, false)
	require.NoError(t, err)
	defer in.Close()
	out, err := tx.CreateBuffer(8, false)
	require.NoError(t, err)
	defer out.Close()

	rfd, err := in.PollFD()
	require.NoError(t, err)
	wfd, err := out.PollFD()
	require.NoError(t, err)

	assert.False(t, readable(t, rfd), "nothing pushed yet")
	assert.True(t, readable(t, wfd), "queue has room")

	_, err = out.Push()
	require.NoError(t, err)
	assert.True(t, readable(t, rfd))
	assert.False(t, readable(t, wfd), "queue is full")

	_, err = in.Refill()
	require.NoError(t, err)
	assert.False(t, readable(t, rfd))
	assert.True(t, readable(t, wfd))
}

func TestNotifierReportsFailedUpdate(t *testing.T) {
	hook := logtest.NewGlobal()
	defer hook.Reset()
	level := logrus.GetLevel()
	logrus.SetLevel(logrus.DebugLevel)
	defer logrus.SetLevel(level)

	n, err := newNotifier()
	require.NoError(t, err)
	require.NoError(t, n.close())

	n.set(true)
	assert.False(t, n.ready, "a failed write must not mark the notifier ready")
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "eventfd update failed", hook.LastEntry().Message)
}

func TestLoopbackPollFDAfterCancel(t *testing.T) {
	rx, tx := newLoopback(t, &Loopback{Depth: 1})

	in, err := rx.CreateBuffer(8, false)
	require.NoError(t, err)
	in.Cancel()
	require.NoError(t, in.Close())

	out, err := tx.CreateBuffer(8, false)
	require.NoError(t, err)
	out.Cancel()
	require.NoError(t, out.Close())

	in, err = rx.CreateBuffer(8, false)
	require.NoError(t, err)
	defer in.Close()
	out, err = tx.CreateBuffer(8, false)
	require.NoError(t, err)
	defer out.Close()

	rfd, err := in.PollFD()
	require.NoError(t, err)
	wfd, err := out.PollFD()
	require.NoError(t, err)
	assert.False(t, readable(t, rfd), "queue is empty")
	assert.True(t, readable(t, wfd), "queue has room")
}

func TestLoopbackPollFDTracksQueue(t *testing.T) {
	rx, tx := newLoopback(t, &Loopback{Depth: 2})

	in, err := rx.CreateBuffer(4, false)
	require.NoError(t, err)
	defer in.Close()
	require.NoError(t, in.SetBlockingMode(false))
	out, err := tx.CreateBuffer(4, false)
	require.NoError(t, err)
	defer out.Close()
	require.NoError(t, out.SetBlockingMode(false))
	rfd, err := in.PollFD()
	require.NoError(t, err)

	for range 200 {
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			out.Push()
		}()
		go func() {
			defer wg.Done()
			in.Refill()
		}()
		wg.Wait()

		// drain to a known state, the descriptor must follow every step
		for {
			queued := readable(t, rfd)
			n, err := in.Refill()
			require.NoError(t, err)
			require.Equal(t, n > 0, queued, "descriptor out of sync with the queue")
			if n == 0 {
				break
			}
		}
	}
}
