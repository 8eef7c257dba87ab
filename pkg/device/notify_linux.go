//go:build linux

package device

import (
	"encoding/binary"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// notifier is a level-triggered eventfd: readable while ready is set.
type notifier struct {
	mu    sync.Mutex
	fd    int
	ready bool
}

func newNotifier() (*notifier, error) {
	fd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		return nil, err
	}
	return &notifier{fd: fd}, nil
}

func (n *notifier) FD() (int, error) {
	if n == nil {
		return -1, unix.ENOSYS
	}
	return n.fd, nil
}

func (n *notifier) set(ready bool) {
	if n == nil {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if ready == n.ready {
		return
	}
	var b [8]byte
	var err error
	if ready {
		binary.NativeEndian.PutUint64(b[:], 1)
		_, err = unix.Write(n.fd, b[:])
	} else {
		_, err = unix.Read(n.fd, b[:])
	}
	if err != nil {
		logrus.WithFields(logrus.Fields{"fd": n.fd, "ready": ready}).WithError(err).Debug("eventfd update failed")
		return
	}
	n.ready = ready
}

func (n *notifier) close() error {
	if n == nil {
		return nil
	}
	return unix.Close(n.fd)
}
