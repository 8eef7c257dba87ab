//go:build !linux

package device

import "syscall"

// notifier has no pollable descriptor outside linux.
type notifier struct{}

func newNotifier() (*notifier, error) {
	return nil, nil
}

func (n *notifier) FD() (int, error) {
	return -1, syscall.ENOSYS
}

func (n *notifier) set(bool) {}

func (n *notifier) close() error {
	return nil
}
