package device

import (
	"sync/atomic"
	"syscall"
)

const (
	// DefaultDepth is the number of blocks a backend queues between the
	// driver and the hardware side.
	DefaultDepth = 4

	// BufferSize is the number of frames per hardware callback block.
	BufferSize = 512
)

// driver carries the state every buffer driver in this package shares.
type driver struct {
	blocking atomic.Bool
	note     *notifier
}

func (d *driver) init(note *notifier) {
	d.blocking.Store(true)
	d.note = note
}

func (d *driver) SetBlocking(blocking bool) error {
	d.blocking.Store(blocking)
	return nil
}

func (d *driver) PollFD() (int, error) {
	return d.note.FD()
}

// receive takes the next value of c. A non-blocking receive with nothing
// pending reports ok == false and no error.
func receive[T any](blocking bool, done <-chan struct{}, c <-chan T) (v T, ok bool, err error) {
	select {
	case <-done:
		return v, false, syscall.ECANCELED
	default:
	}
	if !blocking {
		select {
		case v = <-c:
			return v, true, nil
		default:
			return v, false, nil
		}
	}
	select {
	case v = <-c:
		return v, true, nil
	case <-done:
		return v, false, syscall.ECANCELED
	}
}

// send is the counterpart of receive.
func send[T any](blocking bool, done <-chan struct{}, c chan<- T, v T) (ok bool, err error) {
	select {
	case <-done:
		return false, syscall.ECANCELED
	default:
	}
	if !blocking {
		select {
		case c <- v:
			return true, nil
		default:
			return false, nil
		}
	}
	select {
	case c <- v:
		return true, nil
	case <-done:
		return false, syscall.ECANCELED
	}
}
