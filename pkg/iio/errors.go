package iio

import (
	"errors"
	"fmt"
	"syscall"
)

// Error is returned by every fallible buffer, device and context operation.
// Code carries the native error number reported by the driver.
type Error struct {
	Op   string
	Code syscall.Errno
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil && !errors.Is(e.Err, e.Code) {
		return fmt.Sprintf("iio: %s: %v (%v)", e.Op, e.Code, e.Err)
	}
	return fmt.Sprintf("iio: %s: %v", e.Op, e.Code)
}

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Code, e.Err}
	}
	return []error{e.Code}
}

// IsCanceled reports whether err was caused by Buffer.Cancel.
func IsCanceled(err error) bool {
	return errors.Is(err, syscall.ECANCELED)
}

func newError(op string, code syscall.Errno) error {
	return &Error{Op: op, Code: code}
}

// sysResult converts a driver result into an *Error. Errnos are kept as is,
// anything else is reported as EIO with the cause attached.
func sysResult(op string, err error) error {
	if err == nil {
		return nil
	}
	var ie *Error
	if errors.As(err, &ie) {
		return &Error{Op: op, Code: ie.Code, Err: ie.Err}
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return &Error{Op: op, Code: errno, Err: err}
	}
	return &Error{Op: op, Code: syscall.EIO, Err: err}
}
