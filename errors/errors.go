// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// Package errors defines the errors returned by appliances, their mailboxes
// and executors.
package errors

import (
	"errors"
	"fmt"
	"runtime"
)

var (
	// ErrFull is returned by a non-waiting send when a bounded mailbox is at capacity.
	ErrFull = errors.New("mailbox is full")

	// ErrClosed is returned when the target appliance has begun or completed its shutdown.
	// The message is not delivered.
	ErrClosed = errors.New("mailbox is closed")

	// ErrHandlerFault marks an unrecoverable failure raised while a handler was
	// processing a message. The faulted appliance stops consuming its mailbox.
	ErrHandlerFault = errors.New("handler fault")

	// ErrHandleReleased is returned when a message is sent through a handle after its Release.
	ErrHandleReleased = errors.New("handle is released")

	// ErrExecutorStopped is returned when work is submitted to an executor that no longer
	// accepts it.
	ErrExecutorStopped = errors.New("executor is stopped")

	// ErrInvalidCapacity is returned when a bounded mailbox is configured with a capacity
	// that is not a positive integer.
	ErrInvalidCapacity = errors.New("mailbox capacity must be a positive integer")

	// ErrUndefinedHandler is returned when an appliance is created without a handler.
	ErrUndefinedHandler = errors.New("handler is not defined")

	// ErrUndefinedExecutor is returned when an appliance is created without an executor.
	ErrUndefinedExecutor = errors.New("executor is not defined")
)

// PanicError defines the panic error
// wrapping the underlying error
type PanicError struct {
	err error
}

// enforce compilation error
var _ error = (*PanicError)(nil)

// NewPanicError creates an instance of PanicError
func NewPanicError(err error) *PanicError {
	return &PanicError{err}
}

// Recovered converts the value returned by recover into a PanicError enriched with
// the location of the panicking frame. skip is the number of frames above the caller
// of Recovered to report. A value that already is a PanicError is returned unchanged.
func Recovered(r any, skip int) *PanicError {
	pc, fn, line, _ := runtime.Caller(skip + 1)
	switch err, ok := r.(error); {
	case ok:
		var pe *PanicError
		if errors.As(err, &pe) {
			return pe
		}
		return NewPanicError(fmt.Errorf("%w at %s[%s:%d]", err, runtime.FuncForPC(pc).Name(), fn, line))
	default:
		return NewPanicError(fmt.Errorf("%#v at %s[%s:%d]", r, runtime.FuncForPC(pc).Name(), fn, line))
	}
}

// Error implements the standard error interface
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.err)
}

func (e *PanicError) Unwrap() error {
	return e.err
}

// Is reports any PanicError as a handler fault.
func (e *PanicError) Is(target error) bool {
	return target == ErrHandlerFault
}
