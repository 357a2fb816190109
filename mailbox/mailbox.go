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

// Package mailbox provides the message queues feeding an appliance.
//
// A mailbox accepts messages from any number of producers and hands them to a
// single consumer in FIFO order per producer. Two variants exist: a bounded
// mailbox that makes producers wait when it is full, and an unbounded mailbox
// that never pushes back on producers.
//
// Closing a mailbox only closes its send side: messages accepted before Close
// are still returned by Dequeue, which reports errors.ErrClosed once the
// mailbox is both closed and empty.
package mailbox

import (
	"context"

	"github.com/tochemey/appliance/errors"
)

// Mailbox defines the contract for an appliance's message queue.
//
// Concurrency and ordering
//   - Enqueue, TryEnqueue, Close, IsClosed, Len and Cap are safe for concurrent
//     use by multiple producers.
//   - Dequeue MUST be called from a single consumer goroutine.
//   - Messages from one producer are dequeued in the order they were enqueued.
//
// Delivery
//   - A message is never lost nor duplicated between a successful Enqueue and
//     a successful Dequeue, including when Close races with producers.
type Mailbox[M any] interface {
	// Enqueue pushes a message into the mailbox.
	//
	// A bounded mailbox at capacity waits until a slot frees up, the mailbox
	// is closed (errors.ErrClosed) or ctx is done (ctx.Err()). An unbounded
	// mailbox never waits and only fails once closed.
	Enqueue(ctx context.Context, msg M) error
	// TryEnqueue pushes a message without waiting. It fails with
	// errors.ErrFull when a bounded mailbox is at capacity and errors.ErrClosed
	// when the mailbox is closed.
	TryEnqueue(msg M) error
	// Dequeue waits for the next message. It returns errors.ErrClosed when the
	// mailbox is closed and every accepted message has been dequeued.
	Dequeue() (M, error)
	// Close closes the send side of the mailbox. It is idempotent.
	Close()
	// IsClosed reports whether Close has been called.
	IsClosed() bool
	// Len returns a snapshot of the number of queued messages.
	Len() int
	// Cap returns the capacity of a bounded mailbox and zero for an unbounded one.
	Cap() int
}

// Config selects the mailbox variant of an appliance.
// The zero value describes an unbounded mailbox.
type Config struct {
	capacity int
	bounded  bool
}

// Bounded returns the configuration of a mailbox holding at most capacity messages.
func Bounded(capacity int) Config {
	return Config{capacity: capacity, bounded: true}
}

// Unbounded returns the configuration of a mailbox with unlimited capacity.
func Unbounded() Config {
	return Config{}
}

// IsBounded reports whether the configuration describes a bounded mailbox.
func (c Config) IsBounded() bool {
	return c.bounded
}

// Capacity returns the configured capacity, zero for an unbounded mailbox.
func (c Config) Capacity() int {
	return c.capacity
}

// Validate checks that a bounded configuration carries a positive capacity.
func (c Config) Validate() error {
	if c.bounded && c.capacity <= 0 {
		return errors.ErrInvalidCapacity
	}
	return nil
}

// String describes the configuration.
func (c Config) String() string {
	if c.bounded {
		return "bounded"
	}
	return "unbounded"
}

// New creates the mailbox described by cfg.
func New[M any](cfg Config) (Mailbox[M], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.bounded {
		return NewBoundedMailbox[M](cfg.capacity), nil
	}
	return NewUnboundedMailbox[M](), nil
}
