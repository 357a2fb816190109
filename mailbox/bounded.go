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

package mailbox

import (
	"context"
	"sync"

	"github.com/tochemey/appliance/errors"
)

// BoundedMailbox is a bounded MPSC mailbox backed by a buffered channel.
//
// Characteristics
//   - Exact capacity: TryEnqueue accepts exactly capacity messages before
//     reporting errors.ErrFull.
//   - Backpressure: Enqueue parks the producer goroutine while the mailbox is
//     full, until a slot frees up, the mailbox closes or its context is done.
//   - Drain on close: producers in flight when Close is called either land
//     their message before the consumer reports end of stream or receive
//     errors.ErrClosed.
type BoundedMailbox[M any] struct {
	queue   chan M
	closing chan struct{}

	// guards closed against producers registering in inflight
	mu       sync.RWMutex
	closed   bool
	inflight sync.WaitGroup
}

// enforce compilation error
var _ Mailbox[any] = (*BoundedMailbox[any])(nil)

// NewBoundedMailbox creates a bounded mailbox with the given capacity.
// Capacity must be a positive integer.
func NewBoundedMailbox[M any](capacity int) *BoundedMailbox[M] {
	if capacity <= 0 {
		panic("mailbox capacity must be greater than zero")
	}
	return &BoundedMailbox[M]{
		queue:   make(chan M, capacity),
		closing: make(chan struct{}),
	}
}

// Enqueue inserts a message, waiting while the mailbox is full.
func (b *BoundedMailbox[M]) Enqueue(ctx context.Context, msg M) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := b.enter(); err != nil {
		return err
	}
	defer b.inflight.Done()

	select {
	case b.queue <- msg:
		return nil
	default:
	}

	select {
	case b.queue <- msg:
		return nil
	case <-b.closing:
		return errors.ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryEnqueue inserts a message when a slot is free and fails otherwise.
func (b *BoundedMailbox[M]) TryEnqueue(msg M) error {
	if err := b.enter(); err != nil {
		return err
	}
	defer b.inflight.Done()

	select {
	case b.queue <- msg:
		return nil
	default:
		return errors.ErrFull
	}
}

// Dequeue returns the next message, waiting while the mailbox is empty and open.
func (b *BoundedMailbox[M]) Dequeue() (M, error) {
	select {
	case msg := <-b.queue:
		return msg, nil
	default:
	}

	select {
	case msg := <-b.queue:
		return msg, nil
	case <-b.closing:
		return b.drain()
	}
}

// Close closes the send side. Producers waiting for a slot are released with errors.ErrClosed.
func (b *BoundedMailbox[M]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.closed {
		b.closed = true
		close(b.closing)
	}
}

// IsClosed reports whether Close has been called.
func (b *BoundedMailbox[M]) IsClosed() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.closed
}

// Len returns the number of queued messages.
func (b *BoundedMailbox[M]) Len() int {
	return len(b.queue)
}

// Cap returns the mailbox capacity.
func (b *BoundedMailbox[M]) Cap() int {
	return cap(b.queue)
}

// enter registers a producer unless the mailbox is closed.
func (b *BoundedMailbox[M]) enter() error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return errors.ErrClosed
	}
	b.inflight.Add(1)
	return nil
}

// drain waits for the producers that entered before Close and returns
// whatever is left in the queue.
func (b *BoundedMailbox[M]) drain() (M, error) {
	b.inflight.Wait()
	select {
	case msg := <-b.queue:
		return msg, nil
	default:
		var zero M
		return zero, errors.ErrClosed
	}
}
