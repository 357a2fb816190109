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

	gods "github.com/Workiva/go-datastructures/queue"
	"go.uber.org/atomic"

	"github.com/tochemey/appliance/errors"
)

// UnboundedMailbox is an unbounded MPSC mailbox backed by a go-datastructures queue.
//
// Characteristics
//   - Enqueue never waits and only fails once the mailbox is closed.
//   - Dequeue parks the consumer goroutine while the mailbox is empty.
//   - Close disposes the underlying queue and keeps the messages it still held,
//     which Dequeue hands out before reporting end of stream.
//
// Memory grows with the backlog: a slow consumer never throttles producers.
type UnboundedMailbox[M any] struct {
	underlying *gods.Queue
	closed     atomic.Bool

	// remaining holds the messages handed back by the queue on Close.
	mu        sync.Mutex
	remaining []any
}

// enforce compilation error
var _ Mailbox[any] = (*UnboundedMailbox[any])(nil)

// NewUnboundedMailbox creates an unbounded mailbox.
func NewUnboundedMailbox[M any]() *UnboundedMailbox[M] {
	return &UnboundedMailbox[M]{
		underlying: gods.New(16),
	}
}

// Enqueue inserts a message. It never waits, so ctx is only honored when it
// is already done.
func (u *UnboundedMailbox[M]) Enqueue(ctx context.Context, msg M) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return u.TryEnqueue(msg)
}

// TryEnqueue inserts a message and fails only when the mailbox is closed.
func (u *UnboundedMailbox[M]) TryEnqueue(msg M) error {
	if err := u.underlying.Put(msg); err != nil {
		return errors.ErrClosed
	}
	return nil
}

// Dequeue returns the next message, waiting while the mailbox is empty and open.
func (u *UnboundedMailbox[M]) Dequeue() (M, error) {
	if !u.closed.Load() {
		items, err := u.underlying.Get(1)
		if err == nil && len(items) > 0 {
			msg, _ := items[0].(M)
			return msg, nil
		}
	}
	return u.drain()
}

// Close disposes the underlying queue. Waiting producers do not exist for this
// variant, and the consumer is woken up to drain what was queued.
func (u *UnboundedMailbox[M]) Close() {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.closed.CompareAndSwap(false, true) {
		u.remaining = u.underlying.Dispose()
	}
}

// IsClosed reports whether Close has been called.
func (u *UnboundedMailbox[M]) IsClosed() bool {
	return u.closed.Load()
}

// Len returns the number of queued messages.
func (u *UnboundedMailbox[M]) Len() int {
	if u.closed.Load() {
		u.mu.Lock()
		defer u.mu.Unlock()
		return len(u.remaining)
	}
	return int(u.underlying.Len())
}

// Cap returns zero: the mailbox has no capacity limit.
func (u *UnboundedMailbox[M]) Cap() int {
	return 0
}

func (u *UnboundedMailbox[M]) drain() (M, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if len(u.remaining) == 0 {
		var zero M
		return zero, errors.ErrClosed
	}

	msg, _ := u.remaining[0].(M)
	u.remaining[0] = nil
	u.remaining = u.remaining[1:]
	return msg, nil
}
