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

package appliance

import (
	"context"
	"fmt"
	"runtime"

	"go.uber.org/atomic"

	"github.com/tochemey/appliance/errors"
)

// Handle is a strong reference to an appliance: the appliance keeps accepting
// messages as long as at least one Handle is not released.
//
// A Handle is safe for concurrent use. Release it once it is no longer
// needed; a Handle that becomes unreachable without Release is released when
// the garbage collector reclaims it.
type Handle[M any] struct {
	core     *core[M]
	released atomic.Bool
	cleanup  runtime.Cleanup
}

// newHandle wraps an already acquired strong reference
func newHandle[M any](c *core[M]) *Handle[M] {
	handle := &Handle[M]{core: c}
	handle.cleanup = runtime.AddCleanup(handle, (*core[M]).release, c)
	return handle
}

// Send delivers msg to the appliance mailbox.
//
// With a bounded mailbox at capacity Send waits until a slot frees up, the
// appliance shuts down (errors.ErrClosed) or ctx is done (ctx.Err()).
func (h *Handle[M]) Send(ctx context.Context, msg M) error {
	if h.released.Load() {
		return errors.ErrHandleReleased
	}
	err := h.core.mailbox.Enqueue(ctx, msg)
	// h must outlive a send waiting for room
	runtime.KeepAlive(h)
	return err
}

// TrySend delivers msg without waiting. It returns errors.ErrFull when a
// bounded mailbox is at capacity and errors.ErrClosed once the appliance shuts down.
func (h *Handle[M]) TrySend(msg M) error {
	if h.released.Load() {
		return errors.ErrHandleReleased
	}
	err := h.core.mailbox.TryEnqueue(msg)
	runtime.KeepAlive(h)
	return err
}

// Clone returns a new strong handle to the same appliance.
// Cloning a released handle returns a released handle.
func (h *Handle[M]) Clone() *Handle[M] {
	if h.released.Load() || !h.core.acquire() {
		clone := &Handle[M]{core: h.core}
		clone.released.Store(true)
		return clone
	}
	return newHandle(h.core)
}

// Downgrade returns a weak reference to the appliance
func (h *Handle[M]) Downgrade() *WeakHandle[M] {
	return newWeakHandle(h.core)
}

// Release drops the strong reference held by h. When it is the last one the
// mailbox stops accepting messages; the appliance still processes what was
// queued before terminating. Calling Release more than once has no effect.
func (h *Handle[M]) Release() {
	if h.released.CompareAndSwap(false, true) {
		h.cleanup.Stop()
		h.core.release()
	}
}

// ID returns the appliance name
func (h *Handle[M]) ID() string {
	return h.core.id
}

// Done returns a channel closed once the appliance terminated
func (h *Handle[M]) Done() <-chan struct{} {
	return h.core.done
}

// Err returns the fault that terminated the appliance, a *errors.PanicError,
// or nil when the handler never failed.
func (h *Handle[M]) Err() error {
	return h.core.fault.Load()
}

// State returns the lifecycle state of the dispatch loop
func (h *Handle[M]) State() State {
	return State(h.core.state.Load())
}

// Len returns the number of queued messages
func (h *Handle[M]) Len() int {
	return h.core.mailbox.Len()
}

// Cap returns the mailbox capacity, zero when unbounded
func (h *Handle[M]) Cap() int {
	return h.core.mailbox.Cap()
}

// String returns a description of the handle
func (h *Handle[M]) String() string {
	return fmt.Sprintf("Handle(%s)", h.core.id)
}
