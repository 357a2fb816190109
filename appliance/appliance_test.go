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
	"sync"
	"testing"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"

	"github.com/tochemey/appliance/errors"
	"github.com/tochemey/appliance/executor"
	"github.com/tochemey/appliance/mailbox"
)

func TestNew(t *testing.T) {
	t.Run("With invalid arguments", func(t *testing.T) {
		handle, err := New[int, int](nil, 0, nil, mailbox.Bounded(0))
		require.Error(t, err)
		assert.Nil(t, handle)
		assert.ErrorIs(t, err, errors.ErrUndefinedExecutor)
		assert.ErrorIs(t, err, errors.ErrUndefinedHandler)
		assert.ErrorIs(t, err, errors.ErrInvalidCapacity)
	})
	t.Run("When the executor refuses the dispatch loop", func(t *testing.T) {
		refusing := executor.Func(func(func()) error { return errors.ErrExecutorStopped })
		handle, err := New(refusing, newCounter(), handleIncrement, mailbox.Unbounded())
		require.ErrorIs(t, err, errors.ErrExecutorStopped)
		assert.Nil(t, handle)
	})
	t.Run("With a stopped pool", func(t *testing.T) {
		pool := newTestPool(t)
		pool.Stop()
		_, err := New(pool, newCounter(), handleIncrement, mailbox.Unbounded())
		require.ErrorIs(t, err, errors.ErrExecutorStopped)
	})
	t.Run("With default name", func(t *testing.T) {
		pool := newTestPool(t)
		handle, err := New(pool, newCounter(), handleIncrement, mailbox.Bounded(2))
		require.NoError(t, err)
		defer handle.Release()

		_, err = uuid.Parse(handle.ID())
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("Handle(%s)", handle.ID()), handle.String())
		assert.Equal(t, 2, handle.Cap())
		assert.Equal(t, Running, handle.State())
	})
	t.Run("With name", func(t *testing.T) {
		pool := newTestPool(t)
		handle, err := New(pool, newCounter(), handleIncrement, mailbox.Unbounded(), WithName("counter"))
		require.NoError(t, err)
		defer handle.Release()

		assert.Equal(t, "counter", handle.ID())
		assert.Equal(t, "counter", handle.Downgrade().ID())
		assert.Equal(t, "WeakHandle(counter)", handle.Downgrade().String())
		assert.Zero(t, handle.Cap())
	})
}

func TestCounter(t *testing.T) {
	pool := newTestPool(t)
	state := newCounter()
	handle, err := New(pool, state, handleIncrement, mailbox.Unbounded())
	require.NoError(t, err)

	// one producer per increment, each with its own handle
	eg, ctx := errgroup.WithContext(context.Background())
	for _, n := range []increment{1, 2, 3} {
		producer := handle.Clone()
		eg.Go(func() error {
			defer producer.Release()
			return producer.Send(ctx, n)
		})
	}
	require.NoError(t, eg.Wait())

	done := handle.Done()
	handle.Release()
	awaitDone(t, done)

	assert.Equal(t, 6, <-state.result)
	assert.Equal(t, Terminated, handle.State())
	assert.NoError(t, handle.Err())
}

func TestSerialization(t *testing.T) {
	const (
		producers = 8
		messages  = 250
	)

	type detector struct {
		inflight   *atomic.Int32
		overlaps   *atomic.Int32
		seen       mapset.Set[int]
		duplicates int
		processed  int
	}

	handler := func(state *detector, msg int) {
		if state.inflight.Inc() != 1 {
			state.overlaps.Inc()
		}
		if !state.seen.Add(msg) {
			state.duplicates++
		}
		state.processed++
		runtime.Gosched()
		state.inflight.Dec()
	}

	for _, cfg := range []mailbox.Config{mailbox.Bounded(4), mailbox.Unbounded()} {
		t.Run(cfg.String(), func(t *testing.T) {
			pool := newTestPool(t, executor.WithShards(4))
			state := &detector{
				inflight: atomic.NewInt32(0),
				overlaps: atomic.NewInt32(0),
				seen:     mapset.NewThreadUnsafeSet[int](),
			}
			handle, err := New(pool, state, func(s **detector, msg int) { handler(*s, msg) }, cfg)
			require.NoError(t, err)

			eg, ctx := errgroup.WithContext(context.Background())
			for p := range producers {
				eg.Go(func() error {
					for i := range messages {
						if err := handle.Send(ctx, p*messages+i); err != nil {
							return err
						}
					}
					return nil
				})
			}
			require.NoError(t, eg.Wait())

			done := handle.Done()
			handle.Release()
			awaitDone(t, done)

			assert.Zero(t, state.overlaps.Load())
			assert.Zero(t, state.duplicates)
			assert.Equal(t, producers*messages, state.processed)
			assert.Equal(t, producers*messages, state.seen.Cardinality())
		})
	}
}

// sequenced is sent by a producer identified by its index
type sequenced struct {
	producer int
	seq      int
}

type ordering struct {
	next       map[int]int
	violations int
	result     chan ordering
}

func (o *ordering) PostStop(context.Context) error {
	o.result <- *o
	return nil
}

func TestFIFOPerProducer(t *testing.T) {
	const (
		producers = 4
		messages  = 500
	)

	pool := newTestPool(t, executor.WithShards(4))
	state := ordering{next: make(map[int]int), result: make(chan ordering, 1)}
	handle, err := New(pool, state, func(state *ordering, msg sequenced) {
		if state.next[msg.producer] != msg.seq {
			state.violations++
		}
		state.next[msg.producer] = msg.seq + 1
	}, mailbox.Bounded(16))
	require.NoError(t, err)

	eg, ctx := errgroup.WithContext(context.Background())
	for p := range producers {
		eg.Go(func() error {
			for i := range messages {
				if err := handle.Send(ctx, sequenced{producer: p, seq: i}); err != nil {
					return err
				}
			}
			return nil
		})
	}
	require.NoError(t, eg.Wait())

	done := handle.Done()
	handle.Release()
	awaitDone(t, done)

	final := <-state.result
	assert.Zero(t, final.violations)
	for p := range producers {
		assert.Equal(t, messages, final.next[p])
	}
}

func TestBackpressure(t *testing.T) {
	const capacity = 3

	t.Run("With full mailbox", func(t *testing.T) {
		pool := newTestPool(t)
		state := newGate()
		handle, err := New(pool, state, handleGated, mailbox.Bounded(capacity))
		require.NoError(t, err)

		// stall the consumer
		require.NoError(t, handle.TrySend(0))
		<-state.entered

		for i := 1; i <= capacity; i++ {
			require.NoError(t, handle.TrySend(i))
		}
		require.ErrorIs(t, handle.TrySend(capacity+1), errors.ErrFull)
		assert.Equal(t, capacity, handle.Len())

		sent := make(chan error, 1)
		go func() { sent <- handle.Send(context.Background(), capacity+1) }()

		select {
		case err := <-sent:
			t.Fatalf("send completed on a full mailbox: %v", err)
		case <-time.After(50 * time.Millisecond):
		}

		close(state.release)
		select {
		case err := <-sent:
			require.NoError(t, err)
		case <-time.After(awaitTimeout):
			t.Fatal("send did not complete after a dequeue")
		}

		done := handle.Done()
		handle.Release()
		awaitDone(t, done)
		assert.Equal(t, []int{0, 1, 2, 3, 4}, <-state.result)
	})
	t.Run("With context deadline", func(t *testing.T) {
		pool := newTestPool(t)
		state := newGate()
		handle, err := New(pool, state, handleGated, mailbox.Bounded(1))
		require.NoError(t, err)

		require.NoError(t, handle.TrySend(0))
		<-state.entered
		require.NoError(t, handle.TrySend(1))

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		require.ErrorIs(t, handle.Send(ctx, 2), context.DeadlineExceeded)

		close(state.release)
		done := handle.Done()
		handle.Release()
		awaitDone(t, done)
		assert.Equal(t, []int{0, 1}, <-state.result)
	})
	t.Run("With a stalled consumer and capacity one", func(t *testing.T) {
		gated := new(gatedExecutor)
		handle, err := New(gated, newCounter(), handleIncrement, mailbox.Bounded(1))
		require.NoError(t, err)

		require.NoError(t, handle.TrySend(1))
		require.ErrorIs(t, handle.TrySend(2), errors.ErrFull)

		gated.open()
		done := handle.Done()
		handle.Release()
		awaitDone(t, done)
	})
	t.Run("Shutdown releases waiting producers", func(t *testing.T) {
		gated := new(gatedExecutor)
		handle, err := New(gated, newCounter(), handleIncrement, mailbox.Bounded(1))
		require.NoError(t, err)
		require.NoError(t, handle.TrySend(1))

		producer := handle.Clone()
		sent := make(chan error, 1)
		go func() { sent <- producer.Send(context.Background(), 2) }()

		select {
		case err := <-sent:
			t.Fatalf("send completed on a full mailbox: %v", err)
		case <-time.After(20 * time.Millisecond):
		}

		handle.Release()
		producer.Release()
		select {
		case err := <-sent:
			require.ErrorIs(t, err, errors.ErrClosed)
		case <-time.After(awaitTimeout):
			t.Fatal("waiting producer was not released")
		}

		gated.open()
		awaitDone(t, handle.Done())
	})
}

func TestShutdown(t *testing.T) {
	t.Run("Queued messages are drained", func(t *testing.T) {
		gated := new(gatedExecutor)
		state := newGate()
		handle, err := New(gated, state, handleGated, mailbox.Unbounded())
		require.NoError(t, err)

		want := []int{0}
		require.NoError(t, handle.TrySend(0))
		for i := 1; i <= 100; i++ {
			require.NoError(t, handle.TrySend(i))
			want = append(want, i)
		}

		weak := handle.Downgrade()
		handle.Release()
		// released handles refuse messages, the appliance no longer accepts any
		require.ErrorIs(t, handle.TrySend(101), errors.ErrHandleReleased)
		require.ErrorIs(t, handle.Send(context.Background(), 101), errors.ErrHandleReleased)
		_, ok := weak.Upgrade()
		require.False(t, ok)

		gated.open()
		<-state.entered
		require.Eventually(t, func() bool { return handle.State() == Draining }, awaitTimeout, time.Millisecond)
		close(state.release)

		awaitDone(t, handle.Done())
		assert.Equal(t, want, <-state.result)
		assert.Equal(t, Terminated, handle.State())
	})
	t.Run("Release is idempotent", func(t *testing.T) {
		pool := newTestPool(t)
		state := newCounter()
		handle, err := New(pool, state, handleIncrement, mailbox.Unbounded())
		require.NoError(t, err)

		clone := handle.Clone()
		handle.Release()
		handle.Release()
		handle.Release()

		// the clone keeps the appliance alive
		require.NoError(t, clone.Send(context.Background(), 5))
		select {
		case <-handle.Done():
			t.Fatal("appliance terminated while a strong handle exists")
		case <-time.After(20 * time.Millisecond):
		}

		released := handle.Clone()
		require.ErrorIs(t, released.TrySend(1), errors.ErrHandleReleased)
		released.Release()

		clone.Release()
		awaitDone(t, handle.Done())
		assert.Equal(t, 5, <-state.result)
	})
	t.Run("Unreachable handles are released", func(t *testing.T) {
		pool := newTestPool(t)
		state := newCounter()

		done := func() <-chan struct{} {
			handle, err := New(pool, state, handleIncrement, mailbox.Unbounded())
			require.NoError(t, err)
			require.NoError(t, handle.TrySend(7))
			return handle.Done()
		}()

		require.Eventually(t, func() bool {
			runtime.GC()
			select {
			case <-done:
				return true
			default:
				return false
			}
		}, awaitTimeout, 10*time.Millisecond)
		assert.Equal(t, 7, <-state.result)
	})
}

func TestWeakHandle(t *testing.T) {
	t.Run("Upgrade while alive", func(t *testing.T) {
		pool := newTestPool(t)
		state := newCounter()
		handle, err := New(pool, state, handleIncrement, mailbox.Unbounded())
		require.NoError(t, err)

		weak := handle.Downgrade()
		upgraded, ok := weak.Upgrade()
		require.True(t, ok)
		require.NoError(t, upgraded.Send(context.Background(), 2))

		// the upgraded handle counts as a strong one
		handle.Release()
		require.NoError(t, upgraded.Send(context.Background(), 3))
		upgraded.Release()

		awaitDone(t, weak.Done())
		assert.Equal(t, 5, <-state.result)
	})
	t.Run("Upgrade after termination", func(t *testing.T) {
		pool := newTestPool(t)
		handle, err := New(pool, newCounter(), handleIncrement, mailbox.Unbounded())
		require.NoError(t, err)

		weak := handle.Downgrade()
		handle.Release()
		awaitDone(t, weak.Done())

		upgraded, ok := weak.Upgrade()
		assert.False(t, ok)
		assert.Nil(t, upgraded)
	})
	t.Run("With nil and zero value", func(t *testing.T) {
		var zero WeakHandle[int]
		_, ok := zero.Upgrade()
		assert.False(t, ok)

		var missing *WeakHandle[int]
		_, ok = missing.Upgrade()
		assert.False(t, ok)
	})
}

// peerMsg either registers a peer or asks the receiver to forget its peer
type peerMsg struct {
	weak   *WeakHandle[peerMsg]
	strong *Handle[peerMsg]
	forget bool
}

type peer struct {
	weak   *WeakHandle[peerMsg]
	strong *Handle[peerMsg]
}

func (p *peer) PostStop(context.Context) error {
	if p.strong != nil {
		p.strong.Release()
	}
	return nil
}

func handlePeer(state *peer, msg peerMsg) {
	switch {
	case msg.forget:
		if state.strong != nil {
			state.strong.Release()
			state.strong = nil
		}
	case msg.strong != nil:
		state.strong = msg.strong
	default:
		state.weak = msg.weak
	}
}

func TestCycles(t *testing.T) {
	t.Run("Weak cycle is destroyed", func(t *testing.T) {
		pool := newTestPool(t)
		a, err := New(pool, peer{}, handlePeer, mailbox.Unbounded())
		require.NoError(t, err)
		b, err := New(pool, peer{}, handlePeer, mailbox.Unbounded())
		require.NoError(t, err)

		require.NoError(t, a.TrySend(peerMsg{weak: b.Downgrade()}))
		require.NoError(t, b.TrySend(peerMsg{weak: a.Downgrade()}))

		doneA, doneB := a.Done(), b.Done()
		weakA, weakB := a.Downgrade(), b.Downgrade()
		a.Release()
		b.Release()

		awaitDone(t, doneA)
		awaitDone(t, doneB)
		_, ok := weakA.Upgrade()
		assert.False(t, ok)
		_, ok = weakB.Upgrade()
		assert.False(t, ok)
	})
	t.Run("Strong cycle stays alive until broken", func(t *testing.T) {
		pool := newTestPool(t)
		a, err := New(pool, peer{}, handlePeer, mailbox.Unbounded())
		require.NoError(t, err)
		b, err := New(pool, peer{}, handlePeer, mailbox.Unbounded())
		require.NoError(t, err)

		require.NoError(t, a.TrySend(peerMsg{strong: b.Clone()}))
		require.NoError(t, b.TrySend(peerMsg{strong: a.Clone()}))

		weakA, weakB := a.Downgrade(), b.Downgrade()
		a.Release()
		b.Release()

		select {
		case <-weakA.Done():
			t.Fatal("appliance in a strong cycle terminated")
		case <-weakB.Done():
			t.Fatal("appliance in a strong cycle terminated")
		case <-time.After(50 * time.Millisecond):
		}

		// each one still holds the other, so upgrading works
		upgraded, ok := weakA.Upgrade()
		require.True(t, ok)
		require.NoError(t, upgraded.TrySend(peerMsg{forget: true}))
		upgraded.Release()

		awaitDone(t, weakB.Done())
		awaitDone(t, weakA.Done())
	})
}

// echo sends itself a message until its budget is exhausted
type echo struct {
	self     *WeakHandle[int]
	seen     []int
	finished chan struct{}
	result   chan []int
}

func (e *echo) SetSelf(self *WeakHandle[int]) {
	e.self = self
}

func (e *echo) PostStop(context.Context) error {
	e.result <- e.seen
	return nil
}

func TestSelfAware(t *testing.T) {
	pool := newTestPool(t)
	state := echo{finished: make(chan struct{}), result: make(chan []int, 1)}
	handle, err := New(pool, state, func(state *echo, budget int) {
		state.seen = append(state.seen, budget)
		if budget == 0 {
			close(state.finished)
			return
		}
		if self, ok := state.self.Upgrade(); ok {
			_ = self.TrySend(budget - 1)
			self.Release()
		}
	}, mailbox.Unbounded())
	require.NoError(t, err)

	require.NoError(t, handle.TrySend(3))
	awaitDone(t, state.finished)

	done := handle.Done()
	handle.Release()
	awaitDone(t, done)
	assert.Equal(t, []int{3, 2, 1, 0}, <-state.result)
}

// faulty panics on negative messages
type faulty struct {
	handled  int
	stopped  chan int
	stopOnce sync.Once
}

func (f *faulty) PostStop(context.Context) error {
	f.stopOnce.Do(func() { f.stopped <- f.handled })
	return nil
}

func handleFaulty(state **faulty, msg int) {
	if msg < 0 {
		panic(fmt.Sprintf("negative message %d", msg))
	}
	(*state).handled++
}

func TestFault(t *testing.T) {
	faults := make(chan error, 1)
	pool := newTestPool(t, executor.WithFaultHandler(func(err error) { faults <- err }))

	failing := &faulty{stopped: make(chan int, 1)}
	a, err := New(pool, failing, handleFaulty, mailbox.Unbounded(), WithName("failing"))
	require.NoError(t, err)
	defer a.Release()

	healthy := newCounter()
	b, err := New(pool, healthy, handleIncrement, mailbox.Unbounded())
	require.NoError(t, err)

	require.NoError(t, a.TrySend(1))
	require.NoError(t, a.TrySend(-1))
	awaitDone(t, a.Done())

	// the fault is recorded and reported to the executor
	require.Error(t, a.Err())
	assert.ErrorIs(t, a.Err(), errors.ErrHandlerFault)
	assert.Contains(t, a.Err().Error(), "negative message -1")
	assert.Equal(t, Terminated, a.State())
	assert.Equal(t, 1, <-failing.stopped)

	select {
	case reported := <-faults:
		assert.Same(t, a.Err(), reported)
	case <-time.After(awaitTimeout):
		t.Fatal("fault was not reported to the executor")
	}

	// later sends accumulate in the mailbox of the faulted appliance
	require.NoError(t, a.TrySend(2))
	require.NoError(t, a.TrySend(3))
	assert.Equal(t, 2, a.Len())

	// other appliances are unaffected
	require.NoError(t, b.Send(context.Background(), 4))
	done := b.Done()
	b.Release()
	awaitDone(t, done)
	assert.Equal(t, 4, <-healthy.result)
	assert.NoError(t, b.Err())
}

func TestHandlerExit(t *testing.T) {
	pool := newTestPool(t)
	state := newCounter()
	handle, err := New(pool, state, func(state *counter, msg increment) {
		state.total += int(msg)
		if msg < 0 {
			runtime.Goexit()
		}
	}, mailbox.Unbounded())
	require.NoError(t, err)
	defer handle.Release()

	require.NoError(t, handle.TrySend(3))
	require.NoError(t, handle.TrySend(-1))
	awaitDone(t, handle.Done())

	assert.Equal(t, Terminated, handle.State())
	assert.NoError(t, handle.Err())
	assert.Equal(t, 2, <-state.result)
}

func TestDefaultExecutor(t *testing.T) {
	t.Run("NewUnbounded", func(t *testing.T) {
		state := newCounter()
		handle, err := NewUnbounded(state, handleIncrement)
		require.NoError(t, err)
		require.NoError(t, handle.TrySend(6))
		done := handle.Done()
		handle.Release()
		awaitDone(t, done)
		assert.Equal(t, 6, <-state.result)
	})
	t.Run("NewBounded", func(t *testing.T) {
		state := newCounter()
		handle, err := NewBounded(state, handleIncrement, 2)
		require.NoError(t, err)
		assert.Equal(t, 2, handle.Cap())
		require.NoError(t, handle.Send(context.Background(), 6))
		done := handle.Done()
		handle.Release()
		awaitDone(t, done)
		assert.Equal(t, 6, <-state.result)

		_, err = NewBounded(newCounter(), handleIncrement, 0)
		require.ErrorIs(t, err, errors.ErrInvalidCapacity)
	})
	t.Run("Shares a single executor", func(t *testing.T) {
		assert.Same(t, executor.Default(), executor.Default())
	})
}

func TestAwait(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, Await(ctx, make(chan struct{})), context.DeadlineExceeded)

	closed := make(chan struct{})
	close(closed)
	require.NoError(t, Await(context.Background(), closed))
}

func TestState(t *testing.T) {
	assert.Equal(t, "running", Running.String())
	assert.Equal(t, "draining", Draining.String())
	assert.Equal(t, "terminated", Terminated.String())
	assert.Equal(t, "unknown", State(42).String())
}
