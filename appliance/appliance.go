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
	"time"
	"weak"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/atomic"

	"github.com/tochemey/appliance/errors"
	"github.com/tochemey/appliance/executor"
	imetric "github.com/tochemey/appliance/internal/metric"
	"github.com/tochemey/appliance/internal/validation"
	"github.com/tochemey/appliance/log"
	"github.com/tochemey/appliance/mailbox"
)

// Handler processes one message against the appliance state.
// It is never called concurrently for the same appliance.
type Handler[S, M any] func(state *S, msg M)

// core is the part of an appliance shared by its handles.
// It does not depend on the state type.
type core[M any] struct {
	id      string
	mailbox mailbox.Mailbox[M]
	// number of strong handles not yet released
	strong atomic.Int64
	state  atomic.Int32
	fault  atomic.Error
	done   chan struct{}
}

// acquire adds a strong reference unless the last one is already gone
func (c *core[M]) acquire() bool {
	for {
		count := c.strong.Load()
		if count <= 0 {
			return false
		}
		if c.strong.CompareAndSwap(count, count+1) {
			return true
		}
	}
}

// release drops a strong reference and closes the mailbox with the last one
func (c *core[M]) release() {
	if c.strong.Dec() == 0 {
		c.mailbox.Close()
	}
}

// loop is the dispatch loop of an appliance. It owns the state.
type loop[S, M any] struct {
	core    *core[M]
	state   S
	handler Handler[S, M]
	logger  log.Logger

	metric       *imetric.ApplianceMetric
	attributes   metric.MeasurementOption
	registration metric.Registration
}

// New creates an appliance running on exec and returns its first strong handle.
//
// The appliance takes ownership of state: it must not be touched by the caller
// afterward. The dispatch loop is submitted to exec as a single unit of work that
// completes once the appliance terminates. New never waits for messages.
func New[S, M any](exec executor.Executor, state S, handler Handler[S, M], cfg mailbox.Config, opts ...Option) (*Handle[M], error) {
	if err := validation.New().
		AddAssertion(exec != nil, errors.ErrUndefinedExecutor).
		AddAssertion(handler != nil, errors.ErrUndefinedHandler).
		AddValidator(cfg).
		Validate(); err != nil {
		return nil, err
	}

	settings := newConfig(opts...)
	if settings.name == "" {
		settings.name = uuid.NewString()
	}

	mb, err := mailbox.New[M](cfg)
	if err != nil {
		return nil, err
	}

	c := &core[M]{
		id:      settings.name,
		mailbox: mb,
		done:    make(chan struct{}),
	}
	c.strong.Store(1)
	c.state.Store(int32(Running))

	l := &loop[S, M]{
		core:    c,
		state:   state,
		handler: handler,
		logger:  settings.logger.With("appliance", settings.name),
	}

	if settings.meterProvider != nil {
		if err := l.registerMetrics(settings.meterProvider); err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
	}

	handle := newHandle(c)
	if err := exec.Execute(l.run); err != nil {
		handle.cleanup.Stop()
		mb.Close()
		l.unregisterMetrics()
		return nil, err
	}
	return handle, nil
}

// NewBounded creates an appliance on the default executor with a mailbox
// holding at most capacity messages.
func NewBounded[S, M any](state S, handler Handler[S, M], capacity int, opts ...Option) (*Handle[M], error) {
	return New(executor.Default(), state, handler, mailbox.Bounded(capacity), opts...)
}

// NewUnbounded creates an appliance on the default executor with an unbounded mailbox.
func NewUnbounded[S, M any](state S, handler Handler[S, M], opts ...Option) (*Handle[M], error) {
	return New(executor.Default(), state, handler, mailbox.Unbounded(), opts...)
}

// Await waits until done is closed or ctx is done
func Await(ctx context.Context, done <-chan struct{}) error {
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run processes messages until the mailbox is closed and empty.
// The appliance terminates however run exits. A handler panic is
// propagated to the executor afterward.
func (l *loop[S, M]) run() {
	c := l.core
	defer func() {
		r := recover()
		if r == nil {
			l.terminate()
			return
		}

		err := errors.Recovered(r, 2)
		c.fault.Store(err)
		l.logger.Errorf("handler fault: %v", err)
		if l.metric != nil {
			l.metric.FaultsCount().Add(context.Background(), 1, l.attributes)
		}
		l.terminate()
		panic(err)
	}()

	l.logger.Debug("appliance started")
	if aware, ok := hook[SelfAware[M]](&l.state); ok {
		aware.SetSelf(newWeakHandle(c))
	}

	for {
		msg, err := c.mailbox.Dequeue()
		if err != nil {
			break
		}

		if c.mailbox.IsClosed() && c.state.CompareAndSwap(int32(Running), int32(Draining)) {
			l.logger.Debugf("appliance draining %d queued message(s)", c.mailbox.Len()+1)
		}
		l.process(msg)
	}
}

// process applies the handler to a single message
func (l *loop[S, M]) process(msg M) {
	if l.metric == nil {
		l.handler(&l.state, msg)
		return
	}

	start := time.Now()
	l.handler(&l.state, msg)
	ctx := context.Background()
	l.metric.HandlerDuration().Record(ctx, float64(time.Since(start))/float64(time.Millisecond), l.attributes)
	l.metric.ProcessedCount().Add(ctx, 1, l.attributes)
}

// terminate runs the state teardown and signals termination
func (l *loop[S, M]) terminate() {
	l.core.state.Store(int32(Terminated))
	if err := l.postStop(); err != nil {
		l.logger.Warnf("post stop failed: %v", err)
	}
	l.unregisterMetrics()
	l.logger.Debug("appliance terminated")
	close(l.core.done)
}

func (l *loop[S, M]) postStop() (err error) {
	stopper, ok := hook[PostStopper](&l.state)
	if !ok {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			err = errors.Recovered(r, 2)
		}
	}()
	return stopper.PostStop(context.Background())
}

func (l *loop[S, M]) registerMetrics(provider metric.MeterProvider) error {
	meter := imetric.New(imetric.WithMeterProvider(provider)).Meter()
	instruments, err := imetric.NewApplianceMetric(meter)
	if err != nil {
		return err
	}

	attributes := metric.WithAttributes(imetric.ApplianceIDKey.String(l.core.id))
	mb := l.core.mailbox
	registration, err := meter.RegisterCallback(func(_ context.Context, observer metric.Observer) error {
		observer.ObserveInt64(instruments.MailboxSize(), int64(mb.Len()), attributes)
		return nil
	}, instruments.MailboxSize())
	if err != nil {
		return err
	}

	l.metric = instruments
	l.attributes = attributes
	l.registration = registration
	return nil
}

func (l *loop[S, M]) unregisterMetrics() {
	if l.registration != nil {
		_ = l.registration.Unregister()
	}
}

// hook returns the state as T when either S or *S implements it
func hook[T, S any](state *S) (T, bool) {
	if impl, ok := any(state).(T); ok {
		return impl, true
	}
	impl, ok := any(*state).(T)
	return impl, ok
}

// newWeakHandle creates a weak reference to c
func newWeakHandle[M any](c *core[M]) *WeakHandle[M] {
	return &WeakHandle[M]{
		ptr:  weak.Make(c),
		id:   c.id,
		done: c.done,
	}
}
