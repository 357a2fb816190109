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

package executor

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/atomic"

	gerrors "github.com/tochemey/appliance/errors"
	imetric "github.com/tochemey/appliance/internal/metric"
	"github.com/tochemey/appliance/internal/workerpool"
	"github.com/tochemey/appliance/log"
)

// Pool is an Executor backed by goroutine workers spawned on demand.
//
// A unit of work that panics does not take its worker down: the pool recovers
// it, logs it at error level and hands it to the fault handler as a
// *errors.PanicError.
type Pool struct {
	shards         int
	passivateAfter time.Duration
	logger         log.Logger
	faultHandler   func(error)
	meterProvider  metric.MeterProvider

	workers      *workerpool.WorkerPool
	faults       *atomic.Int64
	metric       *imetric.ExecutorMetric
	registration metric.Registration
}

// enforce compilation error
var _ Executor = (*Pool)(nil)

// NewPool creates a started Pool
func NewPool(opts ...Option) *Pool {
	pool := &Pool{
		shards: 1,
		logger: log.DefaultLogger,
		faults: atomic.NewInt64(0),
	}

	for _, opt := range opts {
		opt.Apply(pool)
	}

	pool.workers = workerpool.New(
		workerpool.WithNumShards(pool.shards),
		workerpool.WithPassivateAfter(pool.passivateAfter),
		workerpool.WithPanicHandler(pool.recovered),
	)

	if pool.meterProvider != nil {
		if err := pool.registerMetrics(); err != nil {
			pool.logger.Warnf("executor metrics disabled: %v", err)
		}
	}

	pool.workers.Start()
	return pool
}

// Execute schedules task on a worker. It returns errors.ErrExecutorStopped once
// the pool is stopped.
func (p *Pool) Execute(task func()) error {
	if task == nil {
		return nil
	}

	if err := p.workers.SubmitWork(task); err != nil {
		if errors.Is(err, workerpool.ErrStopped) {
			return gerrors.ErrExecutorStopped
		}
		return err
	}
	return nil
}

// Stop stops accepting work and shuts idle workers down.
// Units already running complete normally.
func (p *Pool) Stop() {
	p.workers.Stop()
	if p.registration != nil {
		_ = p.registration.Unregister()
	}
}

// Workers returns the number of live workers
func (p *Pool) Workers() int {
	return p.workers.GetSpawnedWorkers()
}

// Faults returns the number of units of work that panicked
func (p *Pool) Faults() int64 {
	return p.faults.Load()
}

// recovered handles the value recovered from a panicking unit of work
func (p *Pool) recovered(r any) {
	err := gerrors.Recovered(r, 3)
	p.logger.Errorf("executor: unit of work failed: %v", err)

	if p.metric != nil {
		p.metric.FaultsCount().Add(context.Background(), 1)
	}
	p.faults.Inc()

	if p.faultHandler != nil {
		p.faultHandler(err)
	}
}

func (p *Pool) registerMetrics() error {
	meter := imetric.New(imetric.WithMeterProvider(p.meterProvider)).Meter()
	instruments, err := imetric.NewExecutorMetric(meter)
	if err != nil {
		return err
	}

	registration, err := meter.RegisterCallback(func(_ context.Context, observer metric.Observer) error {
		observer.ObserveInt64(instruments.Workers(), int64(p.workers.GetSpawnedWorkers()))
		return nil
	}, instruments.Workers())
	if err != nil {
		return err
	}

	p.metric = instruments
	p.registration = registration
	return nil
}
