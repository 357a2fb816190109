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
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/tochemey/appliance/log"
)

// Option is the interface that applies a Pool option.
type Option interface {
	// Apply sets the Option value of a Pool.
	Apply(pool *Pool)
}

var _ Option = OptionFunc(nil)

// OptionFunc implements the Option interface.
type OptionFunc func(pool *Pool)

// Apply applies the Pool's option
func (f OptionFunc) Apply(pool *Pool) {
	f(pool)
}

// WithShards sets the number of shards the workers are spread across.
// Values outside [1, 128] are clamped.
func WithShards(shards int) Option {
	return OptionFunc(func(pool *Pool) {
		pool.shards = shards
	})
}

// WithPassivateAfter sets how long an idle worker is kept before it is shut down
func WithPassivateAfter(d time.Duration) Option {
	return OptionFunc(func(pool *Pool) {
		pool.passivateAfter = d
	})
}

// WithLogger sets the logger used to report faults
func WithLogger(logger log.Logger) Option {
	return OptionFunc(func(pool *Pool) {
		if logger != nil {
			pool.logger = logger
		}
	})
}

// WithFaultHandler sets the function receiving the fault of every unit of work
// that panicked. It runs on the worker that executed the unit and must not block.
func WithFaultHandler(handler func(err error)) Option {
	return OptionFunc(func(pool *Pool) {
		pool.faultHandler = handler
	})
}

// WithMeterProvider enables the pool metrics
func WithMeterProvider(provider metric.MeterProvider) Option {
	return OptionFunc(func(pool *Pool) {
		pool.meterProvider = provider
	})
}
