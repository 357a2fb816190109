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

package metric

import "go.opentelemetry.io/otel/metric"

// ExecutorMetric groups the instruments describing an executor pool
//
// Instruments:
//   - executor.workers      (Int64ObservableGauge)
//   - executor.faults.count (Int64Counter)
type ExecutorMetric struct {
	workers     metric.Int64ObservableGauge
	faultsCount metric.Int64Counter
}

// NewExecutorMetric creates the executor instruments using the provided Meter.
func NewExecutorMetric(meter metric.Meter) (*ExecutorMetric, error) {
	var instruments ExecutorMetric
	var err error

	if instruments.workers, err = meter.Int64ObservableGauge(
		"executor.workers",
		metric.WithDescription("Number of live workers in the executor"),
	); err != nil {
		return nil, err
	}

	if instruments.faultsCount, err = meter.Int64Counter(
		"executor.faults.count",
		metric.WithDescription("Total number of units of work that panicked"),
	); err != nil {
		return nil, err
	}

	return &instruments, nil
}

// Workers returns the gauge reporting the number of live workers.
//
// Use with Meter.RegisterCallback to observe the current value periodically.
func (x *ExecutorMetric) Workers() metric.Int64ObservableGauge {
	return x.workers
}

// FaultsCount returns the counter of panicking units of work
func (x *ExecutorMetric) FaultsCount() metric.Int64Counter {
	return x.faultsCount
}
