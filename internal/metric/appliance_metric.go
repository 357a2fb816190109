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

import (
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ApplianceIDKey is the attribute key identifying the appliance an observation belongs to
const ApplianceIDKey = attribute.Key("appliance.id")

// ApplianceMetric groups the instruments describing a single appliance
//
// Instruments:
//   - appliance.processed.count  (Int64Counter)
//   - appliance.handler.duration (Float64Histogram, unit: ms)
//   - appliance.mailbox.size     (Int64ObservableGauge)
//   - appliance.faults.count     (Int64Counter)
type ApplianceMetric struct {
	processedCount  metric.Int64Counter
	handlerDuration metric.Float64Histogram
	mailboxSize     metric.Int64ObservableGauge
	faultsCount     metric.Int64Counter
}

// NewApplianceMetric creates an instance of ApplianceMetric
func NewApplianceMetric(meter metric.Meter) (*ApplianceMetric, error) {
	instruments := new(ApplianceMetric)
	var err error

	if instruments.processedCount, err = meter.Int64Counter(
		"appliance.processed.count",
		metric.WithDescription("Total number of messages processed"),
	); err != nil {
		return nil, fmt.Errorf("failed to create processedCount instrument, %w", err)
	}

	if instruments.handlerDuration, err = meter.Float64Histogram(
		"appliance.handler.duration",
		metric.WithDescription("The time the handler took to process a message in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, fmt.Errorf("failed to create handlerDuration instrument, %w", err)
	}

	if instruments.mailboxSize, err = meter.Int64ObservableGauge(
		"appliance.mailbox.size",
		metric.WithDescription("Number of messages waiting in the mailbox"),
	); err != nil {
		return nil, fmt.Errorf("failed to create mailboxSize instrument, %w", err)
	}

	if instruments.faultsCount, err = meter.Int64Counter(
		"appliance.faults.count",
		metric.WithDescription("Total number of handler faults"),
	); err != nil {
		return nil, fmt.Errorf("failed to create faultsCount instrument, %w", err)
	}

	return instruments, nil
}

// ProcessedCount returns the counter of processed messages
func (x *ApplianceMetric) ProcessedCount() metric.Int64Counter {
	return x.processedCount
}

// HandlerDuration returns the histogram of handler latencies in milliseconds
func (x *ApplianceMetric) HandlerDuration() metric.Float64Histogram {
	return x.handlerDuration
}

// MailboxSize returns the gauge reporting the mailbox length.
// Use with Meter.RegisterCallback to observe it.
func (x *ApplianceMetric) MailboxSize() metric.Int64ObservableGauge {
	return x.mailboxSize
}

// FaultsCount returns the counter of handler faults
func (x *ApplianceMetric) FaultsCount() metric.Int64Counter {
	return x.faultsCount
}
