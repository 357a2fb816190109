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
	"go.opentelemetry.io/otel/metric"

	"github.com/tochemey/appliance/log"
)

// config defines the configuration applied when creating an appliance
type config struct {
	// name identifies the appliance in logs and metrics
	name string
	// logger used by the dispatch loop
	logger log.Logger
	// meterProvider enables metrics when set
	meterProvider metric.MeterProvider
}

// newConfig creates an instance of config
func newConfig(opts ...Option) *config {
	cfg := &config{
		logger: log.DefaultLogger,
	}

	for _, opt := range opts {
		opt.Apply(cfg)
	}
	return cfg
}

// Option is the interface that applies an appliance option
type Option interface {
	// Apply sets the Option value of a config.
	Apply(cfg *config)
}

var _ Option = option(nil)

// option implements the Option interface.
type option func(cfg *config)

// Apply sets the Option value of a config.
func (f option) Apply(cfg *config) {
	f(cfg)
}

// WithName sets the appliance name. A random UUID is used otherwise.
func WithName(name string) Option {
	return option(func(cfg *config) {
		cfg.name = name
	})
}

// WithLogger sets the logger
func WithLogger(logger log.Logger) Option {
	return option(func(cfg *config) {
		if logger != nil {
			cfg.logger = logger
		}
	})
}

// WithMeterProvider enables the appliance metrics: messages processed, handler
// duration, mailbox size and faults, all attributed with the appliance name.
func WithMeterProvider(provider metric.MeterProvider) Option {
	return option(func(cfg *config) {
		cfg.meterProvider = provider
	})
}
