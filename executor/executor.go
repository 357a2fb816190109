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

// Package executor runs the dispatch loops of appliances.
//
// An Executor accepts a unit of work and eventually runs it to completion on
// some worker, possibly concurrently with other units. Units carry no
// ordering guarantee relative to each other.
package executor

// Executor runs units of work.
//
// Execute must not run the task on the calling goroutine: a dispatch loop
// only returns once its appliance terminates.
type Executor interface {
	// Execute schedules task. It returns an error when the executor refuses it.
	Execute(task func()) error
}

// Func adapts a function into an Executor
type Func func(task func()) error

// enforce compilation error
var _ Executor = Func(nil)

// Execute calls f(task)
func (f Func) Execute(task func()) error {
	return f(task)
}
