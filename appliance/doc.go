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

// Package appliance implements a minimal actor runtime.
//
// An appliance binds a private state value to a mailbox and an executor. Its
// dispatch loop, one unit of work on the executor, takes messages off the
// mailbox one at a time and applies the handler to the state. The state is
// never touched by anything else, so handlers need no locking.
//
// Ownership is explicit. New returns a strong Handle; every Clone adds one
// more. Once every strong handle is released the mailbox stops accepting
// messages, the loop drains what was already queued and then terminates. A
// WeakHandle never keeps an appliance alive: it can be upgraded back to a
// strong handle only while at least one strong handle exists. Appliances that
// need to reference each other, or themselves, should hold weak handles; a
// cycle of strong handles keeps every appliance in it alive forever.
//
//	counter, err := appliance.NewBounded(0, func(n *int, delta int) { *n += delta }, 8)
//	if err != nil {
//		return err
//	}
//	_ = counter.Send(ctx, 1)
//	done := counter.Done()
//	counter.Release()
//	_ = appliance.Await(ctx, done)
package appliance
