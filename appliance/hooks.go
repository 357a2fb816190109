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

import "context"

// SelfAware is implemented by a state type, or a pointer to it, wanting a reference to its own
// appliance. SetSelf is called once from the dispatch loop before the first
// message is handled. The reference is weak so that holding it does not keep
// the appliance alive.
type SelfAware[M any] interface {
	SetSelf(self *WeakHandle[M])
}

// PostStopper is implemented by a state type, or a pointer to it, holding resources to release.
// PostStop runs once, from the dispatch loop, when the appliance terminates,
// including after a handler fault. A returned error is logged.
type PostStopper interface {
	PostStop(ctx context.Context) error
}
