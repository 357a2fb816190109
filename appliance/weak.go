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
	"fmt"
	"weak"
)

// WeakHandle references an appliance without keeping it alive.
// The zero value and nil never upgrade.
type WeakHandle[M any] struct {
	ptr  weak.Pointer[core[M]]
	id   string
	done <-chan struct{}
}

// Upgrade returns a strong handle while the appliance still has one.
// Once its last strong handle is released Upgrade always fails.
func (w *WeakHandle[M]) Upgrade() (*Handle[M], bool) {
	if w == nil {
		return nil, false
	}

	c := w.ptr.Value()
	if c == nil || !c.acquire() {
		return nil, false
	}
	return newHandle(c), true
}

// ID returns the appliance name
func (w *WeakHandle[M]) ID() string {
	return w.id
}

// Done returns a channel closed once the appliance terminated
func (w *WeakHandle[M]) Done() <-chan struct{} {
	return w.done
}

// String returns a description of the handle
func (w *WeakHandle[M]) String() string {
	return fmt.Sprintf("WeakHandle(%s)", w.id)
}
