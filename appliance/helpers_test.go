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
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tochemey/appliance/executor"
	"github.com/tochemey/appliance/log"
)

const awaitTimeout = 5 * time.Second

// newTestPool creates an executor stopped at the end of the test
func newTestPool(t *testing.T, opts ...executor.Option) *executor.Pool {
	t.Helper()
	pool := executor.NewPool(append([]executor.Option{executor.WithLogger(log.DiscardLogger)}, opts...)...)
	t.Cleanup(pool.Stop)
	return pool
}

func newBenchPool(b *testing.B) *executor.Pool {
	b.Helper()
	pool := executor.NewPool(executor.WithLogger(log.DiscardLogger))
	b.Cleanup(pool.Stop)
	return pool
}

// awaitDone fails the test when done is not closed in time
func awaitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), awaitTimeout)
	defer cancel()
	require.NoError(t, Await(ctx, done), "appliance did not terminate")
}

// gatedExecutor holds the submitted units of work until open is called
type gatedExecutor struct {
	mu    sync.Mutex
	tasks []func()
}

func (g *gatedExecutor) Execute(task func()) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.tasks = append(g.tasks, task)
	return nil
}

func (g *gatedExecutor) open() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, task := range g.tasks {
		go task()
	}
	g.tasks = nil
}

// increment is the message understood by counter
type increment int

// counter adds up increments and reports its total on teardown
type counter struct {
	total  int
	result chan int
}

func newCounter() counter {
	return counter{result: make(chan int, 1)}
}

func (c *counter) PostStop(context.Context) error {
	c.result <- c.total
	return nil
}

func handleIncrement(state *counter, msg increment) {
	state.total += int(msg)
}

// gate blocks the handler on the message zero until released
type gate struct {
	entered  chan struct{}
	release  chan struct{}
	received []int
	result   chan []int
}

func newGate() gate {
	return gate{
		entered: make(chan struct{}),
		release: make(chan struct{}),
		result:  make(chan []int, 1),
	}
}

func (g *gate) PostStop(context.Context) error {
	g.result <- g.received
	return nil
}

func handleGated(state *gate, msg int) {
	if msg == 0 {
		close(state.entered)
		<-state.release
	}
	state.received = append(state.received, msg)
}
