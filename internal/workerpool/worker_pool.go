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

// Package workerpool provides a sharded pool of goroutine workers spawned on
// demand and shut down after staying idle for a while.
package workerpool

import (
	"errors"
	"math/rand/v2"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tochemey/appliance/internal/ticker"
)

const (
	// Maximum number of shards supported by the worker pool
	maxShards = 128

	// Idle workers a shard keeps before passivation kicks in
	defaultIdleThreshold = 400

	// Worker states
	workerStateIdle    int32 = 0 // Worker is idle and available for work
	workerStateWorking int32 = 1 // Worker is currently executing a task
	workerStateClosed  int32 = 2 // Worker has been closed and should not be used
)

// ErrStopped is returned when a task is submitted to a pool that is not running.
var ErrStopped = errors.New("worker pool is not running")

// WorkerPool manages a pool of workers across multiple shards for efficient
// concurrent task execution.
type WorkerPool struct {
	passivateAfter time.Duration // Duration after which idle workers are cleaned up
	idleThreshold  int           // Idle workers kept per shard before cleanup
	numShards      int           // Number of shards to distribute work across
	panicHandler   func(any)     // Receives values recovered from panicking tasks
	shards         []*poolShard  // Shards containing workers
	mutex          sync.RWMutex  // Mutex for pool-wide operations
	started        atomic.Bool   // Flag indicating if the pool has been started
	stopped        atomic.Bool   // Flag indicating if the pool has been stopped
	stopCh         chan struct{} // Closed on Stop to end the cleanup loop
	spawnedWorkers atomic.Int64  // Counter for tracking live workers
	executedTasks  atomic.Uint64 // Counter for tracking completed tasks
}

// Worker represents a goroutine that executes submitted tasks.
type Worker struct {
	workChan  chan func()  // Channel for receiving work
	shard     *poolShard   // Reference to the shard this worker belongs to
	lastUsed  atomic.Int64 // Timestamp of last use (UnixNano)
	isDeleted atomic.Bool  // Flag indicating if worker has been marked for deletion
	state     atomic.Int32 // Current state of the worker (idle, working, closed)
}

// poolShard represents a subdivision of the worker pool that manages a subset
// of workers to reduce contention.
type poolShard struct {
	wp          *WorkerPool            // Reference to parent worker pool
	idleWorkers []*Worker              // Idle workers, least recently used first
	idleWorker1 atomic.Pointer[Worker] // Fast path worker 1
	idleWorker2 atomic.Pointer[Worker] // Fast path worker 2
	mu          sync.Mutex             // Mutex for shard operations
	stopped     atomic.Bool            // Flag indicating if shard has been stopped
}

// New creates a new worker pool with the given options.
func New(opts ...Option) *WorkerPool {
	wp := &WorkerPool{
		passivateAfter: time.Second,
		idleThreshold:  defaultIdleThreshold,
		numShards:      1,
	}

	for _, opt := range opts {
		opt.Apply(wp)
	}

	// Ensure numShards is within bounds
	if wp.numShards < 1 {
		wp.numShards = 1
	} else if wp.numShards > maxShards {
		wp.numShards = maxShards
	}

	return wp
}

// GetSpawnedWorkers returns the current count of live workers.
func (wp *WorkerPool) GetSpawnedWorkers() int {
	return int(wp.spawnedWorkers.Load())
}

// GetExecutedTasks returns the number of tasks that ran to completion or panicked.
func (wp *WorkerPool) GetExecutedTasks() uint64 {
	return wp.executedTasks.Load()
}

// NumShards returns the number of shards work is distributed across.
func (wp *WorkerPool) NumShards() int {
	return wp.numShards
}

// Start initializes the worker pool and begins the cleanup routine.
// It's safe to call Start multiple times.
func (wp *WorkerPool) Start() {
	wp.mutex.Lock()
	defer wp.mutex.Unlock()
	if wp.started.Load() {
		return
	}

	wp.shards = make([]*poolShard, wp.numShards)
	for i := range wp.numShards {
		wp.shards[i] = &poolShard{
			wp:          wp,
			idleWorkers: make([]*Worker, 0, 64),
		}
	}

	wp.stopCh = make(chan struct{})
	wp.started.Store(true)
	go wp.cleanup(wp.stopCh)
}

// Stop shuts the idle workers down and rejects new submissions.
// Workers busy with a task exit once the task returns.
func (wp *WorkerPool) Stop() {
	wp.mutex.Lock()
	defer wp.mutex.Unlock()
	if !wp.started.Load() || wp.stopped.Swap(true) {
		return
	}

	close(wp.stopCh)
	for _, shard := range wp.shards {
		shard.mu.Lock()
		shard.stopped.Store(true)

		for j, worker := range shard.idleWorkers {
			worker.close()
			shard.idleWorkers[j] = nil // Help GC
		}
		shard.idleWorkers = shard.idleWorkers[:0]

		if w1 := shard.idleWorker1.Swap(nil); w1 != nil {
			w1.close()
		}

		if w2 := shard.idleWorker2.Swap(nil); w2 != nil {
			w2.close()
		}
		shard.mu.Unlock()
	}
}

// SubmitWork hands a task to an available worker, spawning one when none is idle.
// It returns ErrStopped when the pool is not running.
func (wp *WorkerPool) SubmitWork(task func()) error {
	wp.mutex.RLock()
	if !wp.started.Load() || wp.stopped.Load() {
		wp.mutex.RUnlock()
		return ErrStopped
	}

	shard := wp.shards[rand.IntN(wp.numShards)]
	wp.mutex.RUnlock()

	if !shard.acquireWorker(task) {
		return ErrStopped
	}
	return nil
}

// acquireWorker gets an available worker or creates a new one and
// hands it the task. It returns false when the shard is stopped.
func (shard *poolShard) acquireWorker(task func()) bool {
	// Fast path: try to use cached idle workers without locking
	for _, slot := range []*atomic.Pointer[Worker]{&shard.idleWorker1, &shard.idleWorker2} {
		if w := slot.Swap(nil); w != nil {
			if w.assign(task) {
				return true
			}
			if !w.isDeleted.Load() {
				shard.setWorkerIdle(w)
			}
		}
	}

	// Slow path: take a lock and check the idle workers slice
	shard.mu.Lock()
	if shard.stopped.Load() {
		shard.mu.Unlock()
		return false
	}

	for length := len(shard.idleWorkers); length > 0; length = len(shard.idleWorkers) {
		worker := shard.idleWorkers[length-1]
		shard.idleWorkers[length-1] = nil // Help GC
		shard.idleWorkers = shard.idleWorkers[:length-1]
		if worker.assign(task) {
			shard.mu.Unlock()
			return true
		}
	}
	shard.mu.Unlock()

	worker := &Worker{
		workChan: make(chan func()),
		shard:    shard,
	}
	worker.state.Store(workerStateWorking)
	shard.wp.spawnedWorkers.Add(1)
	go worker.doWork()

	worker.workChan <- task
	return true
}

// setWorkerIdle marks a worker as idle and makes it available for future tasks.
// Returns false if the worker's shard has been stopped.
func (shard *poolShard) setWorkerIdle(worker *Worker) bool {
	worker.lastUsed.Store(time.Now().UnixNano())

	if shard.stopped.Load() {
		return false
	}

	// Fast path: try to store in atomic pointers first
	for _, slot := range []*atomic.Pointer[Worker]{&shard.idleWorker1, &shard.idleWorker2} {
		if slot.CompareAndSwap(nil, worker) {
			// Stop may have emptied the slots already
			if shard.stopped.Load() && slot.CompareAndSwap(worker, nil) {
				return false
			}
			return true
		}
	}

	// Slow path: add to slice with lock
	shard.mu.Lock()
	defer shard.mu.Unlock()
	if shard.stopped.Load() {
		return false
	}

	shard.idleWorkers = append(shard.idleWorkers, worker)
	return true
}

// doWork is the main worker goroutine function that processes incoming tasks.
func (worker *Worker) doWork() {
	shard := worker.shard
	wp := shard.wp
	defer wp.spawnedWorkers.Add(-1)

	for work := range worker.workChan {
		wp.execute(work)

		worker.state.Store(workerStateIdle)
		if !shard.setWorkerIdle(worker) {
			worker.close()
		}
	}
}

// execute runs a task and reports a panic to the pool's panic handler.
func (wp *WorkerPool) execute(task func()) {
	defer func() {
		wp.executedTasks.Add(1)
		if r := recover(); r != nil && wp.panicHandler != nil {
			wp.panicHandler(r)
		}
	}()
	task()
}

// assign hands the task to an idle worker. It fails when the worker is
// deleted or busy.
func (worker *Worker) assign(task func()) bool {
	if worker.isDeleted.Load() || !worker.state.CompareAndSwap(workerStateIdle, workerStateWorking) {
		return false
	}
	worker.workChan <- task
	return true
}

// close ends the worker goroutine. It is safe to call more than once.
func (worker *Worker) close() {
	if !worker.isDeleted.Swap(true) {
		worker.state.Store(workerStateClosed)
		close(worker.workChan)
	}
}

// cleanup periodically shuts down the workers that stayed idle
// for longer than passivateAfter.
func (wp *WorkerPool) cleanup(stopCh chan struct{}) {
	tick := ticker.New(wp.passivateAfter)
	tick.Start()
	defer tick.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-tick.Ticks:
			cutoff := time.Now().Add(-wp.passivateAfter).UnixNano()
			for _, shard := range wp.shards {
				shard.passivate(cutoff, wp.idleThreshold)
			}
		}
	}
}

// passivate closes the idle workers last used before cutoff, keeping at
// least threshold of them around.
func (shard *poolShard) passivate(cutoff int64, threshold int) {
	shard.mu.Lock()
	if shard.stopped.Load() || len(shard.idleWorkers) <= threshold {
		shard.mu.Unlock()
		return
	}

	// idleWorkers is ordered by lastUsed, oldest first
	expired := sort.Search(len(shard.idleWorkers), func(i int) bool {
		return shard.idleWorkers[i].lastUsed.Load() >= cutoff
	})
	if excess := len(shard.idleWorkers) - threshold; expired > excess {
		expired = excess
	}

	stale := make([]*Worker, expired)
	copy(stale, shard.idleWorkers[:expired])
	remaining := copy(shard.idleWorkers, shard.idleWorkers[expired:])
	for j := remaining; j < len(shard.idleWorkers); j++ {
		shard.idleWorkers[j] = nil // Help GC
	}
	shard.idleWorkers = shard.idleWorkers[:remaining]
	shard.mu.Unlock()

	// Close worker channels outside of lock
	for _, worker := range stale {
		worker.close()
	}
}
