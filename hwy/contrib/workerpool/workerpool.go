// Copyright 2025 The go-highway Authors. SPDX-License-Identifier: Apache-2.0

// Package workerpool provides a persistent, reusable worker pool for running
// independent convolutions (for example the images of a batch) in parallel.
// A Pool is created once and reused across many batches, so no goroutines
// are spawned per call.
//
// Forward is single-threaded and needs a distinct workspace per concurrent
// call. The Worker variants pass a worker slot in [0, NumWorkers()) that is
// never used by two goroutines at once, so callers can index per-worker
// state such as workspace buffers with it:
//
//	pool := workerpool.New(0)
//	defer pool.Close()
//
//	bufs := make([]conv.Buffer, pool.NumWorkers())
//	pool.ParallelForAtomicWorker(batch, func(worker, i int) {
//	    errs[i] = engine.Forward(src[i], weights, g, &bufs[worker], dst[i], false)
//	    bufs[worker].Reserve()
//	})
package workerpool

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// Pool is a persistent worker pool that can be reused across many parallel
// operations. Workers are spawned once at creation and reused.
type Pool struct {
	numWorkers int
	workC      chan workItem
	closeOnce  sync.Once
	closed     atomic.Bool
}

// workItem represents a single parallel operation to execute.
type workItem struct {
	fn      func()
	barrier *sync.WaitGroup
}

// New creates a new worker pool with the specified number of workers.
// Workers are spawned immediately and persist until Close is called.
// If numWorkers <= 0, uses GOMAXPROCS.
func New(numWorkers int) *Pool {
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}

	p := &Pool{
		numWorkers: numWorkers,
		// Buffer enough for all workers to have pending work
		workC: make(chan workItem, numWorkers*2),
	}

	for range numWorkers {
		go p.worker()
	}

	return p
}

func (p *Pool) worker() {
	for item := range p.workC {
		item.fn()
		item.barrier.Done()
	}
}

// NumWorkers returns the number of workers in the pool, which bounds the
// worker slots passed to the Worker variants.
func (p *Pool) NumWorkers() int {
	return p.numWorkers
}

// Close shuts down the worker pool. All pending work will complete.
// Calling Close multiple times is safe.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		close(p.workC)
	})
}

// run submits one closure per worker slot in [0, workers) and waits for all
// of them. With a closed pool or a single slot it runs inline.
func (p *Pool) run(workers int, fn func(worker int)) {
	if workers == 1 || p.closed.Load() {
		for w := range workers {
			fn(w)
		}
		return
	}

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := range workers {
		p.workC <- workItem{
			fn:      func() { fn(w) },
			barrier: &wg,
		}
	}
	wg.Wait()
}

// ParallelFor executes fn for each index in [0, n) using the worker pool.
// Each worker processes a contiguous range of indices.
// Blocks until all work completes.
//
// fn receives (start, end) indices where work should process [start, end).
func (p *Pool) ParallelFor(n int, fn func(start, end int)) {
	p.ParallelForWorker(n, func(_, start, end int) {
		fn(start, end)
	})
}

// ParallelForWorker is ParallelFor with the worker slot that processes
// each range.
func (p *Pool) ParallelForWorker(n int, fn func(worker, start, end int)) {
	if n <= 0 {
		return
	}

	// Don't use more workers than items
	workers := min(p.numWorkers, n)
	chunkSize := (n + workers - 1) / workers
	p.run(workers, func(w int) {
		start := w * chunkSize
		if start >= n {
			return
		}
		fn(w, start, min(start+chunkSize, n))
	})
}

// ParallelForAtomicWorker executes fn for each index in [0, n), handing out
// indices one at a time through an atomic counter. This balances load when
// items cost different amounts, e.g. a batch of differently sized inputs.
// Blocks until all work completes.
//
// fn receives the worker slot and the index to process.
func (p *Pool) ParallelForAtomicWorker(n int, fn func(worker, i int)) {
	if n <= 0 {
		return
	}

	var next atomic.Int64
	p.run(min(p.numWorkers, n), func(w int) {
		for {
			i := int(next.Add(1)) - 1
			if i >= n {
				return
			}
			fn(w, i)
		}
	})
}
