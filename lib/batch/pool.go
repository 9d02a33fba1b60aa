// Copyright 2026 The Detective Authors
// SPDX-License-Identifier: Apache-2.0

package batch

import (
	"runtime"
	"sync"
)

// DefaultWorkers returns the worker count used when a caller passes
// zero: one worker per logical CPU.
func DefaultWorkers() int {
	return runtime.NumCPU()
}

// ForEach calls fn(i) for every i in [0, count), spreading the calls
// across at most workers goroutines. Zero or negative workers means
// DefaultWorkers. ForEach returns when every call has returned.
//
// Indices are handed out in contiguous blocks so each goroutine walks
// a cache-friendly range. fn must only write to state owned by index
// i; ForEach provides no other synchronization.
func ForEach(workers, count int, fn func(index int)) {
	if count <= 0 {
		return
	}
	if workers <= 0 {
		workers = DefaultWorkers()
	}
	workers = min(workers, count)

	if workers == 1 {
		for index := range count {
			fn(index)
		}
		return
	}

	blockSize := (count + workers - 1) / workers
	var waitGroup sync.WaitGroup
	for start := 0; start < count; start += blockSize {
		end := min(start+blockSize, count)
		waitGroup.Add(1)
		go func(start, end int) {
			defer waitGroup.Done()
			for index := start; index < end; index++ {
				fn(index)
			}
		}(start, end)
	}
	waitGroup.Wait()
}
