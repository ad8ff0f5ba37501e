// MIT License
//
// Copyright (c) 2023 kache.io
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

// Package task schedules the asynchronous external-oembed refresh, the one
// foreground-invisible network operation in the engine.
package task

import (
	"errors"
	"sync"
)

var errQueueFull = errors.New("task: queue is full")

// jobQueue is a fixed worker-pool job queue (ground: teacher's
// pkg/provider/queue.go jobQueue, generalized from "store redis key" jobs
// to arbitrary fire-and-forget jobs).
type jobQueue struct {
	jobCh  chan func()
	stopCh chan struct{}
	wg     sync.WaitGroup
}

func newJobQueue(size, concurrency int) *jobQueue {
	if size <= 0 {
		size = 256
	}
	if concurrency <= 0 {
		concurrency = 4
	}
	q := &jobQueue{
		jobCh:  make(chan func(), size),
		stopCh: make(chan struct{}),
	}
	q.wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go q.listen()
	}
	return q
}

func (q *jobQueue) dispatch(job func()) error {
	select {
	case q.jobCh <- job:
		return nil
	default:
		return errQueueFull
	}
}

func (q *jobQueue) stop() {
	close(q.stopCh)
	q.wg.Wait()
}

func (q *jobQueue) listen() {
	defer q.wg.Done()
	for {
		select {
		case job := <-q.jobCh:
			job()
		case <-q.stopCh:
			return
		}
	}
}
