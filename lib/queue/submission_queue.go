/*
Copyright 2018 Gravitational, Inc.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package queue

import (
	"sync"
	"time"

	"github.com/gravitational/trace"
	log "github.com/sirupsen/logrus"
)

// SubmissionQueue is a bounded pool of in-flight AsyncBatches with a fixed
// depth and poll cadence (spec §4.6). The Scheduler is the only caller;
// it owns the queue, the queue in turn owns the AsyncBatches submitted
// into it.
type SubmissionQueue struct {
	mu           sync.Mutex
	queueDepth   int
	pollInterval time.Duration
	inFlight     []*AsyncBatch
}

// NewSubmissionQueue returns an empty queue with the given depth and poll
// cadence.
func NewSubmissionQueue(queueDepth int, pollInterval time.Duration) *SubmissionQueue {
	return &SubmissionQueue{
		queueDepth:   queueDepth,
		pollInterval: pollInterval,
	}
}

// Submit starts batch's Run() and adds it to the in-flight set, enforcing
// that the queue never exceeds queueDepth concurrent batches (spec §4.6).
// Callers must check IsFull() (or be prepared for the trace.BadParameter
// error Submit returns when the queue is full) before calling Submit in a
// tight loop.
func (q *SubmissionQueue) Submit(batch *AsyncBatch) error {
	q.mu.Lock()
	if len(q.inFlight) >= q.queueDepth {
		q.mu.Unlock()
		return trace.BadParameter("submission queue is full (depth=%d)", q.queueDepth)
	}
	q.mu.Unlock()

	if err := batch.Run(); err != nil {
		return trace.Wrap(err)
	}

	q.mu.Lock()
	q.inFlight = append(q.inFlight, batch)
	q.mu.Unlock()
	return nil
}

// IsFull reports whether the queue currently holds queueDepth batches.
func (q *SubmissionQueue) IsFull() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.inFlight) >= q.queueDepth
}

// InFlightCount returns the current number of in-flight batches, primarily
// for tests asserting the |in_flight| <= queue_depth invariant (spec §8).
func (q *SubmissionQueue) InFlightCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.inFlight)
}

// ProcessQueue polls every in-flight batch once, removing any that report
// complete. Completions are surfaced in the order batches terminate, not
// the order they were submitted (spec §4.6).
func (q *SubmissionQueue) ProcessQueue() {
	q.mu.Lock()
	batches := make([]*AsyncBatch, len(q.inFlight))
	copy(batches, q.inFlight)
	q.mu.Unlock()

	var remaining []*AsyncBatch
	for _, b := range batches {
		if b.IsComplete() {
			log.WithField("batch", b.Name()).Info("batch complete")
			continue
		}
		remaining = append(remaining, b)
	}

	q.mu.Lock()
	q.inFlight = remaining
	q.mu.Unlock()
}

// Wait blocks until every in-flight batch has completed, polling at
// pollInterval cadence (spec §4.6). It is one of the two suspension points
// the Scheduler is allowed (spec §5).
func (q *SubmissionQueue) Wait() {
	for q.InFlightCount() > 0 {
		q.ProcessQueue()
		if q.InFlightCount() == 0 {
			return
		}
		time.Sleep(q.pollInterval)
	}
}
