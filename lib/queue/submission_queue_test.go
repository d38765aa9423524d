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
	"testing"
	"time"

	"github.com/daniel-thom/jade/lib/events"
	"github.com/daniel-thom/jade/lib/hpc"
	"github.com/stretchr/testify/require"
)

func TestSubmissionQueueNeverExceedsQueueDepth(t *testing.T) {
	q := NewSubmissionQueue(2, time.Millisecond)
	sink := events.NullSink{}

	mgr := &stubManager{submitStatus: hpc.StatusGood, statusSeq: []hpc.State{hpc.StateRunning}}
	b1 := New(mgr, sink, "batch_1", "", "", 5)
	b2 := New(mgr, sink, "batch_2", "", "", 5)
	b3 := New(mgr, sink, "batch_3", "", "", 5)

	require.NoError(t, q.Submit(b1))
	require.NoError(t, q.Submit(b2))
	require.True(t, q.IsFull())

	err := q.Submit(b3)
	require.Error(t, err)
	require.Equal(t, 2, q.InFlightCount())
}

func TestProcessQueueRemovesCompletedBatches(t *testing.T) {
	q := NewSubmissionQueue(2, time.Millisecond)
	sink := events.NullSink{}

	done := &stubManager{submitStatus: hpc.StatusGood, statusSeq: []hpc.State{hpc.StateComplete}}
	running := &stubManager{submitStatus: hpc.StatusGood, statusSeq: []hpc.State{hpc.StateRunning}}

	b1 := New(done, sink, "batch_1", "", "", 5)
	b2 := New(running, sink, "batch_2", "", "", 5)
	require.NoError(t, q.Submit(b1))
	require.NoError(t, q.Submit(b2))

	q.ProcessQueue()
	require.Equal(t, 1, q.InFlightCount())
}

func TestWaitBlocksUntilInFlightIsEmpty(t *testing.T) {
	q := NewSubmissionQueue(1, time.Millisecond)
	sink := events.NullSink{}

	mgr := &stubManager{submitStatus: hpc.StatusGood, statusSeq: []hpc.State{hpc.StateRunning, hpc.StateComplete}}
	b := New(mgr, sink, "batch_1", "", "", 5)
	require.NoError(t, q.Submit(b))

	done := make(chan struct{})
	go func() {
		q.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after batch completed")
	}
	require.Equal(t, 0, q.InFlightCount())
}
