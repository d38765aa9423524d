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
	"errors"
	"testing"

	"github.com/daniel-thom/jade/lib/events"
	"github.com/daniel-thom/jade/lib/hpc"
	"github.com/daniel-thom/jade/lib/jadeerrors"
	"github.com/stretchr/testify/require"
)

// stubManager lets tests script exact Submit/CheckStatus sequences without
// touching a real or fake cluster backend.
type stubManager struct {
	submitStatus  hpc.SubmitStatus
	submitErr     error
	statusSeq     []hpc.State
	statusErrSeq  []error
	statusCallIdx int
}

func (s *stubManager) Backend() string { return "stub" }

func (s *stubManager) Submit(string, string, string) (string, hpc.SubmitStatus, error) {
	return "job-1", s.submitStatus, s.submitErr
}

func (s *stubManager) CheckStatus(string) (hpc.State, error) {
	i := s.statusCallIdx
	s.statusCallIdx++
	var err error
	if i < len(s.statusErrSeq) {
		err = s.statusErrSeq[i]
	}
	if i < len(s.statusSeq) {
		return s.statusSeq[i], err
	}
	return s.statusSeq[len(s.statusSeq)-1], err
}

func TestAsyncBatchRunEmitsJobAssignedEvent(t *testing.T) {
	sink := events.NewMemorySink()
	mgr := &stubManager{submitStatus: hpc.StatusGood, statusSeq: []hpc.State{hpc.StateComplete}}
	b := New(mgr, sink, "batch_1", "/tmp/run_batch_1.sh", "/tmp/out", 5)

	require.NoError(t, b.Run())
	require.True(t, b.IsPending())

	recorded := sink.Snapshot()
	require.Len(t, recorded, 1)
	require.Equal(t, events.NameHPCJobAssigned, recorded[0].Name)
}

func TestAsyncBatchRunRaisesExecutionErrorOnBadStatus(t *testing.T) {
	sink := events.NewMemorySink()
	mgr := &stubManager{submitStatus: hpc.StatusError}
	b := New(mgr, sink, "batch_1", "/tmp/run_batch_1.sh", "/tmp/out", 5)

	err := b.Run()
	require.Error(t, err)
	require.True(t, jadeerrors.IsExecutionError(err))
	require.False(t, b.IsPending())
}

func TestAsyncBatchIsCompleteEmitsStateChangeOnlyWhenStateDiffers(t *testing.T) {
	sink := events.NewMemorySink()
	mgr := &stubManager{
		submitStatus: hpc.StatusGood,
		statusSeq:    []hpc.State{hpc.StateQueued, hpc.StateQueued, hpc.StateRunning, hpc.StateComplete},
	}
	b := New(mgr, sink, "batch_1", "/tmp/run_batch_1.sh", "/tmp/out", 5)
	require.NoError(t, b.Run())

	require.False(t, b.IsComplete()) // NONE -> QUEUED, changed
	require.False(t, b.IsComplete()) // QUEUED -> QUEUED, unchanged
	require.False(t, b.IsComplete()) // QUEUED -> RUNNING, changed
	require.True(t, b.IsComplete())  // RUNNING -> COMPLETE, changed, terminal

	stateChanges := 0
	for _, e := range sink.Snapshot() {
		if e.Name == events.NameHPCJobStateChange {
			stateChanges++
		}
	}
	require.Equal(t, 3, stateChanges)
}

func TestAsyncBatchForcesCompleteAfterTransientFailureThreshold(t *testing.T) {
	sink := events.NewMemorySink()
	transientErr := errors.New("scontrol: connection refused")
	mgr := &stubManager{
		submitStatus: hpc.StatusGood,
		statusSeq:    []hpc.State{hpc.StateRunning, hpc.StateRunning, hpc.StateRunning},
		statusErrSeq: []error{transientErr, transientErr, transientErr},
	}
	b := New(mgr, sink, "batch_1", "/tmp/run_batch_1.sh", "/tmp/out", 2)
	require.NoError(t, b.Run())

	require.False(t, b.IsComplete()) // failure 1, tolerated
	require.False(t, b.IsComplete()) // failure 2, tolerated
	require.True(t, b.IsComplete())  // failure 3, exceeds threshold -> forced COMPLETE
}

func TestAsyncBatchGetBlockingJobsIsNoOp(t *testing.T) {
	b := New(&stubManager{}, events.NullSink{}, "batch_1", "", "", 5)
	require.Nil(t, b.GetBlockingJobs())
}
