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

// Package queue implements AsyncBatch and SubmissionQueue (spec §4.5,
// §4.6), grounded on daniel-thom/jade's AsyncHpcSubmitter/JobQueue and
// adapted to the gravitational/gravity lib/fsm idiom of a state machine
// that emits StateChange-shaped events as it transitions.
package queue

import (
	"sync"

	"github.com/daniel-thom/jade/lib/events"
	"github.com/daniel-thom/jade/lib/hpc"
	"github.com/daniel-thom/jade/lib/jadeerrors"
	"github.com/gravitational/trace"
	log "github.com/sirupsen/logrus"
)

// AsyncBatch drives a single batch through NONE -> QUEUED/RUNNING ->
// COMPLETE against a shared hpc.Manager, emitting hpc_job_assigned and
// hpc_job_state_change events as it goes (spec §4.5). Exactly one
// successful Run() call is expected per instance.
type AsyncBatch struct {
	mu sync.Mutex

	manager    hpc.Manager
	sink       events.Sink
	name       string
	scriptPath string
	outputDir  string

	jobID                string
	lastState             hpc.State
	isPending             bool
	transientFailureCount int
	maxTransientFailures  int
}

// New constructs an AsyncBatch for one node's worth of jobs, named
// "<base>_batch_<n>" and already materialized to scriptPath on disk.
func New(manager hpc.Manager, sink events.Sink, name, scriptPath, outputDir string, maxTransientFailures int) *AsyncBatch {
	return &AsyncBatch{
		manager:              manager,
		sink:                 sink,
		name:                 name,
		scriptPath:           scriptPath,
		outputDir:            outputDir,
		lastState:            hpc.StateNone,
		maxTransientFailures: maxTransientFailures,
	}
}

// Name returns the batch's logical name.
func (b *AsyncBatch) Name() string {
	return b.name
}

// IsPending reports whether the batch has been submitted but has not yet
// reached a terminal state.
func (b *AsyncBatch) IsPending() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.isPending
}

// Run submits the batch's script to the ClusterManager. A non-GOOD result
// is raised to the caller as an ExecutionError and the batch is never
// entered into the SubmissionQueue (spec §4.5 "Failure modes").
func (b *AsyncBatch) Run() error {
	jobID, status, err := b.manager.Submit(b.outputDir, b.name, b.scriptPath)
	if status != hpc.StatusGood {
		if err != nil {
			return b.fail(jadeerrors.NewExecutionError("failed to submit batch %s: %v", b.name, err))
		}
		return b.fail(jadeerrors.NewExecutionError("failed to submit batch %s", b.name))
	}
	if err != nil {
		return b.fail(err)
	}

	b.mu.Lock()
	b.jobID = jobID
	b.isPending = true
	b.mu.Unlock()

	_ = b.sink.Log(events.New(b.name, events.CategoryHPC, events.NameHPCJobAssigned,
		"HPC job assigned", map[string]interface{}{"job_id": jobID}))
	log.WithField("batch", b.name).Infof("assigned job_id=%s", jobID)
	return nil
}

// IsComplete polls the ClusterManager once. A transient error is swallowed
// up to maxTransientFailures consecutive times (spec §7
// TransientClusterError); once that threshold is exceeded the batch is
// forced to the terminal COMPLETE=NONE state to avoid deadlocking the
// SubmissionQueue (spec §9 Open Question, resolved in
// lib/defaults.MaxTransientStatusFailures).
func (b *AsyncBatch) IsComplete() bool {
	state, err := b.manager.CheckStatus(b.jobID)
	if err != nil {
		b.mu.Lock()
		b.transientFailureCount++
		exceeded := b.transientFailureCount > b.maxTransientFailures
		b.mu.Unlock()

		log.WithError(err).WithField("batch", b.name).Warn("transient check_status failure")
		if !exceeded {
			return false
		}
		log.WithField("batch", b.name).Error("exceeded transient check_status failure threshold, forcing COMPLETE")
		state = hpc.StateNone
	} else {
		b.mu.Lock()
		b.transientFailureCount = 0
		b.mu.Unlock()
	}

	b.mu.Lock()
	oldState := b.lastState
	changed := state != oldState
	if changed {
		b.lastState = state
	}
	if state.IsTerminal() {
		b.isPending = false
	}
	pending := b.isPending
	b.mu.Unlock()

	if changed {
		_ = b.sink.Log(events.New(b.name, events.CategoryHPC, events.NameHPCJobStateChange,
			"HPC job state change", map[string]interface{}{
				"job_id":    b.jobID,
				"old_state": oldState.String(),
				"new_state": state.String(),
			}))
		log.WithField("batch", b.name).Infof("state change %s -> %s", oldState, state)
	}

	return !pending
}

// GetBlockingJobs always returns nil: dependency tracking happens on
// individual jobs, not on a batch as a whole (spec §4.5).
func (b *AsyncBatch) GetBlockingJobs() []string {
	return nil
}

// fail records err as an Error-category event before re-raising it, per
// spec §7 ("No silent swallowing of unexpected errors ... produce an
// Error-category event ... then re-raise").
func (b *AsyncBatch) fail(err error) error {
	_ = b.sink.Log(events.NewErrorEvent(b.name, err, 1))
	return trace.Wrap(err)
}
