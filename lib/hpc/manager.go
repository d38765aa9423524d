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

// Package hpc defines the pluggable abstraction over an HPC batch system
// described in spec §4.2 ("ClusterManager"), grounded on
// daniel-thom/jade's HpcManager/HpcJobStatus and adapted to the
// gravitational/gravity idiom of a small capability interface plus a
// backend-identity tag used by tests (lib/fsm.PhaseExecutor is the closest
// structural analog: one interface, several swappable implementations).
package hpc

import "fmt"

// State is the coarse job state a ClusterManager.CheckStatus call returns,
// the "AsyncBatchState" of spec §3/§4.5.
type State int

const (
	// StateNone is the pre-submission state, and also the terminal state
	// reported once the backend no longer recognizes a previously
	// submitted job id (spec §4.1: "treated as terminal").
	StateNone State = iota
	// StateQueued means the backend has accepted the job but it has not
	// started running.
	StateQueued
	// StateRunning means the backend reports the job actively executing.
	StateRunning
	// StateComplete is terminal: the backend reports the job finished.
	StateComplete
)

// String renders State the way it is serialized into hpc_job_state_change
// event data (old_state/new_state), matching HpcJobStatus.value.
func (s State) String() string {
	switch s {
	case StateNone:
		return "NONE"
	case StateQueued:
		return "QUEUED"
	case StateRunning:
		return "RUNNING"
	case StateComplete:
		return "COMPLETE"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(s))
	}
}

// IsTerminal reports whether s ends an AsyncBatch's polling, per spec §4.5
// ("Reaching COMPLETE or NONE is terminal").
func (s State) IsTerminal() bool {
	return s == StateComplete || s == StateNone
}

// SubmitStatus is the coarse outcome of a ClusterManager.Submit call,
// mirroring the original's Status.GOOD/Status.ERROR enum used as the
// process exit code.
type SubmitStatus int

const (
	// StatusGood indicates the backend accepted the script for execution.
	StatusGood SubmitStatus = iota
	// StatusError indicates the backend rejected the submission; the
	// caller should raise an ExecutionError (spec §7).
	StatusError
)

func (s SubmitStatus) String() string {
	if s == StatusGood {
		return "GOOD"
	}
	return "ERROR"
}

// Manager is the pluggable abstraction over an HPC batch system: submit a
// shell script, query job status by id (spec §4.2). Exactly one
// implementation is wired per run; AsyncBatch holds a non-owning handle to
// a shared Manager.
type Manager interface {
	// Submit hands script at scriptPath (already written to disk) to the
	// backend under the given human-readable name, writing any backend
	// logs beneath outputDir. Returns the backend's job id and whether the
	// backend accepted the submission.
	Submit(outputDir, name, scriptPath string) (jobID string, status SubmitStatus, err error)

	// CheckStatus returns the coarse State for a previously submitted
	// jobID. Implementations must map backend-specific transient and
	// unknown states safely: a job id the backend no longer knows maps to
	// StateNone (spec §4.2).
	CheckStatus(jobID string) (State, error)

	// Backend returns a short identity tag ("fake", "slurm", ...) so tests
	// and log messages can report which implementation is in effect
	// without a type switch.
	Backend() string
}
