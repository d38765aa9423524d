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

package hpc

import (
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// FakeHPCClusterEnvVar gates selection of the Fake backend instead of a real
// scheduler backend, restoring the FAKE_HPC_CLUSTER switch exercised by
// tests/unit/jobs/test_job_configuration.py (SPEC_FULL.md §10.4).
const FakeHPCClusterEnvVar = "FAKE_HPC_CLUSTER"

// UseFakeCluster reports whether FakeHPCClusterEnvVar is set in the process
// environment.
func UseFakeCluster() bool {
	_, ok := os.LookupEnv(FakeHPCClusterEnvVar)
	return ok
}

// Fake is an in-process Manager that actually runs the script locally (so
// --local and CI runs exercise real job output) and reports the
// QUEUED -> RUNNING -> COMPLETE progression a real scheduler would, moving
// to RUNNING when the subprocess starts and to COMPLETE when it exits, per
// spec §4.2's "Pluggable backend" and the --local flag in submit_jobs.py.
type Fake struct {
	mu     sync.Mutex
	clock  clockwork.Clock
	jobs   map[string]*fakeJob
	nextID int

	// RunScript overrides how a submitted script is executed. Defaults to
	// running it with /bin/bash. Tests that exercise the full scheduler
	// loop without a compiled runner binary on PATH can set this to invoke
	// the per-node runner in-process instead.
	RunScript func(scriptPath string) error
}

type fakeJob struct {
	state     State
	queuedAt  time.Time
	runningAt time.Time
	done      chan struct{}
}

// NewFake returns a Fake backend using the real wall clock.
func NewFake() *Fake {
	return NewFakeWithClock(clockwork.NewRealClock())
}

// NewFakeWithClock returns a Fake backend that stamps each job's queued and
// running times from clock. The clock does not drive state transitions:
// those follow the subprocess, so advancing a fake clock does not complete
// a job.
func NewFakeWithClock(clock clockwork.Clock) *Fake {
	return &Fake{
		clock: clock,
		jobs:  map[string]*fakeJob{},
	}
}

// Backend implements Manager.
func (f *Fake) Backend() string { return "fake" }

// Submit implements Manager. It launches scriptPath as a real subprocess in
// the background and immediately reports StatusGood with a synthetic job
// id; CheckStatus reflects the subprocess's actual completion.
func (f *Fake) Submit(outputDir, name, scriptPath string) (string, SubmitStatus, error) {
	f.mu.Lock()
	f.nextID++
	jobID := fmt.Sprintf("fake-%d", f.nextID)
	job := &fakeJob{state: StateQueued, queuedAt: f.clock.Now(), done: make(chan struct{})}
	f.jobs[jobID] = job
	f.mu.Unlock()

	go f.runJob(jobID, job, scriptPath)

	return jobID, StatusGood, nil
}

func (f *Fake) runJob(jobID string, job *fakeJob, scriptPath string) {
	f.mu.Lock()
	job.state = StateRunning
	job.runningAt = f.clock.Now()
	f.mu.Unlock()

	run := f.RunScript
	if run == nil {
		run = func(path string) error {
			return exec.Command("/bin/bash", path).Run()
		}
	}
	_ = run(scriptPath)

	f.mu.Lock()
	job.state = StateComplete
	f.mu.Unlock()
	close(job.done)
	_ = jobID
}

// CheckStatus implements Manager. An unknown job id reports StateNone, per
// spec §4.2's "treated as terminal" rule.
func (f *Fake) CheckStatus(jobID string) (State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[jobID]
	if !ok {
		return StateNone, nil
	}
	return job.state, nil
}
