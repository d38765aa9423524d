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
	"bytes"
	"context"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/daniel-thom/jade/lib/utils"
	"github.com/gravitational/trace"
)

// Slurm submits batches through sbatch and polls them through squeue,
// restoring the real scheduler-backend shape referenced (but not included)
// in the retrieved sources: jade.hpc.hpc_manager.HpcManager delegates to a
// per-scheduler-type driver exactly like this.
type Slurm struct {
	// Account is passed to sbatch as --account, when non-empty.
	Account string
	// Partition is passed to sbatch as --partition, when non-empty.
	Partition string
	// Walltime is passed to sbatch as --time, when non-empty.
	Walltime string
}

// Backend implements Manager.
func (s *Slurm) Backend() string { return "slurm" }

// Submit implements Manager by invoking sbatch on scriptPath and parsing
// the numeric job id out of sbatch's "Submitted batch job <id>" output.
func (s *Slurm) Submit(outputDir, name, scriptPath string) (string, SubmitStatus, error) {
	args := []string{"--job-name", name, "--chdir", outputDir}
	if s.Account != "" {
		args = append(args, "--account", s.Account)
	}
	if s.Partition != "" {
		args = append(args, "--partition", s.Partition)
	}
	if s.Walltime != "" {
		args = append(args, "--time", s.Walltime)
	}
	args = append(args, scriptPath)

	var stdout, stderr bytes.Buffer
	cmd := exec.Command("sbatch", args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", StatusError, trace.Wrap(err, "sbatch failed: %v", stderr.String())
	}

	jobID, err := parseSbatchJobID(stdout.String())
	if err != nil {
		return "", StatusError, trace.Wrap(err)
	}
	return jobID, StatusGood, nil
}

func parseSbatchJobID(output string) (string, error) {
	fields := strings.Fields(strings.TrimSpace(output))
	for i, field := range fields {
		if field == "job" && i+1 < len(fields) {
			id := fields[i+1]
			if _, err := strconv.Atoi(id); err == nil {
				return id, nil
			}
		}
	}
	return "", trace.BadParameter("could not parse job id from sbatch output: %q", output)
}

// CheckStatus implements Manager by invoking squeue for jobID. A job id
// squeue no longer reports (already purged from the scheduler's table)
// maps to StateNone, per spec §4.2. A squeue invocation that fails for any
// reason other than "Invalid job id" (controller momentarily unreachable,
// munge auth hiccup) is a TransientClusterError (spec §7): it is retried a
// few times with backoff before being surfaced, since a single momentary
// squeue failure should not by itself force the AsyncBatch-level
// transient-failure counter (spec §9, lib/defaults.MaxTransientStatusFailures).
func (s *Slurm) CheckStatus(jobID string) (State, error) {
	var stdout, stderr bytes.Buffer
	run := func() error {
		stdout.Reset()
		stderr.Reset()
		cmd := exec.Command("squeue", "--noheader", "--job", jobID, "--format=%T")
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
		if err := cmd.Run(); err != nil {
			if strings.Contains(stderr.String(), "Invalid job id") {
				return nil
			}
			return trace.Wrap(err, "squeue failed: %v", stderr.String())
		}
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := utils.RetryWithInterval(ctx, utils.NewExponentialBackOff(10*time.Second), run); err != nil {
		return StateNone, trace.Wrap(err)
	}

	if strings.Contains(stderr.String(), "Invalid job id") {
		return StateNone, nil
	}

	line := strings.TrimSpace(stdout.String())
	if line == "" {
		return StateNone, nil
	}
	return parseSlurmState(line), nil
}

func parseSlurmState(slurmState string) State {
	switch strings.ToUpper(slurmState) {
	case "PENDING", "CONFIGURING", "SUSPENDED":
		return StateQueued
	case "RUNNING", "COMPLETING":
		return StateRunning
	case "COMPLETED":
		return StateComplete
	default:
		// CANCELLED, FAILED, TIMEOUT, NODE_FAIL, etc. are all terminal from
		// the scheduler's perspective: the batch stops polling and the
		// ResultsAggregator is the source of truth for job-level success.
		return StateComplete
	}
}
