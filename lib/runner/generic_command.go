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

package runner

import (
	"os"
	"os/exec"

	"github.com/daniel-thom/jade/lib/jobs"
)

// GenericCommand executes a Job whose Command is already a complete shell
// command line, restoring the generic_command extension's
// GenericCommandExecution (SPEC_FULL.md §12.5): this is the one extension
// the core scheduler assumes exists so a bare {name, command, blocked_by}
// document is runnable without any additional extension-specific
// configuration.
type GenericCommand struct {
	Job       jobs.Job
	OutputDir string
}

// ResultsDirectory implements the per-node job-execution interface.
func (g GenericCommand) ResultsDirectory() string {
	return g.OutputDir
}

// Command returns the shell command to execute. generic_command jobs
// already carry a complete command and are not re-wrapped, matching
// generate_command's pass-through behavior.
func (g GenericCommand) Command() string {
	return g.Job.Command
}

// Run executes the job's command as a bash subprocess, capturing only its
// exit code: stdout/stderr are inherited so interactive/local runs behave
// like a normal shell invocation, matching the original's reliance on
// subprocess_manager.run_command.
func (g GenericCommand) Run() int {
	cmd := exec.Command("/bin/bash", "-c", g.Job.Command)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return exitErr.ExitCode()
		}
		return 1
	}
	return 0
}

// ListResultsFiles implements the per-node job-execution interface;
// generic_command jobs produce no extension-specific result artifacts of
// their own.
func (g GenericCommand) ListResultsFiles() []string {
	return nil
}
