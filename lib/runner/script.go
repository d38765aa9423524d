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

// Package runner implements the per-node runner side of the scheduler
// contract (spec §6 "Run-script", §4.7's materialize-and-submit step),
// grounded on daniel-thom/jade's HpcSubmitter._create_run_script and
// run_jobs/JobRunner, and adapted to gravitational/gravity's
// lib/utils.create_script-style file-writing helper plus its per-job
// execution via GenericCommandExecution.
package runner

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/gravitational/trace"
)

// ScriptOptions controls the generated run-script's invocation of the
// per-node runner binary.
type ScriptOptions struct {
	// RunnerName is the executable invoked inside the script, e.g. "jade".
	RunnerName string
	// SubConfigPath is the batch-specific configuration document.
	SubConfigPath string
	// OutputDir is passed through as --output.
	OutputDir string
	// NumProcesses is passed through as --num-processes when > 0.
	NumProcesses int
	// Verbose is passed through as --verbose when true.
	Verbose bool
}

// hasModuleCommand reports whether the host exposes an environment-modules
// `module` command, mirroring shutil.which("module") in the original.
func hasModuleCommand() bool {
	_, err := exec.LookPath("module")
	return err == nil
}

// BuildScript renders the run-script body: a #!/bin/bash shebang,
// optionally a conditional `module load` block, then the runner
// invocation contract of spec §6.
func BuildScript(opts ScriptOptions) string {
	lines := []string{"#!/bin/bash"}
	if hasModuleCommand() {
		lines = append(lines, "module load conda", "conda activate jade")
	}

	command := fmt.Sprintf("%s run-jobs %s --output=%s", opts.RunnerName, opts.SubConfigPath, opts.OutputDir)
	if opts.NumProcesses > 0 {
		command += fmt.Sprintf(" --num-processes=%d", opts.NumProcesses)
	}
	if opts.Verbose {
		command += " --verbose"
	}
	lines = append(lines, command)

	return strings.Join(lines, "\n") + "\n"
}

// WriteScript renders and writes the run-script to path, marked executable,
// matching lib/utils.create_script's write-then-chmod convention.
func WriteScript(path string, opts ScriptOptions) error {
	body := BuildScript(opts)
	if err := os.WriteFile(path, []byte(body), 0o755); err != nil {
		return trace.Wrap(err)
	}
	return nil
}

// ParseScript extracts the run-jobs invocation arguments back out of a
// run-script written by WriteScript. It exists so a test or local
// ClusterManager backend can execute the per-node runner in-process
// instead of shelling out to a separately-built runner binary, without
// needing to duplicate the invocation contract of spec §6.
func ParseScript(path string) (ScriptOptions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ScriptOptions{}, trace.Wrap(err)
	}

	var opts ScriptOptions
	for _, line := range strings.Split(string(data), "\n") {
		if !strings.Contains(line, " run-jobs ") {
			continue
		}
		fields := strings.Fields(line)
		for i, field := range fields {
			switch {
			case i == 0:
				opts.RunnerName = field
			case field == "run-jobs":
				if i+1 < len(fields) {
					opts.SubConfigPath = fields[i+1]
				}
			case strings.HasPrefix(field, "--output="):
				opts.OutputDir = strings.TrimPrefix(field, "--output=")
			case strings.HasPrefix(field, "--num-processes="):
				n, err := strconv.Atoi(strings.TrimPrefix(field, "--num-processes="))
				if err != nil {
					return ScriptOptions{}, trace.Wrap(err)
				}
				opts.NumProcesses = n
			case field == "--verbose":
				opts.Verbose = true
			}
		}
		return opts, nil
	}
	return ScriptOptions{}, trace.BadParameter("no run-jobs invocation found in %v", path)
}
