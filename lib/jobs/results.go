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

package jobs

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/gravitational/trace"
)

// Result records the terminal outcome of a single job's local execution:
// return code, timing, and which node ran it (spec §3 "Result"). A JobFailure
// (non-zero ReturnCode) is represented here, not as a Go error, since per
// spec §7 it is a normal, expected completion outcome for the scheduler.
type Result struct {
	Name        string  `json:"name"`
	ReturnCode  int     `json:"return_code"`
	Status      string  `json:"status"`
	ExecTimeSec float64 `json:"exec_time_s"`
	Hostname    string  `json:"hostname,omitempty"`
}

// Successful reports whether the job completed with a zero return code.
func (r Result) Successful() bool {
	return r.ReturnCode == 0
}

// ResultsFilename is the NDJSON file each node's runner writes, one Result
// per completed job, matching JobRunner's per-node results log in the
// original.
const ResultsFilename = "results.txt"

// Aggregator consolidates per-node results.txt files under an output
// directory into a single view, grounded on ResultsAggregator /
// ResultsAggregatorSummary (spec §4.6).
type Aggregator struct {
	mu            sync.RWMutex
	outputDir     string
	resultsDir    string
	completed     map[string]Result
	lastSizeBytes map[string]int64
}

// NewAggregator returns an Aggregator reading per-node results files from
// <outputDir>/job-outputs/<batch>/results.txt, plus a flat
// <outputDir>/job-outputs/results.txt when present (the convention mirrored
// from JOBS_OUTPUT_DIR in the original).
func NewAggregator(outputDir string) *Aggregator {
	return &Aggregator{
		outputDir:     outputDir,
		resultsDir:    filepath.Join(outputDir, "job-outputs"),
		completed:     map[string]Result{},
		lastSizeBytes: map[string]int64{},
	}
}

// Refresh re-reads any results files that have grown since the last call,
// appending newly discovered Results. It is safe to call repeatedly from
// the scheduler's poll loop (spec §4.7 "update_completed").
func (a *Aggregator) Refresh() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	paths, err := filepath.Glob(filepath.Join(a.resultsDir, "*", ResultsFilename))
	if err != nil {
		return trace.Wrap(err)
	}
	// Also support a single flat results file for local (non-batched) runs.
	flat := filepath.Join(a.resultsDir, ResultsFilename)
	if _, err := os.Stat(flat); err == nil {
		paths = append(paths, flat)
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if info.Size() <= a.lastSizeBytes[path] {
			continue
		}
		if err := a.readNewLines(path); err != nil {
			return trace.Wrap(err)
		}
		a.lastSizeBytes[path] = info.Size()
	}
	return nil
}

func (a *Aggregator) readNewLines(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return trace.Wrap(err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var result Result
		if err := json.Unmarshal(line, &result); err != nil {
			return trace.Wrap(err, "parsing %v", path)
		}
		a.completed[result.Name] = result
	}
	return trace.Wrap(scanner.Err())
}

// CompletedJobNames returns the names of every job with a recorded result,
// regardless of success or failure.
func (a *Aggregator) CompletedJobNames() map[string]bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make(map[string]bool, len(a.completed))
	for name := range a.completed {
		out[name] = true
	}
	return out
}

// ListResults returns every recorded Result, sorted by job name.
func (a *Aggregator) ListResults() []Result {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]Result, 0, len(a.completed))
	for _, r := range a.completed {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// GetSuccessfulResults returns only the Results with a zero return code,
// restoring ResultsSummary.get_successful_results() used to seed a
// --restart-failed run (SPEC_FULL.md §12.4).
func (a *Aggregator) GetSuccessfulResults() []Result {
	var out []Result
	for _, r := range a.ListResults() {
		if r.Successful() {
			out = append(out, r)
		}
	}
	return out
}

// Failed returns the names of every job whose recorded Result was
// unsuccessful (non-zero return code), for --restart-failed.
func (a *Aggregator) Failed() []string {
	var out []string
	for _, r := range a.ListResults() {
		if !r.Successful() {
			out = append(out, r.Name)
		}
	}
	return out
}

// Missing returns the names from allJobNames that have no recorded Result
// at all, for --restart-missing.
func (a *Aggregator) Missing(allJobNames []string) []string {
	completed := a.CompletedJobNames()
	var out []string
	for _, name := range allJobNames {
		if !completed[name] {
			out = append(out, name)
		}
	}
	return out
}
