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

// Package jobs implements the job-configuration document described in
// spec §3 ("Job", "Configuration") and §4.3, grounded on daniel-thom/jade's
// JobConfiguration/check_job_dependencies and adapted to the
// gravitational/gravity lib/storage plan-document idiom (typed structs with
// canonical JSON tags, validated before a run begins).
package jobs

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/daniel-thom/jade/lib/jadeerrors"
)

// Job is a single unit of work: a shell command plus the names of the jobs
// that must complete before it may run (spec §3).
type Job struct {
	Name      string   `json:"name"`
	Command   string   `json:"command"`
	BlockedBy []string `json:"blocked_by,omitempty"`

	// Extension-specific fields round-trip through Extra so the Go
	// scheduler never needs to understand every extension's job schema,
	// matching the original's **kwargs-based job parameter documents.
	Extra map[string]interface{} `json:"-"`
}

// MarshalJSON flattens Extra alongside the named fields, so an extension's
// custom job parameters survive a load/dump round trip unmodified even
// though the scheduler core never interprets them (spec §9).
func (j Job) MarshalJSON() ([]byte, error) {
	merged := map[string]interface{}{}
	for k, v := range j.Extra {
		merged[k] = v
	}
	merged["name"] = j.Name
	merged["command"] = j.Command
	if len(j.BlockedBy) > 0 {
		names := append([]string{}, j.BlockedBy...)
		sort.Strings(names)
		merged["blocked_by"] = names
	}
	return json.Marshal(merged)
}

// UnmarshalJSON extracts the named fields and preserves everything else in
// Extra.
func (j *Job) UnmarshalJSON(data []byte) error {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if name, ok := raw["name"].(string); ok {
		j.Name = name
	}
	if command, ok := raw["command"].(string); ok {
		j.Command = command
	}
	if blocked, ok := raw["blocked_by"].([]interface{}); ok {
		for _, b := range blocked {
			if s, ok := b.(string); ok {
				j.BlockedBy = append(j.BlockedBy, s)
			}
		}
	}
	delete(raw, "name")
	delete(raw, "command")
	delete(raw, "blocked_by")
	if len(raw) > 0 {
		j.Extra = raw
	}
	return nil
}

// Configuration is an ordered collection of Jobs, matching spec §3's
// "Configuration" type. It carries no extension metadata; the top-level
// extension keys of a document live in config.Document.Extra.
type Configuration struct {
	Jobs []Job `json:"jobs"`
}

// AddJob appends job, preserving insertion order the way
// JobConfiguration.add_job does.
func (c *Configuration) AddJob(job Job) {
	c.Jobs = append(c.Jobs, job)
}

// NumJobs returns the number of jobs in the configuration.
func (c *Configuration) NumJobs() int {
	return len(c.Jobs)
}

// GetJob returns the job with the given name, or false if none exists.
func (c *Configuration) GetJob(name string) (Job, bool) {
	for _, j := range c.Jobs {
		if j.Name == name {
			return j, true
		}
	}
	return Job{}, false
}

// CheckJobDependencies validates that every name referenced in a job's
// BlockedBy exists in the configuration and that the dependency graph is
// acyclic, returning an InvalidConfiguration error otherwise (spec §4.3,
// restored behavior of check_job_dependencies per
// tests/unit/jobs/test_job_configuration.py).
func (c *Configuration) CheckJobDependencies() error {
	names := make(map[string]bool, len(c.Jobs))
	for _, j := range c.Jobs {
		names[j.Name] = true
	}
	for _, j := range c.Jobs {
		for _, dep := range j.BlockedBy {
			if !names[dep] {
				return jadeerrors.NewInvalidConfiguration(
					"job %q depends on unknown job %q", j.Name, dep)
			}
		}
	}
	return c.checkNoCycles()
}

// checkNoCycles performs a recursive depth-first search over the
// blocked_by graph, reporting an InvalidConfiguration if any job
// transitively depends on itself.
func (c *Configuration) checkNoCycles() error {
	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[string]int, len(c.Jobs))
	byName := make(map[string]Job, len(c.Jobs))
	for _, j := range c.Jobs {
		byName[j.Name] = j
	}

	var visit func(name string, stack []string) error
	visit = func(name string, stack []string) error {
		switch state[name] {
		case done:
			return nil
		case visiting:
			return jadeerrors.NewInvalidConfiguration(
				"circular dependency detected: %v -> %v", stack, name)
		}
		state[name] = visiting
		for _, dep := range byName[name].BlockedBy {
			if err := visit(dep, append(stack, name)); err != nil {
				return err
			}
		}
		state[name] = done
		return nil
	}

	for _, j := range c.Jobs {
		if err := visit(j.Name, nil); err != nil {
			return err
		}
	}
	return nil
}

// String implements fmt.Stringer for debug logging.
func (j Job) String() string {
	return fmt.Sprintf("Job(name=%s, blocked_by=%v)", j.Name, j.BlockedBy)
}
