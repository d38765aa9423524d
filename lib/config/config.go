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

// Package config loads, validates, and re-materializes the job
// configuration document described in spec §3/§4.3, grounded on
// daniel-thom/jade's JobConfiguration.dump()/deserialize() plus
// HpcSubmitter._make_async_submitter's per-batch sub-config materialization,
// and adapted to the gravitational/gravity lib/storage plan-document
// load/save idiom (canonical JSON, atomic write via rename).
package config

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/daniel-thom/jade/lib/jadeerrors"
	"github.com/daniel-thom/jade/lib/jobs"
	"github.com/gravitational/trace"
)

// Document is the top-level job-configuration file: the full set of jobs
// plus whatever HPC-specific settings the chosen extension attaches. Extra
// round-trips untouched so the scheduler core never has to understand
// every extension's top-level schema (spec §9).
type Document struct {
	Jobs  []jobs.Job             `json:"jobs"`
	Extra map[string]interface{} `json:"-"`
}

// MarshalJSON flattens Extra alongside "jobs", matching
// JobConfiguration.serialize()'s behavior of carrying forward whatever
// top-level keys the extension configuration added.
func (d Document) MarshalJSON() ([]byte, error) {
	merged := map[string]interface{}{}
	for k, v := range d.Extra {
		merged[k] = v
	}
	jobsJSON, err := json.Marshal(d.Jobs)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	var jobsRaw interface{}
	if err := json.Unmarshal(jobsJSON, &jobsRaw); err != nil {
		return nil, trace.Wrap(err)
	}
	merged["jobs"] = jobsRaw
	return json.Marshal(merged)
}

// UnmarshalJSON extracts "jobs" and preserves every other top-level key in
// Extra.
func (d *Document) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if jobsRaw, ok := raw["jobs"]; ok {
		if err := json.Unmarshal(jobsRaw, &d.Jobs); err != nil {
			return err
		}
		delete(raw, "jobs")
	}
	if len(raw) > 0 {
		d.Extra = map[string]interface{}{}
		for k, v := range raw {
			var val interface{}
			if err := json.Unmarshal(v, &val); err != nil {
				return err
			}
			d.Extra[k] = val
		}
	}
	return nil
}

// Configuration returns a jobs.Configuration view suitable for dependency
// checking and batch packing.
func (d Document) Configuration() jobs.Configuration {
	return jobs.Configuration{Jobs: d.Jobs}
}

// Load reads and validates a job configuration document from path,
// returning an InvalidConfiguration error if the document references an
// unknown dependency or contains a cycle (spec §4.3, §7).
func Load(path string) (*Document, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, jadeerrors.NewInvalidConfiguration("failed to parse %v: %v", path, err)
	}
	cfg := doc.Configuration()
	if err := cfg.CheckJobDependencies(); err != nil {
		return nil, trace.Wrap(err)
	}
	return &doc, nil
}

// Dump writes doc to path as indented, canonical JSON. The write is
// atomic: it writes to a temporary file in the same directory and renames
// it into place, matching the "completely written" guarantee
// ResultsAggregator relies on for result files (spec §4.3) and applied
// here for configuration documents for the same reason.
func Dump(doc *Document, path string) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return trace.Wrap(err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return trace.Wrap(err)
	}
	tmp := path + ".tmp"
	if err := ioutil.WriteFile(tmp, data, 0o644); err != nil {
		return trace.Wrap(err)
	}
	return trace.Wrap(os.Rename(tmp, path))
}

// BatchFileNames returns the sub-config and run-script filenames for the
// given batch index, following the "<orig>_batch_<n>.json" /
// "run_batch_<n>.sh" discipline of spec §4.7.
func BatchFileNames(configPath, outputDir string, batchIndex int) (subConfigPath, runScriptPath string) {
	base := filepath.Base(configPath)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	subConfigPath = filepath.Join(outputDir, fmt.Sprintf("%s_batch_%d%s", stem, batchIndex, ext))
	runScriptPath = filepath.Join(outputDir, fmt.Sprintf("run_batch_%d.sh", batchIndex))
	return subConfigPath, runScriptPath
}

// MaterializeBatch builds the sub-config document for one node's batch:
// the same top-level Extra as base, but with Jobs replaced by the jobs
// assigned to this batch (HpcSubmitter._make_async_submitter's
// copy-and-replace-jobs step).
func MaterializeBatch(base *Document, batchJobs []jobs.Job) *Document {
	return &Document{
		Jobs:  batchJobs,
		Extra: base.Extra,
	}
}
