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
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/daniel-thom/jade/lib/config"
	"github.com/daniel-thom/jade/lib/jobs"
	"github.com/gravitational/trace"
	log "github.com/sirupsen/logrus"
)

// RunJobs is the per-node runner entry point invoked by the generated
// run-script (spec §6: "<runner> run-jobs <sub_config> --output=<output>
// [--num-processes=N] [--verbose]"). It executes every job in subConfigPath
// sequentially and then writes one Result per job to results.txt beneath
// outputDir/job-outputs/<batchName>, replacing any existing file. The
// write is atomic via a temp-file rename so the ResultsAggregator never
// observes a partial record (spec §4.3 consistency requirement).
//
// numProcesses is accepted for CLI-contract compatibility; this reference
// runner executes jobs sequentially, since parallelizing within a batch is
// delegated to the per-node runner and is not part of the scheduling core
// (spec §5).
func RunJobs(subConfigPath, outputDir, batchName string, numProcesses int) error {
	doc, err := config.Load(subConfigPath)
	if err != nil {
		return trace.Wrap(err)
	}

	resultsDir := filepath.Join(outputDir, "job-outputs", batchName)
	if err := os.MkdirAll(resultsDir, 0o755); err != nil {
		return trace.Wrap(err)
	}
	resultsPath := filepath.Join(resultsDir, jobs.ResultsFilename)

	hostname, _ := os.Hostname()

	var results []jobs.Result
	for _, job := range doc.Jobs {
		start := time.Now()
		exec := GenericCommand{Job: job, OutputDir: outputDir}
		returnCode := exec.Run()
		elapsed := time.Since(start).Seconds()

		status := "finished"
		if returnCode != 0 {
			status = "failed"
		}
		log.WithField("job", job.Name).Infof("completed with return_code=%d in %.2fs", returnCode, elapsed)

		results = append(results, jobs.Result{
			Name:        job.Name,
			ReturnCode:  returnCode,
			Status:      status,
			ExecTimeSec: elapsed,
			Hostname:    hostname,
		})
	}

	return writeResultsAtomically(resultsPath, results)
}

// writeResultsAtomically renders results as NDJSON to a temp file in the
// same directory as path, then renames it into place, matching the
// "remote runner writes atomically via rename" guarantee of spec §5.
func writeResultsAtomically(path string, results []jobs.Result) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return trace.Wrap(err)
	}
	for _, r := range results {
		b, err := json.Marshal(r)
		if err != nil {
			f.Close()
			return trace.Wrap(err)
		}
		if _, err := f.Write(append(b, '\n')); err != nil {
			f.Close()
			return trace.Wrap(err)
		}
	}
	if err := f.Close(); err != nil {
		return trace.Wrap(err)
	}
	return trace.Wrap(os.Rename(tmp, path))
}
