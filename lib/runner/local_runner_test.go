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
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/daniel-thom/jade/lib/config"
	"github.com/daniel-thom/jade/lib/jobs"
	"github.com/stretchr/testify/require"
)

func TestRunJobsWritesOneResultPerJob(t *testing.T) {
	dir := t.TempDir()
	subConfigPath := filepath.Join(dir, "jobs_batch_1.json")
	doc := &config.Document{Jobs: []jobs.Job{
		{Name: "1", Command: "exit 0"},
		{Name: "2", Command: "exit 3"},
	}}
	require.NoError(t, config.Dump(doc, subConfigPath))

	require.NoError(t, RunJobs(subConfigPath, dir, "batch_1", 0))

	resultsPath := filepath.Join(dir, "job-outputs", "batch_1", jobs.ResultsFilename)
	f, err := os.Open(resultsPath)
	require.NoError(t, err)
	defer f.Close()

	var results []jobs.Result
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var r jobs.Result
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &r))
		results = append(results, r)
	}
	require.Len(t, results, 2)
	require.Equal(t, "1", results[0].Name)
	require.Equal(t, 0, results[0].ReturnCode)
	require.Equal(t, "2", results[1].Name)
	require.Equal(t, 3, results[1].ReturnCode)
}

func TestGenericCommandRunReturnsExitCode(t *testing.T) {
	cmd := GenericCommand{Job: jobs.Job{Name: "1", Command: "exit 7"}}
	require.Equal(t, 7, cmd.Run())
}
