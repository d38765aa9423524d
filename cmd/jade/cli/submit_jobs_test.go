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

package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/daniel-thom/jade/lib/config"
	"github.com/daniel-thom/jade/lib/hpc"
	"github.com/daniel-thom/jade/lib/jobs"
	"github.com/stretchr/testify/require"
)

func TestBuildManagerPrefersLocalFlagOverEnv(t *testing.T) {
	require.NoError(t, os.Unsetenv(hpc.FakeHPCClusterEnvVar))
	c := &submitJobsCmd{Local: true}
	manager, err := c.buildManager()
	require.NoError(t, err)
	require.Equal(t, "fake", manager.Backend())
}

func TestBuildManagerUsesSlurmByDefault(t *testing.T) {
	require.NoError(t, os.Unsetenv(hpc.FakeHPCClusterEnvVar))
	c := &submitJobsCmd{}
	manager, err := c.buildManager()
	require.NoError(t, err)
	require.Equal(t, "slurm", manager.Backend())
}

func TestBuildRestartConfigUnionsFailedAndMissingAndStripsDeps(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.json")
	doc := &config.Document{Jobs: []jobs.Job{
		{Name: "A", Command: "exit 0"},
		{Name: "B", Command: "exit 1", BlockedBy: []string{"A"}},
		{Name: "C", Command: "exit 0", BlockedBy: []string{"B"}},
	}}
	require.NoError(t, config.Dump(doc, configPath))

	resultsDir := filepath.Join(dir, "job-outputs")
	require.NoError(t, os.MkdirAll(resultsDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(resultsDir, jobs.ResultsFilename),
		[]byte(`{"name":"A","return_code":0}`+"\n"+`{"name":"B","return_code":1}`+"\n"), 0o644))

	c := &submitJobsCmd{
		ConfigFile:     configPath,
		Output:         dir,
		RestartFailed:  true,
		RestartMissing: true,
	}
	restartPath, err := c.buildRestartConfig()
	require.NoError(t, err)

	restartDoc, err := config.Load(restartPath)
	require.NoError(t, err)

	names := map[string]bool{}
	for _, j := range restartDoc.Jobs {
		names[j.Name] = true
	}
	require.True(t, names["B"], "failed job B should be included")
	require.True(t, names["C"], "job C has no result and should be included as missing")
	require.False(t, names["A"], "successfully completed job A should not be restarted")

	jobB, ok := restartDoc.Configuration().GetJob("B")
	require.True(t, ok)
	require.Empty(t, jobB.BlockedBy, "dependency satisfied outside the restart set must be stripped")
}
