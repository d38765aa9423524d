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

package config

import (
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/daniel-thom/jade/lib/jadeerrors"
	"github.com/daniel-thom/jade/lib/jobs"
	"github.com/stretchr/testify/require"
)

func TestLoadRejectsUnknownDependency(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	doc := &Document{Jobs: []jobs.Job{{Name: "1", Command: "echo hi", BlockedBy: []string{"10"}}}}
	require.NoError(t, Dump(doc, path))

	_, err := Load(path)
	require.Error(t, err)
	require.True(t, jadeerrors.IsInvalidConfiguration(err))
}

func TestLoadAndDumpRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	original := &Document{
		Jobs: []jobs.Job{
			{Name: "1", Command: "echo 1"},
			{Name: "2", Command: "echo 2", BlockedBy: []string{"1"}},
		},
		Extra: map[string]interface{}{
			"extension": "generic_command",
		},
	}
	require.NoError(t, Dump(original, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Len(t, loaded.Jobs, 2)
	require.Equal(t, "generic_command", loaded.Extra["extension"])
}

func TestBatchFileNamesFollowNamingDiscipline(t *testing.T) {
	subConfig, runScript := BatchFileNames("jobs.json", "/output", 3)
	require.Equal(t, "/output/jobs_batch_3.json", subConfig)
	require.Equal(t, "/output/run_batch_3.sh", runScript)
}

func TestMaterializeBatchCarriesForwardExtraButReplacesJobs(t *testing.T) {
	base := &Document{
		Jobs:  []jobs.Job{{Name: "1"}, {Name: "2"}},
		Extra: map[string]interface{}{"extension": "generic_command"},
	}
	batchJobs := []jobs.Job{{Name: "1"}}
	sub := MaterializeBatch(base, batchJobs)

	require.Len(t, sub.Jobs, 1)
	require.Equal(t, "generic_command", sub.Extra["extension"])
}

func TestLoadHPCConfigEmptyPathReturnsZeroValue(t *testing.T) {
	cfg, err := LoadHPCConfig("")
	require.NoError(t, err)
	require.Equal(t, HPCConfig{}, cfg)
}

func TestLoadHPCConfigReadsPartitionAccountWalltime(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hpc_config.json")
	require.NoError(t, ioutil.WriteFile(path,
		[]byte(`{"partition":"short","account":"lab42","walltime":"04:00:00"}`), 0o644))

	cfg, err := LoadHPCConfig(path)
	require.NoError(t, err)
	require.Equal(t, HPCConfig{Partition: "short", Account: "lab42", Walltime: "04:00:00"}, cfg)
}
