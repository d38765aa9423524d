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
	"encoding/json"
	"testing"

	"github.com/daniel-thom/jade/lib/jadeerrors"
	"github.com/stretchr/testify/require"
)

func TestCheckJobDependenciesRejectsUnknownReference(t *testing.T) {
	config := Configuration{}
	config.AddJob(Job{Name: "1", Command: "echo hello"})
	job, _ := config.GetJob("1")
	job.BlockedBy = append(job.BlockedBy, "10")
	config.Jobs[0] = job

	err := config.CheckJobDependencies()
	require.Error(t, err)
	require.True(t, jadeerrors.IsInvalidConfiguration(err))
}

func TestCheckJobDependenciesAcceptsValidChain(t *testing.T) {
	config := Configuration{}
	config.AddJob(Job{Name: "1", Command: "echo 1"})
	config.AddJob(Job{Name: "2", Command: "echo 2", BlockedBy: []string{"1"}})
	config.AddJob(Job{Name: "3", Command: "echo 3", BlockedBy: []string{"2"}})

	require.NoError(t, config.CheckJobDependencies())
}

func TestCheckJobDependenciesRejectsCycle(t *testing.T) {
	config := Configuration{}
	config.AddJob(Job{Name: "1", Command: "echo 1", BlockedBy: []string{"2"}})
	config.AddJob(Job{Name: "2", Command: "echo 2", BlockedBy: []string{"1"}})

	err := config.CheckJobDependencies()
	require.Error(t, err)
	require.True(t, jadeerrors.IsInvalidConfiguration(err))
}

func TestJobJSONRoundTripPreservesExtraFields(t *testing.T) {
	original := Job{
		Name:      "1",
		Command:   "echo hello",
		BlockedBy: []string{"0"},
		Extra: map[string]interface{}{
			"extension": "generic_command",
		},
	}

	b, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded Job
	require.NoError(t, json.Unmarshal(b, &decoded))

	require.Equal(t, original.Name, decoded.Name)
	require.Equal(t, original.Command, decoded.Command)
	require.Equal(t, original.BlockedBy, decoded.BlockedBy)
	require.Equal(t, "generic_command", decoded.Extra["extension"])
}

func TestNumJobsAndGetJob(t *testing.T) {
	config := Configuration{}
	require.Equal(t, 0, config.NumJobs())

	config.AddJob(Job{Name: "1", Command: "echo 1"})
	require.Equal(t, 1, config.NumJobs())

	job, ok := config.GetJob("1")
	require.True(t, ok)
	require.Equal(t, "echo 1", job.Command)

	_, ok = config.GetJob("missing")
	require.False(t, ok)
}
