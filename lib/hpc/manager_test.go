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

package hpc

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

func TestStateStringAndTerminal(t *testing.T) {
	require.Equal(t, "NONE", StateNone.String())
	require.Equal(t, "QUEUED", StateQueued.String())
	require.Equal(t, "RUNNING", StateRunning.String())
	require.Equal(t, "COMPLETE", StateComplete.String())

	require.True(t, StateNone.IsTerminal())
	require.True(t, StateComplete.IsTerminal())
	require.False(t, StateQueued.IsTerminal())
	require.False(t, StateRunning.IsTerminal())
}

func TestFakeCheckStatusUnknownJobIsNone(t *testing.T) {
	fake := NewFake()
	state, err := fake.CheckStatus("does-not-exist")
	require.NoError(t, err)
	require.Equal(t, StateNone, state)
}

func TestFakeSubmitRunsScriptAndProgressesToComplete(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "run_batch_1.sh")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/bash\nexit 0\n"), 0o755))

	clock := clockwork.NewFakeClock()
	fake := NewFakeWithClock(clock)

	jobID, status, err := fake.Submit(dir, "batch_1", script)
	require.NoError(t, err)
	require.Equal(t, StatusGood, status)
	require.NotEmpty(t, jobID)

	require.Eventually(t, func() bool {
		state, err := fake.CheckStatus(jobID)
		return err == nil && state == StateComplete
	}, time.Second, time.Millisecond)
}

func TestUseFakeClusterReadsEnvVar(t *testing.T) {
	require.NoError(t, os.Unsetenv(FakeHPCClusterEnvVar))
	require.False(t, UseFakeCluster())

	require.NoError(t, os.Setenv(FakeHPCClusterEnvVar, "1"))
	defer os.Unsetenv(FakeHPCClusterEnvVar)
	require.True(t, UseFakeCluster())
}
