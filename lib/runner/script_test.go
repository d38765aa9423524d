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
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildScriptHasBashShebangAndRunnerInvocation(t *testing.T) {
	body := BuildScript(ScriptOptions{
		RunnerName:    "jade",
		SubConfigPath: "/output/jobs_batch_1.json",
		OutputDir:     "/output",
		NumProcesses:  4,
		Verbose:       true,
	})

	lines := strings.Split(strings.TrimRight(body, "\n"), "\n")
	require.Equal(t, "#!/bin/bash", lines[0])
	last := lines[len(lines)-1]
	require.Contains(t, last, "jade run-jobs /output/jobs_batch_1.json --output=/output")
	require.Contains(t, last, "--num-processes=4")
	require.Contains(t, last, "--verbose")
}

func TestBuildScriptOmitsOptionalFlagsWhenUnset(t *testing.T) {
	body := BuildScript(ScriptOptions{
		RunnerName:    "jade",
		SubConfigPath: "/output/jobs_batch_1.json",
		OutputDir:     "/output",
	})
	require.NotContains(t, body, "--num-processes")
	require.NotContains(t, body, "--verbose")
}

func TestParseScriptRecoversOptions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run_batch_1.sh")
	require.NoError(t, WriteScript(path, ScriptOptions{
		RunnerName:    "jade-internal",
		SubConfigPath: "/output/jobs_batch_1.json",
		OutputDir:     "/output",
		NumProcesses:  2,
		Verbose:       true,
	}))

	parsed, err := ParseScript(path)
	require.NoError(t, err)
	require.Equal(t, "jade-internal", parsed.RunnerName)
	require.Equal(t, "/output/jobs_batch_1.json", parsed.SubConfigPath)
	require.Equal(t, "/output", parsed.OutputDir)
	require.Equal(t, 2, parsed.NumProcesses)
	require.True(t, parsed.Verbose)
}

func TestWriteScriptIsExecutable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run_batch_1.sh")
	require.NoError(t, WriteScript(path, ScriptOptions{
		RunnerName:    "jade",
		SubConfigPath: "config.json",
		OutputDir:     dir,
	}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.NotZero(t, info.Mode()&0o100)
}
