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
	"path/filepath"

	"github.com/daniel-thom/jade/lib/runner"
	"github.com/gravitational/trace"
	log "github.com/sirupsen/logrus"
)

// runJobsCmd holds the flags for `jade run-jobs`, the per-node runner
// entry point a generated run-script invokes (spec §6).
type runJobsCmd struct {
	SubConfig    string
	Output       string
	NumProcesses int
	Verbose      bool
}

func (c *runJobsCmd) run() error {
	if c.Verbose {
		log.SetLevel(log.DebugLevel)
	}
	batchName := filepath.Base(c.SubConfig)
	batchName = batchName[:len(batchName)-len(filepath.Ext(batchName))]
	if err := runner.RunJobs(c.SubConfig, c.Output, batchName, c.NumProcesses); err != nil {
		return trace.Wrap(err)
	}
	return nil
}
