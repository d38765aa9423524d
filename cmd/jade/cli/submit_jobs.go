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
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/daniel-thom/jade/lib/config"
	"github.com/daniel-thom/jade/lib/defaults"
	"github.com/daniel-thom/jade/lib/events"
	"github.com/daniel-thom/jade/lib/hpc"
	"github.com/daniel-thom/jade/lib/jobs"
	"github.com/daniel-thom/jade/lib/scheduler"
	"github.com/daniel-thom/jade/lib/utils"
	"github.com/gravitational/trace"
)

// submitJobsCmd holds the flags for `jade submit-jobs`, restoring
// jade/cli/submit_jobs.py's option set (spec §6, SPEC_FULL.md §12.3-4).
type submitJobsCmd struct {
	ConfigFile        string
	Output            string
	PerNodeBatchSize  int
	QueueDepth        int
	PollInterval      time.Duration
	NumProcesses      int
	HPCConfigFile     string
	Local             bool
	TryAddBlockedJobs bool
	RestartFailed     bool
	RestartMissing    bool
	Verbose           bool
}

func (c *submitJobsCmd) run() error {
	progress := utils.NewConsoleProgress(context.Background(), "submit-jobs", 3)
	defer progress.Stop()

	// The output directory and its run_events.log are created before
	// anything else can fail, so every subsequent error in this command
	// has somewhere durable to record the Error-category event spec §7
	// mandates before it is re-raised.
	if err := os.MkdirAll(c.Output, 0o755); err != nil {
		return trace.Wrap(err)
	}
	sink, err := events.NewFileSink(filepath.Join(c.Output, "run_events.log"))
	if err != nil {
		return trace.Wrap(err)
	}
	defer sink.Close()

	progress.NextStep("loading configuration from %v", c.ConfigFile)
	configPath := c.ConfigFile
	if c.RestartFailed || c.RestartMissing {
		reduced, err := c.buildRestartConfig()
		if err != nil {
			return c.fail(sink, err)
		}
		configPath = reduced
	}

	if _, err := config.Load(configPath); err != nil {
		return c.fail(sink, err)
	}

	manager, err := c.buildManager()
	if err != nil {
		return c.fail(sink, err)
	}

	agg := jobs.NewAggregator(c.Output)

	progress.NextStep("submitting and polling batches (backend=%v, queue_depth=%v)", manager.Backend(), c.QueueDepth)
	name := stemOf(configPath)
	s := scheduler.New(manager, sink, agg)
	// s.Run already records its own Error-category event on the same sink
	// before returning, so the failure here is only re-raised, not logged
	// a second time.
	if err := s.Run(scheduler.Options{
		Name:                 name,
		ConfigPath:           configPath,
		OutputDir:            c.Output,
		QueueDepth:           c.QueueDepth,
		PerNodeBatchSize:     c.PerNodeBatchSize,
		NumProcesses:         c.NumProcesses,
		PollInterval:         c.PollInterval,
		TryAddBlockedJobs:    c.TryAddBlockedJobs,
		Verbose:              c.Verbose,
		MaxTransientFailures: defaults.MaxTransientStatusFailures,
	}); err != nil {
		return trace.Wrap(err)
	}

	progress.NextStep("run complete")
	return nil
}

// fail records err as an Error-category event on sink before re-raising it,
// per spec §7 ("No silent swallowing of unexpected errors ... produce an
// Error-category event ... then re-raise").
func (c *submitJobsCmd) fail(sink events.Sink, err error) error {
	_ = sink.Log(events.NewErrorEvent("submit-jobs", err, 1))
	return trace.Wrap(err)
}

// buildManager selects the hpc.Manager backend: the fake in-process backend
// when --local is set or FAKE_HPC_CLUSTER is in the environment (spec §6),
// otherwise the real Slurm backend configured from --hpc-config.
func (c *submitJobsCmd) buildManager() (hpc.Manager, error) {
	if c.Local || hpc.UseFakeCluster() {
		return hpc.NewFake(), nil
	}
	hpcConfig, err := config.LoadHPCConfig(c.HPCConfigFile)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	return &hpc.Slurm{
		Account:   hpcConfig.Account,
		Partition: hpcConfig.Partition,
		Walltime:  hpcConfig.Walltime,
	}, nil
}

// buildRestartConfig implements --restart-failed/--restart-missing: it
// loads the aggregator's already-recorded results for this output
// directory and writes a reduced configuration document containing only
// the jobs that still need to run, restoring the original's restart flow
// (SPEC_FULL.md §12.4).
//
// Open Question (spec §9, resolved here): when both flags are set, the
// failed and missing jobs are unioned, so a single restart run covers both
// a failed job and one that never got recorded at all; the union is
// de-duplicated by name and keeps the original document's job order.
func (c *submitJobsCmd) buildRestartConfig() (string, error) {
	doc, err := config.Load(c.ConfigFile)
	if err != nil {
		return "", trace.Wrap(err)
	}

	agg := jobs.NewAggregator(c.Output)
	if err := agg.Refresh(); err != nil {
		return "", trace.Wrap(err)
	}

	wanted := map[string]bool{}
	if c.RestartFailed {
		for _, name := range agg.Failed() {
			wanted[name] = true
		}
	}
	if c.RestartMissing {
		allNames := make([]string, 0, len(doc.Jobs))
		for _, j := range doc.Jobs {
			allNames = append(allNames, j.Name)
		}
		for _, name := range agg.Missing(allNames) {
			wanted[name] = true
		}
	}

	successful := map[string]bool{}
	for _, r := range agg.GetSuccessfulResults() {
		successful[r.Name] = true
	}

	var reduced []jobs.Job
	for _, j := range doc.Jobs {
		if !wanted[j.Name] {
			continue
		}
		var blockedBy []string
		for _, dep := range j.BlockedBy {
			switch {
			case wanted[dep]:
				// The dependency is itself being restarted in this run;
				// keep the ordering constraint between the two.
				blockedBy = append(blockedBy, dep)
			case successful[dep]:
				// Already satisfied by the prior run and not being
				// restarted; drop it so config.Load's unknown-dependency
				// check does not reject the reduced document.
			default:
				// Neither restarted nor previously successful: keep the
				// reference so config.Load surfaces the inconsistency
				// instead of silently treating it as satisfied.
				blockedBy = append(blockedBy, dep)
			}
		}
		j.BlockedBy = blockedBy
		reduced = append(reduced, j)
	}

	restartDoc := &config.Document{Jobs: reduced, Extra: doc.Extra}
	restartPath := filepath.Join(c.Output, "restart_"+filepath.Base(c.ConfigFile))
	if err := config.Dump(restartDoc, restartPath); err != nil {
		return "", trace.Wrap(err)
	}
	return restartPath, nil
}

func stemOf(path string) string {
	base := filepath.Base(path)
	return base[:len(base)-len(filepath.Ext(base))]
}
