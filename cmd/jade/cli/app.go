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

// Package cli implements the external, non-core "submit-jobs" CLI surface
// described in spec §6, grounded on daniel-thom/jade's
// jade/cli/submit_jobs.py and run_jobs.py and adapted to the
// gravitational/gravity idiom of a kingpin.Application wrapped in a struct
// of typed Cmd fields, dispatched by FullCommand() (tool/gravity/cli).
package cli

import (
	"strconv"

	"github.com/daniel-thom/jade/lib/defaults"
	"github.com/gravitational/trace"
	"gopkg.in/alecthomas/kingpin.v2"
)

// Application is the "jade" command-line application: every subcommand's
// flags live on a typed Cmd struct field, matching gravity's
// tool/gravity/cli.Application shape.
type Application struct {
	*kingpin.Application

	Debug *bool

	SubmitJobsCmd submitJobsCmd
	RunJobsCmd    runJobsCmd
	ShowEventsCmd showEventsCmd
}

// RegisterCommands builds the jade Application on top of app, registering
// every subcommand's flags and arguments.
func RegisterCommands(app *kingpin.Application) *Application {
	g := &Application{Application: app}
	g.Debug = app.Flag("debug", "Enable verbose debug logging.").Bool()

	submit := app.Command("submit-jobs", "Submit the jobs in a configuration file to an HPC cluster or the local machine.")
	submit.Arg("config-file", "Path to the job configuration document.").Required().StringVar(&g.SubmitJobsCmd.ConfigFile)
	submit.Flag("output", "Directory to write sub-configs, run-scripts, and the event log to.").Default(defaults.OutputDir).StringVar(&g.SubmitJobsCmd.Output)
	submit.Flag("per-node-batch-size", "Maximum number of jobs packed into a single node's batch.").Default(strconv.Itoa(defaults.PerNodeBatchSize)).IntVar(&g.SubmitJobsCmd.PerNodeBatchSize)
	submit.Flag("max-nodes", "Maximum number of batches submitted and polled concurrently (the SubmissionQueue depth).").Default(strconv.Itoa(defaults.QueueDepth)).IntVar(&g.SubmitJobsCmd.QueueDepth)
	submit.Flag("poll-interval", "Cadence at which in-flight batches are polled for status.").Default(defaults.PollInterval.String()).DurationVar(&g.SubmitJobsCmd.PollInterval)
	submit.Flag("num-processes", "Number of worker processes the per-node runner fans out to within a batch.").IntVar(&g.SubmitJobsCmd.NumProcesses)
	submit.Flag("hpc-config", "Path to a backend-specific HPC config document (partition/account/walltime).").StringVar(&g.SubmitJobsCmd.HPCConfigFile)
	submit.Flag("local", "Run every job on the local machine instead of submitting to a real cluster (implies the fake backend).").BoolVar(&g.SubmitJobsCmd.Local)
	submit.Flag("try-add-blocked-jobs", "Allow a job to share a batch with its own blockers, relying on the per-node runner to linearize them.").Default("true").BoolVar(&g.SubmitJobsCmd.TryAddBlockedJobs)
	submit.Flag("restart-failed", "Before running, reduce the configuration to jobs that previously failed.").BoolVar(&g.SubmitJobsCmd.RestartFailed)
	submit.Flag("restart-missing", "Before running, reduce the configuration to jobs with no recorded result at all.").BoolVar(&g.SubmitJobsCmd.RestartMissing)
	submit.Flag("verbose", "Pass --verbose through to the per-node runner.").BoolVar(&g.SubmitJobsCmd.Verbose)

	run := app.Command("run-jobs", "Run-script entry point: execute every job in a sub-config sequentially (the per-node runner, spec §6).")
	run.Arg("sub-config", "Path to the batch sub-configuration document produced by submit-jobs.").Required().StringVar(&g.RunJobsCmd.SubConfig)
	run.Flag("output", "Output directory shared with the submitting scheduler run.").Default(defaults.OutputDir).StringVar(&g.RunJobsCmd.Output)
	run.Flag("num-processes", "Accepted for CLI-contract compatibility; this runner executes jobs sequentially.").IntVar(&g.RunJobsCmd.NumProcesses)
	run.Flag("verbose", "Enable verbose per-job logging.").BoolVar(&g.RunJobsCmd.Verbose)

	show := app.Command("show-events", "Consolidate and print every events.log found under an output directory.")
	show.Arg("output", "Output directory a submit-jobs run wrote to.").Default(defaults.OutputDir).StringVar(&g.ShowEventsCmd.Output)
	show.Flag("category", "Restrict to one event category (HPC, Error, ResourceUtilization).").StringVar(&g.ShowEventsCmd.Category)
	show.Flag("name", "Restrict to one event name (hpc_submit, hpc_job_assigned, hpc_job_state_change).").StringVar(&g.ShowEventsCmd.Name)

	return g
}

// Run parses args and dispatches to the selected subcommand, mirroring
// tool/gravity/cli.Run's FullCommand() switch.
func Run(args []string) error {
	app := kingpin.New("jade", "Submit, pack, and track a dependency-ordered batch of HPC jobs.")
	g := RegisterCommands(app)

	command, err := app.Parse(args)
	if err != nil {
		return trace.Wrap(err)
	}

	if *g.Debug {
		initLogging("debug")
	} else {
		initLogging("info")
	}

	switch command {
	case "submit-jobs":
		return g.SubmitJobsCmd.run()
	case "run-jobs":
		return g.RunJobsCmd.run()
	case "show-events":
		return g.ShowEventsCmd.run()
	default:
		return trace.BadParameter("unrecognized command %q", command)
	}
}
