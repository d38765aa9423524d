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

// Package scheduler implements the top-level control loop described in
// spec §4.7 ("Scheduler"), grounded on daniel-thom/jade's
// HpcSubmitter.run and adapted to the gravitational/gravity lib/fsm
// convention of a single driving Engine that owns a Params struct and logs
// through a Logger-shaped interface.
package scheduler

import (
	"strconv"
	"time"

	"github.com/daniel-thom/jade/lib/batch"
	"github.com/daniel-thom/jade/lib/config"
	"github.com/daniel-thom/jade/lib/events"
	"github.com/daniel-thom/jade/lib/hpc"
	"github.com/daniel-thom/jade/lib/jadeerrors"
	"github.com/daniel-thom/jade/lib/jobs"
	"github.com/daniel-thom/jade/lib/queue"
	"github.com/daniel-thom/jade/lib/runner"
	"github.com/gravitational/trace"
	log "github.com/sirupsen/logrus"
)

// Options configures a single Scheduler.Run call, matching the top-level
// run(output, queue_depth, per_node_batch_size, num_processes,
// poll_interval, try_add_blocked_jobs, verbose) signature of spec §4.7.
type Options struct {
	Name                 string
	ConfigPath           string
	OutputDir            string
	QueueDepth           int
	PerNodeBatchSize     int
	NumProcesses         int
	PollInterval         time.Duration
	TryAddBlockedJobs    bool
	Verbose              bool
	MaxTransientFailures int
}

// Scheduler owns the mutable ready-queue and the SubmissionQueue; it holds
// a non-owning reference to a shared ClusterManager and a read-only view
// of the ResultsAggregator (spec §4.1 "Ownership").
type Scheduler struct {
	manager hpc.Manager
	sink    events.Sink
	agg     *jobs.Aggregator
}

// New returns a Scheduler driving manager, recording events to sink, and
// reading completions from agg.
func New(manager hpc.Manager, sink events.Sink, agg *jobs.Aggregator) *Scheduler {
	return &Scheduler{manager: manager, sink: sink, agg: agg}
}

// Run executes the packing/submission loop described in spec §4.7 until
// every job in the configuration has been submitted and every submitted
// batch has terminated.
func (s *Scheduler) Run(opts Options) error {
	doc, err := config.Load(opts.ConfigPath)
	if err != nil {
		return s.fail(opts.Name, err)
	}

	ready := append([]jobs.Job{}, doc.Jobs...)
	completed := map[string]bool{}
	submissionQueue := queue.NewSubmissionQueue(opts.QueueDepth, opts.PollInterval)
	batchIndex := 1

	for len(ready) > 0 {
		if err := s.updateCompleted(&completed); err != nil {
			return s.fail(opts.Name, err)
		}

		// Never attempt to pack and submit another batch while the queue
		// is already at queue_depth: submission would either block or have
		// to be discarded, neither of which the SubmissionQueue permits
		// (spec §4.6 "never exceed queue_depth concurrent in-flight
		// batches").
		if submissionQueue.IsFull() {
			submissionQueue.ProcessQueue()
			time.Sleep(opts.PollInterval)
			continue
		}

		packed := batch.Pack(ready, completed, opts.PerNodeBatchSize, opts.TryAddBlockedJobs)

		if len(packed.Batch) == 0 && submissionQueue.InFlightCount() == 0 {
			return s.fail(opts.Name, jadeerrors.NewInvalidConfiguration(
				"no jobs ready, nothing in flight, and no new completions: "+
					"%d jobs remain blocked, dependency graph cannot make progress", len(ready)))
		}

		if len(packed.Batch) > 0 {
			if err := s.submitBatch(doc, &packed, opts, submissionQueue, batchIndex); err != nil {
				return s.fail(opts.Name, err)
			}
			ready = removeIndices(ready, packed.IndicesTaken)
			batchIndex++
		} else {
			log.Debug("no jobs are ready for submission")
		}

		log.Debugf("num_submitted=%d num_blocked=%d", len(packed.Batch), packed.NumBlocked)

		if len(packed.Batch) > 0 && !submissionQueue.IsFull() {
			continue
		}

		submissionQueue.ProcessQueue()
		time.Sleep(opts.PollInterval)
	}

	submissionQueue.Wait()
	return nil
}

// fail records err as an Error-category event (source filename/line,
// error message) before re-raising it, per spec §7 ("No silent swallowing
// of unexpected errors ... produce an Error-category event ... then
// re-raise"). The sink is best-effort: a logging failure here never masks
// the original error.
func (s *Scheduler) fail(source string, err error) error {
	_ = s.sink.Log(events.NewErrorEvent(source, err, 1))
	return trace.Wrap(err)
}

// submitBatch materializes the sub-config and run-script for packed,
// constructs its AsyncBatch, and hands it to the SubmissionQueue, emitting
// the hpc_submit event on success (spec §4.7).
func (s *Scheduler) submitBatch(doc *config.Document, packed *batch.Result, opts Options, submissionQueue *queue.SubmissionQueue, batchIndex int) error {
	subConfigPath, runScriptPath := config.BatchFileNames(opts.ConfigPath, opts.OutputDir, batchIndex)
	subConfig := config.MaterializeBatch(doc, packed.Batch)
	if err := config.Dump(subConfig, subConfigPath); err != nil {
		return s.fail(opts.Name, err)
	}
	log.Infof("created split config file %s with %d jobs", subConfigPath, len(packed.Batch))

	if err := runner.WriteScript(runScriptPath, runner.ScriptOptions{
		RunnerName:    "jade",
		SubConfigPath: subConfigPath,
		OutputDir:     opts.OutputDir,
		NumProcesses:  opts.NumProcesses,
		Verbose:       opts.Verbose,
	}); err != nil {
		return s.fail(opts.Name, err)
	}

	name := opts.Name + "_batch_" + strconv.Itoa(batchIndex)
	asyncBatch := queue.New(s.manager, s.sink, name, runScriptPath, opts.OutputDir, opts.MaxTransientFailures)

	if err := submissionQueue.Submit(asyncBatch); err != nil {
		return s.fail(opts.Name, err)
	}

	_ = s.sink.Log(events.New(opts.Name, events.CategoryHPC, events.NameHPCSubmit, "Submitted HPC batch",
		map[string]interface{}{
			"batch_size":          len(packed.Batch),
			"num_blocked":         packed.NumBlocked,
			"per_node_batch_size": opts.PerNodeBatchSize,
		}))
	return nil
}

// updateCompleted refreshes the ResultsAggregator and folds any
// newly-completed job names into completed, converging the dependency DAG
// as results arrive (spec §4.7 "update_completed").
func (s *Scheduler) updateCompleted(completed *map[string]bool) error {
	// Not wrapped in s.fail here: Run records the Error-category event
	// once for this failure at its own call site.
	if err := s.agg.Refresh(); err != nil {
		return trace.Wrap(err)
	}
	for name := range s.agg.CompletedJobNames() {
		(*completed)[name] = true
	}
	return nil
}

func removeIndices(jobList []jobs.Job, indices []int) []jobs.Job {
	remove := make(map[int]bool, len(indices))
	for _, i := range indices {
		remove[i] = true
	}
	out := make([]jobs.Job, 0, len(jobList)-len(indices))
	for i, j := range jobList {
		if !remove[i] {
			out = append(out, j)
		}
	}
	return out
}

