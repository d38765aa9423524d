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

// Package batch implements the pure job-packing function described in
// spec §4.4 ("BatchPacker"), grounded on daniel-thom/jade's
// hpc_submitter._BatchJobs/HpcSubmitter.run packing loop and expressed as a
// side-effect-free function instead of a stateful helper class, matching
// the gravitational/gravity convention of small, independently-testable
// pure helpers (e.g. lib/storage/plan.go's GetLeafPhases).
package batch

import "github.com/daniel-thom/jade/lib/jobs"

// Result is the outcome of a single Pack call: the jobs admitted into the
// batch, the indices (into the ready_jobs slice passed in) the caller
// should remove from its ready-queue, and the number of candidates that
// were considered but left blocked.
type Result struct {
	Batch        []jobs.Job
	IndicesTaken []int
	NumBlocked   int
}

// Pack admits jobs from readyJobs into a single node's batch, in
// declaration order, until perNodeBatchSize jobs have been admitted or the
// candidates are exhausted (spec §4.4). completedNames is the monotonically
// growing set of job names the ResultsAggregator has already observed
// finish. When tryAddBlockedJobs is true, a candidate whose dependencies
// are satisfied by jobs already admitted to this same batch is also
// admitted, on the understanding that the remote per-node runner linearizes
// execution within the batch.
//
// Pack has no side effects: it does not mutate readyJobs and may be called
// repeatedly with the same arguments to get the same result, which is the
// property spec §8 calls out as required for reproducibility.
func Pack(readyJobs []jobs.Job, completedNames map[string]bool, perNodeBatchSize int, tryAddBlockedJobs bool) Result {
	var result Result
	namesInBatch := map[string]bool{}

	for i, job := range readyJobs {
		if len(result.Batch) >= perNodeBatchSize {
			break
		}

		if dependenciesSatisfied(job, completedNames, nil) {
			result.Batch = append(result.Batch, job)
			result.IndicesTaken = append(result.IndicesTaken, i)
			namesInBatch[job.Name] = true
			continue
		}

		if tryAddBlockedJobs && dependenciesSatisfied(job, completedNames, namesInBatch) {
			result.Batch = append(result.Batch, job)
			result.IndicesTaken = append(result.IndicesTaken, i)
			namesInBatch[job.Name] = true
			continue
		}

		result.NumBlocked++
	}

	return result
}

// dependenciesSatisfied reports whether every name in job.BlockedBy is in
// completedNames, optionally also allowing names present in extra (the
// names already admitted to the in-progress batch).
func dependenciesSatisfied(job jobs.Job, completedNames map[string]bool, extra map[string]bool) bool {
	for _, dep := range job.BlockedBy {
		if completedNames[dep] {
			continue
		}
		if extra != nil && extra[dep] {
			continue
		}
		return false
	}
	return true
}
