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

// Package defaults centralizes the tunables the scheduler and CLI fall
// back to when the caller does not override them.
package defaults

import "time"

const (
	// PerNodeBatchSize is the default number of jobs packed into a single
	// node's batch.
	PerNodeBatchSize = 8

	// QueueDepth is the default number of AsyncBatches the SubmissionQueue
	// allows in flight at once (the "max-nodes" CLI option).
	QueueDepth = 4

	// PollInterval is the default cadence at which the SubmissionQueue
	// polls in-flight batches for status.
	PollInterval = 60 * time.Second

	// RetryInterval is a backoff base interval for retrying transient
	// ClusterManager.check_status failures. hpc.Slurm.CheckStatus does not
	// use it: its retry starts from the backoff package's default initial
	// interval.
	RetryInterval = 5 * time.Second

	// MaxTransientStatusFailures is the number of consecutive transient
	// check_status failures an AsyncBatch tolerates before it gives up and
	// treats the batch as COMPLETE=NONE, per spec §7 (TransientClusterError).
	MaxTransientStatusFailures = 5

	// OutputDir is the default output directory for a scheduler run.
	OutputDir = "output"

	// ConfigFile is the default name of a job configuration document.
	ConfigFile = "config.json"

	// EventLogMaxBytes bounds a single event log file before it should be
	// rotated by the caller (rotation itself is an external collaborator,
	// §1).
	EventLogMaxBytes = 100 * 1024 * 1024
)
