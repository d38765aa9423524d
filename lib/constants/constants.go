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

// Package constants holds the small set of fixed strings and sizes shared
// across jade packages: field names used for structured logging, on-disk
// file suffixes, and the environment variable that selects the fake HPC
// backend.
package constants

const (
	// FieldJob tags the job name in structured log entries.
	FieldJob = "job"
	// FieldBatch tags the batch name (e.g. "myconfig_batch_3") in structured
	// log entries.
	FieldBatch = "batch"
	// FieldJobID tags the backend-assigned cluster job id.
	FieldJobID = "job_id"

	// ConfigFileExtension is the extension used for job configuration and
	// sub-configuration documents.
	ConfigFileExtension = ".json"

	// EventsFilename is the name reserved for a consolidated events summary
	// file under an output directory. events.Summary reads the *events.log
	// files and writes no file of its own.
	EventsFilename = "events.json"

	// FakeHPCClusterEnvVar selects the fake (local/in-memory) cluster
	// backend when present in the environment, whatever its value (an empty
	// value included). See spec §6.
	FakeHPCClusterEnvVar = "FAKE_HPC_CLUSTER"

	// Completed is the number of character cells used to render a progress
	// bar.
	Completed = 50
)
