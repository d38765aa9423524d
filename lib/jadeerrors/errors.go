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

// Package jadeerrors defines the small taxonomy of fatal and non-fatal
// conditions the scheduling core distinguishes (spec §7). They wrap
// gravitational/trace so callers keep trace's stack capture and
// DebugReport output while still being able to switch on error kind.
package jadeerrors

import "github.com/gravitational/trace"

// NewInvalidConfiguration builds the fatal error raised when a job
// configuration references an unknown dependency or contains a cycle.
// It is a trace.BadParameter under the hood so callers that only care
// about the generic classification can use trace.IsBadParameter.
func NewInvalidConfiguration(format string, args ...interface{}) error {
	return trace.BadParameter(format, args...)
}

// IsInvalidConfiguration returns true if err represents an
// InvalidConfiguration condition.
func IsInvalidConfiguration(err error) bool {
	return trace.IsBadParameter(err)
}

// ExecutionError indicates ClusterManager.Submit returned a non-GOOD
// status. The offending AsyncBatch is discarded; the baseline scheduler
// policy is to abort the run (spec §7).
type ExecutionError struct {
	// Message describes what failed to submit.
	Message string
}

// Error implements error
func (e *ExecutionError) Error() string {
	return e.Message
}

// NewExecutionError wraps a reason string into a trace-annotated
// ExecutionError.
func NewExecutionError(format string, args ...interface{}) error {
	return trace.Wrap(&ExecutionError{Message: trace.Errorf(format, args...).Error()})
}

// IsExecutionError returns true if err is (or wraps) an ExecutionError.
func IsExecutionError(err error) bool {
	_, ok := trace.Unwrap(err).(*ExecutionError)
	return ok
}
