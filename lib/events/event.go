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

// Package events implements the structured, append-only event stream
// described in spec §3 ("Event") and §4.1 ("EventSink"), grounded on
// daniel-thom/jade's events.py and adapted to the gravitational/gravity
// idiom of JSON-tagged structs logged through logrus-compatible sinks.
package events

import (
	"encoding/json"
	"fmt"
	"runtime"
	"sort"
	"time"

	"github.com/gravitational/trace"
)

// Category groups events by the subsystem that produced them.
type Category string

const (
	// CategoryHPC covers submission, assignment and state-change events
	// emitted by the SubmissionQueue/AsyncBatch machinery.
	CategoryHPC Category = "HPC"
	// CategoryError covers unhandled exceptions surfaced as events per
	// spec §7 ("produces an Error-category event ... then re-raise").
	CategoryError Category = "Error"
	// CategoryResourceUtilization is reserved for node-level resource
	// sampling events emitted by the (external) per-node runner.
	CategoryResourceUtilization Category = "ResourceUtilization"
)

// Name enumerates the event names the core scheduler recognizes (spec §6).
type Name string

const (
	// NameHPCSubmit marks a batch submitted to the SubmissionQueue.
	NameHPCSubmit Name = "hpc_submit"
	// NameHPCJobAssigned marks a successful ClusterManager.Submit call.
	NameHPCJobAssigned Name = "hpc_job_assigned"
	// NameHPCJobStateChange marks an AsyncBatch status transition.
	NameHPCJobStateChange Name = "hpc_job_state_change"
	// NameUnhandledError marks an unexpected error surfaced to the event
	// stream before being re-raised (spec §7).
	NameUnhandledError Name = "error"
)

// Event is an append-only structured record: (timestamp, source, category,
// name, message, data). data is an open string-keyed map so unrecognized
// keys from older or newer writers round-trip untouched (spec §9).
type Event struct {
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Category  Category               `json:"category"`
	Name      Name                   `json:"name"`
	Message   string                 `json:"message"`
	Data      map[string]interface{} `json:"data"`
}

// New constructs an Event stamped with the current time. data is the
// free-form key-value map, playing the role of the **kwargs of events.py's
// StructuredLogEvent constructor; a nil map is replaced by an empty one.
func New(source string, category Category, name Name, message string, data map[string]interface{}) Event {
	if data == nil {
		data = map[string]interface{}{}
	}
	return Event{
		Timestamp: time.Now().UTC(),
		Source:    source,
		Category:  category,
		Name:      name,
		Message:   message,
		Data:      data,
	}
}

// NewErrorEvent builds a CategoryError/NameUnhandledError event that
// captures the error's Go type, its message and the caller's source
// location, mirroring
// events.py's StructuredErrorLogEvent which parses sys.exc_info() for the
// exception type, filename and line number (spec §7, restored per
// SPEC_FULL.md §12.1).
//
// skip is the number of additional stack frames to skip past NewErrorEvent
// itself; pass 0 when calling directly from the failing site.
func NewErrorEvent(source string, err error, skip int) Event {
	_, file, line, ok := runtime.Caller(1 + skip)
	data := map[string]interface{}{
		"exception": fmt.Sprintf("%T", trace.Unwrap(err)),
		"error":     err.Error(),
	}
	if ok {
		data["filename"] = file
		data["lineno"] = line
	}
	return New(source, CategoryError, NameUnhandledError, "unhandled error", data)
}

// FieldNames returns the base field names followed by the data keys, sorted,
// matching events.py's field_names()/values() pairing used for tabular
// display.
func (e Event) FieldNames() []string {
	names := []string{"timestamp", "source", "category", "name", "message"}
	keys := make([]string, 0, len(e.Data))
	for k := range e.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return append(names, keys...)
}

// Values returns one string per FieldNames() entry, for tabular display.
func (e Event) Values() []string {
	values := []string{
		e.Timestamp.Format(time.RFC3339Nano),
		e.Source,
		string(e.Category),
		string(e.Name),
		e.Message,
	}
	keys := make([]string, 0, len(e.Data))
	for k := range e.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		values = append(values, fmt.Sprintf("%v", e.Data[k]))
	}
	return values
}

// MarshalJSON renders one self-contained JSON record, per spec §4.1.
func (e Event) MarshalJSON() ([]byte, error) {
	type alias Event
	b, err := json.Marshal(alias(e))
	return b, trace.Wrap(err)
}

// ByTimestamp sorts a slice of Events in place, ascending by Timestamp,
// matching events.py's EventsSummary sort key.
func ByTimestamp(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.Before(events[j].Timestamp)
	})
}
