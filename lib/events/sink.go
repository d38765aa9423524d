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

package events

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/gravitational/trace"
	log "github.com/sirupsen/logrus"
)

// Sink records Events somewhere durable. Per spec §4.1, a Sink failure is
// logged and swallowed: it must never abort a scheduler run.
type Sink interface {
	// Log appends event, returning an error only so tests can assert on
	// the failure; production callers are expected to ignore it and rely
	// on the Sink's own internal best-effort logging.
	Log(event Event) error
	// Close releases any resources (open file handles) held by the sink.
	Close() error
}

// fileSink appends newline-delimited JSON records to a single file, never
// rewriting previously written bytes, matching events.py's append-only
// jsonlines event log.
type fileSink struct {
	mu   sync.Mutex
	path string
	file *os.File
	w    *bufio.Writer
}

// NewFileSink opens (creating if necessary) an append-only NDJSON event log
// at path, grounded on gravity's convention of one durable log file per
// resource under an output directory.
func NewFileSink(path string) (Sink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, trace.Wrap(err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	return &fileSink{
		path: path,
		file: f,
		w:    bufio.NewWriter(f),
	}, nil
}

// Log implements Sink. A marshal or write failure is logged at Warn level
// and returned, but is never escalated to a fatal error by callers that
// follow spec §4.1 (EventSinkFailure is logged, never fatal).
func (s *fileSink) Log(event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := json.Marshal(event)
	if err != nil {
		log.WithError(err).Warn("failed to marshal event, dropping")
		return trace.Wrap(err)
	}
	b = append(b, '\n')
	if _, err := s.w.Write(b); err != nil {
		log.WithError(err).Warn("failed to write event, dropping")
		return trace.Wrap(err)
	}
	if err := s.w.Flush(); err != nil {
		log.WithError(err).Warn("failed to flush event log")
		return trace.Wrap(err)
	}
	return nil
}

// Close implements Sink.
func (s *fileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.w.Flush(); err != nil {
		return trace.Wrap(err)
	}
	return trace.Wrap(s.file.Close())
}

// NullSink discards every event. Useful for unit tests of collaborators
// that require a Sink but do not assert on its contents.
type NullSink struct{}

// Log implements Sink.
func (NullSink) Log(Event) error { return nil }

// Close implements Sink.
func (NullSink) Close() error { return nil }

// MemorySink records events in memory, for tests that need to assert on the
// exact sequence of events emitted (spec §8, "non-repeating sequence of
// state changes").
type MemorySink struct {
	mu     sync.Mutex
	Events []Event
}

// NewMemorySink returns an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Log implements Sink.
func (m *MemorySink) Log(event Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, event)
	return nil
}

// Close implements Sink.
func (m *MemorySink) Close() error { return nil }

// Snapshot returns a copy of the events recorded so far.
func (m *MemorySink) Snapshot() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.Events))
	copy(out, m.Events)
	return out
}
