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
	"io"
	"os"
	"path/filepath"

	"github.com/gravitational/trace"
	"github.com/olekukonko/tablewriter"
)

// Summary consolidates every events.log found under an output directory
// into a single, timestamp-ordered view, restoring the `jade show-events`
// CLI behavior of events.py's EventsSummary (SPEC_FULL.md §12.2).
type Summary struct {
	events []Event
}

// LoadSummary walks dir for files matching "*events.log" (the naming
// convention written by fileSink, currently one aggregate run_events.log
// at the output root) and parses every NDJSON record found.
func LoadSummary(dir string) (*Summary, error) {
	var paths []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		matched, err := filepath.Match("*events.log", info.Name())
		if err != nil {
			return err
		}
		if matched {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, trace.Wrap(err)
	}

	var all []Event
	for _, path := range paths {
		parsed, err := parseEventLog(path)
		if err != nil {
			return nil, trace.Wrap(err)
		}
		all = append(all, parsed...)
	}
	ByTimestamp(all)
	return &Summary{events: all}, nil
}

func parseEventLog(path string) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	defer f.Close()

	var out []Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var event Event
		if err := json.Unmarshal(line, &event); err != nil {
			return nil, trace.Wrap(err, "parsing %v", path)
		}
		out = append(out, event)
	}
	if err := scanner.Err(); err != nil && err != io.EOF {
		return nil, trace.Wrap(err)
	}
	return out, nil
}

// List returns every event, optionally filtered to a single category and/or
// name ("" means no filter on that dimension), mirroring
// EventsSummary.list_events(category=..., name=...).
func (s *Summary) List(category Category, name Name) []Event {
	var out []Event
	for _, e := range s.events {
		if category != "" && e.Category != category {
			continue
		}
		if name != "" && e.Name != name {
			continue
		}
		out = append(out, e)
	}
	return out
}

// UniqueNames returns the distinct event names present, in first-seen
// order, mirroring EventsSummary.list_unique_names().
func (s *Summary) UniqueNames() []Name {
	seen := map[Name]bool{}
	var out []Name
	for _, e := range s.events {
		if !seen[e.Name] {
			seen[e.Name] = true
			out = append(out, e.Name)
		}
	}
	return out
}

// Show renders events (optionally filtered, see List) as a table to w,
// grounded on the tool/gravity/cli site-status command's use of
// olekukonko/tablewriter for columnar CLI output.
func (s *Summary) Show(w io.Writer, category Category, name Name) {
	events := s.List(category, name)
	table := tablewriter.NewWriter(w)
	if len(events) == 0 {
		table.SetHeader([]string{"timestamp", "source", "category", "name", "message"})
		table.Render()
		return
	}
	table.SetHeader(events[0].FieldNames())
	table.SetAutoWrapText(false)
	table.SetRowLine(false)
	for _, e := range events {
		table.Append(e.Values())
	}
	table.Render()
}
